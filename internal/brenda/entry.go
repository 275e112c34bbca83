// SPDX-License-Identifier: MIT

package brenda

import (
	"regexp"
	"strconv"
	"strings"
)

// Entry is one structured data line of a record. BRENDA prefixes each line
// with a two-letter code and annotates values with protein numbers (#1,2#),
// literature references (<3,4>) and parenthesized commentary.
type Entry struct {
	Code       string `json:"code"`
	Proteins   []int  `json:"proteins,omitempty"`
	Refs       []int  `json:"refs,omitempty"`
	Value      string `json:"value"`
	Commentary string `json:"commentary,omitempty"`
}

var (
	entryStartRegex = regexp.MustCompile(`^([A-Z][A-Z0-9]{1,3})\t(.*)$`)
	proteinsRegex   = regexp.MustCompile(`^#([\d,\s]+)#\s*`)
	refsRegex       = regexp.MustCompile(`\s*<([\d,\s]+)>\s*$`)
	commentaryRegex = regexp.MustCompile(`\(([^()]*(?:\([^()]*\)[^()]*)*)\)`)
)

// ParseEntries splits a record's description into structured entries.
// Lines starting with a code and tab open an entry; tab-indented lines are
// continuations and are joined with a space.
func ParseEntries(rec Record) []Entry {
	var entries []Entry
	var raw []string

	for _, line := range strings.Split(rec.Description, "\n") {
		if line == "" {
			continue
		}
		if entryStartRegex.MatchString(line) {
			raw = append(raw, line)
			continue
		}
		if len(raw) > 0 {
			raw[len(raw)-1] += " " + strings.TrimLeft(line, " \t")
		}
	}

	for _, line := range raw {
		m := entryStartRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, parseEntry(m[1], m[2]))
	}
	return entries
}

func parseEntry(code, body string) Entry {
	e := Entry{Code: code}

	if m := proteinsRegex.FindStringSubmatch(body); m != nil {
		e.Proteins = parseNumberList(m[1])
		body = body[len(m[0]):]
	}
	if m := refsRegex.FindStringSubmatch(body); m != nil {
		e.Refs = parseNumberList(m[1])
		body = body[:len(body)-len(m[0])]
	}
	if m := commentaryRegex.FindStringSubmatch(body); m != nil {
		e.Commentary = strings.TrimSpace(m[1])
		body = strings.Replace(body, m[0], "", 1)
	}

	e.Value = strings.Join(strings.Fields(body), " ")
	return e
}

func parseNumberList(s string) []int {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
