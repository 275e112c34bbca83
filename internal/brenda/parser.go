// SPDX-License-Identifier: MIT

package brenda

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is one flattened annotation block: everything a BRENDA entry says
// about one EC number under one field keyword. Description keeps the raw
// data lines joined with "\n".
type Record struct {
	EC          string `json:"ec"`
	Field       string `json:"field"`
	Description string `json:"description"`
}

// Document is the result of parsing a full BRENDA dump.
type Document struct {
	Records []Record
	// Enzymes counts distinct EC numbers seen, including transferred or
	// deleted ones.
	Enzymes int
}

const idPrefix = "ID\t"

// ErrEmptyInput is returned when the input contains no ID line.
var ErrEmptyInput = fmt.Errorf("brenda: no ID line found")

// ParseFile opens path and parses it with Parse.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open brenda file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// Parse reads a raw BRENDA text dump. Empty lines and comment lines
// (starting with '*') are skipped. An "ID\t<ec>" line opens an entry, the
// next line names the first field, and "///" terminates the entry. Lines
// matching a field keyword start a new record; everything else is a
// continuation of the current description.
func Parse(r io.Reader) (*Document, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		records   []Record
		currentID string
		field     string
		desc      strings.Builder
		inEntry   bool
		enzymes   = map[string]struct{}{}
	)

	flush := func() {
		records = append(records, Record{
			EC:          currentID,
			Field:       field,
			Description: desc.String(),
		})
		desc.Reset()
	}

	// nextLine skips blanks and '*' comments like the original reader loop.
	nextLine := func() (string, bool) {
		for sc.Scan() {
			line := strings.TrimRight(sc.Text(), " \t\r")
			if line == "" || line[0] == '*' {
				continue
			}
			return line, true
		}
		return "", false
	}

	line, ok := nextLine()
	if !ok {
		return nil, ErrEmptyInput
	}
	if !strings.HasPrefix(line, idPrefix) {
		return nil, fmt.Errorf("brenda: expected ID line, got %q", truncate(line, 40))
	}
	currentID = strings.TrimPrefix(line, idPrefix)
	enzymes[currentID] = struct{}{}

	if line, ok = nextLine(); !ok {
		return nil, fmt.Errorf("brenda: entry %s has no field line", currentID)
	}
	field = line
	inEntry = true

	for {
		line, ok = nextLine()
		if !ok {
			break
		}

		switch {
		case line == "///":
			// end of the EC-specific part: flush and open the next entry
			flush()
			inEntry = false

			idLine, more := nextLine()
			if !more {
				break
			}
			if !strings.HasPrefix(idLine, idPrefix) {
				return nil, fmt.Errorf("brenda: expected ID line after ///, got %q", truncate(idLine, 40))
			}
			currentID = strings.TrimPrefix(idLine, idPrefix)
			enzymes[currentID] = struct{}{}

			fieldLine, more := nextLine()
			if !more {
				break
			}
			field = fieldLine
			inEntry = true

		case IsField(line):
			// next field keyword: flush the previous record
			flush()
			field = line

		default:
			desc.WriteString(line)
			desc.WriteByte('\n')
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("brenda: read: %w", err)
	}

	if inEntry {
		flush()
	}

	return &Document{Records: records, Enzymes: len(enzymes)}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
