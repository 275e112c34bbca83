// SPDX-License-Identifier: MIT

package brenda

import (
	"regexp"
	"strings"
)

var (
	// "(transferred to EC 1.1.1.2)" style trailing comments
	trailingCommentRegex = regexp.MustCompile(`\((.*)\)$`)
	commentSuffixRegex   = regexp.MustCompile(`\s?\(.*$`)
)

// CleanECNumbers normalizes transferred and deleted EC numbers.
//
// Some IDs carry a parenthesized comment about the entry having been
// deleted or transferred. These entries appear duplicated under several
// fields with empty descriptions. All of them are dropped and replaced by
// a single record per EC number with field TRANSFERRED_DELETED and the
// comment as the description, appended after the standard records.
func CleanECNumbers(records []Record) []Record {
	standard := make([]Record, 0, len(records))
	var nonstd []Record
	seen := map[string]struct{}{}

	for _, rec := range records {
		// drop empty comments, leaving just the EC number
		rec.EC = strings.ReplaceAll(rec.EC, " ()", "")

		if !strings.Contains(rec.EC, "(") {
			standard = append(standard, rec)
			continue
		}
		if _, dup := seen[rec.EC]; dup {
			continue
		}
		seen[rec.EC] = struct{}{}

		comment := ""
		if m := trailingCommentRegex.FindStringSubmatch(rec.EC); len(m) == 2 {
			comment = m[1]
		}
		nonstd = append(nonstd, Record{
			EC:          commentSuffixRegex.ReplaceAllString(rec.EC, ""),
			Field:       FieldTransferredDeleted,
			Description: comment,
		})
	}

	return append(standard, nonstd...)
}
