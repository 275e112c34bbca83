// SPDX-License-Identifier: MIT

// Package brenda parses the BRENDA enzyme database flat-file dump into
// flattened (EC number, field, description) records.
//
// The dump is available from
// https://www.brenda-enzymes.org/download_brenda_without_registration.php
package brenda

import "sort"

// FieldTransferredDeleted marks entries for EC numbers that were deleted
// from the classification or transferred to another number.
const FieldTransferredDeleted = "TRANSFERRED_DELETED"

// fieldSet contains every section keyword a BRENDA entry may carry. A line
// consisting of exactly one of these keywords opens a new record.
var fieldSet = map[string]struct{}{
	"ACTIVATING_COMPOUND":            {},
	"APPLICATION":                    {},
	"CLONED":                         {},
	"COFACTOR":                       {},
	"CRYSTALLIZATION":                {},
	"ENGINEERING":                    {},
	"EXPRESSION":                     {},
	"GENERAL_INFORMATION":            {},
	"GENERAL_STABILITY":              {},
	"IC50_VALUE":                     {},
	"INHIBITORS":                     {},
	"KCAT_KM_VALUE":                  {},
	"KI_VALUE":                       {},
	"KM_VALUE":                       {},
	"LOCALIZATION":                   {},
	"METALS_IONS":                    {},
	"MOLECULAR_WEIGHT":               {},
	"NATURAL_SUBSTRATE_PRODUCT":      {},
	"ORGANIC_SOLVENT_STABILITY":      {},
	"OXIDATION_STABILITY":            {},
	"PH_OPTIMUM":                     {},
	"PH_RANGE":                       {},
	"PH_STABILITY":                   {},
	"PI_VALUE":                       {},
	"POSTTRANSLATIONAL_MODIFICATION": {},
	"PROTEIN":                        {},
	"PURIFICATION":                   {},
	"REACTION":                       {},
	"REACTION_TYPE":                  {},
	"RECOMMENDED_NAME":               {},
	"REFERENCE":                      {},
	"RENATURED":                      {},
	"SOURCE_TISSUE":                  {},
	"SPECIFIC_ACTIVITY":              {},
	"STORAGE_STABILITY":              {},
	"SUBSTRATE_PRODUCT":              {},
	"SUBUNITS":                       {},
	"SYNONYMS":                       {},
	"SYSTEMATIC_NAME":                {},
	"TEMPERATURE_OPTIMUM":            {},
	"TEMPERATURE_RANGE":              {},
	"TEMPERATURE_STABILITY":          {},
	"TRANSFERRED_DELETED":            {},
	"TURNOVER_NUMBER":                {},
}

// Fields returns the canonical field keywords in sorted order.
func Fields() []string {
	out := make([]string, 0, len(fieldSet))
	for f := range fieldSet {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// IsField reports whether s is one of the canonical field keywords.
func IsField(s string) bool {
	_, ok := fieldSet[s]
	return ok
}
