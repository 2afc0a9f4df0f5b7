// Package cityname provides city name canonicalization for the matching engine.
//
// Matching is purely exact or alias-table based — no fuzzy string matching.
// The region alias table stands in for a real geocoding service; swap the
// RegionTable without touching any scoring formula.
package cityname

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ─── Normalization ──────────────────────────────────────────

var (
	// stripDiacritics decomposes to NFD, drops combining marks, recomposes.
	stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	whitespaceRe = regexp.MustCompile(`\s+`)

	// trailingSuffixRe strips "Cedex", trailing digit groups (postal codes),
	// and anything after a comma. Applied once, after trimming.
	trailingSuffixRe = regexp.MustCompile(`(?i)\s*(cedex|\d+|,.*)$`)
)

// Normalize canonicalizes a city name for comparison:
// lowercase, diacritics removed, internal whitespace collapsed, trimmed,
// trailing cedex/postal/comma suffixes removed.
//
// Two cities match exactly iff their normalized forms are equal.
func Normalize(city string) string {
	s := strings.ToLower(city)
	if out, _, err := transform.String(stripDiacritics, s); err == nil {
		s = out
	}
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = trailingSuffixRe.ReplaceAllString(s, "")
	return s
}

// ─── Region alias table ─────────────────────────────────────

// RegionTable maps a canonical region name to the normalized city names
// that belong to it. It is deliberately a plain data table, not control
// flow, so it can be replaced by a geocoding backend.
type RegionTable map[string][]string

// DefaultRegions covers the metro areas the marketplace launched with.
var DefaultRegions = RegionTable{
	"paris":     {"paris", "boulogne-billancourt", "montreuil", "nanterre"},
	"lyon":      {"lyon", "villeurbanne", "venissieux"},
	"marseille": {"marseille", "aix-en-provence", "toulon"},
}

// RegionsOf returns the region names the given normalized city belongs to.
func (t RegionTable) RegionsOf(normalized string) []string {
	var regions []string
	for region, cities := range t {
		for _, c := range cities {
			if c == normalized {
				regions = append(regions, region)
				break
			}
		}
	}
	return regions
}

// Contains reports whether both normalized city names appear in the same
// region's member set.
func (t RegionTable) Contains(a, b string) bool {
	for _, cities := range t {
		foundA, foundB := false, false
		for _, c := range cities {
			if c == a {
				foundA = true
			}
			if c == b {
				foundB = true
			}
		}
		if foundA && foundB {
			return true
		}
	}
	return false
}

// SameRegion reports whether two raw city names fall in the same region
// of the default table. Normalizes both inputs first.
func SameRegion(a, b string) bool {
	return DefaultRegions.Contains(Normalize(a), Normalize(b))
}
