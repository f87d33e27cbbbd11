package csv

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// headerNames turns the raw header record into unique, non-empty column names.
//
// Empty names become "Unnamed: <i>". Repeated names get a numeric suffix in
// order of appearance: a, a.1, a.2. When normalize is set every name is first
// passed through NormalizeName.
func headerNames(raw []string, normalize bool) []string {
	names := make([]string, len(raw))
	for i, h := range raw {
		if normalize {
			h = NormalizeName(h)
		}
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		names[i] = h
	}

	taken := make(map[string]struct{}, len(names))
	for _, n := range names {
		taken[n] = struct{}{}
	}
	counts := make(map[string]int, len(names))
	seen := make(map[string]struct{}, len(names))
	for i, n := range names {
		if _, dup := seen[n]; !dup {
			seen[n] = struct{}{}
			continue
		}
		for {
			counts[n]++
			cand := fmt.Sprintf("%s.%d", n, counts[n])
			if _, clash := taken[cand]; !clash {
				names[i] = cand
				taken[cand] = struct{}{}
				seen[cand] = struct{}{}
				break
			}
		}
	}
	return names
}

// NormalizeName converts arbitrary header text into a lowercase ASCII
// identifier:
//  1. lowercase
//  2. strip accents (NFD → remove Mn → NFC)
//  3. keep [a-z0-9_]; convert space/dash/dot to underscore; drop others
//  4. fallback to "col" if empty
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return name
}
