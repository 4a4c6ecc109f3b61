// Package teams normalises team names so that bookmaker, Polymarket and
// user-typed spellings of the same club compare equal.
package teams

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// aliases maps common short names to the canonical lowercase form.
var aliases = map[string]string{
	// EPL
	"man utd":      "manchester united",
	"man united":   "manchester united",
	"man city":     "manchester city",
	"spurs":        "tottenham hotspur",
	"tottenham":    "tottenham hotspur",
	"saints":       "southampton",
	"toon":         "newcastle united",
	"newcastle":    "newcastle united",
	"villa":        "aston villa",
	"forest":       "nottingham forest",
	"nottm forest": "nottingham forest",
	"west ham":     "west ham united",
	"gunners":      "arsenal",
	// NBA
	"sixers":  "76ers",
	"blazers": "trail blazers",
	"wolves":  "timberwolves",
	"cavs":    "cavaliers",
	"mavs":    "mavericks",
}

var suffixes = []string{" fc", " afc", " cf"}

// Normalize lowercases name, strips accents and punctuation, drops club
// suffixes such as "FC" and expands known aliases.
func Normalize(name string) string {
	name = strings.ToLower(name)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, name); err == nil {
		name = stripped
	}

	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		if r == '-' || r == '&' {
			return ' '
		}
		return -1
	}, name)
	name = strings.Join(strings.Fields(name), " ")

	for _, s := range suffixes {
		name = strings.TrimSuffix(name, s)
	}
	for _, prefix := range []string{"fc ", "afc "} {
		name = strings.TrimPrefix(name, prefix)
	}

	if full, ok := aliases[name]; ok {
		return full
	}
	return name
}

// Variants returns the normalised name, its alias forms and, for
// multi-word names, the last word (usually the mascot).
func Variants(name string) []string {
	low := Normalize(name)
	if low == "" {
		return nil
	}

	seen := map[string]bool{low: true}
	out := []string{low}
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	for alias, full := range aliases {
		if full == low || strings.HasSuffix(low, " "+full) {
			add(alias)
		}
	}
	if words := strings.Fields(low); len(words) > 1 {
		add(words[len(words)-1])
	}
	return out
}

// Match reports whether a and b name the same team: equal after
// normalisation, or one is the other's trailing word(s), as in
// "Lakers" and "Los Angeles Lakers".
func Match(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	return strings.HasSuffix(na, " "+nb) || strings.HasSuffix(nb, " "+na)
}

// Mentions reports whether text refers to the team by any variant.
func Mentions(text, name string) bool {
	low := Normalize(text)
	for _, v := range Variants(name) {
		if containsWord(low, v) {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	padded := " " + text + " "
	return strings.Contains(padded, " "+word+" ")
}
