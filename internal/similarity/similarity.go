// Package similarity implements the token-sort title similarity used
// by the duplicate engine's fuzzy pass: titles are normalized,
// tokenized, sorted, rejoined, then scored with a Levenshtein-family
// string metric. The function is total and deterministic.
package similarity

import (
	"sort"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics decomposes s to NFKD and drops combining marks, so
// "Amélie" and "Amelie" tokenize identically.
var foldDiacritics = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFKC)

// StripDiacritics folds s to its base-letter form, dropping accents and
// other combining marks. Exported so callers that build stable
// fingerprints from a title (not just a similarity score) normalize
// the same way this package does internally.
func StripDiacritics(s string) string {
	out, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		return s
	}
	return out
}

// TitleSimilarity returns a value in [0,100] expressing how similar a
// and b are as titles, invariant to word order, case, and punctuation.
func TitleSimilarity(a, b string) int {
	ta := tokenSort(a)
	tb := tokenSort(b)
	if ta == "" && tb == "" {
		return 100
	}
	if ta == "" || tb == "" {
		return 0
	}
	if ta == tb {
		return 100
	}

	score, err := edlib.StringsSimilarity(ta, tb, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	pct := int(score * 100)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

// tokenSort lowercases, strips punctuation, splits on whitespace,
// sorts the resulting tokens, and rejoins them with a single space.
func tokenSort(s string) string {
	s = strings.ToLower(StripDiacritics(s))
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)

	tokens := strings.Fields(stripped)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
