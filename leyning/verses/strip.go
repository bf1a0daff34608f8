package verses

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripPolicy selects which markers are removed from a word before display.
type StripPolicy int

const (
	// StripPlain removes only the word-boundary marker '/'.
	StripPlain StripPolicy = iota
	// StripTikkun removes the boundary marker plus all vowel points and
	// cantillation marks, as in a Torah scroll.
	StripTikkun
)

// String returns the policy name.
func (p StripPolicy) String() string {
	switch p {
	case StripPlain:
		return "plain"
	case StripTikkun:
		return "tikkun"
	default:
		return "unknown"
	}
}

// Hebrew points and accents, U+0591 through U+05C7.
var pointsAndAccents = runes.In(&unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0591, Hi: 0x05C7, Stride: 1}},
})

func isSlash(r rune) bool { return r == '/' }

// Strip returns word with the markers selected by policy removed.
func Strip(word string, policy StripPolicy) string {
	var t transform.Transformer
	switch policy {
	case StripTikkun:
		// Decompose first so precomposed presentation forms lose their points.
		t = transform.Chain(norm.NFD, runes.Remove(runes.Predicate(isSlash)), runes.Remove(pointsAndAccents), norm.NFC)
	default:
		t = runes.Remove(runes.Predicate(isSlash))
	}
	out, _, err := transform.String(t, word)
	if err != nil {
		return word
	}
	return out
}

// StripAll applies Strip to every word.
func StripAll(words []string, policy StripPolicy) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = Strip(w, policy)
	}
	return out
}
