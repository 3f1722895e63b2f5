// Package lexicon normalises transcribed speech and matches it against
// short phrase lists.
package lexicon

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var fold = cases.Fold()

// Normalize returns text in NFC form, case folded, with punctuation replaced
// by spaces and runs of whitespace collapsed. Devanagari combining marks are
// kept so that Hindi words stay intact.
func Normalize(text string) string {
	s := fold.String(norm.NFC.String(text))

	var b strings.Builder
	b.Grow(len(s))

	space := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.Is(unicode.Mn, r), unicode.Is(unicode.Mc, r), r == '@':
			b.WriteRune(r)
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// Tokens returns the words of text after normalisation.
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

// ContainsPhrase reports whether phrase occurs in text on word boundaries.
// Both arguments are normalised first.
func ContainsPhrase(text, phrase string) bool {
	t := Normalize(text)
	p := Normalize(phrase)
	if t == "" || p == "" {
		return false
	}
	return strings.Contains(" "+t+" ", " "+p+" ")
}

// ContainsAny reports whether any of phrases occurs in text.
func ContainsAny(text string, phrases []string) bool {
	t := " " + Normalize(text) + " "
	if t == "  " {
		return false
	}
	for _, p := range phrases {
		if p = Normalize(p); p != "" && strings.Contains(t, " "+p+" ") {
			return true
		}
	}
	return false
}

// HasWord reports whether any token of text is one of words.
func HasWord(text string, words []string) bool {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[Normalize(w)] = struct{}{}
	}
	for _, tok := range Tokens(text) {
		if _, ok := set[tok]; ok {
			return true
		}
	}
	return false
}

// CountWords returns how many tokens of text are in words.
func CountWords(tokens []string, words map[string]struct{}) int {
	var n int
	for _, tok := range tokens {
		if _, ok := words[tok]; ok {
			n++
		}
	}
	return n
}

// Set builds a lookup set of normalised words.
func Set(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[Normalize(w)] = struct{}{}
	}
	return set
}

// IsDevanagari reports whether r is in the Devanagari block.
func IsDevanagari(r rune) bool {
	return r >= 0x0900 && r <= 0x097F
}

// DevanagariRatio returns the share of letters in text that are Devanagari.
func DevanagariRatio(text string) float64 {
	var letters, deva int
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r) {
			continue
		}
		letters++
		if IsDevanagari(r) {
			deva++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(deva) / float64(letters)
}
