// Package language classifies finalised utterances and keeps the model
// answering in the caller's language.
package language

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/superfeelapi/goLiveBridge/foundation/lexicon"
)

type Language int

const (
	Unknown Language = iota
	Hindi
	English
)

func (l Language) String() string {
	switch l {
	case Hindi:
		return "hindi"
	case English:
		return "english"
	}
	return "unknown"
}

// Parse maps a configured language name to a Language.
func Parse(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hindi", "hi", "hi-in", "hinglish":
		return Hindi
	case "english", "en", "en-in", "en-us":
		return English
	}
	return Unknown
}

type Kind int

const (
	// DataResponse is an answer to a data collection prompt. It never moves
	// the expected language.
	DataResponse Kind = iota
	Sentence
)

func (k Kind) String() string {
	if k == Sentence {
		return "sentence"
	}
	return "data_response"
}

type Classification struct {
	Language Language
	Kind     Kind
}

var (
	emailRe = regexp.MustCompile(`[^\s@]+@[^\s@]+`)
	dateRe  = regexp.MustCompile(`\b\d{1,2}[/.-]\d{1,2}(?:[/.-]\d{2,4})?\b`)
)

// Classifier labels utterances using the word lists of a Policy.
type Classifier struct {
	policy Policy

	hindiMarkers map[string]struct{}
	yesNo        map[string]struct{}
	fillers      map[string]struct{}
	address      map[string]struct{}
	months       map[string]struct{}
}

func NewClassifier(p Policy) *Classifier {
	return &Classifier{
		policy:       p,
		hindiMarkers: lexicon.Set(p.HindiMarkers...),
		yesNo:        lexicon.Set(p.YesNoWords...),
		fillers:      lexicon.Set(p.FillerWords...),
		address:      lexicon.Set(p.AddressMarkers...),
		months:       lexicon.Set(p.MonthNames...),
	}
}

// Classify labels text with its language and whether it is conversational.
func (c *Classifier) Classify(text string) Classification {
	tokens := lexicon.Tokens(text)
	if len(tokens) == 0 {
		return Classification{Kind: DataResponse}
	}

	lang := c.detect(text, tokens)

	if c.isDataResponse(text, tokens) {
		return Classification{Language: lang, Kind: DataResponse}
	}

	return Classification{Language: lang, Kind: Sentence}
}

func (c *Classifier) isDataResponse(text string, tokens []string) bool {
	if emailRe.MatchString(text) {
		return true
	}

	var digits int
	for _, r := range text {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits >= 5 || dateRe.MatchString(text) {
		return true
	}

	if lexicon.CountWords(tokens, c.months) > 0 && len(tokens) <= 5 {
		return true
	}

	if lexicon.CountWords(tokens, c.yesNo) == len(tokens) {
		return true
	}

	if len(tokens) <= 6 && lexicon.ContainsAny(text, c.policy.NamePrefixes) {
		return true
	}

	if lexicon.CountWords(tokens, c.address) > 0 {
		return true
	}

	meaningful := len(tokens) - lexicon.CountWords(tokens, c.fillers)
	return meaningful < c.policy.MinSentenceWords
}

func (c *Classifier) detect(text string, tokens []string) Language {
	if lexicon.DevanagariRatio(text) > c.policy.DevanagariThreshold {
		return Hindi
	}

	if float64(lexicon.CountWords(tokens, c.hindiMarkers))/float64(len(tokens)) >= c.policy.MarkerThreshold {
		return Hindi
	}

	for _, r := range text {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			return English
		}
	}

	return Unknown
}
