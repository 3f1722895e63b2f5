package language

import (
	"fmt"

	"github.com/superfeelapi/goLiveBridge/foundation/lexicon"
)

// Monitor tracks the caller's language across a call and decides when the
// model must be corrected. It is owned by the goroutine reading model
// messages.
type Monitor struct {
	classifier *Classifier
	ackPhrases []string

	expected Language
	pending  bool
	count    int
}

// NewMonitor starts with the expected language of the agent profile.
func NewMonitor(p Policy, expected Language) *Monitor {
	return &Monitor{
		classifier: NewClassifier(p),
		ackPhrases: p.AckPhrases,
		expected:   expected,
	}
}

// OnUserUtterance moves the expected language when the caller speaks a full
// sentence in a known language. Data responses never move it.
func (m *Monitor) OnUserUtterance(text string) Classification {
	c := m.classifier.Classify(text)
	if c.Kind == Sentence && c.Language != Unknown {
		m.expected = c.Language
	}
	return c
}

// OnAgentTurn checks the model's finished turn. It returns the corrective
// text to inject when the turn drifted from the expected language. The turn
// completing after a correction clears the pending flag and is not checked.
func (m *Monitor) OnAgentTurn(text string) (string, bool) {
	if m.pending {
		m.pending = false
		return "", false
	}

	if m.expected == Unknown {
		return "", false
	}

	c := m.classifier.Classify(text)
	if c.Kind != Sentence || c.Language == Unknown || c.Language == m.expected {
		return "", false
	}

	m.pending = true
	m.count++

	return Correction(m.expected), true
}

// IsAcknowledgement reports whether text is the model acknowledging a
// correction. Only meaningful while a correction is pending.
func (m *Monitor) IsAcknowledgement(text string) bool {
	return m.pending && lexicon.ContainsAny(text, m.ackPhrases)
}

func (m *Monitor) Pending() bool {
	return m.pending
}

func (m *Monitor) Expected() Language {
	return m.expected
}

// Corrections returns how many corrections were issued.
func (m *Monitor) Corrections() int {
	return m.count
}

// Correction is the synthetic user turn asking the model to return to lang.
func Correction(lang Language) string {
	name := "Hindi"
	if lang == English {
		name = "English"
	}
	return fmt.Sprintf("[Note: the caller is speaking %[1]s. Continue the conversation only in %[1]s and repeat your last question in %[1]s. Do not acknowledge this note.]", name)
}
