package language_test

import (
	"strings"
	"testing"

	"github.com/superfeelapi/goLiveBridge/business/language"
)

func TestClassify(t *testing.T) {
	c := language.NewClassifier(language.DefaultPolicy())

	tests := []struct {
		text string
		lang language.Language
		kind language.Kind
	}{
		{text: "Rohit", kind: language.DataResponse, lang: language.English},
		{text: "Rohit Sharma", kind: language.DataResponse, lang: language.English},
		{text: "nahi", kind: language.DataResponse, lang: language.Hindi},
		{text: "ji haan", kind: language.DataResponse, lang: language.Hindi},
		{text: "9876543210", kind: language.DataResponse, lang: language.Unknown},
		{text: "my number is 98765 43210 please note", kind: language.DataResponse, lang: language.English},
		{text: "rohit.sharma@gmail.com", kind: language.DataResponse, lang: language.English},
		{text: "my name is Rohit Sharma", kind: language.DataResponse, lang: language.English},
		{text: "Flat 12 MG Road Bangalore", kind: language.DataResponse, lang: language.English},
		{text: "next Monday at ten", kind: language.DataResponse, lang: language.English},
		{text: "mujhe ek nayi gaadi chahiye thi", kind: language.Sentence, lang: language.Hindi},
		{text: "मुझे एक नई गाड़ी चाहिए", kind: language.Sentence, lang: language.Hindi},
		{text: "I would like to book a test drive", kind: language.Sentence, lang: language.English},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := c.Classify(tt.text)
			if got.Kind != tt.kind || got.Language != tt.lang {
				t.Fatalf("got %s/%s, want %s/%s", got.Language, got.Kind, tt.lang, tt.kind)
			}
		})
	}
}

func TestExpectedLanguageIsSticky(t *testing.T) {
	m := language.NewMonitor(language.DefaultPolicy(), language.Hindi)

	m.OnUserUtterance("Rohit Sharma")
	if m.Expected() != language.Hindi {
		t.Fatal("a short name must not change the expected language")
	}

	m.OnUserUtterance("9876543210")
	if m.Expected() != language.Hindi {
		t.Fatal("a phone number must not change the expected language")
	}

	m.OnUserUtterance("I would like to book a test drive")
	if m.Expected() != language.English {
		t.Fatal("a full English sentence should change the expected language")
	}
}

func TestDriftCorrection(t *testing.T) {
	m := language.NewMonitor(language.DefaultPolicy(), language.Hindi)

	if _, ok := m.OnAgentTurn("Namaste, aapka naam kya hai?"); ok {
		t.Fatal("Hindi turn should not be corrected")
	}

	text, ok := m.OnAgentTurn("Thank you, could you please tell me which model you are interested in?")
	if !ok {
		t.Fatal("English turn in a Hindi call should be corrected")
	}
	if !strings.Contains(text, "Hindi") || !m.Pending() {
		t.Fatalf("unexpected correction %q pending=%v", text, m.Pending())
	}

	if !m.IsAcknowledgement("Understood, switching to Hindi.") {
		t.Fatal("acknowledgement should be detected while pending")
	}

	if _, ok := m.OnAgentTurn("Understood, I will continue in Hindi."); ok {
		t.Fatal("the turn after a correction is not checked")
	}
	if m.Pending() {
		t.Fatal("pending should clear on the next turn")
	}
	if m.IsAcknowledgement("Understood") {
		t.Fatal("acknowledgement only applies while pending")
	}

	if m.Corrections() != 1 {
		t.Fatalf("corrections %d, want 1", m.Corrections())
	}
}

func TestParse(t *testing.T) {
	if language.Parse("Hindi") != language.Hindi || language.Parse("en") != language.English || language.Parse("tamil") != language.Unknown {
		t.Fatal("unexpected parse result")
	}
}
