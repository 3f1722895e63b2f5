package callcontrol

import "time"

// Policy holds the tunable guards of the machine. The phrase lists are
// matched on normalised transcripts.
type Policy struct {
	// SetupGrace is the minimum call age before a function call is honoured.
	SetupGrace time.Duration

	// ImplicitEndMinAge is the minimum call age before a goodbye phrase
	// without a function call ends the call.
	ImplicitEndMinAge time.Duration

	GoodbyePhrases          []string
	AffirmativeWords        []string
	NegativeWords           []string
	ExplicitTransferPhrases []string
	TransferQuestionPhrases []string
}

// DefaultPolicy returns the guards tuned for Hindi and English car sales
// calls.
func DefaultPolicy() Policy {
	return Policy{
		SetupGrace:        10 * time.Second,
		ImplicitEndMinAge: 30 * time.Second,
		GoodbyePhrases: []string{
			"goodbye", "bye", "thank you for calling", "have a nice day", "have a great day",
			"dhanyavaad", "dhanyawad", "shukriya", "alvida", "aapka din shubh ho",
			"धन्यवाद", "अलविदा", "शुक्रिया",
		},
		AffirmativeWords: []string{
			"yes", "yeah", "yep", "sure", "ok", "okay", "haan", "han", "ha", "ji", "jee",
			"bilkul", "zaroor", "theek", "हाँ", "हां", "जी", "ठीक", "बिल्कुल", "ज़रूर",
		},
		NegativeWords: []string{
			"no", "nope", "nahi", "nahin", "nai", "mat", "not", "नहीं", "नही", "मत",
		},
		ExplicitTransferPhrases: []string{
			"kisi se baat", "dealer se baat", "sales team se baat", "insaan se baat", "agent se baat",
			"baat karao", "talk to a person", "talk to someone", "speak to someone", "speak to a person",
			"connect me to", "transfer me", "किसी से बात", "डीलर से बात",
		},
		TransferQuestionPhrases: []string{
			"sales team se baat", "sales team से बात", "speak with our sales team", "talk to our sales team",
			"connect you to our", "transfer you to",
		},
	}
}
