package language

// Policy holds the word lists and thresholds used to classify utterances.
type Policy struct {
	// MinSentenceWords is the number of meaningful words an utterance needs
	// before it counts as a language signal.
	MinSentenceWords int

	// MarkerThreshold is the share of romanised Hindi marker words above
	// which Latin script text is Hindi.
	MarkerThreshold float64

	// DevanagariThreshold is the share of Devanagari letters above which
	// text is Hindi.
	DevanagariThreshold float64

	HindiMarkers   []string
	YesNoWords     []string
	FillerWords    []string
	AddressMarkers []string
	MonthNames     []string
	NamePrefixes   []string

	// AckPhrases are the model's typical acknowledgements of a correction.
	// Audio carrying them is not played to the caller.
	AckPhrases []string
}

func DefaultPolicy() Policy {
	return Policy{
		MinSentenceWords:    4,
		MarkerThreshold:     0.25,
		DevanagariThreshold: 0.3,
		HindiMarkers: []string{
			"hai", "hain", "kya", "nahi", "nahin", "haan", "mera", "meri", "mere", "mujhe", "aap", "aapka",
			"aapki", "aapke", "kaise", "kab", "kahan", "kyun", "kyon", "acha", "accha", "achha", "theek",
			"bahut", "chahiye", "karna", "karni", "karenge", "raha", "rahi", "rahe", "tha", "thi", "hum",
			"ko", "ka", "ki", "ke", "se", "mein", "aur", "bhi", "toh", "wala", "wali", "gaadi", "gadi",
			"batao", "bataiye", "dijiye", "naam", "abhi", "lekin", "kuch", "sab", "yeh", "woh", "ek",
		},
		YesNoWords: []string{
			"yes", "no", "yeah", "yep", "nope", "sure", "ok", "okay", "haan", "han", "ha", "nahi", "nahin",
			"ji", "jee", "bilkul", "thanks", "please", "हाँ", "हां", "नहीं", "जी",
		},
		FillerWords: []string{
			"um", "umm", "uh", "hmm", "hm", "ah", "oh", "er", "ok", "okay", "so", "haan", "ji", "achha",
		},
		AddressMarkers: []string{
			"road", "street", "nagar", "sector", "colony", "lane", "marg", "flat", "apartment", "society",
			"block", "floor", "pincode", "chowk", "vihar", "enclave",
		},
		MonthNames: []string{
			"january", "february", "march", "april", "may", "june", "july", "august", "september",
			"october", "november", "december", "jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep",
			"sept", "oct", "nov", "dec", "monday", "tuesday", "wednesday", "thursday", "friday",
			"saturday", "sunday", "today", "tomorrow", "kal", "parso",
		},
		NamePrefixes: []string{
			"my name is", "i am", "this is", "mera naam", "main hoon", "naam hai", "मेरा नाम",
		},
		AckPhrases: []string{
			"acknowledged", "understood", "noted", "switching to", "i will continue in", "i'll continue in",
			"sure i will speak", "okay i will speak", "i will speak in", "i'll speak in", "system note",
			"theek hai main hindi", "main hindi mein baat", "मैं हिंदी में",
		},
	}
}
