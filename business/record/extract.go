package record

import (
	"regexp"
	"strings"
	"time"

	"github.com/superfeelapi/goLiveBridge/foundation/external/google"
	"github.com/superfeelapi/goLiveBridge/foundation/transcript"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const timeLayout = "2006-01-02 15:04:05"

// Completion statuses of a call record.
const (
	Complete   = "complete"
	Partial    = "partial"
	Incomplete = "incomplete"
)

const (
	verified    = "verified"
	notCaptured = "not_captured"
)

// Attempt is when a value was given by the caller.
type Attempt struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Sequence  int    `json:"sequence"`
}

// ResponseItem is one captured data point of the call.
type ResponseItem struct {
	KeyLabel        string    `json:"key_label"`
	KeyValue        string    `json:"key_value"`
	KeyResponse     string    `json:"key_response"`
	Attempts        int       `json:"attempts"`
	AttemptsDetails []Attempt `json:"attempts_details"`
	Remarks         string    `json:"remarks"`
}

type fieldPattern struct {
	key      string
	label    string
	patterns []*regexp.Regexp
	format   func(string) string
}

var fieldPatterns = []fieldPattern{
	{
		key:   "name",
		label: "What's your name",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:my name is|i am|this is|mera naam|naam)\s+([A-Za-z\x{0900}-\x{097F}]+)`),
			regexp.MustCompile(`(?i)(?:name|naam)[:\s]+([A-Za-z\x{0900}-\x{097F}]+)`),
		},
		format: titleCase,
	},
	{
		key:   "model",
		label: "Which model you are looking for",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:interested in|looking for|want|chahiye|dekhna hai)\s+(?:the\s+)?([A-Za-z0-9\s]+?)(?:\s+(?:car|model|variant))?(?:\.|,|$)`),
			regexp.MustCompile(`(?i)ev9|ev6|seltos|sonet|carens|syros|carnival`),
			regexp.MustCompile(`(?i)nexon|harrier|safari|punch|tiago|tigor|altroz|curvv`),
			regexp.MustCompile(`(?i)slavia|kushaq|superb|octavia|kodiaq`),
		},
		format: strings.ToUpper,
	},
	{
		key:   "email",
		label: "What is your email id",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		},
	},
	{
		key:   "test_drive",
		label: "Do you want to schedule a test drive",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:yes|sure|ok|definitely|haan|ji)\b|हाँ|जी`),
			regexp.MustCompile(`(?i)\b(?:abhi nahi|no|not|nahi)\b|नहीं`),
		},
		format: capitalize,
	},
	{
		key:   "phone",
		label: "Phone number",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?:\+91|91)?[6-9]\d{9}`),
		},
	},
}

// ExtractResponses builds the response data of a call. Values found by the
// model extractor win; the rest are matched in the caller's own words.
func ExtractResponses(entries []transcript.Entry, fields *google.Fields) []ResponseItem {
	var parts []string
	for _, e := range entries {
		if e.Speaker == transcript.User {
			parts = append(parts, e.Text)
		}
	}
	userText := strings.ToLower(strings.Join(parts, " "))

	items := make([]ResponseItem, 0, len(fieldPatterns))

	for _, fp := range fieldPatterns {
		value := modelValue(fields, fp.key)
		if value == "" {
			value = fp.match(userText)
		}

		if strings.TrimSpace(value) == "" {
			items = append(items, ResponseItem{
				KeyLabel:        fp.label,
				KeyValue:        fp.key,
				KeyResponse:     " ",
				AttemptsDetails: []Attempt{},
				Remarks:         notCaptured,
			})
			continue
		}

		details := []Attempt{}
		if a, ok := findAttempt(entries, value); ok {
			details = append(details, a)
		}

		items = append(items, ResponseItem{
			KeyLabel:        fp.label,
			KeyValue:        fp.key,
			KeyResponse:     value,
			Attempts:        1,
			AttemptsDetails: details,
			Remarks:         verified,
		})
	}

	return items
}

// CompletionStatus is incomplete when nothing was captured and complete
// when at most one value is missing.
func CompletionStatus(items []ResponseItem) string {
	var captured int
	for _, it := range items {
		if it.Remarks == verified && strings.TrimSpace(it.KeyResponse) != "" {
			captured++
		}
	}

	switch {
	case captured == 0:
		return Incomplete
	case captured >= len(items)-1:
		return Complete
	}
	return Partial
}

// Extracted maps each key to its captured value, or nil.
func Extracted(items []ResponseItem) map[string]any {
	m := make(map[string]any, len(items))
	for _, it := range items {
		if v := strings.TrimSpace(it.KeyResponse); v != "" {
			m[it.KeyValue] = v
		} else {
			m[it.KeyValue] = nil
		}
	}
	return m
}

// =====================================================================================================================

func (fp fieldPattern) match(text string) string {
	for _, re := range fp.patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v := m[0]
		if len(m) > 1 {
			v = m[1]
		}
		v = strings.TrimSpace(v)
		if fp.format != nil {
			v = fp.format(v)
		}
		return v
	}
	return ""
}

func modelValue(f *google.Fields, key string) string {
	if f == nil {
		return ""
	}

	var p *string
	switch key {
	case "name":
		p = f.Name
	case "model":
		p = f.Model
	case "email":
		p = f.Email
	case "test_drive":
		p = f.TestDrive
	case "phone":
		p = f.Phone
	}
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// findAttempt locates the first caller entry containing value. The attempt
// ends when the next entry starts.
func findAttempt(entries []transcript.Entry, value string) (Attempt, bool) {
	v := strings.ToLower(value)
	for i, e := range entries {
		if e.Speaker != transcript.User || !strings.Contains(strings.ToLower(e.Text), v) {
			continue
		}
		if e.Timestamp.IsZero() {
			return Attempt{}, false
		}

		end := e.Timestamp
		if i+1 < len(entries) && !entries[i+1].Timestamp.IsZero() {
			end = entries[i+1].Timestamp
		}
		return Attempt{
			StartTime: formatTime(e.Timestamp),
			EndTime:   formatTime(end),
			Sequence:  1,
		}, true
	}
	return Attempt{}, false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// titleCase takes a fresh Caser each time. A Caser is stateful and must not
// be shared between goroutines.
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
