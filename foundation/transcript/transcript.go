// Package transcript holds the ordered record of who said what on a call.
package transcript

import (
	"fmt"
	"strings"
	"time"
)

// Speaker identifies a party on the call.
type Speaker string

const (
	User  Speaker = "user"
	Agent Speaker = "agent"
)

// Entry is one finalised utterance.
type Entry struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Format renders entries one per line as "[timestamp] SPEAKER: text",
// skipping blank utterances.
func Format(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", e.Timestamp.UTC().Format(time.RFC3339), strings.ToUpper(string(e.Speaker)), e.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Log accumulates streamed fragments into entries. Consecutive fragments
// from the same speaker are joined and committed as one entry when the
// speaker changes or Commit is called. It is not safe for concurrent use.
type Log struct {
	entries []Entry

	speaker Speaker
	started time.Time
	buf     strings.Builder
}

// Add appends a fragment for speaker. It returns the entry committed for the
// previous speaker, if the speaker changed.
func (l *Log) Add(speaker Speaker, text string, now time.Time) (Entry, bool) {
	var committed Entry
	var ok bool

	if l.buf.Len() > 0 && speaker != l.speaker {
		committed, ok = l.Commit()
	}

	if l.buf.Len() == 0 {
		l.speaker = speaker
		l.started = now
	}
	l.buf.WriteString(text)

	return committed, ok
}

// Pending returns the speaker and text accumulated but not committed.
func (l *Log) Pending() (Speaker, string) {
	return l.speaker, strings.TrimSpace(l.buf.String())
}

// Commit finalises the pending fragments as one entry.
func (l *Log) Commit() (Entry, bool) {
	text := strings.Join(strings.Fields(l.buf.String()), " ")
	l.buf.Reset()
	if text == "" {
		return Entry{}, false
	}

	e := Entry{Speaker: l.speaker, Text: text, Timestamp: l.started}
	l.entries = append(l.entries, e)
	return e, true
}

// Entries returns a copy of the committed entries in order.
func (l *Log) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of committed entries.
func (l *Log) Len() int {
	return len(l.entries)
}
