// Package storage writes call transcripts and payloads to per-agent
// directories on disk.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/superfeelapi/goLiveBridge/foundation/transcript"
)

// ErrDisabled is returned by every save when storage is switched off.
var ErrDisabled = errors.New("storage: disabled")

const (
	transcriptsDir = "transcripts"
	siDir          = "si"
	waybeoDir      = "waybeo"
)

// Transcript is the on-disk transcript document.
type Transcript struct {
	CallID            string             `json:"call_id"`
	Agent             string             `json:"agent"`
	SavedAt           time.Time          `json:"saved_at"`
	Conversation      []transcript.Entry `json:"conversation"`
	ConversationCount int                `json:"conversation_count"`
	Metadata          Metadata           `json:"metadata"`
}

// Metadata describes the call a transcript belongs to.
type Metadata struct {
	Agent       string    `json:"agent"`
	DurationSec int       `json:"duration_sec"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// Store saves files under <base>/<agentDir>/{transcripts,si,waybeo}.
type Store struct {
	base    string
	enabled bool
	now     func() time.Time
}

func New(base string, enabled bool) *Store {
	return &Store{
		base:    base,
		enabled: enabled,
		now:     time.Now,
	}
}

// SaveTranscript writes the transcript and returns its path.
func (s *Store) SaveTranscript(agentDir, agent, callID string, entries []transcript.Entry, md Metadata) (string, error) {
	doc := Transcript{
		CallID:            callID,
		Agent:             agent,
		SavedAt:           s.now().UTC(),
		Conversation:      entries,
		ConversationCount: len(entries),
		Metadata:          md,
	}
	return s.save(agentDir, transcriptsDir, callID, "transcript", doc)
}

// LoadTranscript reads a transcript written by SaveTranscript.
func (s *Store) LoadTranscript(path string) (Transcript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("storage: load transcript: %w", err)
	}

	var t Transcript
	if err := json.Unmarshal(b, &t); err != nil {
		return Transcript{}, fmt.Errorf("storage: load transcript: %w", err)
	}
	return t, nil
}

// SaveSIPayload writes the call-summary payload and returns its path.
func (s *Store) SaveSIPayload(agentDir, callID string, payload any) (string, error) {
	return s.save(agentDir, siDir, callID, "si", payload)
}

// SaveWaybeoPayload writes the provider callback payload and returns its path.
func (s *Store) SaveWaybeoPayload(agentDir, callID string, payload any) (string, error) {
	return s.save(agentDir, waybeoDir, callID, "waybeo", payload)
}

func (s *Store) save(agentDir, kindDir, callID, suffix string, v any) (string, error) {
	if !s.enabled {
		return "", ErrDisabled
	}

	dir := filepath.Join(s.base, agentDir, kindDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("storage: encode %s: %w", suffix, err)
	}

	name := fmt.Sprintf("call_%s_%s_%s.json", callID, s.now().UTC().Format("20060102_150405"), suffix)
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", suffix, err)
	}

	return path, nil
}
