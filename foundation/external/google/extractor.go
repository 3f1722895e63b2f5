package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/superfeelapi/goLiveBridge/foundation/transcript"
	"google.golang.org/genai"
)

const extractionTimeout = 30 * time.Second

// ErrEmptyTranscript is returned when there is nothing to extract from.
var ErrEmptyTranscript = errors.New("empty transcript")

const extractionPrompt = `You extract structured data from voice call transcripts.
The conversation is between a voice AGENT and a CUSTOMER (USER) asking about cars.

TRANSCRIPT:
%s

Extract:
1. name - customer's full name
2. model - car model of interest, in uppercase
3. email - customer's email address
4. test_drive - "yes" or "no"
5. phone - customer's phone number
6. location - customer's city or location

Rules:
- Prefer the agent's confirmations ("your name is X", "X ji", spelled back emails) over raw customer speech.
- Use null for anything not mentioned or unclear.
- Reply with JSON only:
{"name":...,"model":...,"email":...,"test_drive":...,"phone":...,"location":...,
 "confidence":{"name":0.0,"model":0.0,"email":0.0,"test_drive":0.0},"extraction_notes":"..."}`

// Fields is the data captured from a finished call. Nil means not captured.
type Fields struct {
	Name       *string            `json:"name"`
	Model      *string            `json:"model"`
	Email      *string            `json:"email"`
	TestDrive  *string            `json:"test_drive"`
	Phone      *string            `json:"phone"`
	Location   *string            `json:"location"`
	Confidence map[string]float64 `json:"confidence"`
	Notes      string             `json:"extraction_notes"`
	Method     string             `json:"-"`
}

// Extractor asks a Gemini text model to pull call fields out of a transcript.
type Extractor struct {
	client *genai.Client
	model  string
}

// NewExtractor creates an extractor for the given API key and model.
func NewExtractor(ctx context.Context, apiKey, model string) (*Extractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("unable to create genai client: %w", err)
	}

	e := Extractor{
		client: client,
		model:  model,
	}
	return &e, nil
}

// Extract returns the fields found in entries. agentContext, when set, is
// prepended to the prompt.
func (e *Extractor) Extract(ctx context.Context, entries []transcript.Entry, agentContext string) (Fields, error) {
	text := transcript.Format(entries)
	if strings.TrimSpace(text) == "" {
		return Fields{}, ErrEmptyTranscript
	}

	prompt := fmt.Sprintf(extractionPrompt, text)
	if agentContext != "" {
		prompt = "CONTEXT: " + agentContext + "\n\n" + prompt
	}

	ctx, cancel := context.WithTimeout(ctx, extractionTimeout)
	defer cancel()

	temperature := float32(0.1)
	topP := float32(0.8)
	topK := float32(40)

	resp, err := e.client.Models.GenerateContent(ctx, e.model, []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}, &genai.GenerateContentConfig{
		Temperature:      &temperature,
		TopP:             &topP,
		TopK:             &topK,
		MaxOutputTokens:  1024,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return Fields{}, fmt.Errorf("unable to generate content: %w", err)
	}

	f, err := ParseFields(resp.Text())
	if err != nil {
		return Fields{}, err
	}
	f.Method = e.model
	return f, nil
}

// ParseFields decodes a model reply, tolerating a markdown code fence around
// the JSON. String values of "null" or blank are treated as missing.
func ParseFields(text string) (Fields, error) {
	if _, after, ok := strings.Cut(text, "```json"); ok {
		text, _, _ = strings.Cut(after, "```")
	} else if _, after, ok := strings.Cut(text, "```"); ok {
		text, _, _ = strings.Cut(after, "```")
	}

	var f Fields
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &f); err != nil {
		return Fields{}, fmt.Errorf("unable to parse extraction: %w", err)
	}

	for _, p := range []**string{&f.Name, &f.Model, &f.Email, &f.TestDrive, &f.Phone, &f.Location} {
		if *p == nil {
			continue
		}
		v := strings.TrimSpace(**p)
		if v == "" || strings.EqualFold(v, "null") {
			*p = nil
			continue
		}
		*p = &v
	}

	return f, nil
}
