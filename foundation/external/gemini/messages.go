package gemini

import (
	"encoding/json"
	"sort"

	"github.com/superfeelapi/goLiveBridge/foundation/audio"
)

// Function names declared to the model for call control.
const (
	TransferCall = "transfer_call"
	EndCall      = "end_call"
)

// Role identifies who a transcription belongs to.
type Role int

const (
	RoleUser Role = iota
	RoleModel
)

func (r Role) String() string {
	if r == RoleUser {
		return "user"
	}
	return "agent"
}

// Message is one decoded event from the model. The concrete type is one of
// SetupAck, Interrupted, Transcription, Audio, FunctionCall, TurnComplete or
// Unknown.
type Message interface {
	message()
}

// SetupAck confirms the setup message was accepted.
type SetupAck struct{}

// Interrupted reports that the caller barged in and the model stopped its
// current turn.
type Interrupted struct{}

// Transcription is a streamed fragment of caller or model speech.
type Transcription struct {
	Role Role
	Text string
}

// Audio is a chunk of model speech as PCM16 samples at the model output rate.
type Audio struct {
	Samples []int16
}

// FunctionCall is a tool invocation the model is blocked on until a
// response with the same ID is sent.
type FunctionCall struct {
	ID     string
	Name   string
	Reason string
	Args   map[string]any
}

// TurnComplete marks the end of a model turn.
type TurnComplete struct{}

// Unknown carries the top level keys of a message that had nothing the
// bridge acts on.
type Unknown struct {
	Keys []string
	Err  error
}

func (SetupAck) message()      {}
func (Interrupted) message()   {}
func (Transcription) message() {}
func (Audio) message()         {}
func (FunctionCall) message()  {}
func (TurnComplete) message()  {}
func (Unknown) message()       {}

// =================================================================================================================

type wireMessage struct {
	SetupComplete json.RawMessage `json:"setupComplete"`
	ServerContent *struct {
		ModelTurn *struct {
			Parts []wirePart `json:"parts"`
		} `json:"modelTurn"`
		Interrupted         bool      `json:"interrupted"`
		TurnComplete        bool      `json:"turnComplete"`
		InputTranscription  *wireText `json:"inputTranscription"`
		OutputTranscription *wireText `json:"outputTranscription"`
	} `json:"serverContent"`
	ToolCall *struct {
		FunctionCalls []wireFunctionCall `json:"functionCalls"`
	} `json:"toolCall"`
}

type wireText struct {
	Text string `json:"text"`
}

type wirePart struct {
	Text       string `json:"text"`
	Thought    bool   `json:"thought"`
	InlineData *struct {
		MimeType string `json:"mimeType"`
		Data     string `json:"data"`
	} `json:"inlineData"`
	FunctionCall *wireFunctionCall `json:"functionCall"`
}

type wireFunctionCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Decode turns one raw model message into the ordered events it carries:
// setup ack, interruption, transcriptions, audio, function calls and finally
// turn completion.
func Decode(raw []byte) []Message {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return []Message{Unknown{Err: err}}
	}

	var out []Message

	if w.SetupComplete != nil {
		out = append(out, SetupAck{})
	}

	if sc := w.ServerContent; sc != nil {
		if sc.Interrupted {
			out = append(out, Interrupted{})
		}
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			out = append(out, Transcription{Role: RoleUser, Text: sc.InputTranscription.Text})
		}

		var parts []wirePart
		if sc.ModelTurn != nil {
			parts = sc.ModelTurn.Parts
		}

		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			out = append(out, Transcription{Role: RoleModel, Text: sc.OutputTranscription.Text})
		} else {
			for _, p := range parts {
				if p.Text != "" && !p.Thought {
					out = append(out, Transcription{Role: RoleModel, Text: p.Text})
				}
			}
		}

		for _, p := range parts {
			switch {
			case p.InlineData != nil && p.InlineData.Data != "":
				samples, err := audio.DecodeBase64(p.InlineData.Data)
				if err != nil {
					out = append(out, Unknown{Keys: []string{"inlineData"}, Err: err})
					continue
				}
				out = append(out, Audio{Samples: samples})

			case p.FunctionCall != nil:
				out = append(out, toFunctionCall(*p.FunctionCall))
			}
		}
	}

	if w.ToolCall != nil {
		for _, fc := range w.ToolCall.FunctionCalls {
			out = append(out, toFunctionCall(fc))
		}
	}

	if w.ServerContent != nil && w.ServerContent.TurnComplete {
		out = append(out, TurnComplete{})
	}

	if len(out) == 0 {
		out = append(out, Unknown{Keys: topLevelKeys(raw)})
	}

	return out
}

func toFunctionCall(fc wireFunctionCall) FunctionCall {
	reason, _ := fc.Args["reason"].(string)
	return FunctionCall{
		ID:     fc.ID,
		Name:   fc.Name,
		Reason: reason,
		Args:   fc.Args,
	}
}

func topLevelKeys(raw []byte) []string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
