package gemini

import "fmt"

// ServiceURL returns the regional Vertex AI realtime endpoint.
func ServiceURL(location string) string {
	return fmt.Sprintf("wss://%s-aiplatform.googleapis.com/ws/google.cloud.aiplatform.v1beta1.LlmBidiService/BidiGenerateContent", location)
}

// ModelURI returns the fully qualified publisher model name.
func ModelURI(project, location, model string) string {
	return fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", project, location, model)
}

type setupMessage struct {
	Setup setup `json:"setup"`
}

type setup struct {
	Model                    string              `json:"model"`
	GenerationConfig         generationConfig    `json:"generation_config"`
	SystemInstruction        content             `json:"system_instruction"`
	RealtimeInputConfig      realtimeInputConfig `json:"realtime_input_config"`
	InputAudioTranscription  *struct{}           `json:"input_audio_transcription,omitempty"`
	OutputAudioTranscription *struct{}           `json:"output_audio_transcription,omitempty"`
	Tools                    []tool              `json:"tools,omitempty"`
}

type generationConfig struct {
	ResponseModalities    []string     `json:"response_modalities"`
	Temperature           float64      `json:"temperature"`
	SpeechConfig          speechConfig `json:"speech_config"`
	EnableAffectiveDialog bool         `json:"enable_affective_dialog"`
}

type speechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voice_name"`
		} `json:"prebuilt_voice_config"`
	} `json:"voice_config"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type realtimeInputConfig struct {
	AutomaticActivityDetection activityDetection `json:"automatic_activity_detection"`
	ActivityHandling           string            `json:"activity_handling"`
}

type activityDetection struct {
	Disabled                 bool   `json:"disabled"`
	SilenceDurationMs        int    `json:"silence_duration_ms"`
	PrefixPaddingMs          int    `json:"prefix_padding_ms"`
	StartOfSpeechSensitivity string `json:"start_of_speech_sensitivity"`
	EndOfSpeechSensitivity   string `json:"end_of_speech_sensitivity"`
}

type tool struct {
	FunctionDeclarations []functionDeclaration `json:"function_declarations"`
}

type functionDeclaration struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  schema `json:"parameters"`
}

type schema struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Properties  map[string]schema `json:"properties,omitempty"`
	Required    []string          `json:"required,omitempty"`
}

type realtimeInputMessage struct {
	RealtimeInput struct {
		MediaChunks []mediaChunk `json:"media_chunks"`
	} `json:"realtime_input"`
}

type mediaChunk struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type clientContentMessage struct {
	ClientContent struct {
		Turns        []content `json:"turns"`
		TurnComplete bool      `json:"turn_complete"`
	} `json:"client_content"`
}

type toolResponseMessage struct {
	ToolResponse struct {
		FunctionResponses []functionResponse `json:"function_responses"`
	} `json:"tool_response"`
}

type functionResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// =================================================================================================================

func (c Config) setupMessage() setupMessage {
	var s setup

	s.Model = c.Model
	s.GenerationConfig = generationConfig{
		ResponseModalities:    []string{"AUDIO"},
		Temperature:           c.Temperature,
		EnableAffectiveDialog: c.AffectiveDialog,
	}
	s.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = c.Voice
	s.SystemInstruction = content{Parts: []part{{Text: c.SystemInstructions}}}
	s.RealtimeInputConfig = realtimeInputConfig{
		AutomaticActivityDetection: activityDetection{
			SilenceDurationMs:        c.SilenceDurationMs,
			PrefixPaddingMs:          c.PrefixPaddingMs,
			StartOfSpeechSensitivity: c.StartSensitivity,
			EndOfSpeechSensitivity:   c.EndSensitivity,
		},
		ActivityHandling: c.ActivityHandling,
	}

	if c.InputTranscription {
		s.InputAudioTranscription = &struct{}{}
	}
	if c.OutputTranscription {
		s.OutputAudioTranscription = &struct{}{}
	}
	if c.CallControl {
		s.Tools = []tool{{FunctionDeclarations: callControlDeclarations()}}
	}

	return setupMessage{Setup: s}
}

func callControlDeclarations() []functionDeclaration {
	reason := func(desc string) schema {
		return schema{
			Type: "OBJECT",
			Properties: map[string]schema{
				"reason": {Type: "STRING", Description: desc},
			},
			Required: []string{"reason"},
		}
	}

	return []functionDeclaration{
		{
			Name: TransferCall,
			Description: "Transfer the call to a human sales agent. Call this only after every data point is " +
				"collected, the summary was confirmed, and the caller said yes to a separate question asking whether " +
				"they want to speak with the sales team, or when the caller explicitly asks to talk to a person or " +
				"dealer. Say a brief goodbye after calling it.",
			Parameters: reason("Short reason, for example normal flow or on-demand request."),
		},
		{
			Name: EndCall,
			Description: "End the call after saying goodbye. Call this only after every data point is collected, " +
				"the summary was confirmed, the caller was asked the transfer question and said no. Never call it " +
				"when the caller wants a transfer.",
			Parameters: reason("Short reason for ending the call."),
		},
	}
}
