package record

import (
	"strconv"
	"strings"
	"time"

	"github.com/superfeelapi/goLiveBridge/foundation/transcript"
)

const callVendor = "Waybeo"

// SIPayload is the call summary pushed to the admin UI and, without a
// template, to the SI webhook.
type SIPayload struct {
	ID               string             `json:"id"`
	AgentSlug        string             `json:"agent_slug"`
	CustomerName     string             `json:"customer_name"`
	CallRefID        string             `json:"call_ref_id"`
	CallVendor       string             `json:"call_vendor"`
	RecordingURL     string             `json:"recording_url"`
	StartTime        string             `json:"start_time"`
	EndTime          string             `json:"end_time"`
	Duration         int                `json:"duration"`
	StoreCode        string             `json:"store_code"`
	CustomerNumber   any                `json:"customer_number"`
	Language         Language           `json:"language"`
	DealerRouting    DealerRouting      `json:"dealer_routing"`
	Dropoff          Dropoff            `json:"dropoff"`
	CompletionStatus string             `json:"completion_status"`
	ResponseData     []ResponseItem     `json:"response_data"`
	Transcript       []transcript.Entry `json:"transcript,omitempty"`
}

type Language struct {
	Welcome        string `json:"welcome"`
	Conversational string `json:"conversational"`
}

type DealerRouting struct {
	Status bool   `json:"status"`
	Reason string `json:"reason"`
	Time   string `json:"time"`
}

type Dropoff struct {
	Time   string `json:"time"`
	Action string `json:"action"`
}

// WaybeoPayload is sent to the Waybeo webhook when the agent has no
// template for it.
type WaybeoPayload struct {
	UCID          string `json:"ucid"`
	CallStatus    string `json:"call_status"`
	CallStartTime string `json:"call_start_time"`
	CallEndTime   string `json:"call_end_time"`
	CallDuration  int    `json:"call_duration"`
	CallerNumber  string `json:"caller_number"`
	AgentID       string `json:"agent_id"`
	StoreCode     string `json:"store_code"`
}

// BuildSIPayload assembles the SI payload for a finished call.
func BuildSIPayload(c Call, entries []transcript.Entry, items []ResponseItem, duration int) SIPayload {
	end := formatTime(c.End)
	lang := c.Agent.ExpectedLanguage()

	routing := DealerRouting{Reason: "User decided", Time: end}
	if c.Transferred {
		routing = DealerRouting{Status: true, Reason: "User requested transfer", Time: end}
	}

	return SIPayload{
		ID:               "bot_" + c.UCID,
		AgentSlug:        c.Agent.Slug,
		CustomerName:     c.Agent.DisplayName(),
		CallRefID:        c.UCID,
		CallVendor:       callVendor,
		StartTime:        formatTime(c.Start),
		EndTime:          end,
		Duration:         duration,
		StoreCode:        c.StoreCode,
		CustomerNumber:   customerNumber(c.CustomerNumber),
		Language:         Language{Welcome: lang, Conversational: lang},
		DealerRouting:    routing,
		Dropoff:          Dropoff{Time: end, Action: "email"},
		CompletionStatus: CompletionStatus(items),
		ResponseData:     items,
		Transcript:       entries,
	}
}

// BuildWaybeoPayload is the default Waybeo webhook body.
func BuildWaybeoPayload(c Call, si SIPayload) WaybeoPayload {
	return WaybeoPayload{
		UCID:          c.UCID,
		CallStatus:    si.CompletionStatus,
		CallStartTime: si.StartTime,
		CallEndTime:   si.EndTime,
		CallDuration:  si.Duration,
		CallerNumber:  c.CustomerNumber,
		AgentID:       c.Agent.Slug,
		StoreCode:     c.StoreCode,
	}
}

// TemplateContext is what SI and Waybeo templates can refer to.
func TemplateContext(c Call, si SIPayload, customerName, agentName string) map[string]any {
	var users, agents int
	for _, e := range si.Transcript {
		switch e.Speaker {
		case transcript.User:
			users++
		case transcript.Agent:
			agents++
		}
	}

	entries := make([]any, 0, len(si.Transcript))
	for _, e := range si.Transcript {
		entries = append(entries, map[string]any{
			"speaker":   string(e.Speaker),
			"text":      e.Text,
			"timestamp": e.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	return map[string]any{
		"call_id":           c.UCID,
		"agent_slug":        c.Agent.Slug,
		"agent_name":        agentName,
		"customer_name":     customerName,
		"store_code":        c.StoreCode,
		"customer_number":   c.CustomerNumber,
		"start_time":        si.StartTime,
		"end_time":          si.EndTime,
		"duration_sec":      si.Duration,
		"completion_status": si.CompletionStatus,
		"response_data":     si.ResponseData,
		"transcript":        entries,
		"transcript_text":   transcript.Format(si.Transcript),
		"extracted":         Extracted(si.ResponseData),
		"analytics": map[string]any{
			"total_exchanges":    len(si.Transcript),
			"user_messages":      users,
			"assistant_messages": agents,
		},
	}
}

// =====================================================================================================================

// customerNumber is sent as a number when it is all digits.
func customerNumber(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return s
	}
	return n
}
