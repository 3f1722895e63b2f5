package bridge

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Client leg events.
const (
	startEvent = "start"
	mediaEvent = "media"
	clearEvent = "clear"

	unknownUCID = "UNKNOWN"
)

var stopEvents = map[string]bool{
	"stop":  true,
	"end":   true,
	"close": true,
}

// StartInfo is what the first client frame tells us about the call.
type StartInfo struct {
	UCID           string
	CustomerNumber string
	StoreCode      string
}

type inboundFrame struct {
	Event string `json:"event"`
	Data  struct {
		Samples []int16 `json:"samples"`
	} `json:"data"`
}

type mediaFrame struct {
	Event string    `json:"event"`
	Type  string    `json:"type"`
	UCID  string    `json:"ucid"`
	Data  mediaData `json:"data"`
}

type mediaData struct {
	Samples        []int16 `json:"samples"`
	BitsPerSample  int     `json:"bitsPerSample"`
	SampleRate     int     `json:"sampleRate"`
	ChannelCount   int     `json:"channelCount"`
	NumberOfFrames int     `json:"numberOfFrames"`
	Type           string  `json:"type"`
}

type clearFrame struct {
	Event string `json:"event"`
	UCID  string `json:"ucid,omitempty"`
}

// ParseStart validates the first client frame. Any event other than start
// is a protocol violation.
func ParseStart(raw []byte) (StartInfo, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return StartInfo{}, fmt.Errorf("%w: malformed first frame: %v", ErrProtocolViolation, err)
	}

	if ev, _ := m["event"].(string); ev != startEvent {
		return StartInfo{}, fmt.Errorf("%w: expected start event, got %q", ErrProtocolViolation, ev)
	}

	info := StartInfo{
		UCID:           lookup(m, "ucid"),
		CustomerNumber: lookup(m, "customerNumber", "callerId", "caller_number", "from"),
		StoreCode:      lookup(m, "storeCode", "store_code", "vmn", "to"),
	}
	if info.UCID == "" {
		info.UCID = unknownUCID
	}

	return info, nil
}

func encodeMedia(ucid string, samples []int16, rate int) ([]byte, error) {
	return json.Marshal(mediaFrame{
		Event: mediaEvent,
		Type:  mediaEvent,
		UCID:  ucid,
		Data: mediaData{
			Samples:        samples,
			BitsPerSample:  16,
			SampleRate:     rate,
			ChannelCount:   1,
			NumberOfFrames: len(samples),
			Type:           "data",
		},
	})
}

// =====================================================================================================================

// lookup returns the first key found at the top level, then under "start",
// then under "data".
func lookup(m map[string]any, keys ...string) string {
	scopes := []map[string]any{m}
	for _, name := range []string{"start", "data"} {
		if sub, ok := m[name].(map[string]any); ok {
			scopes = append(scopes, sub)
		}
	}

	for _, scope := range scopes {
		for _, k := range keys {
			switch v := scope[k].(type) {
			case string:
				if v != "" {
					return v
				}
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}
