// Package events carries call lifecycle events from live sessions to the
// MQTT and Redis sinks without blocking the sessions.
package events

import (
	"strings"
	"time"
)

// Topics published on the in-process broker.
const (
	Started    = "call.started"
	Transcript = "call.transcript"
	Control    = "call.control"
	Ended      = "call.ended"
)

var Topics = []string{Started, Transcript, Control, Ended}

// Event is the JSON document delivered to every sink.
type Event struct {
	Type  string    `json:"type"`
	UCID  string    `json:"ucid"`
	Agent string    `json:"agent"`
	Time  time.Time `json:"time"`
	Data  any       `json:"data,omitempty"`
}

// Name returns the event type without its "call." prefix.
func (e Event) Name() string {
	return strings.TrimPrefix(e.Type, "call.")
}

// Broker is the publishing side of the in-process broker. Publish must not
// block.
type Broker interface {
	Publish(topic string, data any) int
}

// Emitter stamps events for one call.
type Emitter struct {
	broker Broker
	ucid   string
	agent  string
	now    func() time.Time
}

func NewEmitter(b Broker, agent string) *Emitter {
	return &Emitter{
		broker: b,
		agent:  agent,
		now:    time.Now,
	}
}

// SetUCID is called once the start frame names the call.
func (e *Emitter) SetUCID(ucid string) {
	e.ucid = ucid
}

func (e *Emitter) Emit(topic string, data any) {
	if e == nil || e.broker == nil {
		return
	}
	e.broker.Publish(topic, Event{
		Type:  topic,
		UCID:  e.ucid,
		Agent: e.agent,
		Time:  e.now().UTC(),
		Data:  data,
	})
}
