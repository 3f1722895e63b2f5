package bridge

import (
	"fmt"
	"strings"

	"github.com/superfeelapi/goLiveBridge/business/events"
	"github.com/superfeelapi/goLiveBridge/foundation/external/gemini"
	"github.com/superfeelapi/goLiveBridge/foundation/transcript"
)

// sentenceEnd marks the end of a spoken sentence in a transcript fragment.
const sentenceEnd = ".!?।"

// turn is the model loop's view of the current model turn.
type turn struct {
	text  strings.Builder
	audio int

	// ackCleared is set once the turn was found to acknowledge a language
	// correction. Audio is dropped while muted, which lasts until the
	// acknowledgement sentence has ended.
	ackCleared bool
	muted      bool
	ackEnded   bool
}

// modelOperation demultiplexes model messages. It is the only goroutine that
// touches the transcript, the call-control machine and the language monitor.
func (s *Session) modelOperation() {
	s.logger.Infow("bridge: modelOperation: G started")
	defer s.logger.Infow("bridge: modelOperation: G completed")

	var t turn

	for msg := range s.link.Messages() {
		select {
		case <-s.shut:
			return
		default:
		}

		switch m := msg.(type) {
		case gemini.SetupAck:
			s.logger.Debugw("bridge: modelOperation: setup acknowledged")

		case gemini.Interrupted:
			s.down.Reset()
			n := s.pacer.Clear()
			s.sendClear()
			s.logger.Infow("bridge: modelOperation: barge-in", "dropped_samples", n)

		case gemini.Transcription:
			s.onTranscription(m, &t)

		case gemini.Audio:
			s.onAudio(m, &t)

		case gemini.FunctionCall:
			s.onFunctionCall(m)

		case gemini.TurnComplete:
			s.onTurnComplete(&t)
			t = turn{}

		case gemini.Unknown:
			if m.Err != nil {
				s.logger.Warnw("bridge: modelOperation: undecodable message", "ERROR", m.Err)
				continue
			}
			s.logger.Debugw("bridge: modelOperation: unhandled message", "keys", m.Keys)
		}
	}

	select {
	case <-s.shut:
	default:
		s.Shutdown(fmt.Errorf("%w: model: %s", ErrConnectionLost, s.link.CloseReason()))
	}
}

func (s *Session) pacerOperation() {
	s.logger.Infow("bridge: pacerOperation: G started")
	defer s.logger.Infow("bridge: pacerOperation: G completed")

	s.pacer.Run(s.shut)
}

// =====================================================================================================================

func (s *Session) onTranscription(m gemini.Transcription, t *turn) {
	if m.Role == gemini.RoleUser {
		if e, ok := s.log.Add(transcript.User, m.Text, s.now()); ok {
			s.onCommitted(e)
		}
		return
	}

	if e, ok := s.log.Add(transcript.Agent, m.Text, s.now()); ok {
		s.onCommitted(e)
	}
	t.text.WriteString(m.Text)

	switch {
	case !t.ackCleared && s.monitor.IsAcknowledgement(t.text.String()):
		t.ackCleared = true
		t.muted = true
		t.ackEnded = strings.ContainsAny(m.Text, sentenceEnd)

		s.down.Reset()
		n := s.pacer.Clear()
		s.logger.Infow("bridge: onTranscription: suppressed correction acknowledgement", "dropped_samples", n)

	case t.muted && t.ackEnded:
		t.muted = false

	case t.muted:
		t.ackEnded = strings.ContainsAny(m.Text, sentenceEnd)
	}
}

func (s *Session) onAudio(m gemini.Audio, t *turn) {
	if len(m.Samples) == 0 {
		return
	}
	if t.muted {
		return
	}
	t.audio += len(m.Samples)

	s.pacer.Append(s.down.Process(m.Samples))
}

func (s *Session) onFunctionCall(m gemini.FunctionCall) {
	// The caller's last words are judged before the call they prompted.
	if speaker, text := s.log.Pending(); speaker == transcript.User && text != "" {
		if e, ok := s.log.Commit(); ok {
			s.onCommitted(e)
		}
	}

	d := s.machine.OnFunctionCall(m.Name, s.now(), s.monitor.Pending())

	s.logger.Infow("bridge: onFunctionCall", "name", m.Name, "reason", m.Reason, "accepted", d.Accepted, "decision", d.Reason)
	s.events.Emit(events.Control, map[string]any{
		"function": m.Name,
		"reason":   m.Reason,
		"accepted": d.Accepted,
		"decision": d.Reason,
	})

	if err := s.link.SendFunctionResponse(m.ID, m.Name, d.Response); err != nil {
		s.logger.Errorw("bridge: onFunctionCall: response", "ERROR", err)
	}
}

func (s *Session) onTurnComplete(t *turn) {
	if e, ok := s.log.Commit(); ok {
		s.onCommitted(e)
	}

	now := s.now()
	text := strings.TrimSpace(t.text.String())

	if text != "" {
		s.machine.OnAgentUtterance(text, now)
	}

	if correction, ok := s.monitor.OnAgentTurn(text); ok {
		s.logger.Warnw("bridge: onTurnComplete: language drift", "expected", s.monitor.Expected().String())
		if err := s.link.InjectTextTurn(correction, true); err != nil {
			s.logger.Errorw("bridge: onTurnComplete: correction", "ERROR", err)
		}
	}

	if t.muted {
		s.down.Reset()
	} else {
		s.pacer.Append(s.down.Flush())
	}
	s.pacer.EndTurn()

	action, fire := s.machine.OnTurnComplete(now)
	if !fire {
		return
	}

	s.action.Store(int32(action))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.recoverPanic()
		s.terminate(action)
	}()
}

// onCommitted runs for every finalised transcript entry.
func (s *Session) onCommitted(e transcript.Entry) {
	if e.Speaker == transcript.User {
		s.machine.OnUserUtterance(e.Text)
		c := s.monitor.OnUserUtterance(e.Text)
		s.logger.Debugw("bridge: onCommitted: caller utterance", "language", c.Language.String(), "kind", c.Kind.String())
	}

	if s.config.LogTranscripts {
		s.logger.Infow("bridge: transcript", "speaker", string(e.Speaker), "text", e.Text)
	}

	s.events.Emit(events.Transcript, e)
}
