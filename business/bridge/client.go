package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/superfeelapi/goLiveBridge/foundation/audio"
)

// clientOperation reads the telephony leg, buffers caller audio and sends it
// to the model in fixed windows at the model input rate.
func (s *Session) clientOperation() {
	s.logger.Infow("bridge: clientOperation: G started")
	defer s.logger.Infow("bridge: clientOperation: G completed")

	chunk := audio.SamplesFor(s.config.TelephonyRate, s.config.InputBufferMs)
	input := audio.NewQueue(chunk * 4)

	var frames int

	for {
		_, raw, err := s.client.ReadMessage()
		if err != nil {
			select {
			case <-s.shut:
			default:
				s.Shutdown(fmt.Errorf("%w: client: %v", ErrConnectionLost, err))
			}
			return
		}

		var f inboundFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			s.logger.Debugw("bridge: clientOperation: skipping frame", "ERROR", err)
			continue
		}

		switch {
		case f.Event == mediaEvent:
			frames++
			input.Push(f.Data.Samples...)

			for input.Len() >= chunk {
				if err := s.sendInput(input.PopFront(chunk)); err != nil {
					s.Shutdown(err)
					return
				}
			}

		case stopEvents[f.Event]:
			s.logger.Infow("bridge: clientOperation: received stop", "event", f.Event, "frames", frames)
			s.Shutdown(nil)
			return

		default:
			s.logger.Debugw("bridge: clientOperation: ignoring event", "event", f.Event)
		}
	}
}

func (s *Session) sendInput(samples []int16) error {
	samples = s.up.Process(samples)
	if len(samples) == 0 {
		return nil
	}

	if err := s.link.SendAudio(audio.EncodeBase64(samples)); err != nil {
		return fmt.Errorf("%w: model: %v", ErrConnectionLost, err)
	}
	return nil
}

// =====================================================================================================================

func (s *Session) sendMedia(samples []int16) error {
	b, err := encodeMedia(s.info.UCID, samples, s.config.TelephonyRate)
	if err != nil {
		return err
	}
	return s.write(b)
}

func (s *Session) sendClear() {
	b, err := json.Marshal(clearFrame{Event: clearEvent, UCID: s.info.UCID})
	if err != nil {
		return
	}
	if err := s.write(b); err != nil {
		s.logger.Debugw("bridge: sendClear", "ERROR", err)
	}
}
