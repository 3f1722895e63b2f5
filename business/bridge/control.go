package bridge

import (
	"context"
	"time"

	"github.com/superfeelapi/goLiveBridge/business/callcontrol"
	"github.com/superfeelapi/goLiveBridge/business/events"
	"github.com/superfeelapi/goLiveBridge/foundation/external/telephony"
)

const controlTimeout = 10 * time.Second

// terminate plays out the goodbye, issues the transfer or hangup once, falls
// back to a client leg event if the provider rejects it, and ends the call.
// The command is sent even if a leg dropped while the goodbye was playing.
// The client leg is closed even when both attempts fail.
func (s *Session) terminate(action callcontrol.Action) {
	s.logger.Infow("bridge: terminate: started", "action", action.String())
	defer s.logger.Infow("bridge: terminate: completed", "action", action.String())

	defer s.Shutdown(nil)

	drainCtx, cancel := context.WithTimeout(s.ctx, s.config.DrainTimeout)
	drained := s.pacer.WaitDrained(drainCtx)
	cancel()

	if !drained {
		s.logger.Warnw("bridge: terminate: output not drained", "timeout", s.config.DrainTimeout)
	}

	time.Sleep(s.config.SettleDelay)

	cmd := telephony.HangupCommand
	if action == callcontrol.Transfer {
		cmd = telephony.TransferCommand
	}

	s.events.Emit(events.Control, map[string]string{"action": action.String(), "command": string(cmd)})

	if s.control != nil {
		ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
		err := s.control.Send(ctx, cmd, s.info.UCID)
		cancel()

		if err == nil {
			s.logger.Infow("bridge: terminate: command accepted", "command", string(cmd))
			return
		}
		s.logger.Errorw("bridge: terminate: control api", "ERROR", err, "command", string(cmd))
	}

	frame, err := telephony.FallbackFrame(cmd, s.info.UCID)
	if err != nil {
		s.logger.Errorw("bridge: terminate: fallback frame", "ERROR", err)
		return
	}
	if err := s.write(frame); err != nil {
		s.logger.Errorw("bridge: terminate: fallback", "ERROR", err)
		return
	}
	s.logger.Infow("bridge: terminate: fallback sent", "command", string(cmd))
}
