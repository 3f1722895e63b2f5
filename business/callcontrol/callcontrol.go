// Package callcontrol decides when a live call is transferred or hung up
// based on model function calls and turn boundaries.
package callcontrol

import (
	"time"

	"github.com/superfeelapi/goLiveBridge/foundation/external/gemini"
	"github.com/superfeelapi/goLiveBridge/foundation/lexicon"
)

type State int

const (
	Active State = iota
	GoodbyePending
	Finalizing
)

func (s State) String() string {
	switch s {
	case GoodbyePending:
		return "goodbye_pending"
	case Finalizing:
		return "finalizing"
	}
	return "active"
}

type Action int

const (
	None Action = iota
	Hangup
	Transfer
)

func (a Action) String() string {
	switch a {
	case Hangup:
		return "hangup"
	case Transfer:
		return "transfer"
	}
	return "none"
}

// Answer is the caller's recorded answer to the transfer question.
type Answer int

const (
	Unknown Answer = iota
	Yes
	No
)

// Decision is the outcome of a function call. Response is sent back to the
// model under the call's id whether or not it was accepted.
type Decision struct {
	Accepted bool
	Response map[string]any
	Reason   string
}

// Machine tracks one call. It is owned by the goroutine reading model
// messages and is not safe for concurrent use.
type Machine struct {
	policy  Policy
	started time.Time

	state  State
	action Action
	fired  bool

	userWantsTransfer        Answer
	transferQuestionAskedAt  time.Time
	transferQuestionAnswered bool
	explicitTransfer         bool

	lastUser  string
	lastAgent string
}

func New(policy Policy, started time.Time) *Machine {
	return &Machine{
		policy:  policy,
		started: started,
	}
}

// OnFunctionCall applies the guards to a transfer_call or end_call request.
func (m *Machine) OnFunctionCall(name string, now time.Time, correctionPending bool) Decision {
	if m.state != Active {
		return Decision{
			Response: map[string]any{"result": "ok", "message": "The call is already ending. Finish your goodbye."},
			Reason:   "duplicate",
		}
	}

	if correctionPending {
		return Decision{
			Response: map[string]any{"result": "ignored", "message": "Continue the conversation."},
			Reason:   "language correction pending",
		}
	}

	if now.Sub(m.started) < m.policy.SetupGrace {
		return Decision{
			Response: map[string]any{"error": "The conversation has just started. Continue the conversation."},
			Reason:   "setup grace",
		}
	}

	switch name {
	case gemini.TransferCall:
		if m.userWantsTransfer == No && !m.explicitTransfer {
			return Decision{
				Response: map[string]any{"error": "The caller declined the transfer. Do not transfer. Thank them and use end_call."},
				Reason:   "caller declined transfer",
			}
		}
		m.userWantsTransfer = Yes
		m.action = Transfer

	case gemini.EndCall:
		if m.userWantsTransfer == Unknown {
			m.userWantsTransfer = No
		}
		m.action = Hangup

	default:
		return Decision{
			Response: map[string]any{"error": "Unknown function " + name + "."},
			Reason:   "unknown function",
		}
	}

	m.state = GoodbyePending

	return Decision{
		Accepted: true,
		Response: map[string]any{"result": "ok", "message": "Say a brief goodbye to the caller."},
	}
}

// OnUserUtterance records a finalised caller utterance.
func (m *Machine) OnUserUtterance(text string) {
	m.lastUser = text

	if lexicon.ContainsAny(text, m.policy.ExplicitTransferPhrases) {
		m.explicitTransfer = true
	}

	if m.transferQuestionAskedAt.IsZero() || m.transferQuestionAnswered {
		return
	}

	switch {
	case lexicon.HasWord(text, m.policy.NegativeWords):
		m.userWantsTransfer = No
		m.transferQuestionAnswered = true

	case lexicon.HasWord(text, m.policy.AffirmativeWords):
		m.userWantsTransfer = Yes
		m.transferQuestionAnswered = true
	}
}

// OnAgentUtterance records a finalised model utterance.
func (m *Machine) OnAgentUtterance(text string, now time.Time) {
	m.lastAgent = text

	if lexicon.ContainsAny(text, m.policy.TransferQuestionPhrases) {
		m.transferQuestionAskedAt = now
		m.transferQuestionAnswered = false
	}
}

// OnTurnComplete reports the terminal action to run, at most once per call.
// The fired flag is set before returning so a second turn boundary can never
// trigger another action.
func (m *Machine) OnTurnComplete(now time.Time) (Action, bool) {
	lastAgent := m.lastAgent
	m.lastAgent = ""

	if m.fired {
		return None, false
	}

	switch m.state {
	case GoodbyePending:
		m.state = Finalizing
		m.fired = true
		return m.action, true

	case Active:
		if !m.transferQuestionAnswered || now.Sub(m.started) < m.policy.ImplicitEndMinAge {
			return None, false
		}
		if !lexicon.ContainsAny(lastAgent, m.policy.GoodbyePhrases) {
			return None, false
		}

		m.action = Hangup
		if m.userWantsTransfer == Yes {
			m.action = Transfer
		}
		m.state = Finalizing
		m.fired = true
		return m.action, true
	}

	return None, false
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Action() Action {
	return m.action
}

func (m *Machine) UserWantsTransfer() Answer {
	return m.userWantsTransfer
}

func (m *Machine) TransferQuestionAnswered() bool {
	return m.transferQuestionAnswered
}
