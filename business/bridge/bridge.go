// Package bridge runs one phone call: it relays audio between the telephony
// WebSocket and the realtime model, paces playback, and applies call-control
// and language rules to the model's output.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/superfeelapi/goLiveBridge/business/callcontrol"
	"github.com/superfeelapi/goLiveBridge/business/events"
	"github.com/superfeelapi/goLiveBridge/business/language"
	"github.com/superfeelapi/goLiveBridge/business/record"
	"github.com/superfeelapi/goLiveBridge/foundation/audio"
	"github.com/superfeelapi/goLiveBridge/foundation/config"
	"github.com/superfeelapi/goLiveBridge/foundation/external/admin"
	"github.com/superfeelapi/goLiveBridge/foundation/external/gemini"
	"github.com/superfeelapi/goLiveBridge/foundation/external/telephony"
	"github.com/superfeelapi/goLiveBridge/foundation/transcript"
	"go.uber.org/zap"
)

var (
	// ErrProtocolViolation is a bad first frame. The client leg is closed
	// with a policy violation code.
	ErrProtocolViolation = errors.New("bridge: protocol violation")

	// ErrConnectionLost is reported when either leg drops during the call.
	ErrConnectionLost = errors.New("bridge: connection lost")
)

const writeTimeout = 2 * time.Second

// ClientConn is the telephony leg. *websocket.Conn satisfies it.
type ClientConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// ModelLink is the realtime model session. *gemini.Link satisfies it.
type ModelLink interface {
	Connect(ctx context.Context) error
	SendAudio(data string) error
	SendFunctionResponse(id, name string, response map[string]any) error
	InjectTextTurn(text string, turnComplete bool) error
	Messages() iter.Seq[gemini.Message]
	CloseReason() string
	Close() error
}

// Controller issues the terminal call-control command.
type Controller interface {
	Send(ctx context.Context, cmd telephony.Command, callID string) error
}

// Finalizer persists and delivers the call record once the call is over.
type Finalizer interface {
	Finalize(ctx context.Context, call record.Call) error
}

// PromptSource supplies admin managed instructions for an agent.
type PromptSource interface {
	FetchAgentConfig(ctx context.Context, slug string) *admin.AgentConfig
	FetchKnowledge(ctx context.Context, slug string) admin.Knowledge
}

type Config struct {
	TelephonyRate   int
	ModelInputRate  int
	ModelOutputRate int
	InputBufferMs   int
	OutputBufferMs  int

	StartTimeout    time.Duration
	DrainTimeout    time.Duration
	SettleDelay     time.Duration
	FinalizeTimeout time.Duration

	Greeting       string
	LogTranscripts bool

	Model       gemini.Config
	CallControl callcontrol.Policy
	Language    language.Policy
}

type Settings struct {
	Config
	Agent     config.Agent
	Client    ClientConn
	Dial      func(cfg gemini.Config) ModelLink
	Control   Controller
	Finalizer Finalizer
	Prompts   PromptSource
	Broker    events.Broker
	Logger    *zap.SugaredLogger
	Now       func() time.Time
}

// Session is the state of one call. The client loop owns the input queue,
// the pacer owns the output queue, and the model loop owns the transcript,
// the call-control machine and the language monitor.
type Session struct {
	config    Config
	agent     config.Agent
	client    ClientConn
	dial      func(cfg gemini.Config) ModelLink
	link      ModelLink
	control   Controller
	finalizer Finalizer
	prompts   PromptSource
	events    *events.Emitter
	logger    *zap.SugaredLogger
	now       func() time.Time

	info    StartInfo
	started time.Time

	// up is owned by the client loop, down by the model loop.
	up   *audio.Resampler
	down *audio.Resampler

	pacer   *Pacer
	machine *callcontrol.Machine
	monitor *language.Monitor
	log     transcript.Log

	writeMu sync.Mutex

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shut     chan struct{}
	shutOnce sync.Once
	reason   error

	finalized atomic.Bool
	action    atomic.Int32
}

// Run serves one call until it ends and returns why it ended. A nil error is
// a normal stop or a completed terminal action.
func Run(ctx context.Context, s Settings) error {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	if s.StartTimeout <= 0 {
		s.StartTimeout = 10 * time.Second
	}
	if s.DrainTimeout <= 0 {
		s.DrainTimeout = 5 * time.Second
	}

	sess := &Session{
		config:    s.Config,
		agent:     s.Agent,
		client:    s.Client,
		dial:      s.Dial,
		control:   s.Control,
		finalizer: s.Finalizer,
		prompts:   s.Prompts,
		events:    events.NewEmitter(s.Broker, s.Agent.Slug),
		logger:    s.Logger.With("session", uuid.NewString(), "agent", s.Agent.Slug),
		now:       now,
		shut:      make(chan struct{}),
	}
	sess.ctx, sess.cancel = context.WithCancel(ctx)
	defer sess.cancel()

	return sess.run()
}

func (s *Session) run() error {
	s.logger.Infow("bridge: run: waiting for start event")

	info, err := s.awaitStart()
	if err != nil {
		return err
	}

	s.info = info
	s.started = s.now()
	s.logger = s.logger.With("ucid", info.UCID)
	s.events.SetUCID(info.UCID)
	s.events.Emit(events.Started, map[string]string{
		"customer_number": info.CustomerNumber,
		"store_code":      info.StoreCode,
	})
	s.logger.Infow("bridge: run: call started", "customer_number", info.CustomerNumber, "store_code", info.StoreCode)

	if err := s.resamplers(); err != nil {
		s.logger.Errorw("bridge: run: resampler", "ERROR", err)
		_ = s.client.Close()
		return err
	}

	s.machine = callcontrol.New(s.config.CallControl, s.started)
	s.monitor = language.NewMonitor(s.config.Language, language.Parse(s.agent.ExpectedLanguage()))
	s.pacer = NewPacer(PacerConfig{
		Chunk:  audio.SamplesFor(s.config.TelephonyRate, s.config.OutputBufferMs),
		Period: time.Duration(s.config.OutputBufferMs) * time.Millisecond,
		Send:   s.sendMedia,
		Logger: s.logger,
	})

	if err := s.connectModel(); err != nil {
		s.logger.Errorw("bridge: run: model connect", "ERROR", err)
		_ = s.client.Close()
		s.events.Emit(events.Ended, map[string]string{"reason": err.Error()})
		return err
	}

	operations := []func(){
		s.pacerOperation,
		s.modelOperation,
		s.clientOperation,
	}

	g := len(operations)
	s.wg.Add(g)

	hasStarted := make(chan bool)

	for _, op := range operations {
		go func(op func()) {
			defer s.wg.Done()
			defer s.recoverPanic()
			hasStarted <- true
			op()
		}(op)
	}

	for i := 0; i < g; i++ {
		<-hasStarted
	}

	if s.config.Greeting != "" {
		if err := s.link.InjectTextTurn(s.config.Greeting, true); err != nil {
			s.logger.Errorw("bridge: run: greeting", "ERROR", err)
		}
	}

	select {
	case <-s.shut:
	case <-s.ctx.Done():
		s.Shutdown(fmt.Errorf("bridge: server stopping: %w", s.ctx.Err()))
	}
	s.teardown()

	return s.reason
}

// Shutdown ends the call. Only the first call has any effect.
func (s *Session) Shutdown(err error) {
	s.shutOnce.Do(func() {
		if err != nil {
			s.logger.Errorw("bridge: shutdown", "ERROR", err)
		} else {
			s.logger.Infow("bridge: shutdown: started")
		}
		s.reason = err
		close(s.shut)
	})
}

// =====================================================================================================================

func (s *Session) awaitStart() (StartInfo, error) {
	if err := s.client.SetReadDeadline(time.Now().Add(s.config.StartTimeout)); err != nil {
		return StartInfo{}, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	_, raw, err := s.client.ReadMessage()
	if err != nil {
		var ne interface{ Timeout() bool }
		if errors.As(err, &ne) && ne.Timeout() {
			s.closeWithPolicy("Timeout waiting for start event")
			return StartInfo{}, fmt.Errorf("%w: timeout waiting for start event", ErrProtocolViolation)
		}
		_ = s.client.Close()
		return StartInfo{}, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	info, err := ParseStart(raw)
	if err != nil {
		s.closeWithPolicy("Expected start event")
		return StartInfo{}, err
	}

	if err := s.client.SetReadDeadline(time.Time{}); err != nil {
		return StartInfo{}, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	return info, nil
}

func (s *Session) resamplers() error {
	up, err := audio.NewResampler(s.config.TelephonyRate, s.config.ModelInputRate)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}

	down, err := audio.NewResampler(s.config.ModelOutputRate, s.config.TelephonyRate)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}

	s.up, s.down = up, down
	return nil
}

func (s *Session) connectModel() error {
	cfg := s.config.Model
	cfg.SystemInstructions = s.instructions()
	if s.agent.Voice != "" {
		cfg.Voice = s.agent.Voice
	}

	s.link = s.dial(cfg)

	err := s.link.Connect(s.ctx)
	switch {
	case err == nil:
		s.logger.Infow("bridge: connectModel: model ready")
	case errors.Is(err, gemini.ErrSetupTimeout):
		s.logger.Warnw("bridge: connectModel: continuing without setup acknowledgement", "ERROR", err)
	default:
		_ = s.link.Close()
		return fmt.Errorf("%w: model: %v", ErrConnectionLost, err)
	}

	return nil
}

// instructions resolves the system prompt: admin config first, then the
// agent's prompt file, then the built-in fallback. Recent human corrections
// are appended when the knowledge pool has any.
func (s *Session) instructions() string {
	var prompt string

	if s.prompts != nil {
		if cfg := s.prompts.FetchAgentConfig(s.ctx, s.agent.Slug); cfg != nil && cfg.SystemInstructions != "" {
			prompt = cfg.SystemInstructions
			s.logger.Infow("bridge: instructions: using admin config")
		}
	}
	if prompt == "" {
		prompt = s.agent.Prompt()
	}

	if s.prompts != nil {
		prompt = s.prompts.FetchKnowledge(s.ctx, s.agent.Slug).Augment(prompt, []string{"name", "model", "email"}, 5)
	}

	return prompt
}

func (s *Session) teardown() {
	s.logger.Infow("bridge: teardown: started")
	defer s.logger.Infow("bridge: teardown: completed")

	s.cancel()

	if err := s.link.Close(); err != nil {
		s.logger.Debugw("bridge: teardown: model close", "ERROR", err)
	}
	if err := s.client.Close(); err != nil {
		s.logger.Debugw("bridge: teardown: client close", "ERROR", err)
	}

	s.wg.Wait()

	s.finalize()
}

// finalize hands the call record to the finalizer exactly once. Failures are
// logged and never reach the caller.
func (s *Session) finalize() {
	if !s.finalized.CompareAndSwap(false, true) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorw("bridge: finalize: panic", "ERROR", r)
		}
	}()

	s.log.Commit()
	end := s.now()

	s.events.Emit(events.Ended, map[string]any{
		"duration_sec": int(end.Sub(s.started).Seconds()),
		"action":       callcontrol.Action(s.action.Load()).String(),
		"entries":      s.log.Len(),
		"corrections":  s.monitor.Corrections(),
	})

	if s.finalizer == nil {
		return
	}

	timeout := s.config.FinalizeTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	call := record.Call{
		UCID:           s.info.UCID,
		Agent:          s.agent,
		CustomerNumber: s.info.CustomerNumber,
		StoreCode:      s.info.StoreCode,
		Start:          s.started,
		End:            end,
		Entries:        s.log.Entries(),
		Transferred:    callcontrol.Action(s.action.Load()) == callcontrol.Transfer,
	}

	if err := s.finalizer.Finalize(ctx, call); err != nil {
		s.logger.Errorw("bridge: finalize", "ERROR", err)
	}
}

func (s *Session) recoverPanic() {
	if r := recover(); r != nil {
		s.Shutdown(fmt.Errorf("bridge: panic: %v", r))
	}
}

func (s *Session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.client.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return s.client.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) closeWithPolicy(text string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ClosePolicy(s.client, text)
}

// ClosePolicy rejects a client leg before a session exists.
func ClosePolicy(c ClientConn, text string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, text)
	_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = c.Close()
}
