// Package gemini is a client for the Gemini Live realtime speech session
// served by Vertex AI over a websocket.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	writeTimeout      = 5 * time.Second
	defaultSetupWait  = 10 * time.Second
	inboundBufferSize = 64
)

var (
	// ErrNotConnected is returned by sends on a link that is not open.
	ErrNotConnected = errors.New("gemini: not connected")

	// ErrSetupTimeout is returned by Connect when no setup acknowledgement
	// arrived in time. The link stays open and usable.
	ErrSetupTimeout = errors.New("gemini: setup acknowledgement timed out")
)

// Config describes the realtime session to open.
type Config struct {
	URL                 string
	Model               string
	Voice               string
	SystemInstructions  string
	Temperature         float64
	AffectiveDialog     bool
	InputTranscription  bool
	OutputTranscription bool
	SilenceDurationMs   int
	PrefixPaddingMs     int
	StartSensitivity    string
	EndSensitivity      string
	ActivityHandling    string
	CallControl         bool
	SetupTimeout        time.Duration

	// TokenSource supplies the bearer token. Nil sends no Authorization header.
	TokenSource oauth2.TokenSource
	Dialer      *websocket.Dialer
}

// DefaultConfig returns the telephony tuning used in production.
func DefaultConfig() Config {
	return Config{
		Temperature:         1.0,
		AffectiveDialog:     true,
		InputTranscription:  true,
		OutputTranscription: true,
		SilenceDurationMs:   500,
		PrefixPaddingMs:     500,
		StartSensitivity:    "START_SENSITIVITY_HIGH",
		EndSensitivity:      "END_SENSITIVITY_HIGH",
		ActivityHandling:    "START_OF_ACTIVITY_INTERRUPTS",
		CallControl:         true,
		SetupTimeout:        defaultSetupWait,
	}
}

// Link is one realtime session. Sends are safe for concurrent use; Messages
// is meant for a single reader.
type Link struct {
	cfg    Config
	logger *zap.SugaredLogger

	mu   sync.Mutex
	conn *websocket.Conn

	inbound   chan []byte
	pending   []byte
	closeCh   chan struct{}
	closeOnce sync.Once

	reasonMu sync.Mutex
	reason   error
}

// New returns an unconnected link.
func New(cfg Config, logger *zap.SugaredLogger) *Link {
	if cfg.SetupTimeout <= 0 {
		cfg.SetupTimeout = defaultSetupWait
	}
	return &Link{
		cfg:     cfg,
		logger:  logger,
		inbound: make(chan []byte, inboundBufferSize),
		closeCh: make(chan struct{}),
	}
}

// Connect dials the model, sends the setup message and waits for the
// acknowledgement. On ErrSetupTimeout the link is still usable.
func (l *Link) Connect(ctx context.Context) error {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	if l.cfg.TokenSource != nil {
		tok, err := l.cfg.TokenSource.Token()
		if err != nil {
			return fmt.Errorf("gemini: token: %w", err)
		}
		headers.Set("Authorization", tok.Type()+" "+tok.AccessToken)
	}

	dialer := l.cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}

	conn, resp, err := dialer.DialContext(ctx, l.cfg.URL, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("gemini: dial: status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("gemini: dial: %w", err)
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	go l.readLoop(conn)

	if err := l.send(l.cfg.setupMessage()); err != nil {
		return fmt.Errorf("gemini: setup: %w", err)
	}

	timer := time.NewTimer(l.cfg.SetupTimeout)
	defer timer.Stop()

	select {
	case raw, ok := <-l.inbound:
		if !ok {
			return fmt.Errorf("gemini: setup: closed: %s", l.CloseReason())
		}
		for _, m := range Decode(raw) {
			if _, ack := m.(SetupAck); ack {
				l.logger.Infow("gemini: connect: setupComplete received")
				return nil
			}
		}
		l.logger.Warnw("gemini: connect: first message was not setupComplete")
		l.pending = raw
		return nil

	case <-timer.C:
		return ErrSetupTimeout

	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendAudio sends one chunk of base64 PCM16 audio at the model input rate.
func (l *Link) SendAudio(data string) error {
	var m realtimeInputMessage
	m.RealtimeInput.MediaChunks = []mediaChunk{{MimeType: "audio/pcm", Data: data}}
	return l.send(m)
}

// SendFunctionResponse answers the function call with the given id.
func (l *Link) SendFunctionResponse(id, name string, response map[string]any) error {
	var m toolResponseMessage
	m.ToolResponse.FunctionResponses = []functionResponse{{ID: id, Name: name, Response: response}}
	return l.send(m)
}

// InjectTextTurn sends a synthetic user turn.
func (l *Link) InjectTextTurn(text string, turnComplete bool) error {
	var m clientContentMessage
	m.ClientContent.Turns = []content{{Role: "user", Parts: []part{{Text: text}}}}
	m.ClientContent.TurnComplete = turnComplete
	return l.send(m)
}

// Messages yields decoded model events until the link closes. A socket error
// ends the sequence; CloseReason reports why.
func (l *Link) Messages() iter.Seq[Message] {
	return func(yield func(Message) bool) {
		if raw := l.pending; raw != nil {
			l.pending = nil
			for _, m := range Decode(raw) {
				if !yield(m) {
					return
				}
			}
		}

		for {
			select {
			case <-l.closeCh:
				return

			case raw, ok := <-l.inbound:
				if !ok {
					return
				}
				for _, m := range Decode(raw) {
					if !yield(m) {
						return
					}
				}
			}
		}
	}
}

// CloseReason describes why the inbound stream ended, or "" if it has not.
func (l *Link) CloseReason() string {
	l.reasonMu.Lock()
	defer l.reasonMu.Unlock()

	if l.reason == nil {
		return ""
	}
	var ce *websocket.CloseError
	if errors.As(l.reason, &ce) {
		return fmt.Sprintf("code=%d reason=%s", ce.Code, ce.Text)
	}
	return l.reason.Error()
}

// Close sends a normal close frame and releases the socket. It is safe to
// call more than once.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closeCh)

		l.mu.Lock()
		defer l.mu.Unlock()

		if l.conn == nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = l.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = l.conn.Close()
		l.conn = nil
	})
	return err
}

// =================================================================================================================

func (l *Link) send(v any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return ErrNotConnected
	}
	select {
	case <-l.closeCh:
		return ErrNotConnected
	default:
	}

	if err := l.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("gemini: write deadline: %w", err)
	}
	if err := l.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("gemini: write: %w", err)
	}
	return nil
}

func (l *Link) readLoop(conn *websocket.Conn) {
	defer close(l.inbound)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			l.reasonMu.Lock()
			l.reason = err
			l.reasonMu.Unlock()

			select {
			case <-l.closeCh:
			default:
				l.logger.Infow("gemini: readLoop: closed", "reason", l.CloseReason())
			}
			return
		}

		select {
		case l.inbound <- raw:
		case <-l.closeCh:
			return
		}
	}
}
