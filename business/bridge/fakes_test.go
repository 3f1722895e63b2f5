package bridge_test

import (
	"context"
	"encoding/binary"
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/superfeelapi/goLiveBridge/business/record"
	"github.com/superfeelapi/goLiveBridge/foundation/external/gemini"
	"github.com/superfeelapi/goLiveBridge/foundation/external/telephony"
)

type timeoutError struct{}

func (timeoutError) Error() string { return "i/o timeout" }
func (timeoutError) Timeout() bool { return true }

// fakeClient is an in-memory telephony leg.
type fakeClient struct {
	in chan []byte

	mu        sync.Mutex
	out       [][]byte
	deadline  time.Time
	closeCode int
	closeText string

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		in:     make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeClient) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case b := <-c.in:
		return websocket.TextMessage, b, nil
	case <-timeout:
		return 0, nil, timeoutError{}
	case <-c.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (c *fakeClient) WriteMessage(_ int, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("use of closed connection")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, append([]byte(nil), data...))
	return nil
}

func (c *fakeClient) WriteControl(messageType int, data []byte, _ time.Time) error {
	if messageType == websocket.CloseMessage && len(data) >= 2 {
		c.mu.Lock()
		c.closeCode = int(binary.BigEndian.Uint16(data))
		c.closeText = string(data[2:])
		c.mu.Unlock()
	}
	return nil
}

func (c *fakeClient) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return nil
}

func (c *fakeClient) SetWriteDeadline(time.Time) error {
	return nil
}

func (c *fakeClient) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeClient) send(frame string) {
	c.in <- []byte(frame)
}

func (c *fakeClient) written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.out...)
}

func (c *fakeClient) closeFrame() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode, c.closeText
}

type functionResponse struct {
	ID       string
	Name     string
	Response map[string]any
}

// fakeLink is a scripted model session.
type fakeLink struct {
	msgs chan gemini.Message

	mu        sync.Mutex
	cfg       gemini.Config
	audio     []string
	responses []functionResponse
	injected  []string

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		msgs:   make(chan gemini.Message, 64),
		closed: make(chan struct{}),
	}
}

func (l *fakeLink) dial(cfg gemini.Config) *fakeLink {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = cfg
	return l
}

func (l *fakeLink) Connect(context.Context) error {
	return nil
}

func (l *fakeLink) SendAudio(data string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.audio = append(l.audio, data)
	return nil
}

func (l *fakeLink) SendFunctionResponse(id, name string, response map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.responses = append(l.responses, functionResponse{ID: id, Name: name, Response: response})
	return nil
}

func (l *fakeLink) InjectTextTurn(text string, _ bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.injected = append(l.injected, text)
	return nil
}

func (l *fakeLink) Messages() iter.Seq[gemini.Message] {
	return func(yield func(gemini.Message) bool) {
		for {
			select {
			case m := <-l.msgs:
				if !yield(m) {
					return
				}
			case <-l.closed:
				return
			}
		}
	}
}

func (l *fakeLink) CloseReason() string {
	return "code=1000 reason="
}

func (l *fakeLink) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })
	return nil
}

func (l *fakeLink) snapshot() (audio int, responses []functionResponse, injected []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.audio), append([]functionResponse(nil), l.responses...), append([]string(nil), l.injected...)
}

type fakeControl struct {
	mu   sync.Mutex
	cmds []telephony.Command
	err  error
}

func (c *fakeControl) Send(_ context.Context, cmd telephony.Command, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cmds = append(c.cmds, cmd)
	return c.err
}

func (c *fakeControl) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *fakeControl) commands() []telephony.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]telephony.Command(nil), c.cmds...)
}

type fakeFinalizer struct {
	mu    sync.Mutex
	calls []record.Call
}

func (f *fakeFinalizer) Finalize(_ context.Context, c record.Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return nil
}

func (f *fakeFinalizer) finalized() []record.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]record.Call(nil), f.calls...)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
