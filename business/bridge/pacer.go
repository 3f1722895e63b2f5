package bridge

import (
	"context"
	"time"

	"github.com/superfeelapi/goLiveBridge/foundation/audio"
	"go.uber.org/zap"
)

// PacerConfig sizes the chunks sent to the telephony leg.
type PacerConfig struct {
	// Chunk is the number of samples sent per Period.
	Chunk  int
	Period time.Duration

	// Send delivers one chunk. It is only called from the pacer goroutine.
	Send   func(samples []int16) error
	Logger *zap.SugaredLogger
}

// Pacer owns the output queue and releases exactly one chunk per period, so
// clearing the queue on barge-in silences the caller within one chunk.
// Producers talk to it over channels; nothing else touches the queue.
type Pacer struct {
	cfg   PacerConfig
	queue *audio.Queue

	appendCh  chan []int16
	clearCh   chan chan int
	endTurnCh chan struct{}
	drainCh   chan chan struct{}
	done      chan struct{}

	turnStarted bool
	waiters     []chan struct{}
	sendFailed  bool
}

func NewPacer(cfg PacerConfig) *Pacer {
	if cfg.Chunk < 1 {
		cfg.Chunk = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Pacer{
		cfg:       cfg,
		queue:     audio.NewQueue(cfg.Chunk * 50),
		appendCh:  make(chan []int16, 64),
		clearCh:   make(chan chan int),
		endTurnCh: make(chan struct{}, 4),
		drainCh:   make(chan chan struct{}),
		done:      make(chan struct{}),
	}
}

// Append queues model audio already at the telephony rate. The first chunk
// of a turn is faded in, later chunks are crossfaded onto the queue tail.
func (p *Pacer) Append(samples []int16) {
	if len(samples) == 0 {
		return
	}
	select {
	case p.appendCh <- samples:
	case <-p.done:
	}
}

// Clear drops everything queued and returns the number of samples dropped.
func (p *Pacer) Clear() int {
	reply := make(chan int, 1)
	select {
	case p.clearCh <- reply:
	case <-p.done:
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-p.done:
		return 0
	}
}

// EndTurn fades out the queue tail and pads it with silence to a whole
// chunk so the last words of the turn are played.
func (p *Pacer) EndTurn() {
	select {
	case p.endTurnCh <- struct{}{}:
	case <-p.done:
	}
}

// WaitDrained blocks until less than one chunk is queued. It reports false
// when ctx ends or the pacer stops first.
func (p *Pacer) WaitDrained(ctx context.Context) bool {
	w := make(chan struct{})
	select {
	case p.drainCh <- w:
	case <-ctx.Done():
		return false
	case <-p.done:
		return false
	}

	select {
	case <-w:
		return true
	case <-ctx.Done():
		return false
	case <-p.done:
		return false
	}
}

// Run paces the queue until shut is closed.
func (p *Pacer) Run(shut <-chan struct{}) {
	defer close(p.done)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	var next time.Time

	for {
		var tick <-chan time.Time

		if p.queue.Len() >= p.cfg.Chunk {
			now := time.Now()
			if next.IsZero() || now.Sub(next) > p.cfg.Period {
				next = now
			}
			timer.Reset(next.Sub(now))
			tick = timer.C
		} else {
			next = time.Time{}
			timer.Stop()
			p.releaseWaiters()
		}

		select {
		case <-tick:
			if p.queue.Len() < p.cfg.Chunk {
				next = time.Time{}
				continue
			}
			p.send(p.queue.PopFront(p.cfg.Chunk))
			next = next.Add(p.cfg.Period)

		case samples := <-p.appendCh:
			p.append(samples)

		case reply := <-p.clearCh:
			p.flushAppends()
			reply <- p.queue.Clear()
			p.turnStarted = false
			next = time.Time{}

		case <-p.endTurnCh:
			p.flushAppends()
			p.endTurn()

		case w := <-p.drainCh:
			p.flushAppends()
			p.waiters = append(p.waiters, w)

		case <-shut:
			return
		}
	}
}

// =====================================================================================================================

func (p *Pacer) append(samples []int16) {
	if !p.turnStarted {
		p.queue.Push(audio.FadeIn(samples, audio.DefaultFadeLen)...)
		p.turnStarted = true
		return
	}
	audio.CrossfadeAppend(p.queue, samples, audio.DefaultCrossfadeLen)
}

// flushAppends applies appends still buffered so that a later clear, end of
// turn or drain request sees them in the order they were made.
func (p *Pacer) flushAppends() {
	for {
		select {
		case samples := <-p.appendCh:
			p.append(samples)
		default:
			return
		}
	}
}

func (p *Pacer) endTurn() {
	p.turnStarted = false

	n := p.queue.Len()
	if n == 0 {
		return
	}
	audio.FadeOutTail(p.queue, audio.DefaultFadeLen)

	if pad := (p.cfg.Chunk - n%p.cfg.Chunk) % p.cfg.Chunk; pad > 0 {
		p.queue.Push(make([]int16, pad)...)
	}
}

func (p *Pacer) send(samples []int16) {
	if err := p.cfg.Send(samples); err != nil {
		if !p.sendFailed {
			p.cfg.Logger.Errorw("bridge: pacerOperation: send", "ERROR", err)
		}
		p.sendFailed = true
		return
	}
	p.sendFailed = false
}

func (p *Pacer) releaseWaiters() {
	for _, w := range p.waiters {
		close(w)
	}
	p.waiters = p.waiters[:0]
}
