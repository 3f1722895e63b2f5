package pubsub

import "sync"

// Subscriber receives events from a Broker on a buffered channel. The buffer
// absorbs bursts while the reader is busy; once it is full further events
// are dropped rather than stalling the publisher.
type Subscriber struct {
	payload chan any
	once    sync.Once
}

// NewSubscriber returns a subscriber holding up to capacity undelivered
// events. A capacity below one is raised to one.
func NewSubscriber(capacity int) *Subscriber {
	if capacity < 1 {
		capacity = 1
	}
	return &Subscriber{
		payload: make(chan any, capacity),
	}
}

// Signal offers data without blocking and reports whether it was queued.
// It must not be called after CloseChannel.
func (s *Subscriber) Signal(data any) bool {
	select {
	case s.payload <- data:
		return true
	default:
		return false
	}
}

// GetChannel returns the receive side. It is closed by CloseChannel, after
// any events still buffered have been read.
func (s *Subscriber) GetChannel() <-chan any {
	return s.payload
}

// CloseChannel closes the channel. Repeated calls are no-ops.
func (s *Subscriber) CloseChannel() {
	s.once.Do(func() {
		close(s.payload)
	})
}
