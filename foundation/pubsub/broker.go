package pubsub

import (
	"sync"
	"sync/atomic"
)

// Broker fans published events out to topic subscribers. Publish never
// blocks: a subscriber whose buffer is full misses the event and the drop is
// counted.
type Broker struct {
	topics map[string][]*Subscriber
	sync.RWMutex

	dropped atomic.Uint64
}

// NewBroker returns a broker with no topics.
func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string][]*Subscriber, 0),
	}
}

// Publish delivers data to every subscriber of topic and returns how many
// received it.
func (b *Broker) Publish(topic string, data any) int {
	b.RLock()
	defer b.RUnlock()

	var delivered int
	for _, sub := range b.topics[topic] {
		if sub.Signal(data) {
			delivered++
			continue
		}
		b.dropped.Add(1)
	}
	return delivered
}

// Dropped returns how many deliveries were skipped because a subscriber was
// full.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

// Subscribe adds s to topic. A subscriber may listen on several topics and
// is detached from all of them by Close.
func (b *Broker) Subscribe(topic string, s *Subscriber) {
	b.Lock()
	defer b.Unlock()
	{
		b.topics[topic] = append(b.topics[topic], s)
	}
}

// Close unsubscribes s from every topic and closes its channel. Holding the
// write lock guarantees no Publish is signalling s when the channel closes.
func (b *Broker) Close(s *Subscriber) {
	b.Lock()
	defer b.Unlock()
	{
		for topic, subs := range b.topics {
			b.topics[topic] = removeFromSlice(subs, s)
		}
		s.CloseChannel()
	}
}

// =================================================================================================================

func removeFromSlice[T comparable](s []T, d T) []T {
	for i := range s {
		if s[i] == d {
			s[i] = s[len(s)-1]
			return s[:len(s)-1]
		}
	}
	return s
}
