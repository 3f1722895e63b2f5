package pubsub_test

import (
	"testing"

	"github.com/superfeelapi/goLiveBridge/foundation/pubsub"
)

func TestBroker(t *testing.T) {
	b := pubsub.NewBroker()
	s1 := pubsub.NewSubscriber(4)
	s2 := pubsub.NewSubscriber(4)
	s3 := pubsub.NewSubscriber(4)

	b.Subscribe("call.started", s1)
	b.Subscribe("call.started", s2)
	b.Subscribe("call.ended", s3)

	if n := b.Publish("call.started", "u1"); n != 2 {
		t.Fatalf("delivered to %d subscribers, want 2", n)
	}
	if n := b.Publish("call.ended", 17); n != 1 {
		t.Fatalf("delivered to %d subscribers, want 1", n)
	}
	if n := b.Publish("nobody", "x"); n != 0 {
		t.Fatalf("delivered to %d subscribers, want 0", n)
	}

	if got := <-s1.GetChannel(); got != "u1" {
		t.Fatalf("s1 got %v", got)
	}
	if got := <-s2.GetChannel(); got != "u1" {
		t.Fatalf("s2 got %v", got)
	}
	if got := <-s3.GetChannel(); got != 17 {
		t.Fatalf("s3 got %v", got)
	}
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := pubsub.NewBroker()
	s := pubsub.NewSubscriber(1)
	b.Subscribe("call.transcript", s)

	b.Publish("call.transcript", 1)
	b.Publish("call.transcript", 2)

	if b.Dropped() != 1 {
		t.Fatalf("dropped %d, want 1", b.Dropped())
	}
	if got := <-s.GetChannel(); got != 1 {
		t.Fatalf("got %v, want the first event", got)
	}
}

func TestBrokerClose(t *testing.T) {
	b := pubsub.NewBroker()
	s := pubsub.NewSubscriber(1)
	b.Subscribe("a", s)
	b.Subscribe("b", s)

	b.Close(s)
	if _, ok := <-s.GetChannel(); ok {
		t.Fatal("channel should be closed")
	}
	if n := b.Publish("a", 1); n != 0 {
		t.Fatal("closed subscriber should not receive events")
	}
}
