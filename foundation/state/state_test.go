package state_test

import (
	"errors"
	"testing"
	"time"

	"github.com/superfeelapi/goLiveBridge/foundation/state"
)

func TestState(t *testing.T) {
	s := state.NewState()

	for _, svc := range []state.Service{state.Redis, state.MQTT, state.Admin} {
		if !s.Get(svc) {
			t.Fatalf("service %s should start enabled", svc)
		}
	}

	s.Set(state.MQTT, false)
	if s.Get(state.MQTT) {
		t.Fatal("mqtt should be disabled")
	}
	if !s.Get(state.Redis) {
		t.Fatal("redis should be unaffected")
	}
}

func TestStateRetriesAfterBackoff(t *testing.T) {
	now := time.Date(2025, 3, 4, 13, 0, 0, 0, time.UTC)

	s := state.NewState()
	s.Backoff = time.Minute
	s.Now = func() time.Time { return now }

	if changed := s.Report(state.Redis, errors.New("connection refused")); !changed {
		t.Fatal("expected a failure to change redis health")
	}
	if s.Allow(state.Redis) {
		t.Fatal("redis should be skipped during the backoff")
	}

	now = now.Add(time.Minute)
	if !s.Allow(state.Redis) {
		t.Fatal("redis should be retried once the backoff has passed")
	}
	if s.Allow(state.Redis) {
		t.Fatal("only one retry should be allowed per backoff period")
	}

	if changed := s.Report(state.Redis, nil); !changed {
		t.Fatal("expected a success to restore redis")
	}
	if !s.Get(state.Redis) || !s.Allow(state.Redis) {
		t.Fatal("redis should be healthy again")
	}
	if changed := s.Report(state.Redis, nil); changed {
		t.Fatal("a second success should not change anything")
	}
}
