// Package state tracks the health of the best-effort sinks shared by every
// call in the process: the Redis channel, the MQTT broker and the admin UI.
package state

import (
	"sync"
	"time"
)

// DefaultBackoff is how long a failed sink is skipped before it is tried
// again.
const DefaultBackoff = 30 * time.Second

type Service int

const (
	Redis Service = iota
	MQTT
	Admin
)

func (s Service) String() string {
	switch s {
	case Redis:
		return "redis"
	case MQTT:
		return "mqtt"
	case Admin:
		return "admin"
	}
	return "unknown"
}

// State records which sinks are healthy. A sink that fails is switched off
// and skipped by every call until Backoff has passed, then one caller is
// allowed through to try it. A success switches it back on.
type State struct {
	sync.RWMutex

	Redis bool
	MQTT  bool
	Admin bool

	// Backoff is the quiet period after a failure. Now is the clock used to
	// measure it.
	Backoff time.Duration
	Now     func() time.Time

	retryAt map[Service]time.Time
}

func NewState() *State {
	return &State{
		Redis:   true,
		MQTT:    true,
		Admin:   true,
		Backoff: DefaultBackoff,
		Now:     time.Now,
		retryAt: make(map[Service]time.Time),
	}
}

// Get reports whether svc is currently marked healthy.
func (s *State) Get(svc Service) bool {
	s.RLock()
	defer s.RUnlock()
	{
		switch svc {
		case Redis:
			return s.Redis

		case MQTT:
			return s.MQTT

		case Admin:
			return s.Admin
		}
	}
	return false
}

// Set marks svc healthy or failed. Marking it failed starts the backoff.
func (s *State) Set(svc Service, state bool) {
	s.Lock()
	defer s.Unlock()
	{
		switch svc {
		case Redis:
			s.Redis = state

		case MQTT:
			s.MQTT = state

		case Admin:
			s.Admin = state
		}

		if state {
			delete(s.retryAt, svc)
		} else {
			s.retryAt[svc] = s.now().Add(s.Backoff)
		}
	}
}

// Allow reports whether svc should be used now. A failed sink is allowed
// once per backoff period so a recovered sink is picked up again.
func (s *State) Allow(svc Service) bool {
	if s.Get(svc) {
		return true
	}

	s.Lock()
	defer s.Unlock()

	at, ok := s.retryAt[svc]
	now := s.now()
	if ok && now.Before(at) {
		return false
	}
	s.retryAt[svc] = now.Add(s.Backoff)
	return true
}

// Report records the outcome of using svc and tells whether its health
// changed, so callers log transitions only.
func (s *State) Report(svc Service, err error) (changed bool) {
	healthy := err == nil
	if s.Get(svc) == healthy {
		return false
	}
	s.Set(svc, healthy)
	return true
}

func (s *State) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
