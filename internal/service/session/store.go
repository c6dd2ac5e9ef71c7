package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinical-visit-service/internal/observability/logging"
	"clinical-visit-service/internal/observability/metrics"
)

// Store holds the in-memory sessions keyed by session ID.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Lifecycle
	ttl      time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
}

// NewStore creates a store evicting sessions idle for longer than ttl.
// A zero ttl keeps sessions forever.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Lifecycle),
		ttl:      ttl,
		now:      time.Now,
		metrics:  metrics.DefaultMetrics,
	}
}

// WithMetrics replaces the metrics sink.
func (s *Store) WithMetrics(m *metrics.Metrics) *Store {
	s.metrics = m
	return s
}

// Create starts a new session with a random ID.
func (s *Store) Create() *Lifecycle {
	l := newLifecycle(uuid.NewString(), s.now, s.recordTransition)

	s.mu.Lock()
	s.sessions[l.ID()] = l
	n := len(s.sessions)
	s.mu.Unlock()

	s.setActive(n)
	return l
}

// Get returns the session for id and marks it active.
func (s *Store) Get(id string) (*Lifecycle, bool) {
	s.mu.Lock()
	l, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		l.Touch()
	}
	return l, ok
}

// GetOrCreate returns the session for id, or a new one when id is unknown.
// created is true when a new session was made.
func (s *Store) GetOrCreate(id string) (l *Lifecycle, created bool) {
	if id != "" {
		if l, ok := s.Get(id); ok {
			return l, false
		}
	}
	return s.Create(), true
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	s.setActive(n)
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts idle sessions and returns how many were removed. Sessions
// with a request in flight are kept.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	evicted := 0
	for id, l := range s.sessions {
		if l.State().InFlight() || l.IdleSince().After(cutoff) {
			continue
		}
		delete(s.sessions, id)
		evicted++
	}
	n := len(s.sessions)
	s.mu.Unlock()

	if evicted > 0 && s.metrics != nil {
		s.metrics.RecordSessionsEvicted(evicted)
	}
	s.setActive(n)
	return evicted
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		return
	}
	logger := logging.WithComponent("session-sweeper")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logger.Debug().Int("evicted", n).Int("active", s.Len()).Msg("Swept idle sessions")
			}
		}
	}
}

func (s *Store) recordTransition(to State) {
	if s.metrics != nil {
		s.metrics.RecordStageTransition(to.String())
	}
}

func (s *Store) setActive(n int) {
	if s.metrics != nil {
		s.metrics.SetSessionsActive(n)
	}
}
