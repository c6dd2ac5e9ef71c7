package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"clinical-visit-service/internal/observability/metrics"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(ttl time.Duration) (*Store, *fakeClock, *metrics.Metrics) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	s := NewStore(ttl).WithMetrics(m)
	s.now = clock.Now
	return s, clock, m
}

func TestStore_CreateAndGet(t *testing.T) {
	s, _, m := newTestStore(time.Hour)

	l := s.Create()
	if _, err := uuid.Parse(l.ID()); err != nil {
		t.Errorf("expected UUID session ID, got %q", l.ID())
	}

	got, ok := s.Get(l.ID())
	if !ok || got != l {
		t.Error("expected Get to return the created session")
	}
	if _, ok := s.Get("unknown"); ok {
		t.Error("expected unknown ID to be absent")
	}
	if v := testutil.ToFloat64(m.SessionsActive); v != 1 {
		t.Errorf("expected 1 active session, got %v", v)
	}
}

func TestStore_GetOrCreate(t *testing.T) {
	s, _, _ := newTestStore(time.Hour)

	first, created := s.GetOrCreate("")
	if !created {
		t.Error("expected a new session for an empty ID")
	}
	again, created := s.GetOrCreate(first.ID())
	if created || again != first {
		t.Error("expected the existing session to be returned")
	}
	_, created = s.GetOrCreate("expired-or-forged")
	if !created {
		t.Error("expected a new session for an unknown ID")
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", s.Len())
	}
}

func TestStore_Delete(t *testing.T) {
	s, _, _ := newTestStore(time.Hour)
	l := s.Create()

	s.Delete(l.ID())

	if s.Len() != 0 {
		t.Errorf("expected 0 sessions, got %d", s.Len())
	}
}

func TestStore_SweepEvictsIdleSessions(t *testing.T) {
	s, clock, m := newTestStore(time.Hour)

	idle := s.Create()
	clock.Advance(45 * time.Minute)
	active := s.Create()
	busy := s.Create()
	if _, err := busy.BeginTranscription(FileMeta{Name: "a.mp3"}); err != nil {
		t.Fatal(err)
	}

	clock.Advance(30 * time.Minute)

	if n := s.Sweep(); n != 1 {
		t.Errorf("expected 1 eviction, got %d", n)
	}
	if _, ok := s.Get(idle.ID()); ok {
		t.Error("expected idle session to be evicted")
	}
	if _, ok := s.Get(active.ID()); !ok {
		t.Error("expected recent session to be kept")
	}

	// In-flight sessions survive even past the TTL
	clock.Advance(2 * time.Hour)
	s.Sweep()
	if _, ok := s.Get(busy.ID()); !ok {
		t.Error("expected in-flight session to be kept")
	}

	if v := testutil.ToFloat64(m.SessionsEvicted); v != 2 {
		t.Errorf("expected 2 evictions recorded, got %v", v)
	}
}

func TestStore_SweepDisabledWithZeroTTL(t *testing.T) {
	s, clock, _ := newTestStore(0)
	s.Create()
	clock.Advance(24 * time.Hour)

	if n := s.Sweep(); n != 0 {
		t.Errorf("expected no evictions with zero TTL, got %d", n)
	}
}

func TestStore_RecordsTransitions(t *testing.T) {
	s, _, m := newTestStore(time.Hour)
	l := s.Create()

	ticket, _ := l.BeginTranscription(FileMeta{Name: "a.mp3"})
	_ = l.CompleteTranscription(ticket, okTranscript)

	if v := testutil.ToFloat64(m.StageTransitions.WithLabelValues("TRANSCRIBING")); v != 1 {
		t.Errorf("expected 1 TRANSCRIBING transition, got %v", v)
	}
	if v := testutil.ToFloat64(m.StageTransitions.WithLabelValues("TRANSCRIPT_READY")); v != 1 {
		t.Errorf("expected 1 TRANSCRIPT_READY transition, got %v", v)
	}
}

func TestStore_RunStopsOnCancel(t *testing.T) {
	s, _, _ := newTestStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return after cancel")
	}
}
