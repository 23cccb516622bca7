package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/machintel/machintel-service/internal/observability"
)

// Store is a thread-safe LRU of sessions with clock-driven expiry.
type Store struct {
	maxEntries int
	clock      clockwork.Clock
	metrics    *observability.Metrics

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	value Session
	prev  *entry
	next  *entry
}

// NewStore creates a store holding at most maxEntries sessions. A nil clock
// uses real time.
func NewStore(maxEntries int, clock clockwork.Clock, metrics *observability.Metrics) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		maxEntries: maxEntries,
		clock:      clock,
		metrics:    metrics,
		entries:    make(map[string]*entry),
	}
}

// Put inserts or replaces a session and returns it. An empty ID is filled
// with a random UUID and a zero CreatedAt with the current time. When the
// store is full the least recently used session is evicted.
func (s *Store) Put(sess Session) Session {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.clock.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[sess.ID]; ok {
		s.metrics.SessionsActive.WithLabelValues(e.value.Kind()).Dec()
		s.metrics.SessionsActive.WithLabelValues(sess.Kind()).Inc()
		e.value = sess
		s.moveToFront(e)
		return sess
	}

	e := &entry{value: sess}
	s.entries[sess.ID] = e
	s.addToFront(e)
	s.metrics.SessionsActive.WithLabelValues(sess.Kind()).Inc()

	if len(s.entries) > s.maxEntries {
		s.evict(s.tail, "capacity")
	}
	return sess
}

// Get returns the session for id. Expired sessions are removed and reported
// as ErrExpired.
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if s.expired(e.value) {
		s.evict(e, "expired")
		return Session{}, ErrExpired
	}
	s.moveToFront(e)
	return e.value, nil
}

// Delete removes a session. Unknown IDs are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		s.evict(e, "logout")
	}
}

// Len returns the number of stored sessions, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes every expired session and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for e := s.tail; e != nil; {
		prev := e.prev
		if s.expired(e.value) {
			s.evict(e, "expired")
			n++
		}
		e = prev
	}
	return n
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Sweep()
		}
	}
}

func (s *Store) expired(sess Session) bool {
	return !sess.ExpiresAt.IsZero() && !s.clock.Now().Before(sess.ExpiresAt)
}

func (s *Store) evict(e *entry, reason string) {
	delete(s.entries, e.value.ID)
	s.remove(e)
	s.metrics.SessionsActive.WithLabelValues(e.value.Kind()).Dec()
	s.metrics.SessionEvictions.WithLabelValues(reason).Inc()
}

func (s *Store) moveToFront(e *entry) {
	if e == s.head {
		return
	}
	s.remove(e)
	s.addToFront(e)
}

func (s *Store) addToFront(e *entry) {
	e.next = s.head
	e.prev = nil
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *Store) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
}
