package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"coverletter-backend/internal/page"
	"coverletter-backend/internal/shared/telemetry"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Factory builds the page controller for a new session.
type Factory func(id string) *page.Controller

// Store keeps one page controller per browser session in memory. Nothing
// survives a restart; idle sessions are dropped after the TTL.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	newPage Factory
	entries map[string]*entry
	onEvict []func(id string)
}

type entry struct {
	page     *page.Controller
	lastSeen time.Time
}

// NewStore constructs a Store. A nil now uses time.Now.
func NewStore(ttl time.Duration, factory Factory, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		ttl:     ttl,
		now:     now,
		newPage: factory,
		entries: make(map[string]*entry),
	}
}

// Get returns the controller for id and marks the session as active.
func (s *Store) Get(id string) (*page.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || s.expiredLocked(e) {
		return nil, ErrNotFound
	}
	e.lastSeen = s.now()
	return e.page, nil
}

// Create starts a new session.
func (s *Store) Create() (string, *page.Controller) {
	id := uuid.NewString()
	pg := s.newPage(id)
	s.mu.Lock()
	s.entries[id] = &entry{page: pg, lastSeen: s.now()}
	s.mu.Unlock()
	return id, pg
}

// GetOrCreate returns the session for id, or a fresh one when id is unknown.
// created reports whether a new id was issued.
func (s *Store) GetOrCreate(id string) (string, *page.Controller, bool) {
	if id != "" {
		if pg, err := s.Get(id); err == nil {
			return id, pg, false
		}
	}
	newID, pg := s.Create()
	return newID, pg, true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// OnEvict registers fn to run with the id of every session Sweep removes.
// Per-session state held outside the store is released this way.
func (s *Store) OnEvict(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = append(s.onEvict, fn)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	var removed []string
	for id, e := range s.entries {
		if s.expiredLocked(e) {
			delete(s.entries, id)
			removed = append(removed, id)
		}
	}
	hooks := s.onEvict
	s.mu.Unlock()

	for _, id := range removed {
		for _, fn := range hooks {
			fn(id)
		}
	}
	return len(removed)
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				telemetry.Info("sessions.swept", map[string]any{
					"removed":   n,
					"remaining": s.Len(),
				})
			}
		}
	}
}

func (s *Store) expiredLocked(e *entry) bool {
	return s.ttl > 0 && s.now().Sub(e.lastSeen) > s.ttl
}
