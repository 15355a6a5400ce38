// Package sessions maps session IDs to workflow sessions and tears down
// sessions that have been idle too long.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/diabetes-risk/internal/workflow"
)

// Factory builds the workflow session for a new ID.
type Factory func(id string) *workflow.Session

type entry struct {
	session  *workflow.Session
	lastSeen time.Time
}

// Registry holds live sessions. Sessions never share state.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	factory  Factory
	teardown func(id string)
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithTeardown registers fn to run after a session is deleted or evicted.
func WithTeardown(fn func(id string)) Option {
	return func(r *Registry) {
		r.teardown = fn
	}
}

// NewRegistry creates a registry evicting sessions idle for longer than ttl.
func NewRegistry(ttl time.Duration, factory Factory, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts a new session and returns its ID.
func (r *Registry) Create() (string, *workflow.Session) {
	id := uuid.NewString()
	s := r.factory(id)

	r.mu.Lock()
	r.sessions[id] = &entry{session: s, lastSeen: r.now()}
	r.mu.Unlock()

	zap.L().Debug("sessions: created", zap.String("session", id))
	return id, s
}

// Get returns the session for id and marks it as active.
func (r *Registry) Get(id string) (*workflow.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.session, true
}

// Delete ends a session. It reports whether the session existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		r.release(id)
	}
	return ok
}

func (r *Registry) release(ids ...string) {
	if r.teardown == nil {
		return
	}
	for _, id := range ids {
		r.teardown(id)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict removes sessions idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Evict() int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	cutoff := r.now().Add(-r.ttl)
	var evicted []string
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}
	remaining := len(r.sessions)
	r.mu.Unlock()

	if len(evicted) == 0 {
		return 0
	}
	r.release(evicted...)
	zap.L().Info("sessions: evicted idle sessions", zap.Int("count", len(evicted)), zap.Int("remaining", remaining))
	return len(evicted)
}

// Run evicts idle sessions every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Evict()
		}
	}
}
