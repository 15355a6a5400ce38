package history

import (
	"context"
	"slices"
	"sync"

	"github.com/sells-group/diabetes-risk/internal/model"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	records []model.AssessmentRecord
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, rec model.AssessmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *Memory) List(_ context.Context) ([]model.AssessmentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.records), nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	return nil
}

// MemoryBackend keeps one Memory per session ID. Nothing survives a restart.
type MemoryBackend struct {
	mu       sync.Mutex
	sessions map[string]*Memory
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]*Memory)}
}

func (b *MemoryBackend) Session(id string) Store {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok {
		s = NewMemory()
		b.sessions[id] = s
	}
	return s
}

// Drop forgets the session's history.
func (b *MemoryBackend) Drop(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, id)
}

// Len returns the number of session partitions held.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

func (b *MemoryBackend) Migrate(context.Context) error { return nil }

func (b *MemoryBackend) Close() error { return nil }
