// Package lead stores contact leads received by the gateway.
package lead

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	model "github.com/zhouzirui/tgl-chat/backend/internal/model/lead"
)

// Store persists leads and lists them newest first.
type Store interface {
	Add(ctx context.Context, l model.Lead) (model.Record, error)
	List(ctx context.Context) ([]model.Record, error)
	Close() error
}

func newRecord(l model.Lead) model.Record {
	return model.Record{
		Lead:      l,
		ID:        uuid.NewString(),
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	mu    sync.RWMutex
	items []model.Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add stamps and keeps a lead.
func (s *MemoryStore) Add(_ context.Context, l model.Lead) (model.Record, error) {
	rec := newRecord(l)
	s.mu.Lock()
	s.items = append(s.items, rec)
	s.mu.Unlock()
	return rec, nil
}

// List returns stored leads, newest first.
func (s *MemoryStore) List(context.Context) ([]model.Record, error) {
	s.mu.RLock()
	out := append([]model.Record(nil), s.items...)
	s.mu.RUnlock()
	slices.Reverse(out)
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
