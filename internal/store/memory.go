package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/intellitrader/portal/internal/model"
)

// MemoryBackend keeps the document in process memory. Every Load returns an
// independent copy. Used for ephemeral deployments and tests.
type MemoryBackend struct {
	mu  sync.RWMutex
	raw []byte
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Load(_ context.Context) (*model.Database, error) {
	b.mu.RLock()
	raw := b.raw
	b.mu.RUnlock()
	if raw == nil {
		return nil, ErrNotExist
	}

	var db model.Database
	if err := json.Unmarshal(raw, &db); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &db, nil
}

func (b *MemoryBackend) Save(_ context.Context, db *model.Database) error {
	raw, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	b.mu.Lock()
	b.raw = raw
	b.mu.Unlock()
	return nil
}
