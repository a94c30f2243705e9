package historyrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/0xTanzim/contentchat/internal/domain/history"
)

// MemoryRepository keeps records in process memory for tests/dev.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]history.Record
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[uuid.UUID]history.Record)}
}

// Create implements history.Repository.
func (r *MemoryRepository) Create(_ context.Context, record history.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

// Get implements history.Repository.
func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (history.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	return record, ok, nil
}

// List returns the newest records of a kind, most recent first.
func (r *MemoryRepository) List(_ context.Context, kind history.Kind, limit int) ([]history.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]history.Record, 0, len(r.records))
	for _, record := range r.records {
		if kind != "" && record.Kind != kind {
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete implements history.Repository.
func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

var _ history.Repository = (*MemoryRepository)(nil)
