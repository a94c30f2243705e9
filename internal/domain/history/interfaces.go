package history

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists records.
type Repository interface {
	Create(ctx context.Context, record Record) error
	Get(ctx context.Context, id uuid.UUID) (Record, bool, error)
	List(ctx context.Context, kind Kind, limit int) ([]Record, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BlobStore archives raw source text outside the row store.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
