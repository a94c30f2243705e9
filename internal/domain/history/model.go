package history

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes summary records from conversation turns.
type Kind string

const (
	KindSummary Kind = "summary"
	KindChat    Kind = "chat"
)

// Record is one saved interaction. For summaries, Input holds a preview of
// the source text and SourceKey points at the archived full text when the
// library store is enabled.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title,omitempty"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Stopped   bool      `json:"stopped,omitempty"`
	SourceKey string    `json:"sourceKey,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
