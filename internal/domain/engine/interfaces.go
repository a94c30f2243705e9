package engine

import "context"

// Kind selects the engine capability a session is opened for.
type Kind string

const (
	KindSummarizer Kind = "summarizer"
	KindChat       Kind = "chat"
)

// Availability describes whether a capability can be used right now.
type Availability string

const (
	Available     Availability = "available"
	NeedsDownload Availability = "needs_download"
	Unavailable   Availability = "unavailable"
)

// Capability reports what the engine can do for a given kind.
type Capability struct {
	Kind         Kind         `json:"kind"`
	Availability Availability `json:"availability"`
	// InputQuota is the engine's input budget in tokens, zero when unknown.
	// The hint is a snapshot; callers must not assume it is stable across calls.
	InputQuota int `json:"inputQuota,omitempty"`
}

// Engine is the opaque generative collaborator. Sessions are stateful,
// exclusive, and single-use; the core never arbitrates concurrent use.
type Engine interface {
	CheckCapability(ctx context.Context, kind Kind) (Capability, error)
	CreateSession(ctx context.Context, kind Kind, opts Options) (Session, error)
}

// Options tunes a new session.
type Options struct {
	SystemPrompt string
	Temperature  float32
}

// Session is an exclusive handle to one generation context. Destroy must be
// idempotent: cancellation may already have torn the resource down.
type Session interface {
	Generate(ctx context.Context, input string) (string, error)
	GenerateStream(ctx context.Context, input string) (TokenSource, error)
	// InputQuota returns the remaining input budget in tokens, zero when unknown.
	InputQuota() int
	Destroy()
}

// TokenSource is a cancellable read-once stream of text emissions. Emissions
// may be cumulative snapshots or incremental deltas depending on the engine;
// normalization happens in the stream package, not here.
type TokenSource interface {
	Read(ctx context.Context) (value string, done bool, err error)
	Cancel()
}
