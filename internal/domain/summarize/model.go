package summarize

import "time"

// Config configures the map-reduce summarization pipeline.
type Config struct {
	Prompt        string
	SharedContext string
	MaxDepth      int
	// DefaultChunkChars is used when the engine gives no input-quota hint.
	DefaultChunkChars int
	// ChunkCeilingChars is the hard ceiling on the effective chunk size,
	// whatever the engine claims its budget is.
	ChunkCeilingChars int
	OverlapChars      int
	Temperature       float32
	CacheTTL          time.Duration
}

// Request represents the incoming summarization payload.
type Request struct {
	Text   string `json:"text"`
	Prompt string `json:"prompt,omitempty"`
	// BudgetHint optionally overrides the engine's input-quota hint, in tokens.
	BudgetHint int `json:"budgetHint,omitempty"`
}

// Response is returned once the pipeline settles on a single summary.
type Response struct {
	Summary    string `json:"summary"`
	UnitCalls  int    `json:"unitCalls"`
	Depth      int    `json:"depth"`
	Cached     bool   `json:"cached,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

// Progress reports pipeline position for caller-side UI. It is invoked at the
// start of each chunk set and after each unit completes, in source order, and
// has no effect on control flow.
type Progress func(current, total int, stage string)
