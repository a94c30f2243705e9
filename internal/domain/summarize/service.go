package summarize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/0xTanzim/contentchat/internal/domain/chunk"
	"github.com/0xTanzim/contentchat/internal/domain/engine"
	apperrors "github.com/0xTanzim/contentchat/pkg/errors"
)

// Service exposes bounded-output summarization of arbitrarily long text.
type Service interface {
	Summarize(ctx context.Context, req Request) (Response, error)
	SummarizeWithProgress(ctx context.Context, req Request, progress Progress) (Response, error)
}

// Cache stores finished summaries keyed by content hash.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, summary string, ttl time.Duration) error
}

// unitFunc summarizes one bounded piece of text. The engine-backed default
// opens and destroys one session per call; tests inject their own.
type unitFunc func(ctx context.Context, content, shared string) (string, error)

const (
	// charsPerToken converts the engine's token budget to characters.
	charsPerToken = 4
	// budgetSafetyMargin leaves headroom under the converted budget.
	budgetSafetyMargin = 0.8
	// minChunkChars keeps a pathological hint from degenerating the chunker.
	minChunkChars = 500

	combineSeparator = "\n\n"
)

type service struct {
	cfg    Config
	engine engine.Engine
	cache  Cache
	logger *slog.Logger
}

// NewService is a wire provider for the summarization domain.
func NewService(cfg Config, eng engine.Engine, cache Cache, logger *slog.Logger) Service {
	return &service{
		cfg:    cfg,
		engine: eng,
		cache:  cache,
		logger: logger.With("component", "summarize.service"),
	}
}

func (s *service) Summarize(ctx context.Context, req Request) (Response, error) {
	return s.SummarizeWithProgress(ctx, req, nil)
}

func (s *service) SummarizeWithProgress(ctx context.Context, req Request, progress Progress) (Response, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Response{}, apperrors.Wrap("invalid_input", "text cannot be empty", nil)
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = s.cfg.Prompt
	}

	key := cacheKey(text, prompt)
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Warn("summary cache lookup failed", "error", err)
		} else if ok {
			return Response{Summary: cached, Cached: true}, nil
		}
	}

	capability, err := s.engine.CheckCapability(ctx, engine.KindSummarizer)
	if err != nil {
		return Response{}, engine.Classify(err)
	}
	switch capability.Availability {
	case engine.Unavailable:
		return Response{}, apperrors.Wrap(engine.CodeUnavailable, "summarizer capability unavailable", nil)
	case engine.NeedsDownload:
		return Response{}, apperrors.Wrap(engine.CodeDownloading, "summarizer capability requires a download", nil)
	}

	hint := req.BudgetHint
	if hint <= 0 {
		hint = capability.InputQuota
	}
	size := s.effectiveChunkSize(hint)

	unit := func(ctx context.Context, content, shared string) (string, error) {
		return s.summarizeUnit(ctx, prompt, content, shared)
	}

	start := time.Now()
	run := &pipelineRun{
		service:  s,
		size:     size,
		unit:     unit,
		progress: progress,
	}
	summary, depth, err := run.reduce(ctx, text, 0)
	if err != nil {
		return Response{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("summary cache store failed", "error", err)
		}
	}

	s.logger.Info("summarization complete",
		"input_chars", len(text), "chunk_size", size,
		"unit_calls", run.calls, "depth", depth)

	return Response{
		Summary:    summary,
		UnitCalls:  run.calls,
		Depth:      depth,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// effectiveChunkSize converts the token hint to a character budget with a
// safety margin and clamps it. The decision is made once per top-level call.
func (s *service) effectiveChunkSize(budgetHint int) int {
	size := s.cfg.DefaultChunkChars
	if budgetHint > 0 {
		size = int(float64(budgetHint*charsPerToken) * budgetSafetyMargin)
	}
	if size > s.cfg.ChunkCeilingChars {
		size = s.cfg.ChunkCeilingChars
	}
	if size < minChunkChars {
		size = minChunkChars
	}
	return size
}

// pipelineRun carries the per-call state so recursion levels stay explicit
// functions of (content, depth) instead of captured mutable closures.
type pipelineRun struct {
	service  *service
	size     int
	unit     unitFunc
	progress Progress
	calls    int
}

func (r *pipelineRun) reduce(ctx context.Context, content string, depth int) (string, int, error) {
	cfg := r.service.cfg

	if depth >= cfg.MaxDepth {
		// Depth exhaustion is a lossy success, not an error.
		if len(content) > r.size {
			content = strings.TrimSpace(content[:r.size])
		}
		return content, depth, nil
	}

	if len(content) <= r.size {
		out, err := r.callUnit(ctx, content)
		return out, depth, err
	}

	overlap := cfg.OverlapChars
	if overlap >= r.size {
		overlap = r.size / 10
	}
	opts, err := chunk.NewOptions(r.size, overlap)
	if err != nil {
		return "", depth, err
	}
	chunks := chunk.NewSplitter(opts).Split(content)
	if len(chunks) == 0 {
		return "", depth, apperrors.Wrap("invalid_input", "text contains no summarizable content", nil)
	}

	r.report(0, len(chunks), depth)
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return "", depth, err
		}
		out, err := r.callUnit(ctx, c)
		if err != nil {
			return "", depth, err
		}
		parts = append(parts, out)
		r.report(i+1, len(chunks), depth)
	}

	combined := strings.Join(parts, combineSeparator)
	if len(combined) > r.size {
		return r.reduce(ctx, combined, depth+1)
	}
	if len(parts) > 1 {
		out, err := r.callUnit(ctx, combined)
		return out, depth, err
	}
	return parts[0], depth, nil
}

func (r *pipelineRun) callUnit(ctx context.Context, content string) (string, error) {
	out, err := r.unit(ctx, content, r.service.cfg.SharedContext)
	r.calls++
	return out, err
}

func (r *pipelineRun) report(current, total int, depth int) {
	if r.progress == nil {
		return
	}
	stage := "summarize"
	if depth > 0 {
		stage = "condense"
	}
	r.progress(current, total, stage)
}

// summarizeUnit owns exactly one engine session for its own lifetime; the
// session is destroyed on every exit path.
func (s *service) summarizeUnit(ctx context.Context, prompt, content, shared string) (string, error) {
	session, err := s.engine.CreateSession(ctx, engine.KindSummarizer, engine.Options{
		SystemPrompt: prompt,
		Temperature:  s.cfg.Temperature,
	})
	if err != nil {
		return "", engine.Classify(err)
	}
	defer session.Destroy()

	input := content
	if shared != "" {
		input = shared + "\n\n" + content
	}
	out, err := session.Generate(ctx, input)
	if err != nil {
		return "", engine.Classify(err)
	}
	return strings.TrimSpace(out), nil
}

func cacheKey(text, prompt string) string {
	sum := sha256.Sum256([]byte(prompt + "\x00" + text))
	return "summary:" + hex.EncodeToString(sum[:])
}
