package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/0xTanzim/contentchat/pkg/errors"
)

const sourcePreviewChars = 280

// Config bounds listing behavior.
type Config struct {
	MaxListLimit int
}

// Service records summaries and chat turns, archiving full source text to the
// library store when one is configured.
type Service struct {
	cfg    Config
	repo   Repository
	blobs  BlobStore
	logger *slog.Logger
}

// NewService constructs the history service. blobs may be nil; archiving is
// then skipped and only the preview is kept.
func NewService(cfg Config, repo Repository, blobs BlobStore, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		repo:   repo,
		blobs:  blobs,
		logger: logger.With("component", "history.service"),
	}
}

// SaveSummary records a finished summarization.
func (s *Service) SaveSummary(ctx context.Context, title, source, summary string) (Record, error) {
	record := Record{
		ID:        uuid.New(),
		Kind:      KindSummary,
		Title:     strings.TrimSpace(title),
		Input:     preview(source),
		Output:    summary,
		CreatedAt: time.Now().UTC(),
	}

	if s.blobs != nil {
		key := fmt.Sprintf("library/%s.txt", record.ID)
		if err := s.blobs.Put(ctx, key, []byte(source), "text/plain; charset=utf-8"); err != nil {
			s.logger.Warn("source archive failed, keeping preview only", "error", err)
		} else {
			record.SourceKey = key
		}
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return Record{}, apperrors.Wrap("storage_error", "failed to persist summary record", err)
	}
	return record, nil
}

// SaveChat records one completed (or stopped) conversation turn.
func (s *Service) SaveChat(ctx context.Context, prompt, reply string, stopped bool) (Record, error) {
	record := Record{
		ID:        uuid.New(),
		Kind:      KindChat,
		Input:     prompt,
		Output:    reply,
		Stopped:   stopped,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return Record{}, apperrors.Wrap("storage_error", "failed to persist chat record", err)
	}
	return record, nil
}

// Get fetches one record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Record, bool, error) {
	record, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return Record{}, false, apperrors.Wrap("storage_error", "failed to load record", err)
	}
	return record, ok, nil
}

// SourceText retrieves the archived full source for a summary record.
func (s *Service) SourceText(ctx context.Context, id uuid.UUID) (string, error) {
	record, ok, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperrors.Wrap("not_found", "record does not exist", nil)
	}
	if record.SourceKey == "" || s.blobs == nil {
		return record.Input, nil
	}
	data, err := s.blobs.Get(ctx, record.SourceKey)
	if err != nil {
		return "", apperrors.Wrap("storage_error", "failed to load archived source", err)
	}
	return string(data), nil
}

// List returns the most recent records of a kind.
func (s *Service) List(ctx context.Context, kind Kind, limit int) ([]Record, error) {
	if limit <= 0 || (s.cfg.MaxListLimit > 0 && limit > s.cfg.MaxListLimit) {
		limit = s.cfg.MaxListLimit
	}
	records, err := s.repo.List(ctx, kind, limit)
	if err != nil {
		return nil, apperrors.Wrap("storage_error", "failed to list records", err)
	}
	return records, nil
}

// Delete removes a record and its archived source.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	record, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return apperrors.Wrap("storage_error", "failed to load record", err)
	}
	if !ok {
		return apperrors.Wrap("not_found", "record does not exist", nil)
	}
	if record.SourceKey != "" && s.blobs != nil {
		if err := s.blobs.Delete(ctx, record.SourceKey); err != nil {
			s.logger.Warn("archived source delete failed", "key", record.SourceKey, "error", err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.Wrap("storage_error", "failed to delete record", err)
	}
	return nil
}

func preview(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= sourcePreviewChars {
		return text
	}
	return strings.TrimSpace(text[:sourcePreviewChars]) + "..."
}
