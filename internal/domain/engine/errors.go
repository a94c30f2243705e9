package engine

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/0xTanzim/contentchat/pkg/errors"
)

// Classification codes surfaced to callers. The core never retries; transient
// codes exist so the caller can decide to back off.
const (
	CodeUnavailable = "engine_unavailable"
	CodeDownloading = "engine_downloading"
	CodeRateLimited = "rate_limited"
	CodeQuota       = "quota_exceeded"
	CodeBusy        = "engine_busy"
	CodeError       = "engine_error"
	CodeUnknown     = "unknown"
)

// ClassifyHTTP maps an engine HTTP status plus response body to the error taxonomy.
func ClassifyHTTP(status int, body string, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.Wrap(CodeUnavailable, "engine rejected credentials", err)
	case status == http.StatusTooManyRequests:
		if strings.Contains(strings.ToLower(body), "quota") {
			return apperrors.Wrap(CodeQuota, "engine quota exhausted", err)
		}
		return apperrors.Wrap(CodeRateLimited, "engine rate limited", err)
	case status >= http.StatusInternalServerError:
		return apperrors.Wrap(CodeError, "engine internal failure", err)
	default:
		return apperrors.Wrap(CodeUnknown, "engine request failed", err)
	}
}

// Classify wraps an arbitrary transport error with the taxonomy, preserving
// codes that were already assigned and keeping context cancellation distinct.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperrors.Wrap(CodeUnknown, "engine call failed", err)
}
