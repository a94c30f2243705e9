package stream

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/0xTanzim/contentchat/internal/domain/engine"
)

// emissionMode classifies how the underlying token source reports progress.
type emissionMode int

const (
	modeUnknown emissionMode = iota
	// modeIncremental sources emit only newly produced text.
	modeIncremental
	// modeCumulative sources emit the full text so far on every read.
	modeCumulative
)

// Session adapts one exclusive, cancellable token source into a single-pass
// sequence of normalized string deltas. It is not restartable: once a pull
// reports done or an error, the session stays terminal.
type Session struct {
	source    engine.TokenSource
	onRelease func()
	logger    *slog.Logger

	mode      emissionMode
	seen      string
	emissions int

	done bool
	err  error

	cancelled atomic.Bool
	release   sync.Once
}

// New wraps a token source. onRelease is invoked exactly once across all exit
// paths (completion, error, cancel) and may be nil.
func New(source engine.TokenSource, onRelease func(), logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		source:    source,
		onRelease: onRelease,
		logger:    logger.With("component", "stream.session"),
	}
}

// Pull advances the source once and returns the next delta. done is true on
// natural completion or after cancellation; a source failure is surfaced after
// resources have been released.
func (s *Session) Pull(ctx context.Context) (delta string, done bool, err error) {
	if s.done {
		return "", true, s.err
	}
	if s.cancelled.Load() {
		s.done = true
		return "", true, nil
	}

	value, sourceDone, readErr := s.source.Read(ctx)
	if s.cancelled.Load() {
		// Cancel raced with an in-flight read; the teardown error (if any)
		// belongs to the stop, not to the consumer.
		s.done = true
		return "", true, nil
	}
	if readErr != nil {
		s.releaseOnce()
		s.done = true
		s.err = engine.Classify(readErr)
		return "", true, s.err
	}
	if sourceDone {
		s.releaseOnce()
		s.done = true
		return "", true, nil
	}
	return s.normalize(value), false, nil
}

// Cancel is idempotent: it flags the session, cancels the source, and releases
// the engine handle exactly once, even after natural completion.
func (s *Session) Cancel(reason string) {
	if s.cancelled.Swap(true) {
		return
	}
	s.logger.Debug("stream session cancelled", "reason", reason)
	s.source.Cancel()
	s.releaseOnce()
}

func (s *Session) releaseOnce() {
	s.release.Do(func() {
		if s.onRelease != nil {
			s.onRelease()
		}
	})
}

// normalize converts an emission into a delta. The emission style is detected
// once per session, on the second emission, and memoized.
func (s *Session) normalize(value string) string {
	s.emissions++
	if s.emissions == 1 {
		s.seen = value
		return value
	}
	if s.mode == modeUnknown {
		s.mode = detectMode(s.seen, value)
	}
	if s.mode == modeCumulative {
		if strings.HasPrefix(value, s.seen) {
			delta := value[len(s.seen):]
			s.seen = value
			return delta
		}
		// A non-prefixing correction from a source classified as cumulative.
		// Pass it through rather than corrupting the accumulation.
		s.logger.Debug("cumulative source emitted non-prefixing value")
		s.seen = value
		return value
	}
	s.seen += value
	return value
}

// detectMode applies the prefix heuristic: a second emission that begins with
// everything accumulated so far marks the source as cumulative. The heuristic
// can misread a source that legitimately backtracks; it is kept as a separate
// unit so the classification is testable on its own.
func detectMode(accumulated, next string) emissionMode {
	if strings.HasPrefix(next, accumulated) {
		return modeCumulative
	}
	return modeIncremental
}
