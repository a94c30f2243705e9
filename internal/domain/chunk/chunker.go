package chunk

import (
	"strings"

	apperrors "github.com/0xTanzim/contentchat/pkg/errors"
)

// DefaultSeparators descend from coarse to fine: paragraph break, line break,
// word boundary, then "split anywhere".
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Options controls how text is split.
type Options struct {
	MaxChunkSize int
	Overlap      int
	Separators   []string
}

// NewOptions validates the chunking parameters up front; Split itself never
// fails for well-formed input.
func NewOptions(maxChunkSize, overlap int, separators ...string) (Options, error) {
	if maxChunkSize <= 0 {
		return Options{}, apperrors.Wrap("invalid_config", "maxChunkSize must be positive", nil)
	}
	if overlap < 0 {
		return Options{}, apperrors.Wrap("invalid_config", "overlap cannot be negative", nil)
	}
	if overlap >= maxChunkSize {
		return Options{}, apperrors.Wrap("invalid_config", "overlap must be smaller than maxChunkSize", nil)
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return Options{MaxChunkSize: maxChunkSize, Overlap: overlap, Separators: separators}, nil
}

// Splitter turns long text into ordered, overlapping, size-bounded chunks.
type Splitter struct {
	opts Options
}

// NewSplitter constructs a splitter from validated options.
func NewSplitter(opts Options) *Splitter {
	return &Splitter{opts: opts}
}

// Split chunks text. Text at or below the budget is returned unchanged as a
// single chunk; whitespace-only chunks are dropped from the result.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.opts.MaxChunkSize {
		return []string{text}
	}
	raw := s.split(text, s.opts.Separators)
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

// split descends the separator list in priority order, accumulating pieces
// into a buffer and carrying an overlap tail across flushes.
func (s *Splitter) split(text string, seps []string) []string {
	max := s.opts.MaxChunkSize
	if len(text) <= max {
		return []string{text}
	}
	if len(seps) == 0 || seps[0] == "" {
		return s.fixedWidth(text)
	}
	sep := seps[0]
	rest := seps[1:]

	parts := strings.Split(text, sep)

	var (
		out     []string
		buf     string
		seedLen int
	)

	flush := func() {
		seed := buf[:seedLen]
		appended := buf[seedLen:]
		chunk := strings.TrimSpace(buf)
		buf = ""
		seedLen = 0
		if strings.TrimSpace(appended) == "" {
			// Nothing new beyond the carried overlap; emitting would repeat
			// the previous chunk's tail as a standalone chunk.
			buf = seed
			seedLen = len(seed)
			return
		}
		out = append(out, chunk)
		if s.opts.Overlap > 0 {
			tail := chunk
			if len(tail) > s.opts.Overlap {
				tail = tail[len(tail)-s.opts.Overlap:]
			}
			buf = tail
			seedLen = len(tail)
		}
	}

	for i, part := range parts {
		piece := part
		if i < len(parts)-1 {
			piece += sep
		}

		if len(buf) > seedLen && len(buf)+len(piece) > max {
			flush()
		}

		if len(piece) > max {
			// The piece alone blows the budget: re-chunk it with the finer
			// separators. All but the last fragment are complete; the last
			// one stays open so following pieces can still accumulate.
			sub := s.split(piece, rest)
			if len(sub) == 0 {
				// The whole piece trimmed away to whitespace; keep the carried
				// seed and move on.
				continue
			}
			for _, c := range sub[:len(sub)-1] {
				if strings.TrimSpace(c) != "" {
					out = append(out, c)
				}
			}
			buf = sub[len(sub)-1]
			seedLen = 0
			continue
		}

		if len(buf) == seedLen && seedLen > 0 && len(buf)+len(piece) > max {
			// The carried overlap is too long for this piece; shrink it so
			// the chunk stays within budget.
			keep := max - len(piece)
			buf = buf[len(buf)-keep:]
			seedLen = len(buf)
		}

		buf += piece
	}

	if strings.TrimSpace(buf[seedLen:]) != "" {
		out = append(out, strings.TrimSpace(buf))
	}
	return out
}

// fixedWidth is the forced fallback when no separator can subdivide an
// oversized atomic run: overlapping windows with stride max-overlap.
func (s *Splitter) fixedWidth(text string) []string {
	max := s.opts.MaxChunkSize
	stride := max - s.opts.Overlap
	var out []string
	for start := 0; start < len(text); start += stride {
		end := start + max
		if end > len(text) {
			end = len(text)
		}
		out = append(out, text[start:end])
		if end == len(text) {
			break
		}
	}
	return out
}
