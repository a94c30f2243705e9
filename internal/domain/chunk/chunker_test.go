package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/0xTanzim/contentchat/pkg/errors"
)

func TestNewOptionsValidation(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		overlap int
		wantErr bool
	}{
		{name: "valid", max: 3000, overlap: 200},
		{name: "zero overlap", max: 100, overlap: 0},
		{name: "overlap equals max", max: 100, overlap: 100, wantErr: true},
		{name: "overlap above max", max: 100, overlap: 150, wantErr: true},
		{name: "negative overlap", max: 100, overlap: -1, wantErr: true},
		{name: "zero max", max: 0, overlap: 0, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts, err := NewOptions(tt.max, tt.overlap)
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, apperrors.IsCode(err, "invalid_config"))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.max, opts.MaxChunkSize)
			require.Equal(t, DefaultSeparators, opts.Separators)
		})
	}
}

func TestSplitShortInputs(t *testing.T) {
	opts, err := NewOptions(100, 20)
	require.NoError(t, err)
	splitter := NewSplitter(opts)

	require.Nil(t, splitter.Split(""))
	require.Equal(t, []string{"hello world"}, splitter.Split("hello world"))

	exact := strings.Repeat("x", 100)
	require.Equal(t, []string{exact}, splitter.Split(exact))
}

func TestSplitRespectsBudgetAndOverlap(t *testing.T) {
	opts, err := NewOptions(3000, 200)
	require.NoError(t, err)
	splitter := NewSplitter(opts)

	text := generateWords(60000)
	require.GreaterOrEqual(t, len(text), 60000)

	chunks := splitter.Split(text)
	require.GreaterOrEqual(t, len(chunks), 20)

	for i, c := range chunks {
		require.LessOrEqual(t, len(c), 3000, "chunk %d over budget", i)
		require.NotEmpty(t, strings.TrimSpace(c))
	}

	for i := 1; i < len(chunks); i++ {
		shared := sharedOverlap(chunks[i-1], chunks[i], 200)
		require.GreaterOrEqual(t, shared, 190, "chunk %d lost its overlap seed", i)
	}
}

func TestSplitPreservesContentInOrder(t *testing.T) {
	opts, err := NewOptions(500, 50)
	require.NoError(t, err)
	splitter := NewSplitter(opts)

	var sb strings.Builder
	for p := 0; p < 8; p++ {
		for w := 0; w < 60; w++ {
			fmt.Fprintf(&sb, "w%03d%03d ", p, w)
		}
		sb.WriteString("\n\n")
	}
	text := strings.TrimSpace(sb.String())

	chunks := splitter.Split(text)
	require.Greater(t, len(chunks), 1)

	rebuilt := chunks[0]
	for i := 1; i < len(chunks); i++ {
		shared := sharedOverlap(chunks[i-1], chunks[i], len(chunks[i]))
		rebuilt += chunks[i][shared:]
	}
	require.Equal(t, stripSpace(text), stripSpace(rebuilt))
}

func TestSplitAtomicRunFallsBackToFixedWidth(t *testing.T) {
	opts, err := NewOptions(3000, 200)
	require.NoError(t, err)
	splitter := NewSplitter(opts)

	text := strings.Repeat("a", 10000)
	chunks := splitter.Split(text)

	require.Equal(t, 4, len(chunks))
	for i, c := range chunks {
		if i < len(chunks)-1 {
			require.Equal(t, 3000, len(c))
		}
		require.LessOrEqual(t, len(c), 3000)
	}
	for i := 1; i < len(chunks); i++ {
		require.True(t, strings.HasSuffix(chunks[i-1], chunks[i][:200]))
	}
	require.Equal(t, len(text), 2800*3+len(chunks[3]))
}

func TestSplitDropsWhitespaceOnlyChunks(t *testing.T) {
	opts, err := NewOptions(10, 2)
	require.NoError(t, err)
	splitter := NewSplitter(opts)

	chunks := splitter.Split("abcde\n\n\n\n   \n\nfghij klmno")
	for _, c := range chunks {
		require.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestSplitOversizedParagraphDescendsSeparators(t *testing.T) {
	opts, err := NewOptions(40, 8)
	require.NoError(t, err)
	splitter := NewSplitter(opts)

	long := strings.Repeat("lorem ipsum dolor sit amet ", 6)
	text := "short intro\n\n" + long + "\n\nshort outro"

	chunks := splitter.Split(text)
	require.Greater(t, len(chunks), 2)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 40)
	}
	require.Contains(t, chunks[0], "short intro")
	require.Contains(t, chunks[len(chunks)-1], "short outro")
}

func TestSplitOversizedWhitespaceRun(t *testing.T) {
	opts, err := NewOptions(100, 20)
	require.NoError(t, err)
	splitter := NewSplitter(opts)

	text := "alpha\n\n" + strings.Repeat(" ", 300) + "\n\nomega"

	var chunks []string
	require.NotPanics(t, func() {
		chunks = splitter.Split(text)
	})
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 100)
		require.NotEmpty(t, strings.TrimSpace(c))
	}
	require.Contains(t, chunks[0], "alpha")
	require.Contains(t, chunks[len(chunks)-1], "omega")
}

func TestSplitWhitespaceRunDoesNotRepeatOverlapSeed(t *testing.T) {
	opts, err := NewOptions(100, 20)
	require.NoError(t, err)
	splitter := NewSplitter(opts)

	chunks := splitter.Split("intro " + strings.Repeat(" ", 300) + " outro")
	require.NotEmpty(t, chunks)

	seen := make(map[string]int)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 100)
		seen[c]++
	}
	for c, n := range seen {
		require.Equal(t, 1, n, "chunk %q emitted more than once", c)
	}
	require.Contains(t, chunks[len(chunks)-1], "outro")
}

// sharedOverlap returns the longest k <= limit where the first k bytes of cur
// are a suffix of prev.
func sharedOverlap(prev, cur string, limit int) int {
	if limit > len(cur) {
		limit = len(cur)
	}
	if limit > len(prev) {
		limit = len(prev)
	}
	for k := limit; k > 0; k-- {
		if strings.HasSuffix(prev, cur[:k]) {
			return k
		}
	}
	return 0
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func generateWords(minLen int) string {
	var sb strings.Builder
	for i := 0; sb.Len() < minLen; i++ {
		fmt.Fprintf(&sb, "token%06d ", i)
		if i%40 == 39 {
			sb.WriteString("\n")
		}
		if i%200 == 199 {
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}
