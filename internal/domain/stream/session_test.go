package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	emissions []string
	next      int
	err       error
	cancels   int
}

func (f *fakeSource) Read(_ context.Context) (string, bool, error) {
	if f.next >= len(f.emissions) {
		if f.err != nil {
			return "", false, f.err
		}
		return "", true, nil
	}
	value := f.emissions[f.next]
	f.next++
	return value, false, nil
}

func (f *fakeSource) Cancel() {
	f.cancels++
}

func drain(t *testing.T, s *Session) []string {
	t.Helper()
	var deltas []string
	for {
		delta, done, err := s.Pull(context.Background())
		require.NoError(t, err)
		if done {
			return deltas
		}
		deltas = append(deltas, delta)
	}
}

func TestPullNormalizesCumulativeSnapshots(t *testing.T) {
	t.Parallel()
	source := &fakeSource{emissions: []string{"Hi", "Hi there", "Hi there!"}}
	session := New(source, nil, nil)

	require.Equal(t, []string{"Hi", " there", "!"}, drain(t, session))
}

func TestPullPassesIncrementalDeltasThrough(t *testing.T) {
	t.Parallel()
	source := &fakeSource{emissions: []string{"Hi", " there", "!"}}
	session := New(source, nil, nil)

	require.Equal(t, []string{"Hi", " there", "!"}, drain(t, session))
}

func TestPullReleasesHandleOnCompletion(t *testing.T) {
	t.Parallel()
	released := 0
	source := &fakeSource{emissions: []string{"only"}}
	session := New(source, func() { released++ }, nil)

	drain(t, session)
	require.Equal(t, 1, released)

	// Terminal sessions stay terminal.
	_, done, err := session.Pull(context.Background())
	require.True(t, done)
	require.NoError(t, err)
	require.Equal(t, 1, released)
}

func TestPullSurfacesErrorAfterRelease(t *testing.T) {
	t.Parallel()
	released := 0
	source := &fakeSource{emissions: []string{"partial"}, err: errors.New("boom")}
	session := New(source, func() { released++ }, nil)

	delta, done, err := session.Pull(context.Background())
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, "partial", delta)

	_, done, err = session.Pull(context.Background())
	require.True(t, done)
	require.Error(t, err)
	require.Equal(t, 1, released)

	// The error is sticky.
	_, done, stickyErr := session.Pull(context.Background())
	require.True(t, done)
	require.Equal(t, err, stickyErr)
	require.Equal(t, 1, released)
}

func TestCancelIsIdempotent(t *testing.T) {
	t.Parallel()
	released := 0
	source := &fakeSource{emissions: []string{"a", "b", "c"}}
	session := New(source, func() { released++ }, nil)

	delta, done, err := session.Pull(context.Background())
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, "a", delta)

	session.Cancel("user stop")
	session.Cancel("user stop again")

	require.Equal(t, 1, released)
	require.Equal(t, 1, source.cancels)

	_, done, err = session.Pull(context.Background())
	require.True(t, done)
	require.NoError(t, err)
}

func TestCancelAfterCompletionIsSafe(t *testing.T) {
	t.Parallel()
	released := 0
	source := &fakeSource{emissions: []string{"done"}}
	session := New(source, func() { released++ }, nil)

	drain(t, session)
	session.Cancel("late")
	require.Equal(t, 1, released)
}

func TestDetectMode(t *testing.T) {
	tests := []struct {
		name        string
		accumulated string
		next        string
		want        emissionMode
	}{
		{name: "snapshot grows", accumulated: "Hi", next: "Hi there", want: modeCumulative},
		{name: "fresh delta", accumulated: "Hi", next: " there", want: modeIncremental},
		{name: "identical emission", accumulated: "Hi", next: "Hi", want: modeCumulative},
		{name: "empty first emission", accumulated: "", next: "anything", want: modeCumulative},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, detectMode(tt.accumulated, tt.next))
		})
	}
}
