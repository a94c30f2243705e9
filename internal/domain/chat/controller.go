package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/0xTanzim/contentchat/internal/domain/engine"
	"github.com/0xTanzim/contentchat/internal/domain/stream"
	apperrors "github.com/0xTanzim/contentchat/pkg/errors"
)

// State tracks the controller's position in its lifecycle. Terminal states
// (Completed, Stopped, Errored) are transient: the controller resets to Idle
// before Send returns.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateStopping   State = "stopping"
	StateStopped    State = "stopped"
	StateErrored    State = "errored"
	StateCompleted  State = "completed"
)

// Config bounds interactive input and transcript size.
type Config struct {
	SystemPrompt    string
	MaxInputChars   int
	MaxHistoryTurns int
	Temperature     float32
}

// Turn is one prior message in the running conversation, supplied by the
// caller as an already-ordered list.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result carries the accumulated reply. Stopped marks a user-initiated early
// termination, which is a success with partial output, not an error.
type Result struct {
	Output  string `json:"output"`
	Stopped bool   `json:"stopped,omitempty"`
}

// Controller drives one generation at a time against the engine: a small
// Idle -> Generating -> {Completed, Stopped, Errored} -> Idle state machine
// with cooperative, bounded-latency stop semantics.
type Controller struct {
	cfg    Config
	engine engine.Engine
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	active  *stream.Session
	outcome State

	stopRequested atomic.Bool
}

// NewController is a wire provider for the chat domain.
func NewController(cfg Config, eng engine.Engine, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		engine: eng,
		logger: logger.With("component", "chat.controller"),
		state:  StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastOutcome reports how the most recent send finished.
func (c *Controller) LastOutcome() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Send runs one generation. It rejects with engine_busy when a generation is
// already active (no queuing), opens a brand-new engine session for every
// accepted send, and invokes onDelta with the accumulated buffer after each
// pull. A stop request returns the partial buffer without error.
func (c *Controller) Send(ctx context.Context, input string, history []Turn, onDelta func(string)) (Result, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return Result{}, apperrors.Wrap(engine.CodeBusy, "a generation is already in progress", nil)
	}
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		c.mu.Unlock()
		return Result{}, apperrors.Wrap("invalid_input", "message cannot be empty", nil)
	}
	if c.cfg.MaxInputChars > 0 && len(trimmed) > c.cfg.MaxInputChars {
		c.mu.Unlock()
		return Result{}, apperrors.Wrap("invalid_input", "message exceeds maximum length", nil)
	}
	c.state = StateGenerating
	c.stopRequested.Store(false)
	c.mu.Unlock()

	session, err := c.engine.CreateSession(ctx, engine.KindChat, engine.Options{
		SystemPrompt: c.cfg.SystemPrompt,
		Temperature:  c.cfg.Temperature,
	})
	if err != nil {
		c.finish(StateErrored)
		return Result{}, engine.Classify(err)
	}

	source, err := session.GenerateStream(ctx, buildTranscript(history, trimmed, c.cfg.MaxHistoryTurns))
	if err != nil {
		session.Destroy()
		c.finish(StateErrored)
		return Result{}, engine.Classify(err)
	}

	active := stream.New(source, session.Destroy, c.logger)
	c.mu.Lock()
	c.active = active
	c.mu.Unlock()

	var buffer strings.Builder
	for {
		// The stop flag is polled only at pull boundaries: at most one
		// in-flight pull completes after a stop request.
		if c.stopRequested.Load() {
			active.Cancel("user stop")
			c.finish(StateStopped)
			return Result{Output: buffer.String(), Stopped: true}, nil
		}

		delta, done, err := active.Pull(ctx)
		if err != nil {
			c.finish(StateErrored)
			return Result{Output: buffer.String()}, err
		}
		if done {
			if c.stopRequested.Load() {
				c.finish(StateStopped)
				return Result{Output: buffer.String(), Stopped: true}, nil
			}
			c.finish(StateCompleted)
			return Result{Output: buffer.String()}, nil
		}

		buffer.WriteString(delta)
		if onDelta != nil {
			onDelta(buffer.String())
		}
	}
}

// Stop requests cooperative cancellation of the active generation. It is
// always safe to call and a no-op while Idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateGenerating && c.state != StateStopping {
		return
	}
	c.stopRequested.Store(true)
	c.state = StateStopping
	if c.active != nil {
		c.active.Cancel("user stop")
	}
}

// finish records the terminal state and resets the machine to Idle.
func (c *Controller) finish(terminal State) {
	c.mu.Lock()
	c.active = nil
	c.outcome = terminal
	c.state = StateIdle
	c.mu.Unlock()
	if terminal == StateErrored {
		c.logger.Warn("generation finished", "outcome", string(terminal))
	} else {
		c.logger.Debug("generation finished", "outcome", string(terminal))
	}
}

// buildTranscript renders the prior turns plus the new message the way the
// engine expects a single prompt.
func buildTranscript(history []Turn, input string, maxTurns int) string {
	if maxTurns > 0 && len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}
	var sb strings.Builder
	for _, turn := range history {
		role := turn.Role
		switch strings.ToLower(role) {
		case "assistant":
			role = "Assistant"
		default:
			role = "User"
		}
		sb.WriteString(role)
		sb.WriteString(": ")
		sb.WriteString(strings.TrimSpace(turn.Content))
		sb.WriteString("\n")
	}
	sb.WriteString("User: ")
	sb.WriteString(input)
	sb.WriteString("\nAssistant:")
	return sb.String()
}
