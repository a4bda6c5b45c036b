// Package agent wraps the long-lived conversational agent CLI behind a
// subprocess-per-turn adapter. Each participant owns one conversation
// handle; the first turn starts a new bound conversation, later turns
// resume it so the agent keeps its own memory server-side.
package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is one prompt sent to an agent.
type Message struct {
	Content   string
	FirstTurn bool
}

// Response is the adapter-level result of one turn. Error carries a
// diagnostic when the subprocess failed; Content is already cleaned of
// framework-injected artifacts.
type Response struct {
	Content string
	Handle  string
	Error   string
}

// Client is the process-adapter boundary. Send never panics past it: a
// subprocess failure (non-zero exit, timeout, unparseable output) comes
// back as a Response with Error set plus a non-nil error.
type Client interface {
	Send(ctx context.Context, msg Message) (Response, error)
	Handle() string
	Close() error
}

// Config configures one participant's adapter.
type Config struct {
	Command      string        // CLI binary, default "claude"
	Handle       string        // conversation handle; generated when empty
	WorkDir      string        // subprocess working directory
	Model        string        // optional model override
	SystemPrompt string        // optional role prompt
	Autonomous   bool          // run the agent without permission prompts
	Timeout      time.Duration // per-invocation bound, default 2 minutes
}

// DefaultTimeout bounds a single agent invocation. A hung subprocess
// degrades to a reported failure instead of stalling the control loop.
const DefaultTimeout = 2 * time.Minute

// New creates a CLI-backed client. A fresh conversation handle is
// generated when cfg.Handle is empty.
func New(cfg Config, pm *ProcessManager) (*CLIClient, error) {
	if cfg.Command == "" {
		cfg.Command = "claude"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Handle == "" {
		cfg.Handle = uuid.NewString()
	}
	return &CLIClient{cfg: cfg, procMgr: pm}, nil
}

// Factory builds a client for one participant. The orchestrator calls it
// once per participant at session start and again on resume (with a fresh
// handle).
type Factory func(participant string, handle string) (Client, error)
