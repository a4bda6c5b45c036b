package agent

import (
	"context"
	"encoding/json"
	"fmt"
)

// CLIClient drives a claude-style agent CLI, one subprocess per turn. The
// first turn binds a new conversation to the handle (--session-id); later
// turns resume it (--resume).
type CLIClient struct {
	cfg     Config
	started bool
	procMgr *ProcessManager
}

// cliResponse is the JSON envelope printed by the agent CLI.
type cliResponse struct {
	SessionID string `json:"session_id"`
	Result    struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
}

// Send runs one turn. The invocation is bounded by the configured timeout;
// a hung or failing subprocess is reported in Response.Error and the
// returned error, never as a panic.
func (c *CLIClient) Send(ctx context.Context, msg Message) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	first := msg.FirstTurn || !c.started
	cmd := newCommand(ctx, c.cfg.Command, c.buildArgs(msg.Content, first)...)
	cmd.Dir = c.cfg.WorkDir

	stdout, stderr, err := executeCommand(ctx, cmd, c.procMgr)
	if err != nil {
		return Response{
			Handle: c.cfg.Handle,
			Error:  fmt.Sprintf("%s invocation failed: %v", c.cfg.Command, err),
		}, err
	}

	content, err := parseCLIResponse(stdout)
	if err != nil {
		return Response{
			Handle: c.cfg.Handle,
			Error:  fmt.Sprintf("parsing %s response: %v (stderr: %s)", c.cfg.Command, err, string(stderr)),
		}, err
	}

	c.started = true
	return Response{
		Content: Clean(content),
		Handle:  c.cfg.Handle,
	}, nil
}

// Handle returns the conversation handle this client is bound to.
func (c *CLIClient) Handle() string { return c.cfg.Handle }

// Close is a no-op: each turn is its own subprocess.
func (c *CLIClient) Close() error { return nil }

// buildArgs constructs the CLI invocation. first selects --session-id
// (start a new bound conversation) versus --resume (continue it).
func (c *CLIClient) buildArgs(prompt string, first bool) []string {
	args := []string{"-p", prompt, "--output-format", "json"}
	if first {
		args = append(args, "--session-id", c.cfg.Handle)
	} else {
		args = append(args, "--resume", c.cfg.Handle)
	}
	if c.cfg.Model != "" {
		args = append(args, "--model", c.cfg.Model)
	}
	if c.cfg.SystemPrompt != "" {
		args = append(args, "--system-prompt", c.cfg.SystemPrompt)
	}
	if c.cfg.Autonomous {
		args = append(args, "--dangerously-skip-permissions")
	}
	return args
}

// parseCLIResponse extracts the text content from the CLI's JSON envelope.
func parseCLIResponse(data []byte) (string, error) {
	var cr cliResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return "", fmt.Errorf("unmarshalling envelope: %w", err)
	}
	var content string
	for _, item := range cr.Result.Content {
		if item.Type == "text" {
			content += item.Text
		}
	}
	if content == "" {
		return "", fmt.Errorf("empty response content")
	}
	return content, nil
}
