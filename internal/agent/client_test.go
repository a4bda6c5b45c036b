package agent

import (
	"regexp"
	"strings"
	"testing"
)

// TestNew_GeneratesHandle verifies a conversation handle is auto-generated
// when not provided.
func TestNew_GeneratesHandle(t *testing.T) {
	client, err := New(Config{}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	handle := client.Handle()
	if handle == "" {
		t.Fatal("expected non-empty handle")
	}
	uuidPattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	if !uuidPattern.MatchString(handle) {
		t.Errorf("handle does not match UUID v4 format: %s", handle)
	}
}

// TestNew_UsesProvidedHandle verifies a provided handle is kept.
func TestNew_UsesProvidedHandle(t *testing.T) {
	client, err := New(Config{Handle: "fixed-handle"}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if client.Handle() != "fixed-handle" {
		t.Errorf("handle = %q, want fixed-handle", client.Handle())
	}
}

// TestBuildArgs_FirstTurn verifies the first invocation binds a new
// conversation with --session-id.
func TestBuildArgs_FirstTurn(t *testing.T) {
	client, _ := New(Config{Handle: "h-123"}, nil)

	args := client.buildArgs("do the thing", true)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--session-id h-123") {
		t.Errorf("first turn args missing --session-id: %v", args)
	}
	if strings.Contains(joined, "--resume") {
		t.Errorf("first turn args should not resume: %v", args)
	}
	if args[0] != "-p" || args[1] != "do the thing" {
		t.Errorf("prompt not passed through -p: %v", args)
	}
}

// TestBuildArgs_LaterTurn verifies later invocations resume the handle.
func TestBuildArgs_LaterTurn(t *testing.T) {
	client, _ := New(Config{Handle: "h-123"}, nil)

	joined := strings.Join(client.buildArgs("continue", false), " ")
	if !strings.Contains(joined, "--resume h-123") {
		t.Errorf("later turn args missing --resume: %s", joined)
	}
	if strings.Contains(joined, "--session-id") {
		t.Errorf("later turn args should not rebind: %s", joined)
	}
}

// TestBuildArgs_OptionalFlags verifies model, system prompt and autonomous
// mode flags.
func TestBuildArgs_OptionalFlags(t *testing.T) {
	client, _ := New(Config{
		Handle:       "h",
		Model:        "fast-model",
		SystemPrompt: "You review code.",
		Autonomous:   true,
	}, nil)

	joined := strings.Join(client.buildArgs("x", true), " ")
	for _, want := range []string{"--model fast-model", "--system-prompt You review code.", "--dangerously-skip-permissions"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}

	plain, _ := New(Config{Handle: "h"}, nil)
	joined = strings.Join(plain.buildArgs("x", true), " ")
	for _, banned := range []string{"--model", "--system-prompt", "--dangerously-skip-permissions"} {
		if strings.Contains(joined, banned) {
			t.Errorf("args contain unexpected %q: %s", banned, joined)
		}
	}
}

// TestParseCLIResponse verifies text extraction from the JSON envelope.
func TestParseCLIResponse(t *testing.T) {
	data := []byte(`{
		"session_id": "h-123",
		"result": {
			"content": [
				{"type": "text", "text": "part one "},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": "part two"}
			]
		}
	}`)

	content, err := parseCLIResponse(data)
	if err != nil {
		t.Fatalf("parseCLIResponse failed: %v", err)
	}
	if content != "part one part two" {
		t.Errorf("content = %q", content)
	}
}

// TestParseCLIResponse_Errors verifies malformed and empty envelopes fail.
func TestParseCLIResponse_Errors(t *testing.T) {
	if _, err := parseCLIResponse([]byte("{not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := parseCLIResponse([]byte(`{"result":{"content":[]}}`)); err == nil {
		t.Error("expected error for empty content")
	}
}
