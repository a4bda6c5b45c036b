package roles

import (
	"context"
	"strings"
	"testing"

	"arena/internal/session"
)

// TestDoerExecute verifies the prompt carries mission context and that the
// first turn flag drops after one successful call.
func TestDoerExecute(t *testing.T) {
	client := &mockClient{replies: []string{"done", "done again"}}
	w := NewDoer("coder", client)

	report, err := w.Execute(context.Background(), Context{
		Mission:      "Build a parser",
		Phase:        "implementation",
		Instruction:  "write the lexer",
		PeerPreviews: []string{"reviewer: looked at the grammar"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if report != "done" {
		t.Errorf("report = %q", report)
	}

	prompt := client.calls[0].Content
	for _, want := range []string{"Build a parser", "implementation", "write the lexer", "reviewer: looked at the grammar", "QUESTION:", "CHALLENGE:"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !client.calls[0].FirstTurn {
		t.Error("first call should start a new conversation")
	}

	if _, err := w.Execute(context.Background(), Context{Mission: "m", Instruction: "next"}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if client.calls[1].FirstTurn {
		t.Error("second call should resume the conversation")
	}
}

// TestClassifyReport verifies payload markers map to message types and the
// payload is otherwise a plain response.
func TestClassifyReport(t *testing.T) {
	tests := []struct {
		name   string
		report string
		want   session.MessageType
	}{
		{"question marker", "QUESTION: which database should I use?", session.MessageQuestion},
		{"question mid-report", "I made progress.\nquestion: is the schema fixed?", session.MessageQuestion},
		{"challenge marker", "CHALLENGE: the streaming approach will not scale", session.MessageCollaboration},
		{"plain report", "Implemented the lexer, all tests pass.", session.MessageResponse},
		{"question word without marker", "I had a question earlier but resolved it myself.", session.MessageResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyReport(tt.report); got != tt.want {
				t.Errorf("ClassifyReport = %s, want %s", got, tt.want)
			}
		})
	}
}
