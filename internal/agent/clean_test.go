package agent

import (
	"testing"
)

// TestClean verifies framework artifacts are stripped from raw replies.
func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain text untouched",
			raw:  "Implemented the parser.\nAll tests pass.",
			want: "Implemented the parser.\nAll tests pass.",
		},
		{
			name: "meta comment line removed",
			raw:  "<!-- internal bookkeeping -->\nThe real reply.",
			want: "The real reply.",
		},
		{
			name: "structured output banner removed",
			raw:  "[structured-output v2]\nASSIGN(coder): build it",
			want: "ASSIGN(coder): build it",
		},
		{
			name: "meta banner removed case-insensitively",
			raw:  "[Meta: turn 3]\nreply body",
			want: "reply body",
		},
		{
			name: "whole-reply fence unwrapped",
			raw:  "```\nASSIGN(coder): build it\n```",
			want: "ASSIGN(coder): build it",
		},
		{
			name: "fenced code inside reply kept",
			raw:  "Here is the fix:\n```go\nreturn nil\n```",
			want: "Here is the fix:\n```go\nreturn nil\n```",
		},
		{
			name: "inline html comment kept",
			raw:  "see <!-- this --> note",
			want: "see <!-- this --> note",
		},
		{
			name: "surrounding whitespace trimmed",
			raw:  "\n\n  reply  \n\n",
			want: "reply",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.raw); got != tt.want {
				t.Errorf("Clean() = %q, want %q", got, tt.want)
			}
		})
	}
}
