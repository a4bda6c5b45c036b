package roles

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"arena/internal/agent"
	"arena/internal/session"
)

// Doer is a worker role. It never talks to other doers directly: it
// returns a report, or embeds a clarification-request or challenge payload
// that the router forwards to the director as plain text.
type Doer struct {
	ID        string
	client    agent.Client
	firstDone bool
}

// NewDoer creates a worker role bound to one agent client.
func NewDoer(id string, client agent.Client) *Doer {
	return &Doer{ID: id, client: client}
}

// Context is everything a doer sees for one turn: the mission, the current
// phase, redacted previews of other doers' recent output, and the
// director's instruction.
type Context struct {
	Mission      string
	Phase        string
	Instruction  string
	PeerPreviews []string
}

// Execute runs one doer turn and returns the raw report text.
func (w *Doer) Execute(ctx context.Context, dc Context) (string, error) {
	resp, err := w.client.Send(ctx, agent.Message{Content: w.buildPrompt(dc), FirstTurn: !w.firstDone})
	if err != nil {
		return "", fmt.Errorf("doer %s turn: %w", w.ID, err)
	}
	w.firstDone = true
	return resp.Content, nil
}

func (w *Doer) buildPrompt(dc Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %q, a specialist on a coordinated team.\n\n", w.ID)
	fmt.Fprintf(&b, "Mission: %s\n", dc.Mission)
	if dc.Phase != "" {
		fmt.Fprintf(&b, "Phase: %s\n", dc.Phase)
	}
	if len(dc.PeerPreviews) > 0 {
		b.WriteString("\nRecent output from teammates:\n")
		for _, p := range dc.PeerPreviews {
			fmt.Fprintf(&b, "  - %s\n", p)
		}
	}
	fmt.Fprintf(&b, "\nInstruction from the director:\n%s\n\n", dc.Instruction)
	b.WriteString("Execute the instruction and report the result. " +
		"If you need clarification, start a line with QUESTION:. " +
		"If you disagree with the approach, start a line with CHALLENGE:.")
	return b.String()
}

var (
	questionRe  = regexp.MustCompile(`(?im)^\s*QUESTION:`)
	challengeRe = regexp.MustCompile(`(?im)^\s*CHALLENGE:`)
)

// ClassifyReport maps a doer report to the transcript message type the
// router records: a clarification request, a challenge, or a plain
// response. The payload is always the full report; the router forwards it
// to the director verbatim and never executes it as a control signal.
func ClassifyReport(report string) session.MessageType {
	switch {
	case questionRe.MatchString(report):
		return session.MessageQuestion
	case challengeRe.MatchString(report):
		return session.MessageCollaboration
	default:
		return session.MessageResponse
	}
}
