package roles

import (
	"context"
	"fmt"
	"strings"

	"arena/internal/agent"
	"arena/internal/session"
)

// Style is the coordination persona selected from the mission text. It
// shapes the outgoing prompt wording only; control flow never depends on
// it.
type Style string

const (
	StyleModerator   Style = "moderator"
	StyleForeman     Style = "foreman"
	StyleAnalyst     Style = "analyst"
	StyleFacilitator Style = "facilitator"
)

var styleKeywords = []struct {
	style Style
	words []string
}{
	{StyleModerator, []string{"debate", "argue", "discuss"}},
	{StyleForeman, []string{"build", "implement", "code", "create"}},
	{StyleAnalyst, []string{"research", "investigate", "analyze"}},
}

// DetermineStyle picks a persona by keyword match over the mission text.
// Deterministic; earlier keyword groups win.
func DetermineStyle(mission string) Style {
	lower := strings.ToLower(mission)
	for _, group := range styleKeywords {
		for _, w := range group.words {
			if strings.Contains(lower, w) {
				return group.style
			}
		}
	}
	return StyleFacilitator
}

var styleVoice = map[Style]string{
	StyleModerator:   "Moderate the discussion: weigh each doer's position before ruling.",
	StyleForeman:     "Run this like a build site: short concrete instructions, one doer at a time.",
	StyleAnalyst:     "Work methodically: gather findings from each doer before concluding.",
	StyleFacilitator: "Keep the team moving: hand out work, unblock, and summarize.",
}

// Director is the coordinating role. It owns one agent client and a
// classifier; the router feeds it messages and applies the decisions it
// parses.
type Director struct {
	client     agent.Client
	classifier Classifier
	style      Style
}

// NewDirector creates the director role for a mission.
func NewDirector(client agent.Client, classifier Classifier, mission string) *Director {
	return &Director{
		client:     client,
		classifier: classifier,
		style:      DetermineStyle(mission),
	}
}

// Style returns the selected coordination persona.
func (d *Director) Style() Style { return d.style }

// KickoffPrompt frames the mission, roster, budget and the decision
// grammar for the director's first turn.
func (d *Director) KickoffPrompt(s *session.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the director coordinating a team of specialist doers.\n\n")
	fmt.Fprintf(&b, "Mission: %s\n\n", s.Mission)
	fmt.Fprintf(&b, "Doers available: %s\n", strings.Join(s.DoerRoles, ", "))
	fmt.Fprintf(&b, "Shared turn budget: %d turns across all agents.\n\n", s.Budget)
	b.WriteString(styleVoice[d.style])
	b.WriteString("\n\n")
	b.WriteString(grammarHelp)
	b.WriteString("\nDecompose the mission and issue your first instruction.")
	return b.String()
}

// NextPrompt frames a doer's report for the director's next turn.
func (d *Director) NextPrompt(report session.Message, phase string) string {
	var b strings.Builder
	if phase != "" {
		fmt.Fprintf(&b, "Current phase: %s\n\n", phase)
	}
	fmt.Fprintf(&b, "%s reports:\n\n%s\n\n", report.From, report.Content)
	b.WriteString("What is the next step? ")
	b.WriteString(grammarHelp)
	return b.String()
}

// NudgePrompt re-prompts after a reply carried no recognizable decision.
func (d *Director) NudgePrompt() string {
	return "No actionable decision was found in your last reply. " + grammarHelp
}

// ResumePrompt frames a resumed mission for a fresh conversation handle.
func (d *Director) ResumePrompt(s *session.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The mission is being resumed after a pause.\n\n")
	fmt.Fprintf(&b, "Mission: %s\nDoers: %s\nTurns used so far: %d of %d.\n",
		s.Mission, strings.Join(s.DoerRoles, ", "), s.TurnsUsed, s.Budget)
	if s.Phase != "" {
		fmt.Fprintf(&b, "Current phase: %s\n", s.Phase)
	}
	b.WriteString("\n")
	b.WriteString(grammarHelp)
	b.WriteString("\nPick up where the mission left off.")
	return b.String()
}

const grammarHelp = `Reply with exactly one directive line:
  ASSIGN(<doer>): <instruction>   delegate a task
  CLARIFY(<doer>): <question>     ask a doer to clarify
  RESOLVE(<doer>): <ruling>       settle a conflict
  PHASE: <name>                   move the mission to a new phase
  MISSION COMPLETE: <summary>     finish the mission`

// Send runs one director turn: prompt the agent, classify the cleaned
// reply. The reply text is returned even when no decision was parsed.
func (d *Director) Send(ctx context.Context, prompt string, firstTurn bool) (string, *session.Decision, error) {
	resp, err := d.client.Send(ctx, agent.Message{Content: prompt, FirstTurn: firstTurn})
	if err != nil {
		return "", nil, fmt.Errorf("director turn: %w", err)
	}
	return resp.Content, d.classifier.Classify(resp.Content), nil
}
