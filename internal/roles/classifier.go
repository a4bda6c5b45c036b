// Package roles implements the two participant roles: the Director, which
// turns mission state into coordination prompts and parses decisions out of
// free-text replies, and the Doer, which executes assigned instructions.
package roles

import (
	"regexp"
	"strings"

	"arena/internal/session"
)

// Classifier extracts a structured control signal from a director reply.
// A nil result means "no recognizable decision"; the router treats that as
// continue-waiting, never as an error. The marker-based implementation is
// the default; a stricter structured-output contract can replace it
// without touching the router.
type Classifier interface {
	Classify(text string) *session.Decision
}

var (
	completeRe = regexp.MustCompile(`(?im)^\s*MISSION COMPLETE\b[.:]?\s*(.*)$`)
	assignRe   = regexp.MustCompile(`(?i)^\s*ASSIGN\(([^)]+)\):\s*(.+)$`)
	clarifyRe  = regexp.MustCompile(`(?i)^\s*CLARIFY\(([^)]+)\):\s*(.+)$`)
	resolveRe  = regexp.MustCompile(`(?i)^\s*RESOLVE\(([^)]+)\):\s*(.+)$`)
	phaseRe    = regexp.MustCompile(`(?i)^\s*PHASE:\s*(.+)$`)
	mentionRe  = regexp.MustCompile(`@([A-Za-z][\w-]*)`)
)

// MarkerClassifier is the heuristic default: explicit line markers first,
// then @role mentions on lines that talk about a task. Matching is
// best-effort by design; adversarial input may misfire and that behavior
// is accepted as authoritative.
type MarkerClassifier struct {
	roles map[string]string // lowercased role -> canonical label
}

// NewMarkerClassifier builds a classifier that resolves targets against
// the given doer roster.
func NewMarkerClassifier(roster []string) *MarkerClassifier {
	roles := make(map[string]string, len(roster))
	for _, r := range roster {
		roles[strings.ToLower(r)] = r
	}
	return &MarkerClassifier{roles: roles}
}

// Classify scans the reply. Completion wins over everything so a closing
// summary that still mentions roles is not misread as an assignment; after
// that the first matching line wins. An unknown role yields a decision
// with an empty target, which the router treats as unroutable.
func (c *MarkerClassifier) Classify(text string) *session.Decision {
	if m := completeRe.FindStringSubmatch(text); m != nil {
		reasoning := strings.TrimSpace(m[1])
		if reasoning == "" {
			reasoning = strings.TrimSpace(completeRe.ReplaceAllString(text, ""))
		}
		return &session.Decision{Kind: session.DecisionCompletion, Reasoning: reasoning}
	}

	for _, line := range strings.Split(text, "\n") {
		if m := assignRe.FindStringSubmatch(line); m != nil {
			return &session.Decision{
				Kind:        session.DecisionTaskAssignment,
				Target:      c.resolve(m[1]),
				Instruction: strings.TrimSpace(m[2]),
			}
		}
		if m := clarifyRe.FindStringSubmatch(line); m != nil {
			return &session.Decision{
				Kind:        session.DecisionClarification,
				Target:      c.resolve(m[1]),
				Instruction: strings.TrimSpace(m[2]),
			}
		}
		if m := resolveRe.FindStringSubmatch(line); m != nil {
			return &session.Decision{
				Kind:        session.DecisionConflictResolution,
				Target:      c.resolve(m[1]),
				Instruction: strings.TrimSpace(m[2]),
			}
		}
		if m := phaseRe.FindStringSubmatch(line); m != nil {
			return &session.Decision{
				Kind:        session.DecisionPhaseTransition,
				Instruction: strings.TrimSpace(m[1]),
			}
		}
		if target, ok := c.mentionedRole(line); ok && containsTaskWord(line) {
			return &session.Decision{
				Kind:        session.DecisionTaskAssignment,
				Target:      target,
				Instruction: strings.TrimSpace(line),
			}
		}
	}
	return nil
}

func (c *MarkerClassifier) resolve(role string) string {
	return c.roles[strings.ToLower(strings.TrimSpace(role))]
}

func (c *MarkerClassifier) mentionedRole(line string) (string, bool) {
	for _, m := range mentionRe.FindAllStringSubmatch(line, -1) {
		if canonical := c.resolve(m[1]); canonical != "" {
			return canonical, true
		}
	}
	return "", false
}

func containsTaskWord(line string) bool {
	return strings.Contains(strings.ToLower(line), "task")
}
