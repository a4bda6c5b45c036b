package store

import (
	"fmt"
	"regexp"
	"strings"

	"arena/internal/session"
)

var transcriptHeader = regexp.MustCompile(`^### \d+\. (\S+) -> (\S+) \[(\w+)\]$`)

// ExportMarkdown renders a full session as a markdown document. The
// transcript section is machine-recoverable: ParseTranscript applied to the
// result yields the same ordered (from, to, type, content) tuples as the
// stored transcript.
func ExportMarkdown(st session.Store, id string) (string, error) {
	s, err := st.Get(id)
	if err != nil {
		return "", err
	}
	msgs, err := st.Transcript(id)
	if err != nil {
		return "", fmt.Errorf("reading transcript: %w", err)
	}
	decisions, err := st.Decisions(id)
	if err != nil {
		return "", fmt.Errorf("reading decisions: %w", err)
	}
	snap, err := st.Board(id)
	if err != nil {
		return "", fmt.Errorf("reading board: %w", err)
	}
	budget, err := st.Budget(id)
	if err != nil {
		return "", fmt.Errorf("reading budget report: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Session %s\n\n", s.ID)
	fmt.Fprintf(&b, "**Status:** %s", s.Status)
	if s.Reason != "" {
		fmt.Fprintf(&b, " (%s)", s.Reason)
	}
	fmt.Fprintf(&b, "  \n**Turns:** %d/%d  \n**Doers:** %s\n\n",
		s.TurnsUsed, s.Budget, strings.Join(s.DoerRoles, ", "))

	b.WriteString("## Mission\n\n")
	b.WriteString(strings.TrimSpace(s.Mission))
	b.WriteString("\n\n## Transcript\n")
	for i, m := range msgs {
		fmt.Fprintf(&b, "\n### %d. %s -> %s [%s]\n\n", i+1, m.From, m.To, m.Type)
		b.WriteString(escapeBody(strings.TrimRight(m.Content, "\n")))
		b.WriteString("\n")
	}

	if len(decisions) > 0 {
		b.WriteString("\n## Decisions\n\n")
		for _, d := range decisions {
			fmt.Fprintf(&b, "- %s **%s**", d.Timestamp.Format("2006-01-02 15:04:05"), d.Kind)
			if d.Target != "" {
				fmt.Fprintf(&b, " -> %s", d.Target)
			}
			if d.Ruling != "" {
				fmt.Fprintf(&b, ": %s", firstLine(d.Ruling))
			}
			b.WriteString("\n")
		}
	}

	if len(snap.Tasks) > 0 {
		b.WriteString("\n## Task Board\n\n")
		for _, t := range snap.Tasks {
			fmt.Fprintf(&b, "- %s [%s] %s", t.ID, t.Status, t.Title)
			if t.Assignee != "" {
				fmt.Fprintf(&b, " (%s)", t.Assignee)
			}
			b.WriteString("\n")
		}
	}

	if len(budget) > 0 {
		b.WriteString("\n## Budget\n\n")
		for _, e := range budget {
			fmt.Fprintf(&b, "- %s: %d/%d\n", e.AgentID, e.TurnsUsed, e.TurnsAllocated)
		}
	}

	return b.String(), nil
}

// escapeBody keeps a free-form message body from reading back as document
// structure. Agent replies are arbitrary text and may contain markdown
// headings or lines shaped like a transcript header; a leading backslash
// neutralizes them and ParseTranscript strips it again.
func escapeBody(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "#") || strings.HasPrefix(l, `\`) {
			lines[i] = `\` + l
		}
	}
	return strings.Join(lines, "\n")
}

// ParseTranscript recovers the ordered transcript tuples from an exported
// markdown document. Timestamps are not round-tripped.
func ParseTranscript(doc string) []session.Message {
	var out []session.Message
	var cur *session.Message
	var body []string

	flush := func() {
		if cur == nil {
			return
		}
		cur.Content = strings.TrimSpace(strings.Join(body, "\n"))
		out = append(out, *cur)
		cur = nil
		body = nil
	}

	inTranscript := false
	for _, line := range strings.Split(doc, "\n") {
		switch {
		case line == "## Transcript":
			inTranscript = true
		case strings.HasPrefix(line, "## "):
			flush()
			inTranscript = false
		case inTranscript:
			if m := transcriptHeader.FindStringSubmatch(line); m != nil {
				flush()
				cur = &session.Message{From: m[1], To: m[2], Type: session.MessageType(m[3])}
			} else if cur != nil {
				body = append(body, strings.TrimPrefix(line, `\`))
			}
		}
	}
	flush()
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
