package agent

import (
	"regexp"
	"strings"
)

var (
	metaComment  = regexp.MustCompile(`^\s*<!--.*-->\s*$`)
	outputBanner = regexp.MustCompile(`(?i)^\s*\[(?:meta|structured[ -]output)[^\]]*\]\s*$`)
)

// Clean strips framework-injected artifacts from raw agent output before
// it reaches the roles: whole-line meta comments, structured-output banner
// lines, and a single code fence wrapping the entire reply.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = unwrapFence(s)

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if metaComment.MatchString(line) || outputBanner.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// unwrapFence removes one enclosing ``` fence when the whole reply is
// fenced; partial fences inside the reply are left alone.
func unwrapFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 || !strings.HasSuffix(s, "```") {
		return s
	}
	inner := s[nl+1 : len(s)-3]
	if strings.Contains(inner, "```") {
		return s
	}
	return strings.TrimSpace(inner)
}
