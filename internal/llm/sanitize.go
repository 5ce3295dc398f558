package llm

import "strings"

// StripThinkingTags removes closed <think>...</think> blocks that reasoning
// models prepend to their answer. An unterminated block is left in place,
// since a truncated reply may still carry the answer inside it.
func StripThinkingTags(s string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			break
		}
		b.WriteString(s[:start])
		s = s[start+end+len("</think>"):]
	}
	b.WriteString(s)
	return strings.TrimSpace(b.String())
}
