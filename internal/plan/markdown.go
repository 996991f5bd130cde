package plan

import (
	"fmt"
	"strings"

	"github.com/ashureev/planbridge/internal/domain"
)

// RenderMarkdown renders the completed sections of s, in plan order, as a
// single markdown document. Pending sections are listed at the end.
func RenderMarkdown(s *domain.Session) string {
	var b strings.Builder
	b.WriteString("# Business Plan\n\n")
	fmt.Fprintf(&b, "_Sessione `%s` · %s · moduli completati %d%%_\n", s.ID, s.Language, s.Completion.OverallProgress)

	var pending []string
	for _, sec := range domain.Sections {
		c := s.Section(sec)
		if !c.IsCompleted() {
			pending = append(pending, sec.Title())
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", sec.Title(), strings.TrimSpace(c.Content))
	}

	if len(pending) > 0 {
		b.WriteString("\n---\n\n")
		b.WriteString("Sezioni da generare:\n\n")
		for _, title := range pending {
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}
	return b.String()
}
