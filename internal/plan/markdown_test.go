package plan

import (
	"strings"
	"testing"
	"time"

	"github.com/ashureev/planbridge/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	now := time.Date(2026, 6, 10, 14, 0, 0, 0, time.UTC)
	s := domain.NewSession("sess-1", "", now)
	s.Completion.OverallProgress = 22
	s.Content[domain.SectionFinance] = domain.SectionContent{Status: domain.StatusCompleted, Content: "Ricavi in crescita.\n", LastUpdated: &now}
	s.Content[domain.SectionExecutiveSummary] = domain.SectionContent{Status: domain.StatusCompleted, Content: "Sintesi.", LastUpdated: &now}

	md := RenderMarkdown(s)

	assert.True(t, strings.HasPrefix(md, "# Business Plan\n"))
	assert.Contains(t, md, "`sess-1` · italiano · moduli completati 22%")
	summary := strings.Index(md, "## Riassunto Esecutivo\n\nSintesi.")
	finance := strings.Index(md, "## Piano Finanziario\n\nRicavi in crescita.")
	assert.Greater(t, summary, 0)
	assert.Greater(t, finance, summary)
	assert.Contains(t, md, "- Marketing\n")
	assert.NotContains(t, md, "## Marketing")
}

func TestRenderMarkdownComplete(t *testing.T) {
	now := time.Now()
	s := domain.NewSession("sess-2", "english", now)
	for _, sec := range domain.Sections {
		s.Content[sec] = domain.SectionContent{Status: domain.StatusCompleted, Content: string(sec), LastUpdated: &now}
	}

	md := RenderMarkdown(s)
	assert.NotContains(t, md, "Sezioni da generare")
	assert.Equal(t, len(domain.Sections), strings.Count(md, "\n## "))
}
