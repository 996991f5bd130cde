package progress

import (
	"testing"
	"time"

	"github.com/ashureev/planbridge/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 9, 0},
		{1, 9, 11},
		{2, 9, 22},
		{3, 9, 33},
		{5, 9, 55},
		{8, 9, 88},
		{9, 9, 100},
		{12, 9, 100},
		{1, 0, 0},
		{-1, 9, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.completed, tt.total), "%d/%d", tt.completed, tt.total)
	}
}

func TestOf(t *testing.T) {
	s := domain.NewSession("id", "", time.Now())
	s.Completion = domain.CompletionStatus{FormsCompleted: []int{2, 9}, OverallProgress: 22}
	s.Content[domain.SectionFinance] = domain.SectionContent{Status: domain.StatusCompleted, Content: "x"}
	s.Content[domain.SectionMarketing] = domain.SectionContent{Status: domain.StatusGenerating}

	r := Of(s)
	assert.Equal(t, 22, r.OverallProgress)
	assert.Equal(t, []int{2, 9}, r.FormsCompleted)
	assert.Equal(t, []int{1, 3, 4, 5, 6, 7, 8}, r.FormsRemaining)
	assert.Equal(t, []domain.Section{domain.SectionFinance}, r.SectionsCompleted)
	assert.Len(t, r.SectionsPending, len(domain.Sections)-1)
	assert.Contains(t, r.SectionsPending, domain.SectionMarketing)
}
