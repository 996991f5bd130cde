// Package progress computes questionnaire and generation progress from a session.
package progress

import "github.com/ashureev/planbridge/internal/domain"

// TotalForms is the number of forms counted towards overall progress.
const TotalForms = domain.FormCount

// Percent returns floor(completed / total * 100), clamped to [0, 100].
func Percent(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return completed * 100 / total
}

// Report summarizes what a session has done and what remains.
type Report struct {
	OverallProgress   int              `json:"overallProgress"`
	FormsCompleted    []int            `json:"formsCompleted"`
	FormsRemaining    []int            `json:"formsRemaining"`
	SectionsCompleted []domain.Section `json:"sectionsCompleted"`
	SectionsPending   []domain.Section `json:"sectionsPending"`
}

// Of builds the report for s. OverallProgress is the persisted value.
func Of(s *domain.Session) Report {
	r := Report{
		OverallProgress:   s.Completion.OverallProgress,
		FormsCompleted:    []int{},
		FormsRemaining:    []int{},
		SectionsCompleted: []domain.Section{},
		SectionsPending:   []domain.Section{},
	}

	done := make(map[int]bool, len(s.Completion.FormsCompleted))
	for _, slot := range s.Completion.FormsCompleted {
		done[slot] = true
	}
	for slot := 1; slot <= TotalForms; slot++ {
		if done[slot] {
			r.FormsCompleted = append(r.FormsCompleted, slot)
		} else {
			r.FormsRemaining = append(r.FormsRemaining, slot)
		}
	}

	for _, sec := range domain.Sections {
		if s.Section(sec).IsCompleted() {
			r.SectionsCompleted = append(r.SectionsCompleted, sec)
		} else {
			r.SectionsPending = append(r.SectionsPending, sec)
		}
	}
	return r
}
