package domain

import "time"

// Section names one generated part of the business plan.
type Section string

const (
	SectionExecutiveSummary  Section = "executiveSummary"
	SectionSituationAnalysis Section = "situationAnalysis"
	SectionMarketing         Section = "marketing"
	SectionOperations        Section = "operations"
	SectionManagement        Section = "management"
	SectionGrowthStrategy    Section = "growthStrategy"
	SectionFinance           Section = "finance"
	SectionRiskMitigation    Section = "riskMitigation"
)

// Sections lists every stored section in plan order.
var Sections = []Section{
	SectionExecutiveSummary,
	SectionSituationAnalysis,
	SectionMarketing,
	SectionOperations,
	SectionManagement,
	SectionGrowthStrategy,
	SectionFinance,
	SectionRiskMitigation,
}

var sectionTitles = map[Section]string{
	SectionExecutiveSummary:  "Riassunto Esecutivo",
	SectionSituationAnalysis: "Analisi della Situazione",
	SectionMarketing:         "Marketing",
	SectionOperations:        "Operazioni",
	SectionManagement:        "Management",
	SectionGrowthStrategy:    "Strategia di Crescita",
	SectionFinance:           "Piano Finanziario",
	SectionRiskMitigation:    "Mitigazione dei Rischi",
}

// ParseSection reports whether name is one of the stored sections.
func ParseSection(name string) (Section, bool) {
	for _, s := range Sections {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// Title returns the human-readable heading of the section.
func (s Section) Title() string {
	if t, ok := sectionTitles[s]; ok {
		return t
	}
	return string(s)
}

// SectionStatus is the generation state of a section.
type SectionStatus string

const (
	StatusPending    SectionStatus = "pending"
	StatusGenerating SectionStatus = "generating"
	StatusCompleted  SectionStatus = "completed"
)

// SectionContent is the stored record of one generated section.
// Content and LastUpdated are set only when Status is StatusCompleted.
type SectionContent struct {
	Status      SectionStatus `json:"status"`
	Content     string        `json:"content,omitempty"`
	LastUpdated *time.Time    `json:"lastUpdated,omitempty"`
}

// IsCompleted reports whether the section already holds generated content.
func (c SectionContent) IsCompleted() bool {
	return c.Status == StatusCompleted
}
