// Package domain contains core domain types for the business plan service.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const (
	// FormCount is the number of questionnaire forms in a session.
	FormCount = 9
	// DocumentVersion is the schema version written into every session document.
	DocumentVersion = "1.0"
	// DefaultLanguage is used when a session is created without a language.
	DefaultLanguage = "italiano"
	// DefaultTone is the prompt tone stored on new sessions.
	DefaultTone = "professionale"
)

// ValidateSlot checks that slot is a form number in 1..FormCount.
func ValidateSlot(slot int) error {
	if slot < 1 || slot > FormCount {
		return fmt.Errorf("%w: form number must be between 1 and %d, got %d", ErrValidation, FormCount, slot)
	}
	return nil
}

// FormInputs holds the raw payload of each form slot. Index 0 is form 1.
// Payloads are opaque; the service only distinguishes present from null.
type FormInputs [FormCount]json.RawMessage

// Get returns the payload stored for slot, or nil.
func (f FormInputs) Get(slot int) json.RawMessage {
	if slot < 1 || slot > FormCount {
		return nil
	}
	return f[slot-1]
}

// Filled counts the slots holding a non-null payload.
func (f FormInputs) Filled() int {
	n := 0
	for _, raw := range f {
		if !IsNull(raw) {
			n++
		}
	}
	return n
}

// MarshalJSON renders the slots as {"form1": …, …, "form9": …} with null for empty slots.
func (f FormInputs) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, FormCount)
	for i, raw := range f {
		if IsNull(raw) {
			raw = json.RawMessage("null")
		}
		out[FormKey(i+1)] = raw
	}
	// Payloads are user text; keep &, < and > as typed.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON reads the {"formN": …} object produced by MarshalJSON.
func (f *FormInputs) UnmarshalJSON(data []byte) error {
	var in map[string]json.RawMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	for i := range f {
		raw := in[FormKey(i+1)]
		if IsNull(raw) {
			f[i] = nil
			continue
		}
		f[i] = raw
	}
	return nil
}

// FormKey returns the document key of a slot, e.g. "form3".
func FormKey(slot int) string {
	return fmt.Sprintf("form%d", slot)
}

// IsNull reports whether raw is empty or the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// CompletionStatus tracks which forms were saved and the resulting progress.
type CompletionStatus struct {
	FormsCompleted  []int `json:"formsCompleted"`
	OverallProgress int   `json:"overallProgress"`
}

// PromptConfig is stored prompt tuning metadata.
type PromptConfig struct {
	Tone     string `json:"tone"`
	Audience string `json:"audience"`
}

// Session is one business plan draft.
type Session struct {
	ID             string
	Version        string
	Language       string
	Inputs         FormInputs
	Completion     CompletionStatus
	Content        map[Section]SectionContent
	CurrentSection string
	PromptConfig   PromptConfig
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSession returns a fully initialized session: nine empty slots and every
// section pending.
func NewSession(id, language string, now time.Time) *Session {
	if language == "" {
		language = DefaultLanguage
	}
	content := make(map[Section]SectionContent, len(Sections))
	for _, sec := range Sections {
		content[sec] = SectionContent{Status: StatusPending}
	}
	return &Session{
		ID:           id,
		Version:      DocumentVersion,
		Language:     language,
		Completion:   CompletionStatus{FormsCompleted: []int{}},
		Content:      content,
		PromptConfig: PromptConfig{Tone: DefaultTone},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Section returns the record of sec, defaulting to pending.
func (s *Session) Section(sec Section) SectionContent {
	if c, ok := s.Content[sec]; ok {
		return c
	}
	return SectionContent{Status: StatusPending}
}

// FilledForms counts the slots with a non-null payload.
func (s *Session) FilledForms() int {
	return s.Inputs.Filled()
}

// SessionSummary is a compact listing row.
type SessionSummary struct {
	ID                string
	Language          string
	OverallProgress   int
	SectionsCompleted int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type sessionDocument struct {
	Metadata           documentMetadata           `json:"metadata"`
	UserInputs         FormInputs                 `json:"userInputs"`
	AIGeneratedContent map[Section]SectionContent `json:"aiGeneratedContent"`
	ProcessingMetadata processingMetadata         `json:"processingMetadata"`
	CreatedAt          time.Time                  `json:"createdAt"`
	UpdatedAt          time.Time                  `json:"updatedAt"`
}

type documentMetadata struct {
	Version          string           `json:"version"`
	Timestamp        time.Time        `json:"timestamp"`
	SessionID        string           `json:"sessionId"`
	Language         string           `json:"language"`
	CompletionStatus CompletionStatus `json:"completionStatus"`
}

type processingMetadata struct {
	CurrentSection string       `json:"currentSection"`
	PromptConfig   PromptConfig `json:"promptConfig"`
}

// MarshalJSON renders the session as the nested session document.
func (s Session) MarshalJSON() ([]byte, error) {
	completion := s.Completion
	if completion.FormsCompleted == nil {
		completion.FormsCompleted = []int{}
	}
	content := make(map[Section]SectionContent, len(Sections))
	for _, sec := range Sections {
		content[sec] = s.Section(sec)
	}
	return json.Marshal(sessionDocument{
		Metadata: documentMetadata{
			Version:          s.Version,
			Timestamp:        s.CreatedAt,
			SessionID:        s.ID,
			Language:         s.Language,
			CompletionStatus: completion,
		},
		UserInputs:         s.Inputs,
		AIGeneratedContent: content,
		ProcessingMetadata: processingMetadata{
			CurrentSection: s.CurrentSection,
			PromptConfig:   s.PromptConfig,
		},
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	})
}

// UnmarshalJSON reads a session document produced by MarshalJSON.
func (s *Session) UnmarshalJSON(data []byte) error {
	var doc sessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	sort.Ints(doc.Metadata.CompletionStatus.FormsCompleted)
	*s = Session{
		ID:             doc.Metadata.SessionID,
		Version:        doc.Metadata.Version,
		Language:       doc.Metadata.Language,
		Inputs:         doc.UserInputs,
		Completion:     doc.Metadata.CompletionStatus,
		Content:        doc.AIGeneratedContent,
		CurrentSection: doc.ProcessingMetadata.CurrentSection,
		PromptConfig:   doc.ProcessingMetadata.PromptConfig,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
	return nil
}
