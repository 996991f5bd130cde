package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionIsFullyInitialized(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewSession("abc", "", now)

	assert.Equal(t, DefaultLanguage, s.Language)
	assert.Equal(t, DocumentVersion, s.Version)
	assert.Equal(t, DefaultTone, s.PromptConfig.Tone)
	assert.Equal(t, 0, s.FilledForms())
	require.Len(t, s.Content, len(Sections))
	for _, sec := range Sections {
		c := s.Section(sec)
		assert.Equal(t, StatusPending, c.Status, sec)
		assert.Empty(t, c.Content)
		assert.Nil(t, c.LastUpdated)
	}
}

func TestValidateSlot(t *testing.T) {
	for slot := 1; slot <= FormCount; slot++ {
		assert.NoError(t, ValidateSlot(slot))
	}
	for _, slot := range []int{-1, 0, 10, 99} {
		err := ValidateSlot(slot)
		assert.True(t, errors.Is(err, ErrValidation), "slot %d", slot)
	}
}

func TestFormInputsFilledIgnoresNull(t *testing.T) {
	var in FormInputs
	in[0] = json.RawMessage(`{"companyType":"Azienda esistente"}`)
	in[3] = json.RawMessage(` null `)
	in[5] = json.RawMessage(`[]`)

	assert.Equal(t, 2, in.Filled())
	assert.Nil(t, in.Get(0))
	assert.JSONEq(t, `{"companyType":"Azienda esistente"}`, string(in.Get(1)))
}

func TestSessionDocumentShape(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewSession("abc", "english", now)
	s.Inputs[0] = json.RawMessage(`{"name":"Acme"}`)
	s.Completion = CompletionStatus{FormsCompleted: []int{1}, OverallProgress: 11}
	s.Content[SectionMarketing] = SectionContent{Status: StatusCompleted, Content: "TEXT", LastUpdated: &now}
	s.CurrentSection = string(SectionMarketing)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	meta := doc["metadata"].(map[string]any)
	assert.Equal(t, "abc", meta["sessionId"])
	assert.Equal(t, "english", meta["language"])
	status := meta["completionStatus"].(map[string]any)
	assert.EqualValues(t, 11, status["overallProgress"])

	inputs := doc["userInputs"].(map[string]any)
	assert.Len(t, inputs, FormCount)
	assert.Nil(t, inputs["form2"])
	assert.Equal(t, "Acme", inputs["form1"].(map[string]any)["name"])

	content := doc["aiGeneratedContent"].(map[string]any)
	assert.Len(t, content, len(Sections))
	assert.Equal(t, map[string]any{"status": "pending"}, content["finance"])
	assert.Equal(t, "TEXT", content["marketing"].(map[string]any)["content"])

	var back Session
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s.ID, back.ID)
	assert.Equal(t, "TEXT", back.Section(SectionMarketing).Content)
	assert.Equal(t, []int{1}, back.Completion.FormsCompleted)
	assert.Nil(t, back.Inputs.Get(2))
}

func TestParseSection(t *testing.T) {
	sec, ok := ParseSection("growthStrategy")
	assert.True(t, ok)
	assert.Equal(t, SectionGrowthStrategy, sec)

	_, ok = ParseSection("appendix")
	assert.False(t, ok)
	assert.Equal(t, "appendix", Section("appendix").Title())
}
