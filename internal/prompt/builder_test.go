package prompt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/planbridge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() *domain.Session {
	s := domain.NewSession("sess-1", "", time.Now())
	s.Inputs[0] = json.RawMessage(`{"companyType":"Azienda esistente","name":"Caffè & Co"}`)
	return s
}

func defaultBuilder(t *testing.T) *Builder {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	b, err := NewBuilder(c)
	require.NoError(t, err)
	return b
}

func TestBuildEmbedsInputsUnescaped(t *testing.T) {
	b := defaultBuilder(t)

	out, err := b.Build(testSession(), "executiveSummary")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Sei un consulente aziendale esperto."))
	assert.Contains(t, out, "business plan professionale in italiano")
	assert.Contains(t, out, `"companyType": "Azienda esistente"`)
	assert.Contains(t, out, `Caffè & Co`)
	assert.Contains(t, out, `"form2": null`)
	assert.Contains(t, out, `Genera il "Riassunto Esecutivo"`)
}

func TestBuildFallbackNamesSection(t *testing.T) {
	b := defaultBuilder(t)

	for _, section := range []string{"marketing", "riskMitigation", "appendix"} {
		out, err := b.Build(testSession(), section)
		require.NoError(t, err)
		assert.Contains(t, out, `Genera la sezione "`+section+`" del business plan`)
	}
	assert.True(t, b.HasInstruction("situationAnalysis"))
	assert.False(t, b.HasInstruction("marketing"))
}

func TestBuildUsesSessionLanguage(t *testing.T) {
	b := defaultBuilder(t)
	s := testSession()
	s.Language = "english"

	out, err := b.Build(s, "finance")
	require.NoError(t, err)
	assert.Contains(t, out, "business plan professionale in english")
}

func TestLoadCatalogTOMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[sections]
marketing = '''Write the marketing plan for a {{{tone}}} audience.'''
`), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	b, err := NewBuilder(c)
	require.NoError(t, err)

	out, err := b.Build(testSession(), "marketing")
	require.NoError(t, err)
	assert.Contains(t, out, "Write the marketing plan for a professionale audience.")
	// The default preamble and other sections survive the merge.
	assert.Contains(t, out, "Ecco i dati inseriti dall'utente")
	assert.True(t, b.HasInstruction("executiveSummary"))
}

func TestLoadCatalogYAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
fallback: "Write section {{{section_title}}}."
preamble: "Data:\n{{{inputs}}}\n"
`), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	b, err := NewBuilder(c)
	require.NoError(t, err)

	out, err := b.Build(testSession(), "growthStrategy")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Data:\n{"))
	assert.True(t, strings.HasSuffix(out, "Write section Strategia di Crescita."))
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestNewBuilderRejectsBrokenTemplate(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	c.Sections["finance"] = "{{#open}} never closed"

	_, err = NewBuilder(c)
	assert.Error(t, err)
}
