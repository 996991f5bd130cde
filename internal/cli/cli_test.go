package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/planbridge/internal/domain"
	"github.com/ashureev/planbridge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedGenerator struct{ calls int }

func (g *cannedGenerator) Name() string { return "canned" }

func (g *cannedGenerator) Generate(context.Context, string, int) (string, error) {
	g.calls++
	return "Testo generato", nil
}

// seed creates a database with one session: form 1 saved, marketing
// completed and finance stuck in generating since an hour ago.
func seed(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	past := time.Now().Add(-time.Hour)
	repo, err := store.NewSQLite(path, store.Options{Now: func() time.Time { return past }})
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	ctx := context.Background()
	id, err := repo.CreateSession(ctx, "")
	require.NoError(t, err)
	_, err = repo.SaveForm(ctx, id, 1, json.RawMessage(`{"companyType":"Azienda esistente"}`))
	require.NoError(t, err)
	token, err := repo.ClaimSection(ctx, id, domain.SectionMarketing, 0)
	require.NoError(t, err)
	require.NoError(t, repo.CompleteSection(ctx, id, domain.SectionMarketing, token, "Canali digitali.", past))
	_, err = repo.ClaimSection(ctx, id, domain.SectionFinance, 0)
	require.NoError(t, err)
	return path, id
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	path, id := seed(t)

	out, err := run(t, "--db", path, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Showing 1 session(s)")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "1/8")
	assert.Contains(t, out, "1 hour ago")
}

func TestListCommandEmpty(t *testing.T) {
	out, err := run(t, "--db", filepath.Join(t.TempDir(), "empty.db"), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")
}

func TestShowCommand(t *testing.T) {
	path, id := seed(t)

	out, err := run(t, "--db", path, "show", id, "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "11%")
	assert.Contains(t, out, "## Marketing\n\nCanali digitali.")
	assert.Contains(t, out, "- Piano Finanziario")
}

func TestShowUnknownSession(t *testing.T) {
	path, _ := seed(t)

	_, err := run(t, "--db", path, "show", "missing", "--raw")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExportCommand(t *testing.T) {
	path, id := seed(t)
	target := filepath.Join(t.TempDir(), "plan.md")

	out, err := run(t, "--db", path, "export", id, "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported plan to "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Business Plan"))
	assert.Contains(t, string(data), "Canali digitali.")
}

func TestPromptCommand(t *testing.T) {
	path, id := seed(t)

	out, err := run(t, "--db", path, "prompt", id, "growthStrategy")
	require.NoError(t, err)
	assert.Contains(t, out, "Azienda esistente")
	assert.Contains(t, out, "growthStrategy")
	assert.Contains(t, out, "fallback")
}

func TestPromptCommandUnknownSession(t *testing.T) {
	path, _ := seed(t)

	_, err := run(t, "--db", path, "prompt", "missing", "finance")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReapCommand(t *testing.T) {
	path, id := seed(t)

	out, err := run(t, "--db", path, "reap", "--lease", "10m")
	require.NoError(t, err)
	assert.Contains(t, out, "Released 1 claim(s)")

	repo, err := store.NewSQLite(path, store.Options{})
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()
	s, err := repo.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, s.Section(domain.SectionFinance).Status)
}

func TestGenerateWith(t *testing.T) {
	path, id := seed(t)
	dbPath = path
	generateAll = false
	generateCatalog = ""

	var out bytes.Buffer
	generateCmd.SetOut(&out)
	gen := &cannedGenerator{}

	require.NoError(t, generateWith(generateCmd, gen, 100, time.Minute, []string{id, "operations"}))
	assert.Contains(t, out.String(), "Testo generato")
	assert.Equal(t, 1, gen.calls)

	// Marketing is already completed; no new call is made for it.
	out.Reset()
	require.NoError(t, generateWith(generateCmd, gen, 100, time.Minute, []string{id, "marketing"}))
	assert.Contains(t, out.String(), "Canali digitali.")
	assert.Equal(t, 1, gen.calls)
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, strings.Repeat("░", 20), progressBar(0))
	assert.Equal(t, strings.Repeat("█", 10)+strings.Repeat("░", 10), progressBar(50))
	assert.Equal(t, strings.Repeat("█", 20), progressBar(150))
}
