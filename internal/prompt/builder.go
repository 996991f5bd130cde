// Package prompt builds the text sent to the generator for one plan section.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashureev/planbridge/internal/domain"
	"github.com/cbroglie/mustache"
)

// Builder renders section prompts from a Catalog.
type Builder struct {
	preamble *mustache.Template
	fallback *mustache.Template
	sections map[string]*mustache.Template
}

// NewBuilder parses every template in c so bad templates fail at startup.
func NewBuilder(c *Catalog) (*Builder, error) {
	if c == nil {
		return nil, fmt.Errorf("prompt catalog is nil")
	}
	preamble, err := mustache.ParseString(c.Preamble)
	if err != nil {
		return nil, fmt.Errorf("parse preamble template: %w", err)
	}
	fallback, err := mustache.ParseString(c.Fallback)
	if err != nil {
		return nil, fmt.Errorf("parse fallback template: %w", err)
	}

	b := &Builder{
		preamble: preamble,
		fallback: fallback,
		sections: make(map[string]*mustache.Template, len(c.Sections)),
	}
	for name, text := range c.Sections {
		if strings.TrimSpace(text) == "" {
			continue
		}
		tmpl, err := mustache.ParseString(text)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		b.sections[name] = tmpl
	}
	return b, nil
}

// HasInstruction reports whether section has a dedicated instruction block.
func (b *Builder) HasInstruction(section string) bool {
	_, ok := b.sections[section]
	return ok
}

// Build renders the preamble with the full input snapshot followed by the
// instruction block for section. Unknown sections use the fallback.
func (b *Builder) Build(s *domain.Session, section string) (string, error) {
	var inputs bytes.Buffer
	enc := json.NewEncoder(&inputs)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.Inputs); err != nil {
		return "", fmt.Errorf("encode user inputs: %w", err)
	}

	data := map[string]any{
		"language":      s.Language,
		"tone":          s.PromptConfig.Tone,
		"audience":      s.PromptConfig.Audience,
		"section":       section,
		"section_title": domain.Section(section).Title(),
		"inputs":        strings.TrimRight(inputs.String(), "\n"),
	}

	head, err := b.preamble.Render(data)
	if err != nil {
		return "", fmt.Errorf("render preamble: %w", err)
	}

	tmpl, ok := b.sections[section]
	if !ok {
		tmpl = b.fallback
	}
	body, err := tmpl.Render(data)
	if err != nil {
		return "", fmt.Errorf("render %s instruction: %w", section, err)
	}

	return head + body, nil
}
