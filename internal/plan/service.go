// Package plan orchestrates business plan section generation: it loads the
// session, guards on available input, claims the section, calls the
// generator once and commits the result.
package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/planbridge/internal/domain"
	"github.com/ashureev/planbridge/internal/generator"
	"github.com/ashureev/planbridge/internal/prompt"
	"github.com/ashureev/planbridge/internal/store"
	"golang.org/x/sync/singleflight"
)

// DefaultClaimLease is how long a generation claim blocks other callers.
const DefaultClaimLease = 10 * time.Minute

// Options configures a Service.
type Options struct {
	// MaxTokens is passed to every generator call.
	MaxTokens int
	// ClaimLease is the age after which a generating claim may be taken over.
	ClaimLease time.Duration
	// Now overrides the clock used for lastUpdated. Defaults to time.Now.
	Now func() time.Time
}

// Service generates plan sections for stored sessions.
type Service struct {
	repo    store.Repository
	gen     generator.Generator
	prompts *prompt.Builder
	opts    Options
	group   singleflight.Group
}

// FullPlanResult reports what a full-plan run did.
type FullPlanResult struct {
	SessionID string           `json:"sessionId"`
	Generated []domain.Section `json:"generated"`
	Skipped   []domain.Section `json:"skipped"`
	// Failed is the section that aborted the run, if any.
	Failed domain.Section `json:"failed,omitempty"`
}

// NewService wires a Service. The generator configuration is fixed for the
// lifetime of the process.
func NewService(repo store.Repository, gen generator.Generator, prompts *prompt.Builder, opts Options) *Service {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = generator.DefaultMaxTokens
	}
	if opts.ClaimLease <= 0 {
		opts.ClaimLease = DefaultClaimLease
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:    repo,
		gen:     gen,
		prompts: prompts,
		opts:    opts,
	}
}

// GenerateSection returns the content of one section, generating it if needed.
//
// A completed section is returned as stored, without calling the generator.
// Names outside the eight plan sections are generated with the fallback
// instruction and returned without being persisted.
//
// Once dispatched, a generation runs to completion or failure: canceling ctx
// does not abort it, and callers coalesced onto the same flight are not
// affected by the first caller going away. The generator's own timeout
// bounds the call.
func (s *Service) GenerateSection(ctx context.Context, sessionID, section string) (string, error) {
	detached := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(sessionID+"/"+section, func() (any, error) {
		return s.generateSection(detached, sessionID, section)
	})
	if shared {
		slog.Debug("Section generation coalesced", "session_id", sessionID, "section", section)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Service) generateSection(ctx context.Context, sessionID, section string) (string, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	if session.FilledForms() == 0 {
		return "", domain.ErrInsufficientData
	}

	sec, known := domain.ParseSection(section)
	if known {
		if stored := session.Section(sec); stored.IsCompleted() {
			return stored.Content, nil
		}
	}

	text, err := s.prompts.Build(session, section)
	if err != nil {
		return "", err
	}

	if !known {
		slog.Info("Generating section outside the plan", "session_id", sessionID, "section", section)
		return s.call(ctx, sessionID, section, text)
	}

	content, _, err := s.generateKnown(ctx, sessionID, sec, text)
	return content, err
}

// generateKnown runs the claim, generate, commit cycle for one plan section.
// The bool reports whether new content was generated; it is false when the
// section turned out to be completed already.
func (s *Service) generateKnown(ctx context.Context, sessionID string, sec domain.Section, promptText string) (string, bool, error) {
	token, err := s.repo.ClaimSection(ctx, sessionID, sec, s.opts.ClaimLease)
	if err != nil {
		if errors.Is(err, domain.ErrSectionCompleted) {
			content, err := s.storedContent(ctx, sessionID, sec)
			return content, false, err
		}
		return "", false, err
	}

	text, err := s.call(ctx, sessionID, string(sec), promptText)
	if err != nil {
		s.release(ctx, sessionID, sec, token)
		return "", false, err
	}

	if err := s.repo.CompleteSection(ctx, sessionID, sec, token, text, s.opts.Now().UTC()); err != nil {
		if errors.Is(err, domain.ErrSectionCompleted) {
			// Our claim expired and another holder committed first.
			content, err := s.storedContent(ctx, sessionID, sec)
			return content, false, err
		}
		if errors.Is(err, domain.ErrSectionBusy) {
			// Our claim expired and another holder is generating now.
			slog.Warn("Generation claim was taken over",
				"session_id", sessionID,
				"section", sec)
			return "", false, err
		}
		s.release(ctx, sessionID, sec, token)
		slog.Error("Generated content could not be stored",
			"session_id", sessionID,
			"section", sec,
			"error", err)
		if !errors.Is(err, domain.ErrStorage) {
			err = fmt.Errorf("%w: %w", domain.ErrStorage, err)
		}
		return "", false, err
	}

	return text, true, nil
}

func (s *Service) call(ctx context.Context, sessionID, section, promptText string) (string, error) {
	start := time.Now()
	text, err := s.gen.Generate(ctx, promptText, s.opts.MaxTokens)
	if err != nil {
		slog.Warn("Section generation failed",
			"session_id", sessionID,
			"section", section,
			"generator", s.gen.Name(),
			"duration", time.Since(start),
			"error", err)
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	slog.Info("Section generated",
		"session_id", sessionID,
		"section", section,
		"generator", s.gen.Name(),
		"duration", time.Since(start),
		"chars", len(text))
	return text, nil
}

// release frees a claim even when ctx is already canceled.
func (s *Service) release(ctx context.Context, sessionID string, sec domain.Section, token store.ClaimToken) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repo.ReleaseSection(ctx, sessionID, sec, token); err != nil {
		slog.Warn("Failed to release generation claim",
			"session_id", sessionID,
			"section", sec,
			"error", err)
	}
}

func (s *Service) storedContent(ctx context.Context, sessionID string, sec domain.Section) (string, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return session.Section(sec).Content, nil
}

// GenerateFullPlan generates every pending section in plan order, one at a
// time, committing each before starting the next. Completed sections are
// skipped. The first failure aborts the run; sections committed before it
// stay committed. Like GenerateSection, the run is not canceled with ctx.
func (s *Service) GenerateFullPlan(ctx context.Context, sessionID string) (FullPlanResult, error) {
	ctx = context.WithoutCancel(ctx)
	result := FullPlanResult{
		SessionID: sessionID,
		Generated: []domain.Section{},
		Skipped:   []domain.Section{},
	}

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return result, err
	}

	start := time.Now()
	for _, sec := range domain.Sections {
		if session.Section(sec).IsCompleted() {
			result.Skipped = append(result.Skipped, sec)
			continue
		}

		text, err := s.prompts.Build(session, string(sec))
		if err != nil {
			result.Failed = sec
			return result, err
		}

		_, generated, err := s.generateKnown(ctx, sessionID, sec, text)
		if err != nil {
			result.Failed = sec
			slog.Error("Full plan generation aborted",
				"session_id", sessionID,
				"section", sec,
				"generated", result.Generated,
				"error", err)
			return result, fmt.Errorf("section %s: %w", sec, err)
		}
		if generated {
			result.Generated = append(result.Generated, sec)
		} else {
			result.Skipped = append(result.Skipped, sec)
		}
	}

	slog.Info("Full plan generated",
		"session_id", sessionID,
		"generated", len(result.Generated),
		"skipped", len(result.Skipped),
		"duration", time.Since(start))
	return result, nil
}

// PreviewPrompt renders the prompt that GenerateSection would send, without
// claiming or calling the generator.
func (s *Service) PreviewPrompt(ctx context.Context, sessionID, section string) (string, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return s.prompts.Build(session, section)
}
