// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ashureev/planbridge/internal/domain"
)

// ClaimToken identifies one generation claim on a section. It is the claim's
// timestamp in milliseconds, so a takeover always yields a new token.
type ClaimToken int64

// Repository defines the interface for persisting business plan sessions.
type Repository interface {
	// CreateSession stores a new, fully initialized session and returns its ID.
	// An empty language selects the store's default language.
	CreateSession(ctx context.Context, language string) (string, error)

	// GetSession loads a session. Returns domain.ErrNotFound if it does not exist.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// ListSessions returns up to limit sessions, most recently updated first.
	ListSessions(ctx context.Context, limit int) ([]domain.SessionSummary, error)

	// SaveForm replaces the payload of one form slot, marks it completed and
	// recomputes overall progress in a single transaction.
	SaveForm(ctx context.Context, sessionID string, slot int, data json.RawMessage) (domain.CompletionStatus, error)

	// ClaimSection moves a section from pending to generating and returns the
	// claim's token. A generating claim older than lease may be taken over.
	// Returns domain.ErrSectionCompleted or domain.ErrSectionBusy when the claim
	// cannot be taken.
	ClaimSection(ctx context.Context, sessionID string, section domain.Section, lease time.Duration) (ClaimToken, error)

	// CompleteSection stores generated content, marks the section completed and
	// records it as the session's current section. It writes only while token
	// still holds the claim or the claim was dropped; a section claimed by
	// someone else returns domain.ErrSectionBusy. Completed sections are never
	// overwritten; that case returns domain.ErrSectionCompleted.
	CompleteSection(ctx context.Context, sessionID string, section domain.Section, token ClaimToken, content string, at time.Time) error

	// ReleaseSection returns a generating section to pending if token still
	// holds the claim. Releasing a claim that was taken over is a no-op.
	ReleaseSection(ctx context.Context, sessionID string, section domain.Section, token ClaimToken) error

	// ReleaseStaleClaims returns to pending every claim taken before now-olderThan.
	ReleaseStaleClaims(ctx context.Context, olderThan time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
