package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/planbridge/internal/domain"
	"github.com/ashureev/planbridge/internal/progress"
	"github.com/ashureev/planbridge/internal/shared"
	"github.com/ashureev/planbridge/internal/store/migrations"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Options tunes a SQLiteStore.
type Options struct {
	// DefaultLanguage is stored when CreateSession receives an empty language.
	DefaultLanguage string
	// Retry controls how write paths back off on SQLITE_BUSY.
	Retry shared.RetryPolicy
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db              *sql.DB
	defaultLanguage string
	retry           shared.RetryPolicy
	now             func() time.Time
}

var _ Repository = (*SQLiteStore)(nil)

// NewSQLite opens (or creates) the database at dbPath and applies migrations.
func NewSQLite(dbPath string, opts Options) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL for concurrent readers; busy_timeout lets writers wait for the lock.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = domain.DefaultLanguage
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = shared.DefaultRetryPolicy
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &SQLiteStore{
		db:              db,
		defaultLanguage: opts.DefaultLanguage,
		retry:           opts.Retry,
		now:             opts.Now,
	}, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// CreateSession stores a new session with nine empty form slots and eight pending sections.
func (s *SQLiteStore) CreateSession(ctx context.Context, language string) (string, error) {
	if language == "" {
		language = s.defaultLanguage
	}
	session := domain.NewSession(uuid.NewString(), language, s.now().UTC())

	err := shared.RetryOnConflict(ctx, s.retry, "create session", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		created := toMillis(session.CreatedAt)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (session_id, version, language, overall_progress, current_section,
			                      prompt_tone, prompt_audience, created_at, updated_at)
			VALUES (?, ?, ?, 0, '', ?, ?, ?, ?)`,
			session.ID, session.Version, session.Language,
			session.PromptConfig.Tone, session.PromptConfig.Audience, created, created,
		); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		for slot := 1; slot <= domain.FormCount; slot++ {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO form_inputs (session_id, slot, data_json, completed) VALUES (?, ?, NULL, 0)`,
				session.ID, slot,
			); err != nil {
				return fmt.Errorf("insert form slot %d: %w", slot, err)
			}
		}

		for _, sec := range domain.Sections {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sections (session_id, name, status) VALUES (?, ?, ?)`,
				session.ID, string(sec), string(domain.StatusPending),
			); err != nil {
				return fmt.Errorf("insert section %s: %w", sec, err)
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return "", storageErr("create session", err)
	}

	return session.ID, nil
}

// GetSession loads the full session document.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin read", err)
	}
	defer func() { _ = tx.Rollback() }()

	session := &domain.Session{
		ID:         sessionID,
		Content:    make(map[domain.Section]domain.SectionContent, len(domain.Sections)),
		Completion: domain.CompletionStatus{FormsCompleted: []int{}},
	}

	var createdAt, updatedAt int64
	err = tx.QueryRowContext(ctx, `
		SELECT version, language, overall_progress, current_section,
		       prompt_tone, prompt_audience, created_at, updated_at
		FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(
		&session.Version, &session.Language, &session.Completion.OverallProgress,
		&session.CurrentSection, &session.PromptConfig.Tone, &session.PromptConfig.Audience,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, storageErr("scan session", err)
	}
	session.CreatedAt = fromMillis(createdAt)
	session.UpdatedAt = fromMillis(updatedAt)

	if err := loadForms(ctx, tx, session); err != nil {
		return nil, storageErr("load forms", err)
	}
	if err := loadSections(ctx, tx, session); err != nil {
		return nil, storageErr("load sections", err)
	}

	return session, nil
}

func loadForms(ctx context.Context, tx *sql.Tx, session *domain.Session) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT slot, data_json, completed FROM form_inputs WHERE session_id = ? ORDER BY slot`, session.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var slot int
		var data sql.NullString
		var completed bool
		if err := rows.Scan(&slot, &data, &completed); err != nil {
			return err
		}
		if slot < 1 || slot > domain.FormCount {
			continue
		}
		if data.Valid {
			session.Inputs[slot-1] = json.RawMessage(data.String)
		}
		if completed {
			session.Completion.FormsCompleted = append(session.Completion.FormsCompleted, slot)
		}
	}
	return rows.Err()
}

func loadSections(ctx context.Context, tx *sql.Tx, session *domain.Session) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT name, status, content, last_updated FROM sections WHERE session_id = ?`, session.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var name, status string
		var content sql.NullString
		var lastUpdated sql.NullInt64
		if err := rows.Scan(&name, &status, &content, &lastUpdated); err != nil {
			return err
		}
		sec, ok := domain.ParseSection(name)
		if !ok {
			continue
		}
		record := domain.SectionContent{Status: domain.SectionStatus(status)}
		if record.IsCompleted() {
			record.Content = content.String
			if lastUpdated.Valid {
				ts := fromMillis(lastUpdated.Int64)
				record.LastUpdated = &ts
			}
		}
		session.Content[sec] = record
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, sec := range domain.Sections {
		if _, ok := session.Content[sec]; !ok {
			session.Content[sec] = domain.SectionContent{Status: domain.StatusPending}
		}
	}
	return nil
}

// ListSessions returns session summaries, most recently updated first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]domain.SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.session_id, s.language, s.overall_progress, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM sections x WHERE x.session_id = s.session_id AND x.status = 'completed')
		FROM sessions s
		ORDER BY s.updated_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr("list sessions", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close session rows", "error", closeErr)
		}
	}()

	var out []domain.SessionSummary
	for rows.Next() {
		var sum domain.SessionSummary
		var createdAt, updatedAt int64
		if err := rows.Scan(&sum.ID, &sum.Language, &sum.OverallProgress,
			&createdAt, &updatedAt, &sum.SectionsCompleted); err != nil {
			return nil, storageErr("scan session summary", err)
		}
		sum.CreatedAt = fromMillis(createdAt)
		sum.UpdatedAt = fromMillis(updatedAt)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate sessions", err)
	}
	return out, nil
}

// SaveForm replaces slot's payload and recomputes progress atomically.
func (s *SQLiteStore) SaveForm(ctx context.Context, sessionID string, slot int, data json.RawMessage) (domain.CompletionStatus, error) {
	if err := domain.ValidateSlot(slot); err != nil {
		return domain.CompletionStatus{}, err
	}

	var payload any
	if !domain.IsNull(data) {
		payload = string(data)
	}

	var status domain.CompletionStatus
	err := shared.RetryOnConflict(ctx, s.retry, "save form", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		now := toMillis(s.now())
		res, err := tx.ExecContext(ctx,
			`UPDATE form_inputs SET data_json = ?, completed = 1, updated_at = ? WHERE session_id = ? AND slot = ?`,
			payload, now, sessionID, slot)
		if err != nil {
			return fmt.Errorf("update form slot: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, sessionID)
		}

		completed, err := completedSlots(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		pct := progress.Percent(len(completed), progress.TotalForms)

		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET overall_progress = ?, updated_at = ? WHERE session_id = ?`,
			pct, now, sessionID); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		status = domain.CompletionStatus{FormsCompleted: completed, OverallProgress: pct}
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return domain.CompletionStatus{}, err
	}
	if err != nil {
		return domain.CompletionStatus{}, storageErr("save form", err)
	}
	return status, nil
}

func completedSlots(ctx context.Context, tx *sql.Tx, sessionID string) ([]int, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT slot FROM form_inputs WHERE session_id = ? AND completed = 1 ORDER BY slot`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query completed slots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	slots := []int{}
	for rows.Next() {
		var slot int
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// ClaimSection takes the generation claim for a section with a conditional update.
func (s *SQLiteStore) ClaimSection(ctx context.Context, sessionID string, section domain.Section, lease time.Duration) (ClaimToken, error) {
	now := s.now()
	// With no lease, a generating claim is never taken over.
	staleBefore := int64(-1)
	if lease > 0 {
		staleBefore = toMillis(now.Add(-lease))
	}

	token := ClaimToken(toMillis(now))
	var claimed bool
	err := shared.RetryOnConflict(ctx, s.retry, "claim section", func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE sections SET status = 'generating', claimed_at = ?
			WHERE session_id = ? AND name = ?
			  AND (status = 'pending' OR (status = 'generating' AND claimed_at < ?))`,
			int64(token), sessionID, string(section), staleBefore)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		claimed = n == 1
		return nil
	})
	if err != nil {
		return 0, storageErr("claim section", err)
	}
	if claimed {
		return token, nil
	}

	status, err := s.sectionStatus(ctx, sessionID, section)
	if err != nil {
		return 0, err
	}
	if status == domain.StatusCompleted {
		return 0, domain.ErrSectionCompleted
	}
	return 0, fmt.Errorf("%w: %s", domain.ErrSectionBusy, section)
}

func (s *SQLiteStore) sectionStatus(ctx context.Context, sessionID string, section domain.Section) (domain.SectionStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM sections WHERE session_id = ? AND name = ?`, sessionID, string(section),
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", domain.ErrNotFound, sessionID)
	}
	if err != nil {
		return "", storageErr("read section status", err)
	}
	return domain.SectionStatus(status), nil
}

// CompleteSection writes generated content unless the section is already
// completed or claimed under another token.
func (s *SQLiteStore) CompleteSection(ctx context.Context, sessionID string, section domain.Section, token ClaimToken, content string, at time.Time) error {
	var written bool
	err := shared.RetryOnConflict(ctx, s.retry, "complete section", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		ts := toMillis(at)
		res, err := tx.ExecContext(ctx, `
			UPDATE sections SET status = 'completed', content = ?, last_updated = ?, claimed_at = NULL
			WHERE session_id = ? AND name = ? AND status <> 'completed'
			  AND (claimed_at IS NULL OR claimed_at = ?)`,
			content, ts, sessionID, string(section), int64(token))
		if err != nil {
			return fmt.Errorf("update section: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if n == 0 {
			written = false
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET current_section = ?, updated_at = ? WHERE session_id = ?`,
			string(section), ts, sessionID); err != nil {
			return fmt.Errorf("update current section: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		written = true
		return nil
	})
	if err != nil {
		return storageErr("complete section", err)
	}
	if written {
		return nil
	}

	status, err := s.sectionStatus(ctx, sessionID, section)
	if err != nil {
		return err
	}
	if status == domain.StatusCompleted {
		return domain.ErrSectionCompleted
	}
	return fmt.Errorf("%w: %s claimed by another generation", domain.ErrSectionBusy, section)
}

// ReleaseSection drops a generating claim so the section can be retried.
func (s *SQLiteStore) ReleaseSection(ctx context.Context, sessionID string, section domain.Section, token ClaimToken) error {
	err := shared.RetryOnConflict(ctx, s.retry, "release section", func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE sections SET status = 'pending', claimed_at = NULL
			WHERE session_id = ? AND name = ? AND status = 'generating' AND claimed_at = ?`,
			sessionID, string(section), int64(token))
		return err
	})
	if err != nil {
		return storageErr("release section", err)
	}
	return nil
}

// ReleaseStaleClaims frees claims older than olderThan and returns how many were released.
func (s *SQLiteStore) ReleaseStaleClaims(ctx context.Context, olderThan time.Duration) (int64, error) {
	threshold := toMillis(s.now().Add(-olderThan))

	var released int64
	err := shared.RetryOnConflict(ctx, s.retry, "release stale claims", func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE sections SET status = 'pending', claimed_at = NULL
			WHERE status = 'generating' AND claimed_at < ?`, threshold)
		if err != nil {
			return err
		}
		released, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, storageErr("release stale claims", err)
	}
	return released, nil
}
