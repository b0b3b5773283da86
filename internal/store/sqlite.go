package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/companion/internal/model"
)

// Timestamps are stored as fixed-width UTC text so they sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000Z"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:  db,
		now: time.Now,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), ulid.DefaultEntropy()).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id                 TEXT PRIMARY KEY,
		user_id            TEXT NOT NULL,
		category           TEXT NOT NULL,
		content            TEXT NOT NULL,
		importance         INTEGER NOT NULL,
		extracted_from     TEXT,
		created_at         TEXT NOT NULL,
		last_referenced_at TEXT,
		reference_count    INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_user_category ON memories(user_id, category);
	CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(user_id, importance DESC);

	CREATE TABLE IF NOT EXISTS moods (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		mood          TEXT NOT NULL,
		intensity     INTEGER NOT NULL,
		detected_from TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL,
		notes         TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_moods_user ON moods(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS personas (
		id                  TEXT PRIMARY KEY,
		user_id             TEXT NOT NULL,
		version             INTEGER NOT NULL DEFAULT 1,
		supersedes          TEXT,
		name                TEXT NOT NULL,
		traits              TEXT NOT NULL,
		interests           TEXT NOT NULL DEFAULT '[]',
		custom_traits       TEXT NOT NULL DEFAULT '[]',
		voice_style         TEXT NOT NULL,
		avatar              TEXT,
		relationship_status TEXT NOT NULL DEFAULT '',
		relationship_start  TEXT NOT NULL,
		created_at          TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_personas_user_version ON personas(user_id, version);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateMemory validates the category, clamps importance and inserts one memory.
func (s *SQLiteStore) CreateMemory(ctx context.Context, p CreateMemoryParams) (*model.Memory, error) {
	if !model.ValidCategories[p.Category] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, p.Category)
	}
	m := s.newMemory(p.UserID, p.Category, p.Content, p.Importance, p.ExtractedFrom, s.now())
	if err := insertMemory(ctx, s.db, m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ExtractFromMessage stores every candidate for one message in a single
// transaction. All share the message id and creation time.
func (s *SQLiteStore) ExtractFromMessage(ctx context.Context, p ExtractParams) ([]model.Memory, error) {
	for _, c := range p.Candidates {
		if !model.ValidCategories[c.Category] {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, c.Category)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := s.now()
	created := make([]model.Memory, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		m := s.newMemory(p.UserID, c.Category, c.Content, c.Importance, p.MessageID, now)
		if err := insertMemory(ctx, tx, m); err != nil {
			return nil, err
		}
		created = append(created, m)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *SQLiteStore) newMemory(userID, category, content string, importance int, extractedFrom string, now time.Time) model.Memory {
	return model.Memory{
		ID:            s.newID(),
		UserID:        userID,
		Category:      category,
		Content:       content,
		Importance:    model.ClampScale(importance),
		ExtractedFrom: extractedFrom,
		CreatedAt:     now.UTC().Truncate(time.Millisecond),
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMemory(ctx context.Context, db execer, m model.Memory) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO memories (id, user_id, category, content, importance, extracted_from, created_at, reference_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		m.ID, m.UserID, m.Category, m.Content, m.Importance, nullString(m.ExtractedFrom), formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

const memoryColumns = `id, user_id, category, content, importance, extracted_from, created_at, last_referenced_at, reference_count`

// ListMemories returns a user's memories newest first.
func (s *SQLiteStore) ListMemories(ctx context.Context, p ListMemoriesParams) ([]model.Memory, error) {
	where := []string{"user_id = ?"}
	args := []any{p.UserID}

	if p.Category != "" {
		where = append(where, "category = ?")
		args = append(args, p.Category)
	}

	query := `SELECT ` + memoryColumns + ` FROM memories WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}
	return s.queryMemories(ctx, query, args...)
}

// ImportantMemories returns memories at or above the minimum importance,
// highest importance first.
func (s *SQLiteStore) ImportantMemories(ctx context.Context, p ImportantParams) ([]model.Memory, error) {
	minImportance := p.MinImportance
	if minImportance <= 0 {
		minImportance = 5
	}
	query := `SELECT ` + memoryColumns + ` FROM memories
		WHERE user_id = ? AND importance >= ?
		ORDER BY importance DESC, created_at DESC, id DESC`
	args := []any{p.UserID, minImportance}
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}
	return s.queryMemories(ctx, query, args...)
}

// GetMemory fetches one memory by id.
func (s *SQLiteStore) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("memory %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateImportance sets a memory's importance, clamped to [1,10].
func (s *SQLiteStore) UpdateImportance(ctx context.Context, id string, importance int) (*model.Memory, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET importance = ? WHERE id = ?`, model.ClampScale(importance), id)
	if err != nil {
		return nil, fmt.Errorf("update importance: %w", err)
	}
	if err := requireRow(res, "memory", id); err != nil {
		return nil, err
	}
	return s.GetMemory(ctx, id)
}

// RecordReference marks a memory as used in a reply.
func (s *SQLiteStore) RecordReference(ctx context.Context, id string) (*model.Memory, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET reference_count = reference_count + 1, last_referenced_at = ? WHERE id = ?`,
		formatTime(s.now()), id)
	if err != nil {
		return nil, fmt.Errorf("record reference: %w", err)
	}
	if err := requireRow(res, "memory", id); err != nil {
		return nil, err
	}
	return s.GetMemory(ctx, id)
}

// DeleteMemory removes a memory permanently.
func (s *SQLiteStore) DeleteMemory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	return requireRow(res, "memory", id)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryMemories(ctx context.Context, query string, args ...any) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var extractedFrom, lastReferenced sql.NullString
	var createdAt string

	err := row.Scan(
		&m.ID, &m.UserID, &m.Category, &m.Content, &m.Importance,
		&extractedFrom, &createdAt, &lastReferenced, &m.ReferenceCount,
	)
	if err != nil {
		return m, err
	}

	m.CreatedAt = parseTime(createdAt)
	if extractedFrom.Valid {
		m.ExtractedFrom = extractedFrom.String
	}
	if lastReferenced.Valid {
		t := parseTime(lastReferenced.String)
		m.LastReferencedAt = &t
	}
	return m, nil
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
