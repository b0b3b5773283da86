package store

import (
	"context"
	"fmt"

	"github.com/rcliao/companion/internal/model"
)

// Export is a portable dump of stored data.
type Export struct {
	Memories []model.Memory         `json:"memories"`
	Moods    []model.MoodEntry      `json:"moods"`
	Personas []model.PersonaProfile `json:"personas"`
}

// ExportAll returns all memories, moods and persona versions, optionally
// filtered by user.
func (s *SQLiteStore) ExportAll(ctx context.Context, userID string) (*Export, error) {
	filter, args := "", []any{}
	if userID != "" {
		filter = ` WHERE user_id = ?`
		args = append(args, userID)
	}

	memories, err := s.queryMemories(ctx,
		`SELECT `+memoryColumns+` FROM memories`+filter+` ORDER BY user_id, created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("export memories: %w", err)
	}
	moods, err := s.queryMoods(ctx,
		`SELECT id, user_id, mood, intensity, detected_from, created_at, notes FROM moods`+filter+
			` ORDER BY user_id, created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("export moods: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+personaColumns+` FROM personas`+filter+` ORDER BY user_id, version`, args...)
	if err != nil {
		return nil, fmt.Errorf("export personas: %w", err)
	}
	defer rows.Close()
	var personas []model.PersonaProfile
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		personas = append(personas, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Export{Memories: memories, Moods: moods, Personas: personas}, nil
}

// Import stores rows from an export, keeping their ids and timestamps. Rows
// whose id already exists are skipped. Returns the number of rows written.
func (s *SQLiteStore) Import(ctx context.Context, e *Export) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	imported := 0
	count := func(n int64) { imported += int(n) }

	for _, m := range e.Memories {
		if !model.ValidCategories[m.Category] {
			return 0, fmt.Errorf("memory %s: %w: %q", m.ID, ErrInvalidCategory, m.Category)
		}
		var lastRef *string
		if m.LastReferencedAt != nil {
			v := formatTime(*m.LastReferencedAt)
			lastRef = &v
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO memories (`+memoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.UserID, m.Category, m.Content, model.ClampScale(m.Importance), nullString(m.ExtractedFrom),
			formatTime(m.CreatedAt), lastRef, m.ReferenceCount)
		if err != nil {
			return 0, fmt.Errorf("import memory %s: %w", m.ID, err)
		}
		n, _ := res.RowsAffected()
		count(n)
	}

	for _, m := range e.Moods {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO moods (id, user_id, mood, intensity, detected_from, created_at, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.UserID, m.Mood, model.ClampScale(m.Intensity), m.DetectedFrom, formatTime(m.CreatedAt), nullString(m.Notes))
		if err != nil {
			return 0, fmt.Errorf("import mood %s: %w", m.ID, err)
		}
		n, _ := res.RowsAffected()
		count(n)
	}

	for i := range e.Personas {
		p := e.Personas[i]
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM personas WHERE id = ? OR (user_id = ? AND version = ?)`,
			p.ID, p.UserID, p.Version).Scan(&exists); err != nil {
			return 0, err
		}
		if exists > 0 {
			continue
		}
		if err := s.insertPersona(ctx, tx, &p); err != nil {
			return 0, err
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return imported, nil
}
