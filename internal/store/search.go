package store

import (
	"context"
	"strings"

	"github.com/rcliao/companion/internal/model"
)

// SearchParams holds parameters for searching memories.
type SearchParams struct {
	UserID   string
	Query    string
	Category string
	Limit    int // 0 means all
}

// SearchMemories finds a user's memories whose content contains the query,
// ignoring case. A blank query matches nothing.
func (s *SQLiteStore) SearchMemories(ctx context.Context, p SearchParams) ([]model.Memory, error) {
	if strings.TrimSpace(p.Query) == "" {
		return []model.Memory{}, nil
	}

	where := []string{"user_id = ?", "instr(lower(content), ?) > 0"}
	args := []any{p.UserID, strings.ToLower(p.Query)}

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

	memories, err := s.queryMemories(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if memories == nil {
		memories = []model.Memory{}
	}
	return memories, nil
}
