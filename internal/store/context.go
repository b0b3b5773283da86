package store

import (
	"context"

	"github.com/rcliao/companion/internal/recall"
)

// Context loads every memory a user has and selects the ones worth putting
// in the next prompt. maxMemories of zero or less uses recall.DefaultMaxMemories.
func (s *SQLiteStore) Context(ctx context.Context, userID string, maxMemories int) (*recall.Context, error) {
	// Oldest first, so equal-ranked memories keep insertion order through the stable sort.
	memories, err := s.queryMemories(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	c := recall.Select(memories, maxMemories)
	return &c, nil
}
