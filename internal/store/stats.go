package store

import (
	"context"
	"os"
	"time"
)

// Stats holds database statistics.
type Stats struct {
	DBPath        string      `json:"db_path"`
	DBSizeBytes   int64       `json:"db_size_bytes"`
	TotalMemories int         `json:"total_memories"`
	TotalMoods    int         `json:"total_moods"`
	Personas      int         `json:"personas"`
	Users         []UserStats `json:"users"`
}

// UserStats holds per-user counts.
type UserStats struct {
	UserID   string `json:"user_id"`
	Memories int    `json:"memories"`
}

// MemoryStats summarizes one user's memories.
type MemoryStats struct {
	Total             int            `json:"total"`
	ByCategory        map[string]int `json:"by_category"`
	AverageImportance float64        `json:"average_importance"`
	TotalReferences   int            `json:"total_references"`
	OldestMemory      *time.Time     `json:"oldest_memory"`
	NewestMemory      *time.Time     `json:"newest_memory"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&st.TotalMemories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM moods`).Scan(&st.TotalMoods)
	s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT user_id) FROM personas`).Scan(&st.Personas)

	users, err := s.ListUsers(ctx)
	if err != nil {
		return st, err
	}
	st.Users = users
	return st, nil
}

// ListUsers returns every user with stored memories, most memories first.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]UserStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, COUNT(*) AS cnt
		FROM memories
		GROUP BY user_id ORDER BY cnt DESC, user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []UserStats
	for rows.Next() {
		var u UserStats
		if err := rows.Scan(&u.UserID, &u.Memories); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// MemoryStats summarizes a user's memories.
func (s *SQLiteStore) MemoryStats(ctx context.Context, userID string) (*MemoryStats, error) {
	memories, err := s.ListMemories(ctx, ListMemoriesParams{UserID: userID})
	if err != nil {
		return nil, err
	}

	st := &MemoryStats{Total: len(memories), ByCategory: map[string]int{}}
	importance := 0
	for _, m := range memories {
		st.ByCategory[m.Category]++
		importance += m.Importance
		st.TotalReferences += m.ReferenceCount

		created := m.CreatedAt
		if st.OldestMemory == nil || created.Before(*st.OldestMemory) {
			st.OldestMemory = &created
		}
		if st.NewestMemory == nil || created.After(*st.NewestMemory) {
			st.NewestMemory = &created
		}
	}
	if len(memories) > 0 {
		st.AverageImportance = float64(importance) / float64(len(memories))
	}
	return st, nil
}
