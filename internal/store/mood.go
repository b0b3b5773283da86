package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/companion/internal/model"
)

const day = 24 * time.Hour

// Trend labels.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// moodScores place mood labels on a [-1,1] valence scale. Unlisted moods count as 0.
var moodScores = map[string]float64{
	"happy":      1,
	"excited":    1,
	"loving":     1,
	"grateful":   0.8,
	"content":    0.6,
	"calm":       0.5,
	"neutral":    0,
	"tired":      -0.3,
	"stressed":   -0.5,
	"anxious":    -0.6,
	"sad":        -0.8,
	"angry":      -0.7,
	"frustrated": -0.6,
	"lonely":     -0.7,
}

// MoodCount is one mood and how often it was recorded.
type MoodCount struct {
	Mood  string `json:"mood"`
	Count int    `json:"count"`
}

// TimeOfDay buckets mood entries by local hour.
type TimeOfDay struct {
	Morning   int `json:"morning"`
	Afternoon int `json:"afternoon"`
	Evening   int `json:"evening"`
	Night     int `json:"night"`
}

// MoodAnalytics summarizes recent mood entries.
type MoodAnalytics struct {
	TotalEntries     int         `json:"total_entries"`
	MoodCounts       []MoodCount `json:"mood_counts"`
	DominantMood     string      `json:"dominant_mood,omitempty"`
	AverageIntensity float64     `json:"average_intensity"`
	MoodByTimeOfDay  TimeOfDay   `json:"mood_by_time_of_day"`
	AnalyzedDays     int         `json:"analyzed_days"`
}

// MoodTrend compares the average mood of the older and newer halves of a window.
type MoodTrend struct {
	Trend             string  `json:"trend"`
	TrendScore        float64 `json:"trend_score"`
	FirstHalfAverage  float64 `json:"first_half_average"`
	SecondHalfAverage float64 `json:"second_half_average"`
	DataPoints        int     `json:"data_points"`
}

// RecordMood appends a mood entry with intensity clamped to [1,10].
func (s *SQLiteStore) RecordMood(ctx context.Context, p RecordMoodParams) (*model.MoodEntry, error) {
	e := model.MoodEntry{
		ID:           s.newID(),
		UserID:       p.UserID,
		Mood:         p.Mood,
		Intensity:    model.ClampScale(p.Intensity),
		DetectedFrom: p.DetectedFrom,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
		Notes:        p.Notes,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO moods (id, user_id, mood, intensity, detected_from, created_at, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Mood, e.Intensity, e.DetectedFrom, formatTime(e.CreatedAt), nullString(e.Notes))
	if err != nil {
		return nil, fmt.Errorf("insert mood: %w", err)
	}
	return &e, nil
}

// MoodHistory returns mood entries newest first.
func (s *SQLiteStore) MoodHistory(ctx context.Context, p MoodHistoryParams) ([]model.MoodEntry, error) {
	where := []string{"user_id = ?"}
	args := []any{p.UserID}
	if p.Days > 0 {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(s.now().Add(-time.Duration(p.Days)*day)))
	}
	query := `SELECT id, user_id, mood, intensity, detected_from, created_at, notes FROM moods WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}
	return s.queryMoods(ctx, query, args...)
}

// CurrentMood returns the latest mood entry.
func (s *SQLiteStore) CurrentMood(ctx context.Context, userID string) (*model.MoodEntry, error) {
	moods, err := s.MoodHistory(ctx, MoodHistoryParams{UserID: userID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(moods) == 0 {
		return nil, fmt.Errorf("mood for %s: %w", userID, ErrNotFound)
	}
	return &moods[0], nil
}

// MoodAnalytics summarizes the last days of mood entries (default 30). Hours
// are bucketed in loc; nil means time.Local.
func (s *SQLiteStore) MoodAnalytics(ctx context.Context, userID string, days int, loc *time.Location) (*MoodAnalytics, error) {
	if days <= 0 {
		days = 30
	}
	if loc == nil {
		loc = time.Local
	}
	moods, err := s.moodsSince(ctx, userID, s.now().Add(-time.Duration(days)*day))
	if err != nil {
		return nil, err
	}

	a := &MoodAnalytics{TotalEntries: len(moods), MoodCounts: []MoodCount{}, AnalyzedDays: days}
	index := map[string]int{}
	total := 0
	for _, m := range moods {
		i, ok := index[m.Mood]
		if !ok {
			a.MoodCounts = append(a.MoodCounts, MoodCount{Mood: m.Mood})
			i = len(a.MoodCounts) - 1
			index[m.Mood] = i
		}
		a.MoodCounts[i].Count++
		total += m.Intensity

		switch h := m.CreatedAt.In(loc).Hour(); {
		case h >= 5 && h < 12:
			a.MoodByTimeOfDay.Morning++
		case h >= 12 && h < 17:
			a.MoodByTimeOfDay.Afternoon++
		case h >= 17 && h < 21:
			a.MoodByTimeOfDay.Evening++
		default:
			a.MoodByTimeOfDay.Night++
		}
	}

	// First mood to reach the highest count wins.
	maxCount := 0
	for _, c := range a.MoodCounts {
		if c.Count > maxCount {
			maxCount = c.Count
			a.DominantMood = c.Mood
		}
	}
	if len(moods) > 0 {
		a.AverageIntensity = float64(total) / float64(len(moods))
	}
	return a, nil
}

// MoodTrend compares the older and newer halves of the last days (default 14).
func (s *SQLiteStore) MoodTrend(ctx context.Context, userID string, days int) (*MoodTrend, error) {
	if days <= 0 {
		days = 14
	}
	now := s.now()
	window := time.Duration(days) * day
	midpoint := now.Add(-window / 2)

	moods, err := s.moodsSince(ctx, userID, now.Add(-window))
	if err != nil {
		return nil, err
	}

	var firstSum, secondSum float64
	var firstN, secondN int
	for _, m := range moods {
		score := moodScores[strings.ToLower(m.Mood)]
		if m.CreatedAt.Before(midpoint) {
			firstSum += score
			firstN++
		} else {
			secondSum += score
			secondN++
		}
	}

	t := &MoodTrend{Trend: TrendStable, DataPoints: len(moods)}
	if firstN > 0 {
		t.FirstHalfAverage = firstSum / float64(firstN)
	}
	if secondN > 0 {
		t.SecondHalfAverage = secondSum / float64(secondN)
	}
	t.TrendScore = t.SecondHalfAverage - t.FirstHalfAverage
	switch {
	case t.TrendScore > 0.2:
		t.Trend = TrendImproving
	case t.TrendScore < -0.2:
		t.Trend = TrendDeclining
	}
	return t, nil
}

// moodsSince returns entries at or after cutoff, oldest first.
func (s *SQLiteStore) moodsSince(ctx context.Context, userID string, cutoff time.Time) ([]model.MoodEntry, error) {
	return s.queryMoods(ctx,
		`SELECT id, user_id, mood, intensity, detected_from, created_at, notes FROM moods
		 WHERE user_id = ? AND created_at >= ? ORDER BY created_at, id`,
		userID, formatTime(cutoff))
}

func (s *SQLiteStore) queryMoods(ctx context.Context, query string, args ...any) ([]model.MoodEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var moods []model.MoodEntry
	for rows.Next() {
		var e model.MoodEntry
		var createdAt string
		var notes sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Mood, &e.Intensity, &e.DetectedFrom, &createdAt, &notes); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		e.Notes = notes.String
		moods = append(moods, e)
	}
	return moods, rows.Err()
}
