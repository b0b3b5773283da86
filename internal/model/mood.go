package model

import "time"

// MoodEntry is a timestamped emotional-state observation tied to a source message.
type MoodEntry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Mood         string    `json:"mood"`
	Intensity    int       `json:"intensity"`
	DetectedFrom string    `json:"detected_from"`
	CreatedAt    time.Time `json:"created_at"`
	Notes        string    `json:"notes,omitempty"`
}
