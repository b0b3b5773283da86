// Package model defines the core companion data types.
package model

import "time"

// Memory categories.
const (
	CategoryPreference = "preference"
	CategoryEvent      = "event"
	CategoryEmotion    = "emotion"
	CategoryMilestone  = "milestone"
	CategoryFact       = "fact"
	CategoryPromise    = "promise"
)

// Memory is a durable fact about the user, used to personalize replies.
type Memory struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Category         string     `json:"category"`
	Content          string     `json:"content"`
	Importance       int        `json:"importance"`
	ExtractedFrom    string     `json:"extracted_from,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	LastReferencedAt *time.Time `json:"last_referenced_at,omitempty"`
	ReferenceCount   int        `json:"reference_count"`
}

// ValidCategories are the allowed memory categories.
var ValidCategories = map[string]bool{
	CategoryPreference: true,
	CategoryEvent:      true,
	CategoryEmotion:    true,
	CategoryMilestone:  true,
	CategoryFact:       true,
	CategoryPromise:    true,
}

// CategoryLabels are the section headings used when memories are rendered for a prompt.
var CategoryLabels = map[string]string{
	CategoryPreference: "Preferences",
	CategoryEvent:      "Past Events",
	CategoryEmotion:    "Emotional Moments",
	CategoryMilestone:  "Relationship Milestones",
	CategoryFact:       "Facts About Them",
	CategoryPromise:    "Promises Made",
}

// ClampScale clamps importance and intensity values to [1,10].
func ClampScale(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
