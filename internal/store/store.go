// Package store provides the companion storage interface and SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/companion/internal/analyze"
	"github.com/rcliao/companion/internal/model"
	"github.com/rcliao/companion/internal/recall"
)

var (
	// ErrNotFound is returned when a memory, mood or persona does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCategory is returned for memory categories outside the closed set.
	ErrInvalidCategory = errors.New("invalid memory category")
	// ErrInvalidVoiceStyle is returned for unknown persona voice styles.
	ErrInvalidVoiceStyle = errors.New("invalid voice style")
	// ErrInvalidTrait is returned when a persona trait is outside [0,100].
	ErrInvalidTrait = errors.New("trait must be between 0 and 100")
)

// CreateMemoryParams holds parameters for storing a memory.
type CreateMemoryParams struct {
	UserID        string
	Category      string
	Content       string
	Importance    int
	ExtractedFrom string
}

// ExtractParams stores a batch of extracted candidates for one message.
type ExtractParams struct {
	UserID     string
	MessageID  string
	Candidates []analyze.Candidate
}

// ListMemoriesParams holds parameters for listing memories.
type ListMemoriesParams struct {
	UserID   string
	Category string
	Limit    int // 0 means all
}

// ImportantParams holds parameters for the importance-ordered listing.
type ImportantParams struct {
	UserID        string
	MinImportance int // 0 means 5
	Limit         int
}

// RecordMoodParams holds parameters for recording a mood entry.
type RecordMoodParams struct {
	UserID       string
	Mood         string
	Intensity    int
	DetectedFrom string
	Notes        string
}

// MoodHistoryParams filters mood history.
type MoodHistoryParams struct {
	UserID string
	Days   int // 0 means no cutoff
	Limit  int // 0 means all
}

// TraitUpdate sets any subset of persona traits.
type TraitUpdate struct {
	Warmth         *int `json:"warmth,omitempty"`
	Playfulness    *int `json:"playfulness,omitempty"`
	Possessiveness *int `json:"possessiveness,omitempty"`
	Romanticism    *int `json:"romanticism,omitempty"`
	Supportiveness *int `json:"supportiveness,omitempty"`
	Humor          *int `json:"humor,omitempty"`
}

// UpdatePersonaParams holds a partial persona update. Nil fields are kept.
type UpdatePersonaParams struct {
	UserID             string
	Name               *string
	Traits             TraitUpdate
	Interests          []string
	CustomTraits       []string
	VoiceStyle         *string
	Avatar             *string
	RelationshipStatus *string
}

// MemoryStore covers the memory operations.
type MemoryStore interface {
	CreateMemory(ctx context.Context, p CreateMemoryParams) (*model.Memory, error)
	ExtractFromMessage(ctx context.Context, p ExtractParams) ([]model.Memory, error)
	ListMemories(ctx context.Context, p ListMemoriesParams) ([]model.Memory, error)
	ImportantMemories(ctx context.Context, p ImportantParams) ([]model.Memory, error)
	GetMemory(ctx context.Context, id string) (*model.Memory, error)
	UpdateImportance(ctx context.Context, id string, importance int) (*model.Memory, error)
	RecordReference(ctx context.Context, id string) (*model.Memory, error)
	DeleteMemory(ctx context.Context, id string) error
	Context(ctx context.Context, userID string, maxMemories int) (*recall.Context, error)
}

// MoodStore covers the mood operations.
type MoodStore interface {
	RecordMood(ctx context.Context, p RecordMoodParams) (*model.MoodEntry, error)
	MoodHistory(ctx context.Context, p MoodHistoryParams) ([]model.MoodEntry, error)
	CurrentMood(ctx context.Context, userID string) (*model.MoodEntry, error)
}

// PersonaStore covers the persona operations.
type PersonaStore interface {
	EnsurePersona(ctx context.Context, userID string) (*model.PersonaProfile, error)
	GetPersona(ctx context.Context, userID string) (*model.PersonaProfile, error)
	UpdatePersona(ctx context.Context, p UpdatePersonaParams) (*model.PersonaProfile, error)
}

// Store defines the full companion storage interface.
type Store interface {
	MemoryStore
	MoodStore
	PersonaStore

	// Close closes the store.
	Close() error
}
