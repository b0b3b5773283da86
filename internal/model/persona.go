package model

import "time"

// Voice styles.
const (
	VoiceSweet   = "sweet"
	VoicePlayful = "playful"
	VoiceMature  = "mature"
	VoiceCaring  = "caring"
)

// ValidVoiceStyles are the allowed persona voice styles.
var ValidVoiceStyles = map[string]bool{
	VoiceSweet:   true,
	VoicePlayful: true,
	VoiceMature:  true,
	VoiceCaring:  true,
}

// Traits are the six persona dials, each in [0,100].
type Traits struct {
	Warmth         int `json:"warmth" yaml:"warmth"`
	Playfulness    int `json:"playfulness" yaml:"playfulness"`
	Possessiveness int `json:"possessiveness" yaml:"possessiveness"`
	Romanticism    int `json:"romanticism" yaml:"romanticism"`
	Supportiveness int `json:"supportiveness" yaml:"supportiveness"`
	Humor          int `json:"humor" yaml:"humor"`
}

// PersonaProfile is the companion's configurable identity. Updates never
// overwrite a profile; they write a new version that supersedes it.
type PersonaProfile struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Version            int       `json:"version"`
	Supersedes         string    `json:"supersedes,omitempty"`
	Name               string    `json:"name"`
	Traits             Traits    `json:"personality"`
	Interests          []string  `json:"interests"`
	CustomTraits       []string  `json:"custom_traits"`
	VoiceStyle         string    `json:"voice_style"`
	Avatar             string    `json:"avatar,omitempty"`
	RelationshipStatus string    `json:"relationship_status"`
	RelationshipStart  time.Time `json:"relationship_start"`
	CreatedAt          time.Time `json:"created_at"`
}

// RelationshipDays returns the number of whole days since the relationship started.
func (p *PersonaProfile) RelationshipDays(now time.Time) int {
	if p.RelationshipStart.IsZero() || now.Before(p.RelationshipStart) {
		return 0
	}
	return int(now.Sub(p.RelationshipStart) / (24 * time.Hour))
}

// DefaultPersona returns the profile every new user starts with.
func DefaultPersona(userID string, now time.Time) PersonaProfile {
	return PersonaProfile{
		UserID: userID,
		Name:   "Jia",
		Traits: Traits{
			Warmth:         85,
			Playfulness:    75,
			Possessiveness: 70,
			Romanticism:    80,
			Supportiveness: 90,
			Humor:          70,
		},
		Interests:          []string{"shopping", "movies", "cooking", "traveling", "gaming"},
		CustomTraits:       []string{"caring", "playful", "slightly jealous", "supportive"},
		VoiceStyle:         VoiceSweet,
		RelationshipStatus: "In a loving relationship",
		RelationshipStart:  now,
		CreatedAt:          now,
	}
}
