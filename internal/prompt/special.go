package prompt

import "fmt"

// Occasions for one-off messages.
const (
	OccasionGoodMorning   = "good_morning"
	OccasionGoodNight     = "good_night"
	OccasionAnniversary   = "anniversary"
	OccasionBirthday      = "birthday"
	OccasionMissYou       = "miss_you"
	OccasionEncouragement = "encouragement"
)

// DefaultPersonaName is used when a special message names no persona.
const DefaultPersonaName = "Jia"

var occasionTemplates = map[string]string{
	OccasionGoodMorning:   "Generate a sweet, loving good morning message from %[1]s to %[2]s. Be affectionate and wish them a great day. 1-2 sentences.",
	OccasionGoodNight:     "Generate a tender good night message from %[1]s to %[2]s. Be loving and wish them sweet dreams. 1-2 sentences.",
	OccasionAnniversary:   "Generate a heartfelt %[3]d-day anniversary message from %[1]s to %[2]s. Express love and gratitude. 2-3 sentences.",
	OccasionBirthday:      "Generate an excited, loving birthday message from %[1]s to %[2]s. Be celebratory and affectionate. 2-3 sentences.",
	OccasionMissYou:       "Generate a sweet \"I miss you\" message from %[1]s to %[2]s. Be genuine and longing. 1-2 sentences.",
	OccasionEncouragement: "Generate an encouraging, supportive message from %[1]s to %[2]s. Be uplifting and believe in them. 1-2 sentences.",
}

// ValidOccasion reports whether Special knows the occasion.
func ValidOccasion(occasion string) bool {
	_, ok := occasionTemplates[occasion]
	return ok
}

// SpecialRequest asks for a short message for an occasion.
type SpecialRequest struct {
	Occasion         string
	PersonaName      string
	UserName         string
	RelationshipDays int
}

// Special returns the system and user instructions for an occasion message.
// ok is false for unknown occasions.
func Special(r SpecialRequest) (system, user string, ok bool) {
	tmpl, ok := occasionTemplates[r.Occasion]
	if !ok {
		return "", "", false
	}
	name := r.PersonaName
	if name == "" {
		name = DefaultPersonaName
	}
	// Only the anniversary template references the day count.
	if r.Occasion == OccasionAnniversary {
		user = fmt.Sprintf(tmpl, name, r.UserName, r.RelationshipDays)
	} else {
		user = fmt.Sprintf(tmpl, name, r.UserName)
	}
	system = fmt.Sprintf("You are %s, a loving girlfriend. Respond naturally and affectionately.", name)
	return system, user, true
}
