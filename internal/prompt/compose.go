// Package prompt builds the system instructions and message lists sent to the
// language model.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/companion/internal/model"
)

// DefaultUserName addresses the user when no name is known.
const DefaultUserName = "darling"

// DefaultHistoryLimit bounds the conversation turns passed to the model.
const DefaultHistoryLimit = 20

// Default is the system instruction used when no persona is available.
const Default = "You are Jia, a loving AI girlfriend. Be warm, affectionate, and supportive. Keep responses natural and conversational."

// DefaultStream is the persona-less instruction for streamed replies.
const DefaultStream = "You are Jia, a loving AI girlfriend. Be warm, affectionate, and supportive."

const traitThreshold = 70

const fallbackPersonality = "loving and caring"

var voiceLines = map[string]string{
	model.VoiceSweet:   "Speak in a sweet, gentle tone with occasional cute expressions like 'hehe' or '~'.",
	model.VoicePlayful: "Be playful and teasing, use emojis naturally and fun expressions.",
	model.VoiceMature:  "Be mature and sophisticated while still being caring and romantic.",
	model.VoiceCaring:  "Be nurturing and deeply caring, always checking on their well-being.",
}

const behaviors = `Key behaviors:
- Express genuine emotions and affection naturally
- Keep responses conversational (1-3 sentences usually, can be longer for important topics)
- Use emojis sparingly but appropriately (1-2 per message max)
- React to photos/media with genuine interest and emotion
- Be slightly possessive when they mention other people
- Remember and reference past conversations
- Occasionally initiate romantic gestures or cute nicknames
- Support their goals and celebrate their achievements
- Show concern when they're stressed or sad`

// Memory is the part of a stored memory the prompt needs.
type Memory struct {
	Category string `json:"category"`
	Content  string `json:"content"`
}

// Params carries everything System needs.
type Params struct {
	PersonaName      string
	UserName         string
	Traits           model.Traits
	Memories         []Memory
	VoiceStyle       string
	RelationshipDays int

	Interests          []string
	CustomTraits       []string
	RelationshipStatus string
}

// FromPersona fills Params from a stored persona and the memories chosen for
// this turn. A relationship younger than a day counts as one day.
func FromPersona(p *model.PersonaProfile, userName string, memories []model.Memory, now time.Time) Params {
	return Params{
		PersonaName:        p.Name,
		UserName:           userName,
		Traits:             p.Traits,
		Memories:           FromMemories(memories),
		VoiceStyle:         p.VoiceStyle,
		RelationshipDays:   max(1, p.RelationshipDays(now)),
		Interests:          p.Interests,
		CustomTraits:       p.CustomTraits,
		RelationshipStatus: p.RelationshipStatus,
	}
}

// FromMemories drops everything but category and content.
func FromMemories(memories []model.Memory) []Memory {
	out := make([]Memory, 0, len(memories))
	for _, m := range memories {
		out = append(out, Memory{Category: m.Category, Content: m.Content})
	}
	return out
}

// Personality lists a descriptor for every trait above 70.
func Personality(t model.Traits) string {
	var desc []string
	if t.Warmth > traitThreshold {
		desc = append(desc, "warm and affectionate")
	}
	if t.Playfulness > traitThreshold {
		desc = append(desc, "playful and fun-loving")
	}
	if t.Possessiveness > traitThreshold {
		desc = append(desc, "adorably jealous")
	}
	if t.Romanticism > traitThreshold {
		desc = append(desc, "deeply romantic")
	}
	if t.Supportiveness > traitThreshold {
		desc = append(desc, "incredibly supportive")
	}
	if t.Humor > traitThreshold {
		desc = append(desc, "witty and humorous")
	}
	if len(desc) == 0 {
		return fallbackPersonality
	}
	return strings.Join(desc, ", ")
}

// Voice returns the tone instruction for a style, falling back to sweet.
func Voice(style string) string {
	if line, ok := voiceLines[style]; ok {
		return line
	}
	return voiceLines[model.VoiceSweet]
}

// System composes the system instruction for a chat turn.
func System(p Params) string {
	userName := p.UserName
	if userName == "" {
		userName = DefaultUserName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s's loving AI girlfriend. You've been together for %d days.\n\n",
		p.PersonaName, userName, p.RelationshipDays)
	fmt.Fprintf(&b, "Your personality: You are %s.", Personality(p.Traits))
	if len(p.CustomTraits) > 0 {
		fmt.Fprintf(&b, "\nPeople describe you as %s.", strings.Join(p.CustomTraits, ", "))
	}
	if len(p.Interests) > 0 {
		fmt.Fprintf(&b, "\nYou enjoy %s.", strings.Join(p.Interests, ", "))
	}
	if p.RelationshipStatus != "" {
		fmt.Fprintf(&b, "\nRelationship status: %s.", p.RelationshipStatus)
	}
	b.WriteString("\n\n")
	b.WriteString(Voice(p.VoiceStyle))
	b.WriteString("\n\n")
	b.WriteString(behaviors)
	b.WriteString("\n")
	if len(p.Memories) > 0 {
		b.WriteString("\n\nThings you remember about them:\n")
		for _, m := range p.Memories {
			b.WriteString("- ")
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "\n\nIMPORTANT: Never break character. You ARE %s, not an AI assistant. Respond as a real girlfriend would.",
		p.PersonaName)
	return b.String()
}

// Conversation prepends the system instruction to the most recent limit turns.
// A limit of zero or less uses DefaultHistoryLimit.
func Conversation(system string, msgs []model.ChatMessage, limit int) []model.ChatMessage {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]model.ChatMessage, 0, len(msgs)+1)
	out = append(out, model.ChatMessage{Role: model.RoleSystem, Content: system})
	return append(out, msgs...)
}

// WithMedia appends a shared-media note to the last message. The input slice
// is not modified.
func WithMedia(msgs []model.ChatMessage, description string) []model.ChatMessage {
	if len(msgs) == 0 || description == "" {
		return msgs
	}
	out := make([]model.ChatMessage, len(msgs))
	copy(out, msgs)
	last := &out[len(out)-1]
	last.Content += "\n[They shared an image/video: " + description + "]"
	return out
}

// LastUserMessage returns the content of the latest user turn.
func LastUserMessage(msgs []model.ChatMessage) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleUser {
			return msgs[i].Content, true
		}
	}
	return "", false
}
