package analyze

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rcliao/companion/internal/model"
)

// Candidate is a proposed memory. Persisting it is up to the caller.
type Candidate struct {
	Category   string `json:"category"`
	Content    string `json:"content"`
	Importance int    `json:"importance"`
}

const eventContentLimit = 100

var (
	preferencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)i (?:love|like|prefer|enjoy) (.+)`),
		regexp.MustCompile(`(?i)my favorite (.+?) is (.+)`),
		regexp.MustCompile(`(?i)i'm into (.+)`),
	}

	factPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)i work (?:at|as|in) (.+)`),
		regexp.MustCompile(`(?i)i'm a (.+?) (?:at|in|for)`),
		regexp.MustCompile(`(?i)i live in (.+)`),
		regexp.MustCompile(`(?i)my (?:name|job|work|school|college|university) is (.+)`),
	}

	emotionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)i feel (?:so )?(happy|sad|anxious|stressed|excited|lonely)`),
		regexp.MustCompile(`(?i)i'm (?:really|so|very) (happy|sad|anxious|stressed|excited|lonely)`),
	}

	dayWords   = []string{"today", "yesterday", "tomorrow"}
	eventWords = []string{"interview", "exam", "meeting"}
)

// Memories proposes memories from the latest user message. Every pattern
// fires independently, so one message can yield several candidates,
// duplicates included. The assistant reply is accepted for symmetry with
// callers that have it but does not affect the result.
func Memories(userText, reply string, now time.Time) []Candidate {
	_ = reply
	var out []Candidate
	lower := strings.ToLower(userText)

	for _, re := range preferencePatterns {
		if m := re.FindStringSubmatch(userText); m != nil {
			subject := m[1]
			if subject == "" {
				subject = m[0]
			}
			out = append(out, Candidate{
				Category:   model.CategoryPreference,
				Content:    "Likes: " + subject,
				Importance: 6,
			})
		}
	}

	if containsAny(lower, dayWords) && containsAny(lower, eventWords) {
		out = append(out, Candidate{
			Category:   model.CategoryEvent,
			Content:    truncateRunes(userText, eventContentLimit),
			Importance: 7,
		})
	}

	for _, re := range factPatterns {
		if m := re.FindString(userText); m != "" {
			out = append(out, Candidate{
				Category:   model.CategoryFact,
				Content:    m,
				Importance: 8,
			})
		}
	}

	for _, re := range emotionPatterns {
		if m := re.FindStringSubmatch(userText); m != nil {
			out = append(out, Candidate{
				Category:   model.CategoryEmotion,
				Content:    fmt.Sprintf("Felt %s on %s", m[1], now.Format("1/2/2006")),
				Importance: 5,
			})
		}
	}

	return out
}

// ConversationMemories runs Memories over every user turn, pairing it with
// the assistant turn that follows (if any).
func ConversationMemories(msgs []model.ChatMessage, now time.Time) []Candidate {
	var out []Candidate
	for i, m := range msgs {
		if m.Role != model.RoleUser {
			continue
		}
		var reply string
		if i+1 < len(msgs) {
			reply = msgs[i+1].Content
		}
		out = append(out, Memories(m.Content, reply, now)...)
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
