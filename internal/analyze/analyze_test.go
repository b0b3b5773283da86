package analyze

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/companion/internal/model"
)

func TestSentiment(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		score float64
		label string
	}{
		{"no matches", "the weather report", 0, Neutral},
		{"empty", "", 0, Neutral},
		{"negative", "I'm so sad and tired", -1, Negative},
		{"balanced", "I love you but I'm sorry", 0, Neutral},
		{"mostly positive", "thank you, I had so much fun but I am tired", 1.0 / 3.0, Positive},
		{"presence not frequency", "love love love", 1, Positive},
		{"case insensitive", "AMAZING", 1, Positive},
		{"example", "I love hiking and I'm so excited", 1, Positive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sentiment(tt.text)
			if math.Abs(got.Score-tt.score) > 0.001 {
				t.Errorf("Sentiment(%q).Score = %f, want %f", tt.text, got.Score, tt.score)
			}
			if got.Label != tt.label {
				t.Errorf("Sentiment(%q).Label = %q, want %q", tt.text, got.Label, tt.label)
			}
		})
	}
}

func TestSentimentScoreBounds(t *testing.T) {
	for _, text := range []string{"love hate", "awful worst bad", "best perfect joy smile", "x"} {
		s := Sentiment(text).Score
		if s < -1 || s > 1 {
			t.Errorf("Sentiment(%q) score %f out of [-1,1]", text, s)
		}
	}
}

func TestMood(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		mood      string
		intensity int
	}{
		{"no matches", "the weather report", Neutral, 5},
		{"empty", "", Neutral, 5},
		// happy and loving both hit once; happy is earlier in the table.
		{"tie keeps first mood", "I love hiking and I'm so excited", "happy", 8},
		{"capped at 10", "I miss you, I love you with all my heart", "loving", 10},
		{"playful", "haha that joke was so funny lol", "playful", 10},
		{"multi word keyword", "I'm worn out and sleepy", "tired", 7},
		{"single hit", "I'm nervous", "anxious", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mood(tt.text)
			if got.Mood != tt.mood || got.Intensity != tt.intensity {
				t.Errorf("Mood(%q) = %+v, want {%s %d}", tt.text, got, tt.mood, tt.intensity)
			}
		})
	}
}

func TestMoodNames(t *testing.T) {
	names := MoodNames()
	if len(names) != 8 || names[0] != "happy" || names[7] != "romantic" {
		t.Errorf("unexpected mood table order: %v", names)
	}
}

func TestMemories(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	t.Run("fact", func(t *testing.T) {
		got := Memories("I work as a nurse in Boston", "", now)
		if len(got) != 1 {
			t.Fatalf("expected 1 candidate, got %d: %+v", len(got), got)
		}
		want := Candidate{Category: model.CategoryFact, Content: "I work as a nurse in Boston", Importance: 8}
		if got[0] != want {
			t.Errorf("got %+v, want %+v", got[0], want)
		}
	})

	t.Run("preference and emotion", func(t *testing.T) {
		got := Memories("I love hiking and I'm so excited", "yay!", now)
		if len(got) != 2 {
			t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
		}
		if got[0].Category != model.CategoryPreference || got[0].Content != "Likes: hiking and I'm so excited" || got[0].Importance != 6 {
			t.Errorf("unexpected preference: %+v", got[0])
		}
		if got[1].Category != model.CategoryEmotion || got[1].Content != "Felt excited on 10/16/2026" || got[1].Importance != 5 {
			t.Errorf("unexpected emotion: %+v", got[1])
		}
	})

	t.Run("favorite keeps the subject", func(t *testing.T) {
		got := Memories("my favorite color is blue", "", now)
		if len(got) != 1 || got[0].Content != "Likes: color" {
			t.Errorf("unexpected candidates: %+v", got)
		}
	})

	t.Run("event", func(t *testing.T) {
		got := Memories("I have an interview tomorrow", "", now)
		if len(got) != 1 || got[0].Category != model.CategoryEvent || got[0].Importance != 7 {
			t.Fatalf("unexpected candidates: %+v", got)
		}
		if got[0].Content != "I have an interview tomorrow" {
			t.Errorf("unexpected content %q", got[0].Content)
		}
	})

	t.Run("event needs both words", func(t *testing.T) {
		if got := Memories("Tomorrow is fine", "", now); len(got) != 0 {
			t.Errorf("expected no candidates, got %+v", got)
		}
	})

	t.Run("event truncated", func(t *testing.T) {
		text := "today I have an exam " + strings.Repeat("x", 150)
		got := Memories(text, "", now)
		if len(got) != 1 {
			t.Fatalf("expected 1 candidate, got %d", len(got))
		}
		if n := len([]rune(got[0].Content)); n != 100 {
			t.Errorf("expected 100 runes, got %d", n)
		}
	})

	t.Run("several facts", func(t *testing.T) {
		got := Memories("I'm a teacher at Lincoln High and I live in Denver", "", now)
		if len(got) != 2 {
			t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
		}
		if got[0].Content != "I'm a teacher at" {
			t.Errorf("unexpected first fact %q", got[0].Content)
		}
		if got[1].Content != "I live in Denver" {
			t.Errorf("unexpected second fact %q", got[1].Content)
		}
	})

	t.Run("pattern is not word anchored", func(t *testing.T) {
		got := Memories("hi love you", "", now)
		if len(got) != 1 || got[0].Content != "Likes: you" {
			t.Errorf("unexpected candidates: %+v", got)
		}
	})

	t.Run("nothing", func(t *testing.T) {
		if got := Memories("", "", now); len(got) != 0 {
			t.Errorf("expected no candidates, got %+v", got)
		}
	})
}

func TestConversationMemories(t *testing.T) {
	now := time.Now()
	msgs := []model.ChatMessage{
		{Role: model.RoleUser, Content: "I live in Paris"},
		{Role: model.RoleAssistant, Content: "I live in your heart"},
		{Role: model.RoleUser, Content: "hello"},
	}
	got := ConversationMemories(msgs, now)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate from user turns only, got %d: %+v", len(got), got)
	}
	if got[0].Content != "I live in Paris" {
		t.Errorf("unexpected content %q", got[0].Content)
	}
}
