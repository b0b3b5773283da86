package analyze

import "strings"

// MoodResult is the detected mood of a message.
type MoodResult struct {
	Mood      string `json:"mood"`
	Intensity int    `json:"intensity"`
}

type moodPattern struct {
	mood      string
	keywords  []string
	intensity int
}

// Order matters: the first mood to reach the highest hit count wins.
var moodPatterns = []moodPattern{
	{"happy", []string{"happy", "excited", "joy", "amazing", "great", "wonderful"}, 7},
	{"loving", []string{"love", "miss", "care", "adore", "cherish", "heart"}, 8},
	{"sad", []string{"sad", "crying", "upset", "depressed", "down", "hurt"}, 7},
	{"anxious", []string{"anxious", "worried", "nervous", "stressed", "scared", "afraid"}, 6},
	{"angry", []string{"angry", "mad", "furious", "annoyed", "frustrated"}, 7},
	{"tired", []string{"tired", "exhausted", "sleepy", "drained", "worn out"}, 5},
	{"playful", []string{"haha", "lol", "joke", "funny", "tease", "silly"}, 6},
	{"romantic", []string{"kiss", "hug", "cuddle", "darling", "baby", "sweetheart"}, 8},
}

// MoodNames returns the moods the detector can produce, in table order.
func MoodNames() []string {
	names := make([]string, 0, len(moodPatterns))
	for _, p := range moodPatterns {
		names = append(names, p.mood)
	}
	return names
}

// Mood picks the mood whose keywords hit the text most often. Ties keep the
// earlier mood in the table. Text with no hits is neutral at intensity 5.
func Mood(text string) MoodResult {
	lower := strings.ToLower(text)
	result := MoodResult{Mood: Neutral, Intensity: 5}
	maxHits := 0

	for _, p := range moodPatterns {
		hits := 0
		for _, k := range p.keywords {
			if strings.Contains(lower, k) {
				hits++
			}
		}
		if hits > maxHits {
			maxHits = hits
			result = MoodResult{Mood: p.mood, Intensity: min(10, p.intensity+hits)}
		}
	}
	return result
}
