// Package analyze scores user messages for sentiment and mood and proposes
// candidate memories. Everything here is keyword and pattern based.
package analyze

import "strings"

// Sentiment labels.
const (
	Positive = "positive"
	Negative = "negative"
	Neutral  = "neutral"
)

// SentimentResult is the normalized sentiment of a message.
type SentimentResult struct {
	Score float64 `json:"score"` // -1..1
	Label string  `json:"label"`
}

var positiveWords = []string{
	"love", "happy", "great", "amazing", "wonderful", "beautiful", "excited",
	"thank", "appreciate", "miss", "care", "cute", "sweet", "best", "perfect",
	"joy", "smile", "laugh", "fun", "awesome", "fantastic",
}

var negativeWords = []string{
	"sad", "angry", "upset", "hate", "terrible", "awful", "stressed", "worried",
	"anxious", "tired", "exhausted", "frustrated", "annoyed", "lonely", "hurt",
	"disappointed", "sorry", "bad", "worst",
}

// Sentiment scores text against the positive and negative word lists. Each
// listed word counts once if it appears anywhere in the text as a substring.
func Sentiment(text string) SentimentResult {
	lower := strings.ToLower(text)
	score, matches := 0, 0

	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			score++
			matches++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			score--
			matches++
		}
	}

	var normalized float64
	if matches > 0 {
		normalized = float64(score) / float64(matches)
	}

	label := Neutral
	switch {
	case normalized > 0.2:
		label = Positive
	case normalized < -0.2:
		label = Negative
	}
	return SentimentResult{Score: normalized, Label: label}
}
