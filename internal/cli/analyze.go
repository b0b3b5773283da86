package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/companion/internal/analyze"
)

func init() {
	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Score sentiment, detect mood and propose memories for a message",
		Long:  "Run the message analyzers without touching the store. Text can be a positional arg or piped via stdin.",
		Run:   runAnalyze,
	}

	cmd.Flags().String("reply", "", "Assistant reply to pair with the message")

	RootCmd.AddCommand(cmd)
}

type analysis struct {
	Sentiment analyze.SentimentResult `json:"sentiment"`
	Mood      analyze.MoodResult      `json:"mood"`
	Memories  []analyze.Candidate     `json:"memories"`
}

func analyzeText(text, reply string, now time.Time) analysis {
	a := analysis{
		Sentiment: analyze.Sentiment(text),
		Mood:      analyze.Mood(text),
		Memories:  analyze.Memories(text, reply, now),
	}
	if a.Memories == nil {
		a.Memories = []analyze.Candidate{}
	}
	return a
}

func runAnalyze(cmd *cobra.Command, args []string) {
	reply, _ := cmd.Flags().GetString("reply")

	text := strings.TrimSpace(readContent(args))
	if text == "" {
		exitErr("analyze", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	a := analyzeText(text, reply, time.Now())
	if textOutput() {
		fmt.Printf("sentiment: %s (%.2f)\n", a.Sentiment.Label, a.Sentiment.Score)
		fmt.Printf("mood:      %s (%d)\n", a.Mood.Mood, a.Mood.Intensity)
		for _, m := range a.Memories {
			fmt.Printf("memory:    [%s %d] %s\n", m.Category, m.Importance, m.Content)
		}
		return
	}
	printJSON(a)
}
