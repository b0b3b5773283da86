package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/companion/internal/analyze"
	"github.com/rcliao/companion/internal/store"
)

func init() {
	moodCmd := &cobra.Command{
		Use:   "mood",
		Short: "Record and analyze a user's mood",
	}

	recordCmd := &cobra.Command{
		Use:   "record [text]",
		Short: "Record a mood entry",
		Long:  "Record a mood entry. With positional text and no --mood, the mood is detected from the text.",
		Run:   runMoodRecord,
	}
	recordCmd.Flags().String("mood", "", "Mood label")
	recordCmd.Flags().IntP("intensity", "i", 5, "Intensity 1-10 (clamped)")
	recordCmd.Flags().String("from", "", "Id of the message the mood came from")
	recordCmd.Flags().String("notes", "", "Free-form notes")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show mood history, newest first",
		Run:   runMoodHistory,
	}
	historyCmd.Flags().Int("days", 0, "Only entries from the last N days (0 for all)")
	historyCmd.Flags().IntP("limit", "l", 50, "Max entries (0 for all)")

	currentCmd := &cobra.Command{
		Use:   "current",
		Short: "Show the latest mood entry",
		Run:   runMoodCurrent,
	}

	analyticsCmd := &cobra.Command{
		Use:   "analytics",
		Short: "Summarize moods over a window",
		Run:   runMoodAnalytics,
	}
	analyticsCmd.Flags().Int("days", 30, "Window in days")

	trendCmd := &cobra.Command{
		Use:   "trend",
		Short: "Compare the older and newer halves of a window",
		Run:   runMoodTrend,
	}
	trendCmd.Flags().Int("days", 14, "Window in days")

	for _, c := range []*cobra.Command{recordCmd, historyCmd, currentCmd, analyticsCmd, trendCmd} {
		c.Flags().StringP("user", "u", "", "User id (required)")
		c.MarkFlagRequired("user")
		moodCmd.AddCommand(c)
	}
	RootCmd.AddCommand(moodCmd)
}

func runMoodRecord(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	mood, _ := cmd.Flags().GetString("mood")
	intensity, _ := cmd.Flags().GetInt("intensity")
	from, _ := cmd.Flags().GetString("from")
	notes, _ := cmd.Flags().GetString("notes")

	if mood == "" {
		text := strings.Join(args, " ")
		if strings.TrimSpace(text) == "" {
			exitErr("mood record", fmt.Errorf("--mood or text to detect it from is required"))
		}
		detected := analyze.Mood(text)
		mood, intensity = detected.Mood, detected.Intensity
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	entry, err := s.RecordMood(cmd.Context(), store.RecordMoodParams{
		UserID:       user,
		Mood:         mood,
		Intensity:    intensity,
		DetectedFrom: from,
		Notes:        notes,
	})
	if err != nil {
		exitErr("mood record", err)
	}
	printJSON(entry)
}

func runMoodHistory(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	days, _ := cmd.Flags().GetInt("days")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	entries, err := s.MoodHistory(cmd.Context(), store.MoodHistoryParams{UserID: user, Days: days, Limit: limit})
	if err != nil {
		exitErr("mood history", err)
	}

	if textOutput() {
		for _, e := range entries {
			fmt.Printf("%s  %-8s %2d\n", e.CreatedAt.Local().Format(time.DateTime), e.Mood, e.Intensity)
		}
		return
	}
	printJSON(entries)
}

func runMoodCurrent(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	entry, err := s.CurrentMood(cmd.Context(), user)
	if err != nil {
		exitErr("mood current", err)
	}
	printJSON(entry)
}

func runMoodAnalytics(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	days, _ := cmd.Flags().GetInt("days")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	a, err := s.MoodAnalytics(cmd.Context(), user, days, time.Local)
	if err != nil {
		exitErr("mood analytics", err)
	}
	printJSON(a)
}

func runMoodTrend(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	days, _ := cmd.Flags().GetInt("days")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	t, err := s.MoodTrend(cmd.Context(), user, days)
	if err != nil {
		exitErr("mood trend", err)
	}
	printJSON(t)
}
