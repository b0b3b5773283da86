package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/companion/internal/recall"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Assemble the memory context for a user",
		Long:  "Rank a user's memories by importance and age, keep the top ones and group them by category.",
		Run:   runContext,
	}

	cmd.Flags().StringP("user", "u", "", "User id (required)")
	cmd.Flags().IntP("max", "m", recall.DefaultMaxMemories, "Max memories in the context")

	cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	maxMemories, _ := cmd.Flags().GetInt("max")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	result, err := s.Context(cmd.Context(), user, maxMemories)
	if err != nil {
		exitErr("context", err)
	}

	if textOutput() {
		fmt.Print(result.Text)
		return
	}
	printJSON(result)
}
