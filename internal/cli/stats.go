package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database or per-user memory statistics",
		Run:   runStats,
	}

	cmd.Flags().StringP("user", "u", "", "Show memory statistics for one user")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if user != "" {
		st, err := s.MemoryStats(cmd.Context(), user)
		if err != nil {
			exitErr("stats", err)
		}
		printJSON(st)
		return
	}

	stats, err := s.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(stats)
}
