package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/companion/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories by keyword",
		Long:  "Case-insensitive substring search over a user's memory content.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("user", "u", "", "User id (required)")
	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.SearchMemories(cmd.Context(), store.SearchParams{
		UserID:   user,
		Query:    query,
		Category: category,
		Limit:    limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	printJSON(results)
}
