package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/companion/internal/model"
	"github.com/rcliao/companion/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's memories",
		Long:  "List memories newest first, or by importance with --important.",
		Run:   runList,
	}

	cmd.Flags().StringP("user", "u", "", "User id (required)")
	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().IntP("limit", "l", 20, "Max results (0 for all)")
	cmd.Flags().Bool("important", false, "Order by importance and drop low-importance memories")
	cmd.Flags().Int("min", 5, "Minimum importance with --important")

	cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	important, _ := cmd.Flags().GetBool("important")
	minImportance, _ := cmd.Flags().GetInt("min")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var memories []model.Memory
	if important {
		memories, err = s.ImportantMemories(cmd.Context(), store.ImportantParams{
			UserID:        user,
			MinImportance: minImportance,
			Limit:         limit,
		})
	} else {
		memories, err = s.ListMemories(cmd.Context(), store.ListMemoriesParams{
			UserID:   user,
			Category: category,
			Limit:    limit,
		})
	}
	if err != nil {
		exitErr("list", err)
	}

	if textOutput() {
		for _, m := range memories {
			fmt.Printf("%s  [%s %d]  %s\n", m.ID, m.Category, m.Importance, m.Content)
		}
		return
	}
	printJSON(memories)
}
