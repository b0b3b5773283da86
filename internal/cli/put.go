package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/companion/internal/model"
	"github.com/rcliao/companion/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [content]",
		Short: "Store a memory",
		Long:  "Store a memory about a user. Content can be a positional arg or piped via stdin.",
		Run:   runPut,
	}

	cmd.Flags().StringP("user", "u", "", "User id (required)")
	cmd.Flags().String("category", model.CategoryFact, "Category: preference, event, emotion, milestone, fact, promise")
	cmd.Flags().IntP("importance", "i", 5, "Importance 1-10 (clamped)")
	cmd.Flags().String("from", "", "Id of the message the memory came from")

	cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	category, _ := cmd.Flags().GetString("category")
	importance, _ := cmd.Flags().GetInt("importance")
	from, _ := cmd.Flags().GetString("from")

	content := readContent(args)
	if strings.TrimSpace(content) == "" {
		exitErr("put", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem, err := s.CreateMemory(cmd.Context(), store.CreateMemoryParams{
		UserID:        user,
		Category:      category,
		Content:       strings.TrimSpace(content),
		Importance:    importance,
		ExtractedFrom: from,
	})
	if err != nil {
		exitErr("put", err)
	}

	b, _ := json.Marshal(mem)
	fmt.Println(string(b))
}

// readContent joins positional args, falling back to piped stdin.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}
