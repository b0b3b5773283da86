package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Retrieve a memory",
		Long:  "Retrieve a memory by id. Reading a memory counts as a reference unless --peek is set.",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	cmd.Flags().Bool("peek", false, "Do not record a reference")
	cmd.Flags().Int("importance", 0, "Set a new importance (1-10) before printing")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	peek, _ := cmd.Flags().GetBool("peek")
	importance, _ := cmd.Flags().GetInt("importance")
	id := args[0]

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	if importance != 0 {
		if _, err := s.UpdateImportance(ctx, id, importance); err != nil {
			exitErr("update importance", err)
		}
	}

	if peek {
		mem, err := s.GetMemory(ctx, id)
		if err != nil {
			exitErr("get", err)
		}
		printJSON(mem)
		return
	}

	mem, err := s.RecordReference(ctx, id)
	if err != nil {
		exitErr("get", err)
	}
	printJSON(mem)
}
