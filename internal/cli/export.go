package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memories, moods and personas as JSON",
		Long:  "Export every row, including superseded persona versions. Filter by user with -u.",
		Run:   runExport,
	}

	cmd.Flags().StringP("user", "u", "", "Filter by user id")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	all, err := s.ExportAll(cmd.Context(), user)
	if err != nil {
		exitErr("export", err)
	}
	printJSON(all)
}
