package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "User management",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users with stored memories",
		Run:   runUsersList,
	}

	usersCmd.AddCommand(listCmd)
	RootCmd.AddCommand(usersCmd)
}

func runUsersList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rows, err := s.ListUsers(cmd.Context())
	if err != nil {
		exitErr("list users", err)
	}
	printJSON(rows)
}
