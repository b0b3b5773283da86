package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/companion/internal/prompt"
	"github.com/rcliao/companion/internal/recall"
)

func init() {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the system instruction the relay would send for a user",
		Long: `Compose the system instruction from the user's stored persona and the
highest-ranked memories. With --occasion, print the special-occasion
instructions instead.`,
		Run: runPrompt,
	}

	cmd.Flags().StringP("user", "u", "", "User id (required)")
	cmd.Flags().String("name", "", "How the companion addresses the user (default: darling)")
	cmd.Flags().IntP("max", "m", recall.DefaultMaxMemories, "Max memories to include")
	cmd.Flags().String("occasion", "", "good_morning, good_night, anniversary, birthday, miss_you or encouragement")

	cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func runPrompt(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	name, _ := cmd.Flags().GetString("name")
	maxMemories, _ := cmd.Flags().GetInt("max")
	occasion, _ := cmd.Flags().GetString("occasion")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	persona, err := s.EnsurePersona(ctx, user)
	if err != nil {
		exitErr("persona", err)
	}
	now := time.Now()

	if occasion != "" {
		userName := name
		if userName == "" {
			userName = prompt.DefaultUserName
		}
		system, msg, ok := prompt.Special(prompt.SpecialRequest{
			Occasion:         occasion,
			PersonaName:      persona.Name,
			UserName:         userName,
			RelationshipDays: persona.RelationshipDays(now),
		})
		if !ok {
			exitErr("prompt", fmt.Errorf("unknown occasion %q", occasion))
		}
		if textOutput() {
			fmt.Printf("%s\n\n%s\n", system, msg)
			return
		}
		printJSON(map[string]string{"system": system, "user": msg})
		return
	}

	recalled, err := s.Context(ctx, user, maxMemories)
	if err != nil {
		exitErr("context", err)
	}
	system := prompt.System(prompt.FromPersona(persona, name, recalled.Selected, now))
	if textOutput() {
		fmt.Println(system)
		return
	}
	printJSON(map[string]any{
		"system":         system,
		"total_memories": recalled.TotalMemories,
		"used_memories":  recalled.UsedMemories,
	})
}
