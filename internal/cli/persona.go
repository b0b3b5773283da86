package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/companion/internal/store"
)

var traitFlags = []string{"warmth", "playfulness", "possessiveness", "romanticism", "supportiveness", "humor"}

func init() {
	personaCmd := &cobra.Command{
		Use:   "persona",
		Short: "Show and edit the companion's persona",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current persona, creating the default one if needed",
		Run:   runPersonaShow,
	}
	showCmd.Flags().Bool("stats", false, "Show relationship statistics instead")

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Update the persona (writes a new version)",
		Long:  "Update any subset of persona fields. Only flags that are given change; the previous version is kept.",
		Run:   runPersonaSet,
	}
	setCmd.Flags().String("name", "", "Persona name")
	for _, t := range traitFlags {
		setCmd.Flags().Int(t, 0, "Trait value 0-100")
	}
	setCmd.Flags().StringSlice("interests", nil, "Interests (comma-separated, replaces the list)")
	setCmd.Flags().StringSlice("custom-traits", nil, "Custom traits (comma-separated, replaces the list)")
	setCmd.Flags().String("voice", "", "Voice style: sweet, playful, mature, caring")
	setCmd.Flags().String("avatar", "", "Avatar URL")
	setCmd.Flags().String("status", "", "Relationship status")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show every persona version, newest first",
		Run:   runPersonaHistory,
	}

	for _, c := range []*cobra.Command{showCmd, setCmd, historyCmd} {
		c.Flags().StringP("user", "u", "", "User id (required)")
		c.MarkFlagRequired("user")
		personaCmd.AddCommand(c)
	}
	RootCmd.AddCommand(personaCmd)
}

func runPersonaShow(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	stats, _ := cmd.Flags().GetBool("stats")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	p, err := s.EnsurePersona(cmd.Context(), user)
	if err != nil {
		exitErr("persona show", err)
	}
	if !stats {
		printJSON(p)
		return
	}

	st, err := s.RelationshipStats(cmd.Context(), user)
	if err != nil {
		exitErr("relationship stats", err)
	}
	printJSON(st)
}

func runPersonaSet(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	flags := cmd.Flags()

	params := store.UpdatePersonaParams{UserID: user}
	if flags.Changed("name") {
		v, _ := flags.GetString("name")
		params.Name = &v
	}
	if flags.Changed("voice") {
		v, _ := flags.GetString("voice")
		params.VoiceStyle = &v
	}
	if flags.Changed("avatar") {
		v, _ := flags.GetString("avatar")
		params.Avatar = &v
	}
	if flags.Changed("status") {
		v, _ := flags.GetString("status")
		params.RelationshipStatus = &v
	}
	if flags.Changed("interests") {
		params.Interests, _ = flags.GetStringSlice("interests")
	}
	if flags.Changed("custom-traits") {
		params.CustomTraits, _ = flags.GetStringSlice("custom-traits")
	}

	traits := map[string]**int{
		"warmth":         &params.Traits.Warmth,
		"playfulness":    &params.Traits.Playfulness,
		"possessiveness": &params.Traits.Possessiveness,
		"romanticism":    &params.Traits.Romanticism,
		"supportiveness": &params.Traits.Supportiveness,
		"humor":          &params.Traits.Humor,
	}
	for _, name := range traitFlags {
		if flags.Changed(name) {
			v, _ := flags.GetInt(name)
			*traits[name] = &v
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	if _, err := s.EnsurePersona(ctx, user); err != nil {
		exitErr("persona set", err)
	}
	p, err := s.UpdatePersona(ctx, params)
	if err != nil {
		exitErr("persona set", err)
	}
	printJSON(p)
}

func runPersonaHistory(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	hist, err := s.PersonaHistory(cmd.Context(), user)
	if err != nil {
		exitErr("persona history", err)
	}
	printJSON(hist)
}
