package cli

import (
	"github.com/spf13/cobra"

	"github.com/mnemo-dev/mnemo/internal/store"
)

func init() {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage session contexts",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a session context, or resume an existing one",
		Run:   runSessionInit,
	}
	initCmd.Flags().StringP("session", "s", "", "Session ID (generated when empty)")
	initCmd.Flags().String("org", "", "Organization ID")
	initCmd.Flags().Int("max-tokens", 0, "Working memory token budget (default from config)")

	getCmd := &cobra.Command{
		Use:   "get [session-id]",
		Short: "Show a session context",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionGet,
	}

	sessionCmd.AddCommand(initCmd, getCmd)
	RootCmd.AddCommand(sessionCmd)
}

func runSessionInit(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")
	orgID, _ := cmd.Flags().GetString("org")
	maxTokens, _ := cmd.Flags().GetInt("max-tokens")

	cfg := loadConfig()
	if maxTokens <= 0 {
		maxTokens = cfg.Session.MaxTokens
	}

	s := openStore(cfg)
	defer s.Close()

	sess, err := s.InitSession(cmd.Context(), store.InitSessionParams{
		SessionID: sessionID,
		UserID:    userID(),
		OrgID:     orgID,
		MaxTokens: maxTokens,
	})
	if err != nil {
		exitErr("init session", err)
	}
	printJSON(sess)
}

func runSessionGet(cmd *cobra.Command, args []string) {
	s := openStore(loadConfig())
	defer s.Close()

	sess, err := s.GetSession(cmd.Context(), args[0])
	if err != nil {
		exitErr("get session", err)
	}
	printJSON(sess)
}
