package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-dev/mnemo/internal/assembler"
)

func init() {
	contextCmd := &cobra.Command{
		Use:   "context [query]",
		Short: "Assemble a context window for a query",
		Long: "Build an intent-weighted context window: working memory first, then\n" +
			"long-term memories scored by similarity, type weight, and importance,\n" +
			"packed greedily under the token budget.",
		Args: cobra.MinimumNArgs(1),
		Run:  runContext,
	}
	contextCmd.Flags().StringP("session", "s", "", "Session ID (required)")
	contextCmd.Flags().IntP("budget", "b", 4000, "Token budget")
	contextCmd.Flags().String("intent", "", "Intent hint: how_to, what_happened, what_is, debug, general (auto-detected when empty)")
	contextCmd.Flags().String("focus", "", "Comma-separated type:name entities to boost")
	contextCmd.MarkFlagRequired("session")

	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Promote working memory to long-term storage",
		Long: "Classify and promote a session's unpinned working memory into long-term\n" +
			"memories. Trivial, low-relevance, and low-importance items stay put.",
		Run: runCheckpoint,
	}
	checkpointCmd.Flags().StringP("session", "s", "", "Session ID (required)")
	checkpointCmd.MarkFlagRequired("session")

	RootCmd.AddCommand(contextCmd, checkpointCmd)
}

func runContext(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")
	budget, _ := cmd.Flags().GetInt("budget")
	intent, _ := cmd.Flags().GetString("intent")
	focus, _ := cmd.Flags().GetString("focus")

	asm, closeFn := openAssembler()
	defer closeFn()

	result, err := asm.Assemble(cmd.Context(), assembler.Params{
		SessionID:     sessionID,
		UserID:        userID(),
		Query:         strings.Join(args, " "),
		TokenBudget:   budget,
		Intent:        intent,
		FocusEntities: splitCSV(focus),
	})
	if err != nil {
		exitErr("context", err)
	}
	printJSON(result)
}

func runCheckpoint(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")

	asm, closeFn := openAssembler()
	defer closeFn()

	result, err := asm.Checkpoint(cmd.Context(), sessionID, userID())
	if err != nil {
		exitErr("checkpoint", err)
	}
	printJSON(result)
}
