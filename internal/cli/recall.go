package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-dev/mnemo/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Retrieve memories by semantic similarity",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRecall,
	}

	cmd.Flags().IntP("limit", "l", 5, "Max results")
	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().String("subtype", "", "Filter by subtype")
	cmd.Flags().Float64("min-similarity", 0, "Minimum raw similarity (default 0.2)")
	cmd.Flags().StringP("session", "s", "", "Session ID for the access log")
	cmd.Flags().Bool("related", false, "Include linked memories with each hit")

	RootCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	category, _ := cmd.Flags().GetString("category")
	subtype, _ := cmd.Flags().GetString("subtype")
	minSim, _ := cmd.Flags().GetFloat64("min-similarity")
	sessionID, _ := cmd.Flags().GetString("session")
	related, _ := cmd.Flags().GetBool("related")

	mgr, closeFn := openManager()
	defer closeFn()

	result, err := mgr.Recall(cmd.Context(), memory.RecallParams{
		UserID:         userID(),
		Query:          strings.Join(args, " "),
		Limit:          limit,
		Category:       category,
		Subtype:        subtype,
		MinSimilarity:  minSim,
		SessionID:      sessionID,
		IncludeRelated: related,
	})
	if err != nil {
		exitErr("recall", err)
	}
	printJSON(result)
}
