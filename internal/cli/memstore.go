package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-dev/mnemo/internal/memory"
	"github.com/mnemo-dev/mnemo/internal/security"
)

func init() {
	cmd := &cobra.Command{
		Use:   "store [content]",
		Short: "Store a long-term memory",
		Long: "Store a long-term memory. Content can be a positional arg or piped via stdin.\n" +
			"Category and subtype are classified automatically when omitted. Content\n" +
			"containing credentials is rejected.",
		Run: runStore,
	}

	cmd.Flags().String("category", "", "Category: episodic, semantic, procedural, preference")
	cmd.Flags().String("subtype", "", "Subtype within the category")
	cmd.Flags().Float64P("importance", "i", 0, "Importance in [0,1] (classifier's verdict when omitted)")
	cmd.Flags().StringP("entities", "e", "", "Comma-separated type:name entities")
	cmd.Flags().Bool("temporal", false, "Mark as time-bound")
	cmd.Flags().String("meta", "", "JSON metadata")
	cmd.Flags().StringP("session", "s", "", "Source session ID")

	RootCmd.AddCommand(cmd)
}

func runStore(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	subtype, _ := cmd.Flags().GetString("subtype")
	importance, _ := cmd.Flags().GetFloat64("importance")
	entitiesStr, _ := cmd.Flags().GetString("entities")
	temporal, _ := cmd.Flags().GetBool("temporal")
	meta, _ := cmd.Flags().GetString("meta")
	sessionID, _ := cmd.Flags().GetString("session")

	content := readContent(args)
	if strings.TrimSpace(content) == "" {
		exitErr("store", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	mgr, closeFn := openManager()
	defer closeFn()

	result, err := mgr.StoreMemory(cmd.Context(), memory.StoreParams{
		UserID:     userID(),
		Content:    strings.TrimSpace(content),
		Category:   category,
		Subtype:    subtype,
		Importance: importance,
		Entities:   splitCSV(entitiesStr),
		IsTemporal: temporal,
		Metadata:   meta,
		SessionID:  sessionID,
	})
	if err != nil {
		var verr *security.ViolationError
		if errors.As(err, &verr) {
			printJSON(map[string]interface{}{
				"error":      verr.Message,
				"violations": verr.Violations,
			})
		}
		exitErr("store", err)
	}
	printJSON(result)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
