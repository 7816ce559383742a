package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-dev/mnemo/internal/model"
	"github.com/mnemo-dev/mnemo/internal/store"
	"github.com/mnemo-dev/mnemo/internal/token"
)

func init() {
	wmCmd := &cobra.Command{
		Use:   "wm",
		Short: "Manage working memory",
	}

	addCmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add an item to working memory",
		Long:  "Add an item to a session's working memory. Content can be a positional arg or piped via stdin. Low-relevance items are evicted when the token budget fills.",
		Run:   runWMAdd,
	}
	addCmd.Flags().StringP("session", "s", "", "Session ID (required)")
	addCmd.Flags().StringP("type", "t", model.ContentMessage, "Content type: message, task_state, scratchpad, retrieved_memory, system")
	addCmd.Flags().Int("tokens", 0, "Token count (counted automatically when omitted)")
	addCmd.Flags().Float64("relevance", 1.0, "Relevance score in [0,1]")
	addCmd.Flags().Bool("pin", false, "Pin the item so it is never evicted")
	addCmd.MarkFlagRequired("session")

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Get working memory items within a token budget",
		Run:   runWMGet,
	}
	getCmd.Flags().StringP("session", "s", "", "Session ID (required)")
	getCmd.Flags().Int("max-tokens", 0, "Token budget (0 = everything)")
	getCmd.MarkFlagRequired("session")

	updateCmd := &cobra.Command{
		Use:   "update [item-id]",
		Short: "Change an item's pin or relevance",
		Args:  cobra.ExactArgs(1),
		Run:   runWMUpdate,
	}
	updateCmd.Flags().Bool("pin", false, "Pin the item")
	updateCmd.Flags().Bool("unpin", false, "Unpin the item")
	updateCmd.Flags().Float64("relevance", 0, "New relevance score")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear a session's working memory",
		Run:   runWMClear,
	}
	clearCmd.Flags().StringP("session", "s", "", "Session ID (required)")
	clearCmd.Flags().Bool("keep-pinned", false, "Keep pinned items")
	clearCmd.MarkFlagRequired("session")

	wmCmd.AddCommand(addCmd, getCmd, updateCmd, clearCmd)
	RootCmd.AddCommand(wmCmd)
}

func runWMAdd(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")
	contentType, _ := cmd.Flags().GetString("type")
	tokens, _ := cmd.Flags().GetInt("tokens")
	relevance, _ := cmd.Flags().GetFloat64("relevance")
	pin, _ := cmd.Flags().GetBool("pin")

	content := readContent(args)
	if strings.TrimSpace(content) == "" {
		exitErr("wm add", fmt.Errorf("content is required (positional arg or stdin)"))
	}
	if tokens <= 0 {
		tokens = token.Default().Count(content)
	}

	s := openStore(loadConfig())
	defer s.Close()

	item, evicted, err := s.AddItem(cmd.Context(), store.AddItemParams{
		SessionID:      sessionID,
		ContentType:    contentType,
		Content:        content,
		TokenCount:     tokens,
		RelevanceScore: relevance,
		Pinned:         pin,
	})
	if err != nil {
		exitErr("wm add", err)
	}

	printJSON(map[string]interface{}{
		"item":    item,
		"evicted": evicted,
	})
}

func runWMGet(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")
	maxTokens, _ := cmd.Flags().GetInt("max-tokens")

	s := openStore(loadConfig())
	defer s.Close()

	items, used, truncated, err := s.GetItems(cmd.Context(), sessionID, maxTokens)
	if err != nil {
		exitErr("wm get", err)
	}

	printJSON(map[string]interface{}{
		"items":        items,
		"total_tokens": used,
		"truncated":    truncated,
	})
}

func runWMUpdate(cmd *cobra.Command, args []string) {
	var pinned *bool
	if cmd.Flags().Changed("pin") {
		v := true
		pinned = &v
	} else if cmd.Flags().Changed("unpin") {
		v := false
		pinned = &v
	}

	var relevance *float64
	if cmd.Flags().Changed("relevance") {
		v, _ := cmd.Flags().GetFloat64("relevance")
		relevance = &v
	}

	s := openStore(loadConfig())
	defer s.Close()

	if err := s.UpdateItem(cmd.Context(), args[0], pinned, relevance); err != nil {
		exitErr("wm update", err)
	}
	printJSON(map[string]string{"item_id": args[0], "status": "updated"})
}

func runWMClear(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")
	keepPinned, _ := cmd.Flags().GetBool("keep-pinned")

	s := openStore(loadConfig())
	defer s.Close()

	removed, err := s.ClearSession(cmd.Context(), sessionID, keepPinned)
	if err != nil {
		exitErr("wm clear", err)
	}
	printJSON(map[string]interface{}{"removed": removed})
}
