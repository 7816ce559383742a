package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	forgetCmd := &cobra.Command{
		Use:   "forget [memory-id]",
		Short: "Delete a long-term memory",
		Args:  cobra.ExactArgs(1),
		Run:   runForget,
	}

	forgetAllCmd := &cobra.Command{
		Use:   "forget-all",
		Short: "Delete everything the user owns",
		Long:  "Delete all sessions, working memory, long-term memories, relationships, and access logs for the user. Requires --confirm CONFIRM_DELETE_ALL.",
		Run:   runForgetAll,
	}
	forgetAllCmd.Flags().String("confirm", "", "Confirmation phrase")

	RootCmd.AddCommand(forgetCmd, forgetAllCmd)
}

func runForget(cmd *cobra.Command, args []string) {
	mgr, closeFn := openManager()
	defer closeFn()

	if err := mgr.Forget(cmd.Context(), userID(), args[0]); err != nil {
		exitErr("forget", err)
	}
	printJSON(map[string]string{"memory_id": args[0], "status": "deleted"})
}

func runForgetAll(cmd *cobra.Command, args []string) {
	confirm, _ := cmd.Flags().GetString("confirm")

	mgr, closeFn := openManager()
	defer closeFn()

	removed, err := mgr.ForgetAll(cmd.Context(), userID(), confirm)
	if err != nil {
		exitErr("forget-all", err)
	}
	printJSON(map[string]interface{}{"user_id": userID(), "memories_removed": removed})
}
