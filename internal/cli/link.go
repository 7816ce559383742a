package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	linkCmd := &cobra.Command{
		Use:   "link [from-id] [to-id]",
		Short: "Relate two memories",
		Long:  "Create a typed relationship between two memories. Symmetric kinds (related_to, contradicts) also get the reverse link unless --one-way is set.",
		Args:  cobra.ExactArgs(2),
		Run:   runLink,
	}
	linkCmd.Flags().StringP("relation", "r", "related_to", "Kind: related_to, part_of, depends_on, contradicts, updates")
	linkCmd.Flags().Float64("strength", 1.0, "Link strength in (0,1]")
	linkCmd.Flags().Bool("one-way", false, "Skip the reverse link for symmetric kinds")

	unlinkCmd := &cobra.Command{
		Use:   "unlink [from-id] [to-id]",
		Short: "Remove a relationship",
		Args:  cobra.ExactArgs(2),
		Run:   runUnlink,
	}
	unlinkCmd.Flags().StringP("relation", "r", "", "Kind to remove (all kinds when empty)")

	relatedCmd := &cobra.Command{
		Use:   "related [memory-id]",
		Short: "List a memory's links, strongest first",
		Args:  cobra.ExactArgs(1),
		Run:   runRelated,
	}
	relatedCmd.Flags().IntP("limit", "l", 10, "Max links")

	RootCmd.AddCommand(linkCmd, unlinkCmd, relatedCmd)
}

func runLink(cmd *cobra.Command, args []string) {
	relation, _ := cmd.Flags().GetString("relation")
	strength, _ := cmd.Flags().GetFloat64("strength")
	oneWay, _ := cmd.Flags().GetBool("one-way")

	mgr, closeFn := openManager()
	defer closeFn()

	if err := mgr.Link(cmd.Context(), userID(), args[0], args[1], relation, strength, !oneWay); err != nil {
		exitErr("link", err)
	}
	printJSON(map[string]interface{}{
		"from_id":  args[0],
		"to_id":    args[1],
		"relation": relation,
		"strength": strength,
	})
}

func runUnlink(cmd *cobra.Command, args []string) {
	relation, _ := cmd.Flags().GetString("relation")

	mgr, closeFn := openManager()
	defer closeFn()

	if err := mgr.Unlink(cmd.Context(), args[0], args[1], relation); err != nil {
		exitErr("unlink", err)
	}
	printJSON(map[string]string{"from_id": args[0], "to_id": args[1], "status": "unlinked"})
}

func runRelated(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	mgr, closeFn := openManager()
	defer closeFn()

	links, err := mgr.Related(cmd.Context(), args[0], limit)
	if err != nil {
		exitErr("related", err)
	}
	printJSON(links)
}
