package cli

import (
	"github.com/spf13/cobra"

	"github.com/mnemo-dev/mnemo/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update [memory-id]",
		Short: "Update a long-term memory",
		Long:  "Update a long-term memory. Only the given flags change; a content change re-embeds the memory.",
		Args:  cobra.ExactArgs(1),
		Run:   runUpdate,
	}

	cmd.Flags().String("content", "", "New content")
	cmd.Flags().String("summary", "", "New summary")
	cmd.Flags().Float64P("importance", "i", 0, "New importance in [0,1]")
	cmd.Flags().StringP("entities", "e", "", "Comma-separated type:name entities (replaces existing)")
	cmd.Flags().String("meta", "", "JSON metadata (replaces existing)")

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	var p memory.UpdateParams
	if cmd.Flags().Changed("content") {
		v, _ := cmd.Flags().GetString("content")
		p.Content = &v
	}
	if cmd.Flags().Changed("summary") {
		v, _ := cmd.Flags().GetString("summary")
		p.Summary = &v
	}
	if cmd.Flags().Changed("importance") {
		v, _ := cmd.Flags().GetFloat64("importance")
		p.Importance = &v
	}
	if cmd.Flags().Changed("entities") {
		v, _ := cmd.Flags().GetString("entities")
		p.Entities = splitCSV(v)
	}
	if cmd.Flags().Changed("meta") {
		v, _ := cmd.Flags().GetString("meta")
		p.Metadata = &v
	}

	mgr, closeFn := openManager()
	defer closeFn()

	mem, err := mgr.Update(cmd.Context(), userID(), args[0], p)
	if err != nil {
		exitErr("update", err)
	}
	printJSON(mem)
}
