package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mnemo-dev/mnemo/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Database and memory statistics",
		Run:   runStats,
	}
	RootCmd.AddCommand(cmd)
}

type statsOutput struct {
	DBPath      string             `json:"db_path"`
	DBSizeBytes int64              `json:"db_size_bytes"`
	Overall     *store.Stats       `json:"overall"`
	UserID      string             `json:"user_id"`
	UserMemory  *store.MemoryStats `json:"user_memories"`
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	overall, err := s.OverallStats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}
	userStats, err := s.MemoryStatsFor(cmd.Context(), userID())
	if err != nil {
		exitErr("stats", err)
	}

	out := statsOutput{
		DBPath:     cfg.DBPath,
		Overall:    overall,
		UserID:     userID(),
		UserMemory: userStats,
	}
	if fi, err := os.Stat(cfg.DBPath); err == nil {
		out.DBSizeBytes = fi.Size()
	}

	if formatFlag == "text" {
		renderStats(out)
		return
	}
	printJSON(out)
}

var (
	statsHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	statsDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

func renderStats(out statsOutput) {
	fmt.Println(statsHeaderStyle.Render("mnemo stats"))
	fmt.Println(statsDimStyle.Render(fmt.Sprintf("%s (%d bytes)", out.DBPath, out.DBSizeBytes)))
	fmt.Printf("sessions       %d\n", out.Overall.Sessions)
	fmt.Printf("working items  %d\n", out.Overall.WorkingItems)
	fmt.Printf("memories       %d\n", out.Overall.Memories)
	fmt.Printf("relationships  %d\n", out.Overall.Relationships)
	fmt.Printf("access events  %d\n", out.Overall.AccessEvents)

	fmt.Println(statsHeaderStyle.Render("memories for " + out.UserID))
	fmt.Printf("total          %d\n", out.UserMemory.Total)
	fmt.Printf("avg importance %.2f\n", out.UserMemory.AvgImportance)
	fmt.Printf("never accessed %d\n", out.UserMemory.NeverAccessed)

	if len(out.UserMemory.BySubtype) > 0 {
		keys := make([]string, 0, len(out.UserMemory.BySubtype))
		for k := range out.UserMemory.BySubtype {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-24s %d\n", k, out.UserMemory.BySubtype[k])
		}
	}
}
