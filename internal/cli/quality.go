package cli

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mnemo-dev/mnemo/internal/quality"
)

func init() {
	qualityCmd := &cobra.Command{
		Use:   "quality",
		Short: "Memory quality and lifecycle",
	}

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Health report for the user's memories",
		Run:   runQualityReport,
	}
	reportCmd.Flags().Bool("no-contradictions", false, "Skip the contradiction scan")
	reportCmd.Flags().Bool("no-stale", false, "Skip stale memory detection")

	contradictionsCmd := &cobra.Command{
		Use:   "contradictions",
		Short: "Find memories that likely contradict each other",
		Run:   runContradictions,
	}
	contradictionsCmd.Flags().Float64("threshold", 0, "Similarity threshold (default 0.75)")
	contradictionsCmd.Flags().IntP("limit", "l", 10, "Max pairs")

	decayCmd := &cobra.Command{
		Use:   "decay",
		Short: "Decay the importance of unaccessed memories",
		Run:   runDecay,
	}
	decayCmd.Flags().Float64("rate", 0, "Importance multiplier per run (default 0.95)")
	decayCmd.Flags().Int("days", 0, "Days without access before decay applies (default 7)")

	qualityCmd.AddCommand(reportCmd, contradictionsCmd, decayCmd)

	supersedeCmd := &cobra.Command{
		Use:   "supersede [new-id] [old-id]",
		Short: "Mark one memory as replacing another",
		Long:  "Record that the new memory supersedes the old one and retire the old memory from retrieval.",
		Args:  cobra.ExactArgs(2),
		Run:   runSupersede,
	}

	RootCmd.AddCommand(qualityCmd, supersedeCmd)
}

func runQualityReport(cmd *cobra.Command, args []string) {
	noContradictions, _ := cmd.Flags().GetBool("no-contradictions")
	noStale, _ := cmd.Flags().GetBool("no-stale")

	mgr, closeFn := openManager()
	defer closeFn()

	report, err := quality.New(mgr).BuildReport(cmd.Context(), userID(), !noContradictions, !noStale)
	if err != nil {
		exitErr("quality report", err)
	}

	if formatFlag == "text" {
		renderReport(report)
		return
	}
	printJSON(report)
}

func runContradictions(cmd *cobra.Command, args []string) {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	limit, _ := cmd.Flags().GetInt("limit")

	mgr, closeFn := openManager()
	defer closeFn()

	pairs, err := quality.New(mgr).FindContradictions(cmd.Context(), userID(), threshold, limit)
	if err != nil {
		exitErr("contradictions", err)
	}
	if len(pairs) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(pairs)
}

func runDecay(cmd *cobra.Command, args []string) {
	rate, _ := cmd.Flags().GetFloat64("rate")
	days, _ := cmd.Flags().GetInt("days")

	mgr, closeFn := openManager()
	defer closeFn()

	result, err := quality.New(mgr).ApplyDecay(cmd.Context(), userID(), rate, days)
	if err != nil {
		exitErr("decay", err)
	}
	printJSON(result)
}

func runSupersede(cmd *cobra.Command, args []string) {
	mgr, closeFn := openManager()
	defer closeFn()

	if err := mgr.Supersede(cmd.Context(), userID(), args[0], args[1]); err != nil {
		exitErr("supersede", err)
	}
	printJSON(map[string]string{"new_id": args[0], "old_id": args[1], "status": "superseded"})
}

var (
	reportTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	reportLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	reportGoodStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	reportWarnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
)

func renderReport(r *quality.Report) {
	scoreStyle := reportGoodStyle
	if r.HealthScore < 70 {
		scoreStyle = reportWarnStyle
	}

	fmt.Println(reportTitleStyle.Render("Memory quality for " + r.UserID))
	fmt.Printf("%s %s\n", reportLabelStyle.Render("Health:"),
		scoreStyle.Render(fmt.Sprintf("%d/100 (%s)", r.HealthScore, r.HealthStatus)))
	fmt.Printf("%s %d memories, avg importance %.2f, avg access %.1f\n",
		reportLabelStyle.Render("Totals:"),
		r.Statistics.Total, r.Statistics.AvgImportance, r.Statistics.AvgAccess)

	if len(r.ByCategory) > 0 {
		cats := make([]string, 0, len(r.ByCategory))
		for cat := range r.ByCategory {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		fmt.Println(reportLabelStyle.Render("By category:"))
		for _, cat := range cats {
			cs := r.ByCategory[cat]
			fmt.Printf("  %-12s %4d  (importance %.2f)\n", cat, cs.Count, cs.AvgImportance)
		}
	}

	if len(r.StaleMemories) > 0 {
		fmt.Println(reportLabelStyle.Render("Stale:"))
		for _, m := range r.StaleMemories {
			fmt.Printf("  %s  %s\n", m.MemoryID, m.Preview)
		}
	}

	if len(r.Contradictions) > 0 {
		fmt.Println(reportWarnStyle.Render(fmt.Sprintf("Contradictions: %d", len(r.Contradictions))))
		for _, c := range r.Contradictions {
			fmt.Printf("  %s\n", c.Recommendation)
		}
	}
}
