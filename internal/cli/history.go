package cli

import (
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyTop   bool
	historyClear bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent searches",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show")
	historyCmd.Flags().BoolVar(&historyTop, "top", false, "show the most frequent queries instead")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "clear the search history")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := requireHistory(); err != nil {
		return err
	}

	if historyClear {
		if err := hist.ClearHistory(ctx); err != nil {
			return err
		}
		cmd.Println("History cleared.")
		return nil
	}

	if historyTop {
		counts, err := hist.TopQueries(ctx, historyLimit)
		if err != nil {
			return err
		}
		for _, qc := range counts {
			cmd.Printf("%5d  %s\n", qc.Count, qc.Query)
		}
		return nil
	}

	entries, err := hist.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		cmd.Println("No search history.")
		return nil
	}
	for _, e := range entries {
		cmd.Printf("%s  %-30s %d results\n", e.SearchedAt.Local().Format("2006-01-02 15:04"), e.Query, e.Results)
	}
	return nil
}
