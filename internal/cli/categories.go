package cli

import (
	"github.com/spf13/cobra"
)

var categoryLimit int

var categoriesCmd = &cobra.Command{
	Use:   "categories [category]",
	Short: "List categories, or the emoji in one category",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCategories,
}

func init() {
	categoriesCmd.Flags().IntVarP(&categoryLimit, "limit", "n", 0, "maximum number of emoji to show (0 = all)")
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := ensureEngine(ctx); err != nil {
		return err
	}

	if len(args) == 0 {
		for _, name := range eng.Categories() {
			records, err := eng.GetByCategory(name)
			if err != nil {
				return err
			}
			cmd.Printf("%-25s %d\n", name, len(records))
		}
		return nil
	}

	records, err := eng.GetByCategory(args[0])
	if err != nil {
		return err
	}
	shown := len(records)
	if categoryLimit > 0 && shown > categoryLimit {
		shown = categoryLimit
	}
	for _, rec := range records[:shown] {
		cmd.Printf("%s  %s\n", rec.Character, rec.Name)
	}
	if shown < len(records) {
		cmd.Printf("(%d more)\n", len(records)-shown)
	}
	return nil
}
