package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/browniellc/emojitools/internal/dataset"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download the latest emoji dataset",
	Long: `Forces a fresh download of the emoji dataset and rewrites the local
copy, regardless of its age. Other commands pick up the new copy on their
next run.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ldr := dataset.NewLoader(cfg.Dataset)
	records, err := ldr.Refresh(cmd.Context())
	if err != nil {
		return fmt.Errorf("updating dataset: %w", err)
	}
	cmd.Printf("Dataset updated: %d records from %s\n", len(records), cfg.Dataset.SourceURL)
	return nil
}
