package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/browniellc/emojitools/internal/engine"
)

var (
	searchExact      bool
	searchCollection string
	searchLimit      int
	searchCopy       bool
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search emoji by name or keyword",
	Long: `Searches the emoji dataset. Query words are matched against names and
keywords; all words must match. When nothing matches, the query falls back
to a substring search unless --exact is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchExact, "exact", false, "disable the substring fallback")
	searchCmd.Flags().StringVar(&searchCollection, "collection", "", "restrict results to a collection")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum number of results")
	searchCmd.Flags().BoolVarP(&searchCopy, "copy", "c", false, "copy the first result to the clipboard")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := ensureEngine(ctx); err != nil {
		return err
	}

	query := strings.Join(args, " ")
	results, err := eng.Search(ctx, query, engine.SearchOptions{
		Exact:      searchExact,
		Collection: searchCollection,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	recordSearch(ctx, query, len(results))

	total := len(results)
	if searchLimit > 0 && total > searchLimit {
		results = results[:searchLimit]
	}

	if searchCopy && len(results) > 0 {
		if err := clipboard.WriteAll(results[0].Character); err != nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}
		cmd.Printf("Copied %s to clipboard\n", results[0].Character)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	for _, rec := range results {
		cmd.Printf("%s  %s\n", rec.Character, rec.Name)
	}
	if total > len(results) {
		cmd.Printf("(%d more, use --limit to see them)\n", total-len(results))
	}
	return nil
}
