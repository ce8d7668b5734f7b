package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	pkgerrors "github.com/browniellc/emojitools/pkg/errors"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info [emoji-or-alias]",
	Short: "Show details for an emoji character or alias",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := ensureEngine(ctx); err != nil {
		return err
	}

	character := args[0]
	if ok, err := ensureHistory(); err == nil && ok {
		if resolved, err := hist.ResolveAlias(ctx, character); err == nil {
			character = resolved
		} else if !errors.Is(err, pkgerrors.ErrAliasNotFound) {
			return err
		}
	}

	rec, err := eng.GetByCharacter(character)
	if err != nil {
		return err
	}

	if infoJSON {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("%s  %s\n", rec.Character, rec.Name)
	cmd.Printf("Category: %s\n", rec.Category)
	if len(rec.Keywords) > 0 {
		cmd.Printf("Keywords: %s\n", strings.Join(rec.Keywords, ", "))
	}
	return nil
}
