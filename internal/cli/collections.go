package cli

import (
	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections [name]",
	Short: "List collections, or the emoji in one collection",
	Long: `Collections are user-defined groups of emoji read from a JSON file
(see the collections.path config setting). Members that are not in the
current dataset are shown as-is without a name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCollections,
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}

func runCollections(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := ensureEngine(ctx); err != nil {
		return err
	}

	file, err := eng.Collections()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		for _, name := range file.Names() {
			members, err := file.Members(name)
			if err != nil {
				return err
			}
			cmd.Printf("%-20s %d\n", name, len(members))
		}
		return nil
	}

	members, err := file.Members(args[0])
	if err != nil {
		return err
	}
	for _, ch := range members {
		if rec, err := eng.GetByCharacter(ch); err == nil {
			cmd.Printf("%s  %s\n", rec.Character, rec.Name)
		} else {
			cmd.Printf("%s  (not in dataset)\n", ch)
		}
	}
	return nil
}
