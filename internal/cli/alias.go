package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Manage emoji aliases",
	Long: `Aliases are personal shorthands for emoji characters, stored in the
local history database. An alias can be used anywhere a character is
expected, such as the info command.`,
}

var aliasSetCmd = &cobra.Command{
	Use:   "set [name] [emoji]",
	Short: "Create or replace an alias",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireHistory(); err != nil {
			return err
		}
		if err := hist.SetAlias(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		cmd.Printf("%s -> %s\n", args[0], args[1])
		return nil
	},
}

var aliasRemoveCmd = &cobra.Command{
	Use:     "remove [name]",
	Aliases: []string{"rm"},
	Short:   "Remove an alias",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireHistory(); err != nil {
			return err
		}
		return hist.DeleteAlias(cmd.Context(), args[0])
	},
}

var aliasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all aliases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireHistory(); err != nil {
			return err
		}
		aliases, err := hist.Aliases(cmd.Context())
		if err != nil {
			return err
		}
		if len(aliases) == 0 {
			cmd.Println("No aliases defined.")
			return nil
		}
		for _, a := range aliases {
			cmd.Printf("%-20s %s\n", a.Name, a.Character)
		}
		return nil
	},
}

func init() {
	aliasCmd.AddCommand(aliasSetCmd, aliasRemoveCmd, aliasListCmd)
	rootCmd.AddCommand(aliasCmd)
}

func requireHistory() error {
	ok, err := ensureHistory()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("history is disabled in config; aliases need it")
	}
	return nil
}
