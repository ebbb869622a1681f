package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitwire.dev/gitwire/internal/objects"
)

var catFileCmd = &cobra.Command{
	Use:   "cat-file <object-hash>",
	Short: "Inspect a stored object",
	Long: `Inspect a stored object by its hash.
Prints the object's type, size and content.

Examples:
  # Show a stored blob
  gitwire cat-file 2ef7bde608ce5404e97d5f042f95f89f1c232871

  # Show only the object's type
  gitwire cat-file -t 2ef7bde608ce5404e97d5f042f95f89f1c232871`,
	SilenceUsage: true,
	Args:         exactArgs(1),
	RunE:         runCatFile,
}

var typeOnlyFlag bool

func init() {
	rootCmd.AddCommand(catFileCmd)

	catFileCmd.Flags().BoolVarP(&typeOnlyFlag, "type", "t", false, "Show only the object's type")
}

// runCatFile reads an object from the store and prints it.
func runCatFile(cmd *cobra.Command, args []string) error {
	id, err := objects.ParseID(args[0])
	if err != nil {
		return err
	}

	repoPath, err := findRepoRoot()
	if err != nil {
		return err
	}

	obj, err := objects.NewStore(repoPath).Get(id)
	if err != nil {
		return err
	}

	if typeOnlyFlag {
		fmt.Fprintln(cmd.OutOrStdout(), obj.Type())
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "type: %s\nsize: %d\n", obj.Type(), len(obj.Content()))
	cmd.OutOrStdout().Write(obj.Content())

	return nil
}
