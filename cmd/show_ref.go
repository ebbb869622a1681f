package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitwire.dev/gitwire/internal/repository"
)

var showRefCmd = &cobra.Command{
	Use:   "show-ref [prefix]",
	Short: "List references and the objects they point to",
	Long: `List references stored in the repository together with the
object ids they point to. An optional prefix narrows the listing.

Examples:
  # List every reference
  gitwire show-ref

  # List only branches
  gitwire show-ref refs/heads/`,
	SilenceUsage: true,
	Args:         maximumArgs(1),
	RunE:         runShowRef,
}

func init() {
	rootCmd.AddCommand(showRefCmd)
}

// runShowRef prints refs matching the optional prefix, one per line.
func runShowRef(cmd *cobra.Command, args []string) error {
	repoPath, err := findRepoRoot()
	if err != nil {
		return err
	}

	repo, err := repository.Open(repoPath)
	if err != nil {
		return err
	}

	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}

	refs, err := repo.Refs.List(prefix)
	if err != nil {
		return err
	}

	for _, ref := range refs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ref.ID, ref.Name)
	}

	return nil
}
