package cmd

import (
	"github.com/spf13/cobra"

	"gitwire.dev/gitwire/internal/client"
	"gitwire.dev/gitwire/internal/constants"
)

var pushCmd = &cobra.Command{
	Use:   "push <remote-repo> [branch]",
	Short: "Push a branch to a GitWire daemon",
	Long: `Upload the named branch from the repository in the current
directory to the remote repository on the configured daemon. The remote
ref is updated only if it still holds the value the server advertised,
so concurrent pushes cannot silently overwrite each other.`,
	SilenceUsage: true,
	Args:         rangeArgs(1, 2),
	RunE:         runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

// runPush uploads a branch from the enclosing repository.
func runPush(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	repoPath, err := findRepoRoot()
	if err != nil {
		return err
	}

	branch := constants.DefaultBranch
	if len(args) == 2 {
		branch = args[1]
	}

	summary, err := client.New(cfg, log).Push(repoPath, args[0], branch)
	if err != nil {
		return err
	}

	cmd.Printf("Pushed %s to %s (%s)\n", branch, args[0], summary)
	return nil
}
