package cmd

import (
	"github.com/spf13/cobra"

	"gitwire.dev/gitwire/internal/client"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <remote-repo>",
	Short: "Fetch missing objects and ref updates from a GitWire daemon",
	Long: `Update the repository in the current directory from the named
remote repository on the configured daemon. Only objects the local
store is missing are transferred.`,
	SilenceUsage: true,
	Args:         exactArgs(1),
	RunE:         runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

// runFetch updates the enclosing repository from a remote one.
func runFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	repoPath, err := findRepoRoot()
	if err != nil {
		return err
	}

	summary, err := client.New(cfg, log).Fetch(repoPath, args[0])
	if err != nil {
		return err
	}

	cmd.Printf("Fetched from %s (%s)\n", args[0], summary)
	return nil
}
