package cmd

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"gitwire.dev/gitwire/internal/client"
)

var cloneCmd = &cobra.Command{
	Use:   "clone <remote-repo> [directory]",
	Short: "Clone a repository from a GitWire daemon",
	Long: `Initialize a new repository and fetch everything the configured
daemon has for the named remote repository into it. The target directory
defaults to the remote repository's base name.

Examples:
  # Clone into ./project
  gitwire clone project

  # Clone into an explicit directory
  gitwire clone project ./work/copy`,
	SilenceUsage: true,
	Args:         rangeArgs(1, 2),
	RunE:         runClone,
}

func init() {
	rootCmd.AddCommand(cloneCmd)
}

// rangeArgs validates command receives between min and max positional arguments.
func rangeArgs(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min || len(args) > max {
			cmd.SilenceUsage = false
			return fmt.Errorf("%s command requires between %d and %d argument(s), received %d", cmd.Name(), min, max, len(args))
		}
		return nil
	}
}

// runClone fetches a remote repository into a fresh local one.
func runClone(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	remoteRepo := args[0]
	localPath := path.Base(remoteRepo)
	if len(args) == 2 {
		localPath = args[1]
	}

	summary, err := client.New(cfg, log).Clone(localPath, remoteRepo)
	if err != nil {
		return err
	}

	cmd.Printf("Cloned %s into %s (%s)\n", remoteRepo, localPath, summary)
	return nil
}
