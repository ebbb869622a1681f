package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitwire.dev/gitwire/internal/constants"
	"gitwire.dev/gitwire/internal/repository"
	"gitwire.dev/gitwire/utils"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a new GitWire repository",
	Long: `The 'init' command sets up a new GitWire repository in the current directory.
It creates a .gitwire directory with the object store, the references area and
the HEAD file, allowing you to start tracking and serving objects.
If a repository already exists, the command will not overwrite existing data.`,
	SilenceUsage: true,
	Args:         maximumArgs(1),
	RunE:         runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// maximumArgs validates command receives at most n positional arguments.
// Returns error with usage help if argument limit exceeded.
func maximumArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			cmd.SilenceUsage = false
			return fmt.Errorf("%s command accepts at most %d arg(s), received %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

// runInit executes repository initialization at specified or current directory.
func runInit(cmd *cobra.Command, args []string) error {
	dirPath := "."
	if len(args) > 0 {
		dirPath = args[0]
	}

	if err := repository.InitRepository(dirPath); err != nil {
		return fmt.Errorf("failed to initialize repository - %w", err)
	}

	cmd.Printf("Initialized empty GitWire repository in %s\n", utils.BuildDirPath(dirPath, constants.GitWire))
	return nil
}
