package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"gitwire.dev/gitwire/internal/config"
	"gitwire.dev/gitwire/internal/logging"

	"github.com/sirupsen/logrus"
)

// rootCmd defines the base command for the gitwire CLI.
// All subcommands (daemon, clone, push, init, etc.) register under this root.
// Uses cobra for command parsing, flag handling, and help generation.
var rootCmd = &cobra.Command{
	Use:   "gitwire",
	Short: "A content-addressable object store with a Git-style transfer daemon",
	Long: `GitWire stores blobs, trees, commits and tags in a content-addressable
repository and transfers them between hosts over the smart wire protocol.
It ships a daemon serving fetch and push sessions over TCP, and client
commands (clone, fetch, push) that talk to it.`,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "gitwire.yml", "Path to the configuration file")
}

// loadConfig reads the configuration named by the --config flag and
// builds the logger it configures. Shared by the networked commands.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.LogPath), nil
}

// Execute runs the root command and handles exit codes.
// Called from main.go to start CLI execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
