package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gitwire.dev/gitwire/internal/server"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Serve fetch and push sessions over TCP",
	Long: `Run the GitWire daemon. The daemon listens on the configured
address and serves git-upload-pack (fetch) and git-receive-pack (push)
sessions for repositories under the configured repository root.
It shuts down cleanly on SIGINT or SIGTERM.`,
	SilenceUsage: true,
	Args:         maximumArgs(0),
	RunE:         runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

// runDaemon serves connections until interrupted.
func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.RepositoryRoot == "" {
		return fmt.Errorf("invalid config file %s: repository_root must be set", configPath)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, log).ListenAndServe(ctx)
}
