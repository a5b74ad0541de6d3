// Package cli implements the reelrank command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/daemon"
	"github.com/reelrank/reelrank/internal/infra/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "reelrank",
	Short: "Creator reputation and feed ranking service",
	Long: `reelrank scores video creators with a Bayesian reputation that decays
while they are inactive, ranks the home feed by popularity and age, and
records +1/+2 votes on posts.

Configuration is read from $REELRANK_HOME/config.toml (default ~/.reelrank).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.toml")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// openDaemon loads config, builds the logger and wires the services.
func openDaemon() (*daemon.Daemon, error) {
	cfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	d, err := daemon.New(cfg, logger)
	if err != nil {
		logger.Sync()
		return nil, err
	}
	return d, nil
}

func closeDaemon(d *daemon.Daemon) {
	if err := d.Close(); err != nil {
		d.Logger.Warn("close", zap.Error(err))
	}
	d.Logger.Sync()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printf(cmd *cobra.Command, format string, a ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, a...)
}
