package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, recompute workers and daily sweep",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer closeDaemon(d)

	ctx, stop := signalContext()
	defer stop()

	d.Logger.Info("reelrank starting",
		zap.String("addr", d.Config.Addr()),
		zap.String("data_dir", d.Config.DataDir()),
		zap.Bool("scheduler", d.Config.Sweep.Enabled),
		zap.Bool("notifications", d.Notifier != nil))
	return d.Run(ctx, nil)
}
