package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Recompute every creator's reputation once",
	Long: `Run the decay sweep in the foreground and exit. Intended for an external
scheduler (cron, Kubernetes CronJob) when the built-in one is disabled.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer closeDaemon(d)

	ctx, stop := signalContext()
	defer stop()

	res, err := d.Sweeper.Run(ctx, "cli")
	if err != nil {
		return err
	}
	printf(cmd, "Swept %d creators in %s: %d updated, %d missing, %d failed\n",
		res.Total, res.Duration.Round(time.Millisecond), res.Updated, res.Missing, res.Failed)
	return nil
}
