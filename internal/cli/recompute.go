package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reelrank/reelrank/internal/domain"
)

func init() {
	rootCmd.AddCommand(recomputeCmd)
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute CREATOR_ID",
	Short: "Recompute one creator's reputation",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecompute,
}

func runRecompute(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer closeDaemon(d)

	profile, ok, err := d.Updater.Update(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("creator %q not found", args[0])
	}
	printProfile(cmd, profile)
	return nil
}

func printProfile(cmd *cobra.Command, p domain.CreatorProfile) {
	printf(cmd, "Creator:     %s\n", p.UserID)
	printf(cmd, "Reputation:  %.4f\n", p.ReputationScore)
	printf(cmd, "Avg rating:  %.3f over %d ratings\n", p.AvgRating, p.RatingCount)
	printf(cmd, "Works:       %d\n", p.WorkCount)
}
