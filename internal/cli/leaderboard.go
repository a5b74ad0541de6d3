package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/reelrank/reelrank/internal/domain"
)

func init() {
	rootCmd.AddCommand(leaderboardCmd)
	leaderboardCmd.Flags().IntP("limit", "n", 0, "Number of creators (default 20, max 100)")
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Print the top creators by reputation",
	Args:  cobra.NoArgs,
	RunE:  runLeaderboard,
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer closeDaemon(d)

	board := domain.LeaderboardConfig{
		DefaultN: d.Config.Leaderboard.DefaultLimit,
		MaxN:     d.Config.Leaderboard.MaxLimit,
	}
	profiles, err := d.DB.Leaderboard(cmd.Context(), board.Clamp(limit))
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		printf(cmd, "No creators yet.\n")
		return nil
	}
	return writeLeaderboard(cmd, domain.RankProfiles(profiles))
}

func writeLeaderboard(cmd *cobra.Command, entries []domain.LeaderboardEntry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tUSERNAME\tREPUTATION\tAVG\tRATINGS\tWORKS")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%.3f\t%.2f\t%d\t%d\n",
			e.Rank, e.Username, e.ReputationScore, e.AvgRating, e.RatingCount, e.WorkCount)
	}
	return w.Flush()
}
