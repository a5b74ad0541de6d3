package cli

import (
	"github.com/spf13/cobra"

	"github.com/reelrank/reelrank/internal/domain"
)

func init() {
	rootCmd.AddCommand(postCmd)
	postCmd.AddCommand(postAddCmd)
	postCmd.AddCommand(postStatusCmd)

	postAddCmd.Flags().String("caption", "", "Post caption")
	postAddCmd.Flags().String("status", string(domain.PostReady), "processing, ready, failed or removed")
}

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Manage posts",
}

// ─── post add ───────────────────────────────────────────────────────────────

var postAddCmd = &cobra.Command{
	Use:   "add OWNER_ID",
	Short: "Create a post and recompute its owner",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostAdd,
}

func runPostAdd(cmd *cobra.Command, args []string) error {
	caption, _ := cmd.Flags().GetString("caption")
	status, _ := cmd.Flags().GetString("status")

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer closeDaemon(d)

	p, err := d.Content.CreatePost(cmd.Context(), args[0], caption, domain.PostStatus(status))
	if err != nil {
		return err
	}
	if err := recomputeNow(cmd, d, p.OwnerID); err != nil {
		return err
	}
	printf(cmd, "Created post %s (%s)\n", p.ID, p.Status)
	return nil
}

// ─── post status ────────────────────────────────────────────────────────────

var postStatusCmd = &cobra.Command{
	Use:   "status POST_ID STATUS",
	Short: "Change a post's status and recompute its owner",
	Long: `Change a post's status. Removed posts stop counting toward the owner's
reputation and reject new votes.`,
	Args: cobra.ExactArgs(2),
	RunE: runPostStatus,
}

func runPostStatus(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer closeDaemon(d)

	p, err := d.Content.SetPostStatus(cmd.Context(), args[0], domain.PostStatus(args[1]))
	if err != nil {
		return err
	}
	if err := recomputeNow(cmd, d, p.OwnerID); err != nil {
		return err
	}
	printf(cmd, "Post %s is now %s\n", p.ID, p.Status)
	return nil
}
