package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/reelrank/reelrank/internal/daemon"
	"github.com/reelrank/reelrank/internal/domain"
)

// ─── User CLI ───────────────────────────────────────────────────────────────
// Creator accounts normally arrive through POST /internal/users. These
// commands serve local setup and cleanup while the daemon is stopped.

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userShowCmd)
	userCmd.AddCommand(userDeleteCmd)
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage creator accounts",
}

// ─── user add ───────────────────────────────────────────────────────────────

var userAddCmd = &cobra.Command{
	Use:   "add USERNAME",
	Short: "Create a user with an empty creator profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer closeDaemon(d)

	u, err := d.Content.CreateUser(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printf(cmd, "Created user %s (%s)\n", u.Username, u.ID)
	return nil
}

// ─── user show ──────────────────────────────────────────────────────────────

var userShowCmd = &cobra.Command{
	Use:   "show USER_ID",
	Short: "Print a user and their stored creator profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserShow,
}

func runUserShow(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer closeDaemon(d)

	u, err := d.Content.GetUser(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printf(cmd, "Username:    %s\n", u.Username)
	printf(cmd, "Joined:      %s\n", u.CreatedAt.Format("2006-01-02"))

	p, err := d.DB.GetProfile(cmd.Context(), u.ID)
	if errors.Is(err, domain.ErrCreatorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	printProfile(cmd, p)
	return nil
}

// ─── user delete ────────────────────────────────────────────────────────────

var userDeleteCmd = &cobra.Command{
	Use:   "delete USER_ID",
	Short: "Delete a user, their posts and their votes",
	Long: `Delete a user. Votes the user cast are backed out of other creators'
counters first, and those creators are recomputed before the command exits.`,
	Args: cobra.ExactArgs(1),
	RunE: runUserDelete,
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer closeDaemon(d)

	affected, err := d.Content.DeleteUser(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := recomputeNow(cmd, d, affected...); err != nil {
		return err
	}
	printf(cmd, "Deleted user %s; recomputed %d creators\n", args[0], len(affected))
	return nil
}

// recomputeNow updates creators synchronously. One-shot commands exit
// before the background queue would run.
func recomputeNow(cmd *cobra.Command, d *daemon.Daemon, creatorIDs ...string) error {
	for _, id := range creatorIDs {
		if _, _, err := d.Updater.Update(cmd.Context(), id); err != nil {
			return err
		}
	}
	return nil
}
