package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/reelrank/reelrank/internal/daemon"
	"github.com/reelrank/reelrank/internal/domain"
)

// setupHome points REELRANK_HOME at a temp dir with one creator whose
// post carries one +2 vote.
func setupHome(t *testing.T) (creatorID, voterID string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("REELRANK_HOME", home)
	cfg := "[log]\nlevel = \"error\"\n"
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath = ""

	d, err := daemon.New(daemon.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	owner, _ := d.DB.CreateUser(ctx, "maya", time.Time{})
	voter, _ := d.DB.CreateUser(ctx, "lee", time.Time{})
	post, _ := d.DB.CreatePost(ctx, owner.ID, "clip", domain.PostReady, time.Time{})
	if _, err := d.DB.CastVote(ctx, voter.ID, post.ID, domain.VotePlusTwo, time.Time{}); err != nil {
		t.Fatal(err)
	}
	d.Close()
	return owner.ID, voter.ID
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSweepAndLeaderboard(t *testing.T) {
	setupHome(t)

	out, err := run(t, "sweep")
	if err != nil {
		t.Fatalf("sweep error: %v", err)
	}
	if !strings.Contains(out, "Swept 2 creators") || !strings.Contains(out, "2 updated") {
		t.Errorf("sweep output = %q", out)
	}

	out, err = run(t, "leaderboard", "-n", "5")
	if err != nil {
		t.Fatalf("leaderboard error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("leaderboard lines = %d, want header + 2:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "RANK") || !strings.Contains(lines[1], "maya") {
		t.Errorf("leaderboard output:\n%s", out)
	}
}

func TestRecompute(t *testing.T) {
	creator, _ := setupHome(t)

	out, err := run(t, "recompute", creator)
	if err != nil {
		t.Fatalf("recompute error: %v", err)
	}
	if !strings.Contains(out, "Works:       1") || !strings.Contains(out, "over 1 ratings") {
		t.Errorf("recompute output = %q", out)
	}

	if _, err := run(t, "recompute", "nobody"); err == nil {
		t.Error("expected error for unknown creator")
	}
}

func TestUserAndPostCommands(t *testing.T) {
	creator, _ := setupHome(t)

	out, err := run(t, "user", "add", "  noor ")
	if err != nil {
		t.Fatalf("user add error: %v", err)
	}
	if !strings.Contains(out, "Created user noor") {
		t.Errorf("user add output = %q", out)
	}
	if _, err := run(t, "user", "add", "noor"); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Errorf("duplicate user err = %v, want ErrUsernameTaken", err)
	}

	out, err = run(t, "post", "add", creator, "--caption", "second")
	if err != nil {
		t.Fatalf("post add error: %v", err)
	}
	fields := strings.Fields(out)
	if len(fields) < 3 || fields[0] != "Created" {
		t.Fatalf("post add output = %q", out)
	}
	postID := fields[2]

	out, err = run(t, "user", "show", creator)
	if err != nil {
		t.Fatalf("user show error: %v", err)
	}
	if !strings.Contains(out, "maya") || !strings.Contains(out, "Works:       2") {
		t.Errorf("user show output = %q", out)
	}

	if _, err := run(t, "post", "status", postID, "removed"); err != nil {
		t.Fatalf("post status error: %v", err)
	}
	out, _ = run(t, "user", "show", creator)
	if !strings.Contains(out, "Works:       1") {
		t.Errorf("after removal output = %q", out)
	}

	if _, err := run(t, "post", "status", postID, "live"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Errorf("bad status err = %v, want ErrInvalidStatus", err)
	}
}

func TestUserDelete_RecomputesVotedCreators(t *testing.T) {
	creator, voter := setupHome(t)

	if _, err := run(t, "recompute", creator); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "user", "delete", voter)
	if err != nil {
		t.Fatalf("user delete error: %v", err)
	}
	if !strings.Contains(out, "recomputed 1 creators") {
		t.Errorf("user delete output = %q", out)
	}

	out, _ = run(t, "user", "show", creator)
	if !strings.Contains(out, "over 0 ratings") {
		t.Errorf("creator still counts deleted voter:\n%s", out)
	}
	if _, err := run(t, "user", "show", voter); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("show deleted err = %v, want ErrUserNotFound", err)
	}
}
