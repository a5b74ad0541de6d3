// Package daemon wires the reelrank services together and runs them.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
	_ "time/tzdata" // sweep.timezone must resolve without system zoneinfo

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reelrank/reelrank/internal/api"
	"github.com/reelrank/reelrank/internal/app/content"
	"github.com/reelrank/reelrank/internal/app/feed"
	"github.com/reelrank/reelrank/internal/app/ledger"
	"github.com/reelrank/reelrank/internal/app/notify"
	"github.com/reelrank/reelrank/internal/app/recompute"
	"github.com/reelrank/reelrank/internal/app/reputation"
	"github.com/reelrank/reelrank/internal/app/sweep"
	"github.com/reelrank/reelrank/internal/domain"
	scoring "github.com/reelrank/reelrank/internal/infra/reputation"
	"github.com/reelrank/reelrank/internal/infra/sqlite"
)

const shutdownTimeout = 10 * time.Second

// Daemon owns every long-lived component.
type Daemon struct {
	Config Config
	Logger *zap.Logger

	DB        *sqlite.DB
	Calc      *scoring.Calculator
	Updater   *reputation.Updater
	Queue     *recompute.Queue
	Notifier  *notify.Notifier
	Ledger    *ledger.Ledger
	Content   *content.Service
	Sweeper   *sweep.Sweeper
	Scheduler *sweep.Scheduler
	Feed      *feed.Ranker

	redis *redis.Client
}

// New opens the database and builds the service graph.
func New(cfg Config, logger *zap.Logger) (*Daemon, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	scoreCfg := scoring.Config{
		GlobalAvg:       cfg.Scoring.GlobalAvg,
		MinRatings:      cfg.Scoring.MinRatings,
		DecayRatePerDay: cfg.Scoring.DecayRatePerDay,
		FeedGravity:     cfg.Scoring.FeedGravity,
	}
	if err := scoreCfg.Validate(); err != nil {
		return nil, fmt.Errorf("scoring config: %w", err)
	}

	at, err := sweep.ParseTimeOfDay(cfg.Sweep.At)
	if err != nil {
		return nil, fmt.Errorf("sweep.at: %w", err)
	}
	loc, err := time.LoadLocation(cfg.Sweep.Timezone)
	if err != nil {
		return nil, fmt.Errorf("sweep.timezone: %w", err)
	}

	db, err := sqlite.Open(cfg.DataDir())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := &Daemon{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Calc:   scoring.NewCalculator(scoreCfg),
	}

	d.Updater = reputation.NewUpdater(db, db, d.Calc, logger)
	d.Queue = recompute.New(recompute.Config{
		Workers:    cfg.Queue.Workers,
		Buffer:     cfg.Queue.Buffer,
		JobTimeout: parseDuration(cfg.Queue.JobTimeout, 10*time.Second),
	}, d.Updater, logger)

	var notifier ledger.Notifier
	if cfg.Notify.Enabled {
		d.Notifier = notify.New(notify.Config{
			Window:  parseDuration(cfg.Notify.Window, notify.DefaultWindow),
			Buffer:  cfg.Notify.Buffer,
			Workers: cfg.Notify.Workers,
		}, db, d.debouncer(), logger)
		notifier = d.Notifier
	}
	d.Ledger = ledger.New(db, d.Queue, notifier, logger)
	d.Content = content.New(db, d.Queue, logger)

	d.Sweeper = sweep.New(db, d.Updater, cfg.Sweep.Concurrency, logger)
	d.Scheduler = sweep.NewScheduler(d.Sweeper, at, loc, logger)

	d.Feed = feed.NewRanker(db, d.Calc, feed.Config{
		Window:     parseDuration(cfg.Feed.Window, 7*24*time.Hour),
		Candidates: cfg.Feed.Candidates,
		DefaultN:   cfg.Feed.DefaultLimit,
		MaxN:       cfg.Feed.MaxLimit,
	})

	return d, nil
}

// debouncer picks Redis when configured and reachable, else in-memory.
func (d *Daemon) debouncer() notify.Debouncer {
	rc := d.Config.Redis
	if !rc.Enabled {
		return notify.NewMemoryDebouncer()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		d.Logger.Warn("redis unreachable, debouncing in memory",
			zap.String("addr", rc.Addr), zap.Error(err))
		client.Close()
		return notify.NewMemoryDebouncer()
	}
	d.redis = client
	return notify.NewRedisDebouncer(client)
}

// Handler builds the HTTP API. ctx bounds background sweeps it starts.
func (d *Daemon) Handler(ctx context.Context) http.Handler {
	srv := api.NewServer(api.Config{
		RequestTimeout: parseDuration(d.Config.API.RequestTimeout, 30*time.Second),
		VoteRateLimit:  d.Config.API.VoteRateLimit,
		VoteRateWindow: parseDuration(d.Config.API.VoteRateWindow, time.Minute),
		Leaderboard: domain.LeaderboardConfig{
			DefaultN: d.Config.Leaderboard.DefaultLimit,
			MaxN:     d.Config.Leaderboard.MaxLimit,
		},
	}, d.Ledger, d.DB, d.Logger)
	srv.SetFeed(d.Feed)
	srv.SetSweeper(ctx, d.Sweeper)
	srv.SetHealthCheck(d.DB.Ping)
	srv.SetContent(d.Content)
	srv.SetNotifications(d.DB)
	srv.SetStatus(func() any { return d.Status() })
	if d.Config.API.Metrics {
		srv.EnableMetrics()
	}
	return srv.Handler()
}

// Run serves HTTP and runs the queue and scheduler until ctx is cancelled.
// ready, if non-nil, receives the bound listen address.
func (d *Daemon) Run(ctx context.Context, ready chan<- string) error {
	ln, err := net.Listen("tcp", d.Config.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.Config.Addr(), err)
	}

	g, ctx := errgroup.WithContext(ctx)
	httpSrv := &http.Server{
		Handler:           d.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		d.Logger.Info("http listening", zap.String("addr", ln.Addr().String()))
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return d.Queue.Run(ctx)
	})
	if d.Notifier != nil {
		g.Go(func() error {
			return d.Notifier.Run(ctx)
		})
	}
	if d.Config.Sweep.Enabled {
		g.Go(func() error {
			return d.Scheduler.Run(ctx)
		})
	}

	if ready != nil {
		ready <- ln.Addr().String()
	}
	return g.Wait()
}

// Status is a snapshot of the background workers.
type Status struct {
	Queue                recompute.Stats `json:"queue"`
	SweepRunning         bool            `json:"sweep_running"`
	LastSweep            *sweep.Result   `json:"last_sweep,omitempty"`
	NotificationsPending int             `json:"notifications_pending"`
}

// Status reports queue depth, sweep progress and undelivered notifications.
func (d *Daemon) Status() Status {
	st := Status{
		Queue:        d.Queue.Stats(),
		SweepRunning: d.Sweeper.Running(),
	}
	if last := d.Sweeper.Last(); !last.Started.IsZero() {
		st.LastSweep = &last
	}
	if d.Notifier != nil {
		st.NotificationsPending = d.Notifier.Pending()
	}
	return st
}

// Close releases the database and Redis connections.
func (d *Daemon) Close() error {
	var errs []error
	if d.redis != nil {
		errs = append(errs, d.redis.Close())
	}
	errs = append(errs, d.DB.Close())
	return errors.Join(errs...)
}
