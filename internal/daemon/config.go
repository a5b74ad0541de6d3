package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/reelrank/reelrank/internal/infra/logging"
)

// Config is the reelrank daemon configuration, read from config.toml.
type Config struct {
	API         APIConfig         `toml:"api"`
	Database    DatabaseConfig    `toml:"database"`
	Scoring     ScoringConfig     `toml:"scoring"`
	Queue       QueueConfig       `toml:"queue"`
	Sweep       SweepConfig       `toml:"sweep"`
	Redis       RedisConfig       `toml:"redis"`
	Notify      NotifyConfig      `toml:"notify"`
	Feed        FeedConfig        `toml:"feed"`
	Leaderboard LeaderboardConfig `toml:"leaderboard"`
	Log         logging.Config    `toml:"log"`
}

type APIConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	RequestTimeout string `toml:"request_timeout"`
	VoteRateLimit  int    `toml:"vote_rate_limit"` // per identity per window; 0 disables
	VoteRateWindow string `toml:"vote_rate_window"`
	Metrics        bool   `toml:"metrics"`
}

type DatabaseConfig struct {
	Dir string `toml:"dir"` // empty means $REELRANK_HOME/data
}

type ScoringConfig struct {
	GlobalAvg       float64 `toml:"global_avg"`
	MinRatings      float64 `toml:"min_ratings"`
	DecayRatePerDay float64 `toml:"decay_rate_per_day"`
	FeedGravity     float64 `toml:"feed_gravity"`
}

type QueueConfig struct {
	Workers    int    `toml:"workers"`
	Buffer     int    `toml:"buffer"`
	JobTimeout string `toml:"job_timeout"`
}

type SweepConfig struct {
	Enabled     bool   `toml:"enabled"`  // built-in daily scheduler
	At          string `toml:"at"`       // HH:MM
	Timezone    string `toml:"timezone"` // IANA name
	Concurrency int    `toml:"concurrency"`
}

type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type NotifyConfig struct {
	Enabled bool   `toml:"enabled"`
	Window  string `toml:"window"`
	Buffer  int    `toml:"buffer"`
	Workers int    `toml:"workers"`
}

type FeedConfig struct {
	Window       string `toml:"window"`
	Candidates   int    `toml:"candidates"`
	DefaultLimit int    `toml:"default_limit"`
	MaxLimit     int    `toml:"max_limit"`
}

type LeaderboardConfig struct {
	DefaultLimit int `toml:"default_limit"`
	MaxLimit     int `toml:"max_limit"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			RequestTimeout: "30s",
			VoteRateLimit:  60,
			VoteRateWindow: "1m",
			Metrics:        true,
		},
		Scoring: ScoringConfig{
			GlobalAvg:       4.2,
			MinRatings:      25,
			DecayRatePerDay: 0.02,
			FeedGravity:     1.5,
		},
		Queue: QueueConfig{
			Workers:    2,
			Buffer:     1024,
			JobTimeout: "10s",
		},
		Sweep: SweepConfig{
			Enabled:     true,
			At:          "03:00",
			Timezone:    "UTC",
			Concurrency: 4,
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Notify: NotifyConfig{
			Enabled: true,
			Window:  "5m",
			Buffer:  256,
			Workers: 1,
		},
		Feed: FeedConfig{
			Window:       "168h",
			Candidates:   1000,
			DefaultLimit: 20,
			MaxLimit:     100,
		},
		Leaderboard: LeaderboardConfig{
			DefaultLimit: 20,
			MaxLimit:     100,
		},
		Log: logging.DefaultConfig(),
	}
}

// Home returns the reelrank home directory: $REELRANK_HOME or ~/.reelrank.
func Home() string {
	if env := os.Getenv("REELRANK_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".reelrank")
}

// DefaultConfigPath is config.toml inside Home.
func DefaultConfigPath() string {
	return filepath.Join(Home(), "config.toml")
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted sensibly.
func (c Config) Validate() error {
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Scoring.MinRatings < 0 {
		return fmt.Errorf("scoring.min_ratings must be >= 0")
	}
	if c.Scoring.DecayRatePerDay < 0 {
		return fmt.Errorf("scoring.decay_rate_per_day must be >= 0")
	}
	if c.Scoring.FeedGravity <= 0 {
		return fmt.Errorf("scoring.feed_gravity must be > 0")
	}
	if _, err := time.LoadLocation(c.Sweep.Timezone); err != nil {
		return fmt.Errorf("sweep.timezone: %w", err)
	}
	return nil
}

// DataDir resolves the database directory.
func (c Config) DataDir() string {
	if c.Database.Dir != "" {
		return c.Database.Dir
	}
	return filepath.Join(Home(), "data")
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// parseDuration parses s, falling back to def when s is empty or invalid.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
