package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Validation errors.
var (
	ErrInvalidPageSize  = errors.New("kokkai.page_size must be between 1 and 100")
	ErrInvalidBatchSize = errors.New("batch sizes must be positive")
	ErrInvalidDriver    = errors.New("store.driver must be sqlite or postgres")
	ErrMissingDSN       = errors.New("postgres store needs a DSN in the environment variable named by store.dsn_env")
	ErrInvalidLogLevel  = errors.New("logging.level must be debug, info, warn or error")
	ErrInvalidSince     = errors.New("kokkai.since must be a YYYY-MM-DD date")
	ErrInvalidDaysBack  = errors.New("kokkai.days_back must be at least 1")
)

type Config struct {
	Kokkai  Kokkai  `yaml:"kokkai"`
	Store   Store   `yaml:"store"`
	Batch   Batch   `yaml:"batch"`
	Link    Link    `yaml:"link"`
	News    News    `yaml:"news"`
	Metrics Metrics `yaml:"metrics"`
	Logging Logging `yaml:"logging"`
}

type Kokkai struct {
	BaseURL         string        `yaml:"base_url"`
	PageSize        int           `yaml:"page_size"`
	RequestInterval time.Duration `yaml:"request_interval"`
	Timeout         time.Duration `yaml:"timeout"`
	Since           string        `yaml:"since"`
	DaysBack        int           `yaml:"days_back"`
}

type Store struct {
	Driver  string `yaml:"driver"`
	DSNEnv  string `yaml:"dsn_env"`
	DataDir string `yaml:"data_dir"`
}

type Batch struct {
	Meetings    int `yaml:"meetings"`
	Speeches    int `yaml:"speeches"`
	Legislators int `yaml:"legislators"`
	Bills       int `yaml:"bills"`
	Votes       int `yaml:"votes"`
	Resolve     int `yaml:"resolve"`
}

type Link struct {
	PageSize int `yaml:"page_size"`
	MaxPages int `yaml:"max_pages"`
}

type News struct {
	Enabled         bool          `yaml:"enabled"`
	SearchURL       string        `yaml:"search_url"`
	PerLegislator   int           `yaml:"per_legislator"`
	Legislators     int           `yaml:"legislators"`
	RequestInterval time.Duration `yaml:"request_interval"`
	FetchContent    bool          `yaml:"fetch_content"`
	Feeds           []Feed        `yaml:"feeds"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Metrics struct {
	Textfile string `yaml:"textfile"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir returns the XDG config directory for kokkaisync.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "kokkaisync")
}

// DataDir returns the XDG data directory for kokkaisync.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "kokkaisync")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/kokkaisync/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'kokkaisync init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults, and validates it.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Kokkai: Kokkai{
			BaseURL:         "https://kokkai.ndl.go.jp/api/speech",
			PageSize:        100,
			RequestInterval: 3 * time.Second,
			Timeout:         60 * time.Second,
			Since:           "2024-01-01",
			DaysBack:        3,
		},
		Store: Store{Driver: "sqlite", DSNEnv: "KOKKAISYNC_DSN"},
		Batch: Batch{
			Meetings:    500,
			Speeches:    200,
			Legislators: 200,
			Bills:       200,
			Votes:       200,
			Resolve:     200,
		},
		Link: Link{PageSize: 1000, MaxPages: 10},
		News: News{
			SearchURL:       "https://news.google.com/rss/search?q=%s&hl=ja&gl=JP&ceid=JP:ja",
			PerLegislator:   5,
			Legislators:     20,
			RequestInterval: time.Second,
		},
		Logging: Logging{Level: "info", Format: "console"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Kokkai.PageSize < 1 || c.Kokkai.PageSize > 100 {
		return ErrInvalidPageSize
	}
	if _, err := time.Parse("2006-01-02", c.Kokkai.Since); err != nil {
		return ErrInvalidSince
	}
	if c.Kokkai.DaysBack < 1 {
		return ErrInvalidDaysBack
	}
	b := c.Batch
	for _, n := range []int{b.Meetings, b.Speeches, b.Legislators, b.Bills, b.Votes, b.Resolve} {
		if n <= 0 {
			return ErrInvalidBatchSize
		}
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return ErrInvalidDriver
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Store.DataDir != "" {
		return c.Store.DataDir
	}
	return DataDir()
}

// DSN returns the Postgres connection string from the configured
// environment variable.
func (c *Config) DSN() (string, error) {
	dsn := os.Getenv(c.Store.DSNEnv)
	if dsn == "" {
		return "", ErrMissingDSN
	}
	return dsn, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
