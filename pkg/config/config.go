// Package config loads application configuration from a YAML file with
// environment-variable overrides. Cache, warmup, collection, and index
// settings are hot-swappable: the engine re-applies them at runtime through
// ApplyConfig without a restart.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Dataset     DatasetConfig     `yaml:"dataset"`
	Cache       CacheConfig       `yaml:"cache"`
	Warmup      WarmupConfig      `yaml:"warmup"`
	Collections CollectionsConfig `yaml:"collections"`
	History     HistoryConfig     `yaml:"history"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// DatasetConfig controls where the emoji corpus comes from and how often it
// is refreshed. RefreshInterval is how often the serve command checks the
// local copy against MaxAge; ticks while it is still fresh do nothing.
type DatasetConfig struct {
	SourceURL       string        `yaml:"sourceUrl"`
	LocalPath       string        `yaml:"localPath"`
	Format          string        `yaml:"format"` // json, csv, or auto
	MaxAge          time.Duration `yaml:"maxAge"`
	RefreshInterval time.Duration `yaml:"refreshInterval"` // 0 disables the background check
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	RateLimit       float64       `yaml:"rateLimit"` // requests per second
	RateBurst       int           `yaml:"rateBurst"`
	WatchEnabled    bool          `yaml:"watchEnabled"`
}

// CacheConfig controls the query and collection caches and index usage.
type CacheConfig struct {
	QueryCacheMaxSize       int           `yaml:"queryCacheMaxSize"`
	QueryCacheTTL           time.Duration `yaml:"queryCacheTTL"`
	CollectionCacheEnabled  bool          `yaml:"collectionCacheEnabled"`
	CollectionCacheMaxSlots int           `yaml:"collectionCacheMaxSlots"`
	IndexCacheEnabled       bool          `yaml:"indexCacheEnabled"`
}

// WarmupConfig controls cache pre-population at startup.
type WarmupConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Queries     []string `yaml:"queries"`
	Concurrency int      `yaml:"concurrency"`
}

// CollectionsConfig points at the user's collections definition file.
type CollectionsConfig struct {
	Path string `yaml:"path"`
}

// HistoryConfig controls the sqlite-backed search history and alias store.
// RecorderBuffer sizes the serve command's asynchronous write buffer.
type HistoryConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Path           string `yaml:"path"`
	MaxEntries     int    `yaml:"maxEntries"`
	RecorderBuffer int    `yaml:"recorderBuffer"`
}

// ServerConfig holds the API server settings for the serve command.
// AdminKey, when set, is required (as X-Admin-Key) on the mutating
// endpoints: cache invalidation, stats reset, and dataset reload.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RateLimit       float64       `yaml:"rateLimit"` // requests per second, 0 = unlimited
	RateBurst       int           `yaml:"rateBurst"`
	AdminKey        string        `yaml:"adminKey"`
}

// Addr returns the host:port the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the optional dedicated Prometheus scrape port.
// The serve command always exposes /metrics on the API port; Port here
// additionally starts a standalone scrape server when non-zero.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment
// overrides. Missing values fall back to defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// dataDir returns the per-user directory for the local dataset copy,
// history database, and collections file.
func dataDir() string {
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "emojitools")
	}
	return ".emojitools"
}

func defaultConfig() *Config {
	dir := dataDir()
	return &Config{
		Dataset: DatasetConfig{
			SourceURL:       "https://raw.githubusercontent.com/github/gemoji/master/db/emoji.json",
			LocalPath:       filepath.Join(dir, "emoji.json"),
			Format:          "auto",
			MaxAge:          7 * 24 * time.Hour,
			RefreshInterval: time.Hour,
			RequestTimeout:  30 * time.Second,
			RateLimit:       1,
			RateBurst:       1,
			WatchEnabled:    false,
		},
		Cache: CacheConfig{
			QueryCacheMaxSize:       512,
			QueryCacheTTL:           10 * time.Minute,
			CollectionCacheEnabled:  true,
			CollectionCacheMaxSlots: 8,
			IndexCacheEnabled:       true,
		},
		Warmup: WarmupConfig{
			Enabled:     false,
			Queries:     []string{"heart", "fire", "rocket", "smile", "check"},
			Concurrency: 4,
		},
		Collections: CollectionsConfig{
			Path: filepath.Join(dir, "collections.json"),
		},
		History: HistoryConfig{
			Enabled:        true,
			Path:           filepath.Join(dir, "history.db"),
			MaxEntries:     1000,
			RecorderBuffer: 1024,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       0,
			RateBurst:       0,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    0,
		},
	}
}

// applyEnvOverrides reads EMOJI_* environment variables and overrides the
// corresponding fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EMOJI_DATASET_URL"); v != "" {
		cfg.Dataset.SourceURL = v
	}
	if v := os.Getenv("EMOJI_DATASET_PATH"); v != "" {
		cfg.Dataset.LocalPath = v
	}
	if v := os.Getenv("EMOJI_DATASET_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Dataset.MaxAge = d
		}
	}
	if v := os.Getenv("EMOJI_DATASET_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Dataset.RefreshInterval = d
		}
	}
	if v := os.Getenv("EMOJI_CACHE_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.QueryCacheMaxSize = n
		}
	}
	if v := os.Getenv("EMOJI_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.QueryCacheTTL = d
		}
	}
	if v := os.Getenv("EMOJI_INDEX_CACHE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cache.IndexCacheEnabled = b
		}
	}
	if v := os.Getenv("EMOJI_COLLECTION_CACHE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cache.CollectionCacheEnabled = b
		}
	}
	if v := os.Getenv("EMOJI_WARMUP_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Warmup.Enabled = b
		}
	}
	if v := os.Getenv("EMOJI_WARMUP_QUERIES"); v != "" {
		cfg.Warmup.Queries = strings.Split(v, ",")
	}
	if v := os.Getenv("EMOJI_COLLECTIONS_PATH"); v != "" {
		cfg.Collections.Path = v
	}
	if v := os.Getenv("EMOJI_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("EMOJI_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("EMOJI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("EMOJI_SERVER_ADMIN_KEY"); v != "" {
		cfg.Server.AdminKey = v
	}
	if v := os.Getenv("EMOJI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EMOJI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
