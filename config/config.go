package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Sentinel errors for configuration loading.
var (
	ErrMissingInventoryID = errors.New("config: inventory spreadsheet id is required")
	ErrMissingMetadataID  = errors.New("config: metadata spreadsheet id is required")
	ErrMissingKeyFile     = errors.New("config: service account key file is required")
)

// Config holds all runtime configuration for the gridops system.
//
// Every field has an environment binding so a deployment is configured
// entirely through the process environment.
type Config struct {
	// Remote store.
	InventorySpreadsheetID string `env:"GRIDOPS_INVENTORY_SPREADSHEET_ID"`
	MetadataSpreadsheetID  string `env:"GRIDOPS_METADATA_SPREADSHEET_ID"`
	ServiceAccountKeyFile  string `env:"GRIDOPS_SERVICE_ACCOUNT_KEY_FILE" envDefault:"service_account.json"`
	StoreEndpoint          string `env:"GRIDOPS_STORE_ENDPOINT" envDefault:"https://sheets.googleapis.com"`
	TokenEndpoint          string `env:"GRIDOPS_TOKEN_ENDPOINT" envDefault:"https://oauth2.googleapis.com/token"`

	// Session and retry behavior.
	SessionRefreshInterval time.Duration `env:"GRIDOPS_SESSION_REFRESH_INTERVAL" envDefault:"1h"`
	MaxConnectionAttempts  int           `env:"GRIDOPS_MAX_CONNECTION_ATTEMPTS" envDefault:"3"`

	// Rate limiting.
	RateLimitMaxCalls int           `env:"GRIDOPS_RATE_LIMIT_MAX_CALLS" envDefault:"100"`
	RateLimitWindow   time.Duration `env:"GRIDOPS_RATE_LIMIT_WINDOW" envDefault:"60s"`

	// Cache sizing and TTLs.
	CacheMaxSize          int           `env:"GRIDOPS_CACHE_MAX_SIZE" envDefault:"1000"`
	CacheCleanupThreshold float64       `env:"GRIDOPS_CACHE_CLEANUP_THRESHOLD" envDefault:"0.8"`
	CacheDefaultTTL       time.Duration `env:"GRIDOPS_CACHE_DEFAULT_TTL" envDefault:"1h"`
	CacheShortTTL         time.Duration `env:"GRIDOPS_CACHE_SHORT_TTL" envDefault:"5m"`
	CacheLongTTL          time.Duration `env:"GRIDOPS_CACHE_LONG_TTL" envDefault:"24h"`
	CacheSweepInterval    time.Duration `env:"GRIDOPS_CACHE_SWEEP_INTERVAL" envDefault:"15m"`
	CacheSnapshotInterval time.Duration `env:"GRIDOPS_CACHE_SNAPSHOT_INTERVAL" envDefault:"1h"`
	CacheSnapshotFile     string        `env:"GRIDOPS_CACHE_SNAPSHOT_FILE" envDefault:"gridops_data/cache_backup.json"`

	// Row layout overrides. Empty values fall back to store.DefaultLayout.
	InventorySheet string `env:"GRIDOPS_INVENTORY_SHEET"`
	MetadataSheet  string `env:"GRIDOPS_METADATA_SHEET"`
	FirstDataRow   int    `env:"GRIDOPS_FIRST_DATA_ROW"`
	LastDataRow    int    `env:"GRIDOPS_LAST_DATA_ROW"`

	// Domain behavior.
	DeceasedMarker string `env:"GRIDOPS_DECEASED_MARKER"`

	// Observability.
	LogLevel        string  `env:"GRIDOPS_LOG_LEVEL" envDefault:"info"`
	MetricsExporter string  `env:"GRIDOPS_METRICS_EXPORTER" envDefault:"none"`
	TracingExporter string  `env:"GRIDOPS_TRACING_EXPORTER" envDefault:"none"`
	TracingSample   float64 `env:"GRIDOPS_TRACING_SAMPLE" envDefault:"1.0"`
}

// Load parses configuration from the environment and strict-expands
// credential-bearing fields.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	keyFile, err := ExpandEnvStrict(cfg.ServiceAccountKeyFile)
	if err != nil {
		return Config{}, fmt.Errorf("config: service account key file: %w", err)
	}
	cfg.ServiceAccountKeyFile = keyFile

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required fields are present.
func (c Config) Validate() error {
	if c.InventorySpreadsheetID == "" {
		return ErrMissingInventoryID
	}
	if c.MetadataSpreadsheetID == "" {
		return ErrMissingMetadataID
	}
	if c.ServiceAccountKeyFile == "" {
		return ErrMissingKeyFile
	}
	return nil
}
