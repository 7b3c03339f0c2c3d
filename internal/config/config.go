package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	PlaceholderTMDBKey       = "dummy-tmdb-key"
	StoreDriverBolt          = "bolt"
	StoreDriverMongo         = "mongo"
	defaultDBFilePermissions = 0666
)

type Config struct {
	DataDir             string        `env:"DATA_DIR" envDefault:"."`
	StoreDriver         string        `env:"STORE_DRIVER" envDefault:"bolt"`
	MongoURL            string        `env:"MONGODB_URL"`
	MongoDatabase       string        `env:"MONGODB_DATABASE" envDefault:"streamscout"`
	MongoConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`

	ServerPort  string        `env:"SERVER_PORT" envDefault:"0.0.0.0:3000"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	TMDBBaseURL string `env:"TMDB_BASE_URL" envDefault:"https://api.themoviedb.org"`
	TMDBAPIKey  string `env:"TMDB_API_KEY"`

	FCMProjectID        string `env:"FCM_PROJECT_ID"`
	FCMCredentialsFile  string `env:"FCM_CREDENTIALS_FILE"`
	FCMEndpoint         string `env:"FCM_ENDPOINT" envDefault:"https://fcm.googleapis.com"`
	DeliveryDryRun      bool   `env:"DELIVERY_DRY_RUN" envDefault:"false"`
	DeliveryRatePerSec  int    `env:"DELIVERY_RATE_PER_SEC" envDefault:"50"`
	DeliveryParallelism int    `env:"DELIVERY_PARALLELISM" envDefault:"8"`
	ProfileParallelism  int    `env:"PROFILE_READ_PARALLELISM" envDefault:"8"`

	EpisodeSchedule   string        `env:"EPISODE_SCHEDULE" envDefault:"0 9 * * *"`
	StalenessSchedule string        `env:"STALENESS_SCHEDULE" envDefault:"0 18 * * 6"`
	ScheduleTimezone  string        `env:"SCHEDULE_TIMEZONE" envDefault:"UTC"`
	RunTimeout        time.Duration `env:"RUN_TIMEOUT" envDefault:"30m"`
	StaleAfter        time.Duration `env:"STALE_AFTER" envDefault:"720h"`
	StaleSampleSize   int           `env:"STALE_SAMPLE_SIZE" envDefault:"5"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	DBFilePermissions os.FileMode
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{DBFilePermissions: defaultDBFilePermissions}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.TMDBAPIKey == "" {
		cfg.TMDBAPIKey = PlaceholderTMDBKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverBolt:
	case StoreDriverMongo:
		if c.MongoURL == "" {
			return fmt.Errorf("MONGODB_URL is required when STORE_DRIVER=%s", StoreDriverMongo)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT %q", c.LogFormat)
	}
	if c.StaleSampleSize <= 0 {
		return fmt.Errorf("STALE_SAMPLE_SIZE must be positive")
	}
	if c.StaleAfter <= 0 {
		return fmt.Errorf("STALE_AFTER must be positive")
	}
	if _, err := time.LoadLocation(c.ScheduleTimezone); err != nil {
		return fmt.Errorf("invalid SCHEDULE_TIMEZONE: %w", err)
	}
	return nil
}

// DryRun reports whether push delivery should only be logged, either because
// it was requested or because no FCM credentials are configured.
func (c *Config) DryRun() bool {
	return c.DeliveryDryRun || c.FCMProjectID == "" || c.FCMCredentialsFile == ""
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "streamscout.db")
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ScheduleTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
