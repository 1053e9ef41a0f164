package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/ledgerbot/internal/callback"
	"github.com/Veraticus/ledgerbot/internal/common"
	"github.com/Veraticus/ledgerbot/internal/storage"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable viper reads.
const EnvPrefix = "LEDGERBOT"

// MinMaxPayload is the smallest accepted callback payload ceiling. Packed
// references such as "cb:-1001234567890:2147483647:99" must fit under it for
// any chat ID and message ID.
const MinMaxPayload = 48

// Defaults.
const (
	DefaultBatchDelay  = 2 * time.Second
	DefaultPollTimeout = 60
	DefaultWorkers     = 8
)

// Config holds all runtime settings.
type Config struct {
	Logging  LoggingConfig
	Telegram TelegramConfig
	Storage  StorageConfig
	Batch    BatchConfig
	Callback CallbackConfig
	Report   ReportConfig
}

// TelegramConfig configures the Bot API connection.
type TelegramConfig struct {
	Token       string
	PollTimeout int
	Workers     int
	Debug       bool
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string
	Path   string
}

// BatchConfig controls batch aggregation.
type BatchConfig struct {
	Delay time.Duration
}

// CallbackConfig controls inline button payloads.
type CallbackConfig struct {
	MaxPayload int
}

// ReportConfig controls /report output.
type ReportConfig struct {
	Charts bool
}

// LoggingConfig controls the default logger.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("telegram.poll_timeout", DefaultPollTimeout)
	v.SetDefault("telegram.workers", DefaultWorkers)
	v.SetDefault("storage.driver", storage.DriverSQLite)
	v.SetDefault("storage.path", "~/.local/share/ledgerbot/ledger.db")
	v.SetDefault("batch.delay", DefaultBatchDelay)
	v.SetDefault("callback.max_payload", callback.DefaultMaxPayload)
	v.SetDefault("report.charts", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Telegram: TelegramConfig{
			Token:       v.GetString("telegram.token"),
			Debug:       v.GetBool("telegram.debug"),
			PollTimeout: v.GetInt("telegram.poll_timeout"),
			Workers:     v.GetInt("telegram.workers"),
		},
		Storage: StorageConfig{
			Driver: v.GetString("storage.driver"),
			Path:   ExpandPath(v.GetString("storage.path")),
		},
		Batch:    BatchConfig{Delay: v.GetDuration("batch.delay")},
		Callback: CallbackConfig{MaxPayload: v.GetInt("callback.max_payload")},
		Report:   ReportConfig{Charts: v.GetBool("report.charts")},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case storage.DriverMemory:
	case storage.DriverYAML, storage.DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage.path is required for driver %q", common.ErrInvalidConfig, c.Storage.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", common.ErrInvalidConfig, c.Storage.Driver)
	}
	if c.Batch.Delay <= 0 {
		return fmt.Errorf("%w: batch.delay must be positive, got %s", common.ErrInvalidConfig, c.Batch.Delay)
	}
	if c.Callback.MaxPayload < MinMaxPayload {
		return fmt.Errorf("%w: callback.max_payload must be at least %d, got %d",
			common.ErrInvalidConfig, MinMaxPayload, c.Callback.MaxPayload)
	}
	if c.Telegram.PollTimeout < 0 || c.Telegram.Workers < 0 {
		return fmt.Errorf("%w: telegram.poll_timeout and telegram.workers must not be negative", common.ErrInvalidConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// RequireToken reports a missing bot token.
func (c *Config) RequireToken() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%w: telegram.token (or %s_TELEGRAM_TOKEN)", common.ErrMissingConfig, EnvPrefix)
	}
	return nil
}

// EnsureStorageDir creates the directory that will hold the store.
func (c *Config) EnsureStorageDir() error {
	var dir string
	switch c.Storage.Driver {
	case storage.DriverYAML:
		dir = c.Storage.Path
	case storage.DriverSQLite:
		dir = filepath.Dir(c.Storage.Path)
	default:
		return nil
	}
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	return nil
}
