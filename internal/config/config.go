// Package config loads gko settings from defaults, a YAML file, a .env file
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables.
const (
	EnvConfigFile    = "GKO_CONFIG"
	EnvDataDir       = "GKO_DATA_DIR"
	EnvArchiveTool   = "GKO_ARCHIVE_TOOL"
	EnvArchiveBinary = "GKO_ARCHIVE_BINARY"
	EnvLogLevel      = "GKO_LOG_LEVEL"
	EnvLogFormat     = "GKO_LOG_FORMAT"
	EnvMetricsFile   = "GKO_METRICS_FILE"
)

// Config holds process-wide settings.
type Config struct {
	// DataDir is the application-private directory holding workspaces,
	// backups, imported stores and window-state files.
	DataDir string `yaml:"data_dir"`

	Archive ArchiveConfig `yaml:"archive"`
	Log     LogConfig     `yaml:"log"`

	// MetricsFile, when set, receives a Prometheus textfile after each command.
	MetricsFile string `yaml:"metrics_file"`
}

// ArchiveConfig selects the container extractor.
type ArchiveConfig struct {
	Tool   string `yaml:"tool"`   // "7za" | "zip"
	Binary string `yaml:"binary"` // path to 7za, defaults to PATH lookup
}

// LogConfig configures slog.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

var (
	validTools      = []string{"7za", "zip"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Merge returns c with every non-empty field of override applied.
func (c Config) Merge(override Config) Config {
	result := c
	if v := strings.TrimSpace(override.DataDir); v != "" {
		result.DataDir = v
	}
	if v := strings.TrimSpace(override.Archive.Tool); v != "" {
		result.Archive.Tool = v
	}
	if v := strings.TrimSpace(override.Archive.Binary); v != "" {
		result.Archive.Binary = v
	}
	if v := strings.TrimSpace(override.Log.Level); v != "" {
		result.Log.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(override.Log.Format); v != "" {
		result.Log.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(override.MetricsFile); v != "" {
		result.MetricsFile = v
	}
	return result
}

// Load builds the configuration. path names a YAML file; when empty,
// GKO_CONFIG is consulted. A missing .env file is ignored.
func Load(path string) (Config, error) {
	if err := LoadEnvFile(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{}
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigFile))
	}
	if path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	cfg = cfg.Merge(fromEnv())

	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a dotenv file without overriding variables
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// Validate rejects unknown enumerated values.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("config: data_dir required")
	}
	if !contains(validTools, c.Archive.Tool) {
		return fmt.Errorf("config: invalid archive tool %q: must be one of %v", c.Archive.Tool, validTools)
	}
	if !contains(validLogLevels, c.Log.Level) {
		return fmt.Errorf("config: invalid log level %q: must be one of %v", c.Log.Level, validLogLevels)
	}
	if !contains(validLogFormats, c.Log.Format) {
		return fmt.Errorf("config: invalid log format %q: must be one of %v", c.Log.Format, validLogFormats)
	}
	return nil
}

// SlogLevel maps Log.Level to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) applyDefaults() error {
	if c.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("config: resolve data dir: %w", err)
		}
		c.DataDir = filepath.Join(base, "gko")
	}
	if c.Archive.Tool == "" {
		c.Archive.Tool = "7za"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	return nil
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func fromEnv() Config {
	return Config{
		DataDir:     strings.TrimSpace(os.Getenv(EnvDataDir)),
		Archive:     ArchiveConfig{Tool: strings.TrimSpace(os.Getenv(EnvArchiveTool)), Binary: strings.TrimSpace(os.Getenv(EnvArchiveBinary))},
		Log:         LogConfig{Level: strings.TrimSpace(os.Getenv(EnvLogLevel)), Format: strings.TrimSpace(os.Getenv(EnvLogFormat))},
		MetricsFile: strings.TrimSpace(os.Getenv(EnvMetricsFile)),
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
