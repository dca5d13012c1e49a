// Package config loads application configuration by layering
// defaults, the config file, ZAPVIEW_* environment variables and
// command-line flags, in that order of precedence.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"

	"zapview/internal/timeutil"
)

// envPrefix is the prefix for environment overrides, e.g.
// ZAPVIEW_PORT.
const envPrefix = "zapview"

// Config holds all application configuration.
type Config struct {
	Host       string        `json:"host" envconfig:"HOST"`
	Port       int           `json:"port" envconfig:"PORT"`
	DataDir    string        `json:"data_dir" envconfig:"DATA_DIR"`
	IngestDir  string        `json:"ingest_dir" envconfig:"INGEST_DIR"`
	Timezone   string        `json:"timezone" envconfig:"TIMEZONE"`
	RateQuota  int           `json:"rate_quota" envconfig:"RATE_QUOTA"`
	RateWindow time.Duration `json:"rate_window" envconfig:"RATE_WINDOW"`

	DBPath       string        `json:"-" ignored:"true"`
	WriteTimeout time.Duration `json:"-" ignored:"true"`
}

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	dataDir := filepath.Join(home, ".zapview")
	return Config{
		Host:         "127.0.0.1",
		Port:         8080,
		DataDir:      dataDir,
		IngestDir:    filepath.Join(dataDir, "exports"),
		Timezone:     timeutil.DefaultZone,
		RateQuota:    100,
		RateWindow:   time.Minute,
		WriteTimeout: 30 * time.Second,
	}, nil
}

// Load builds a Config by layering: defaults < config file < env
// < flags. The provided FlagSet must already be parsed by the
// caller. Only flags that were explicitly set override the lower
// layers.
func Load(fs *flag.FlagSet) (Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg, fs)
	return cfg, nil
}

// LoadMinimal builds a Config from defaults, config file and env,
// without parsing CLI flags. Use this for subcommands that manage
// their own flag sets.
func LoadMinimal() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}

	// The data dir decides where the config file lives, so its
	// env override applies before the file is read.
	if v := os.Getenv("ZAPVIEW_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.DBPath = filepath.Join(cfg.DataDir, "zapview.db")
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file struct {
		Host       string `json:"host"`
		Port       int    `json:"port"`
		IngestDir  string `json:"ingest_dir"`
		Timezone   string `json:"timezone"`
		RateQuota  *int   `json:"rate_quota"`
		RateWindow string `json:"rate_window"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if file.Host != "" {
		c.Host = file.Host
	}
	if file.Port != 0 {
		c.Port = file.Port
	}
	if file.IngestDir != "" {
		c.IngestDir = file.IngestDir
	}
	if file.Timezone != "" {
		c.Timezone = file.Timezone
	}
	if file.RateQuota != nil {
		c.RateQuota = *file.RateQuota
	}
	if file.RateWindow != "" {
		d, err := time.ParseDuration(file.RateWindow)
		if err != nil {
			return fmt.Errorf("parsing rate_window: %w", err)
		}
		c.RateWindow = d
	}
	return nil
}

// RegisterServeFlags registers serve-command flags on fs.
// The caller must call fs.Parse before passing fs to Load.
func RegisterServeFlags(fs *flag.FlagSet) {
	fs.String("host", "127.0.0.1", "Host to bind to")
	fs.Int("port", 8080, "Port to listen on")
	fs.String("ingest-dir", "", "Directory of JSONL chat exports to ingest")
	fs.String("timezone", timeutil.DefaultZone, "Dashboard timezone")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = f.Value.String()
		case "port":
			// flag already validated the int; ignore parse error
			cfg.Port, _ = strconv.Atoi(f.Value.String())
		case "ingest-dir":
			cfg.IngestDir = f.Value.String()
		case "timezone":
			cfg.Timezone = f.Value.String()
		}
	})
}
