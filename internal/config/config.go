// Package config loads EnvPatrol settings from defaults, an optional YAML
// file and ENVPATROL_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/had-nu/envpatrol/internal/history"
	"github.com/had-nu/envpatrol/internal/log"
	"github.com/had-nu/envpatrol/internal/normalizer"
	"github.com/had-nu/envpatrol/internal/scanner"
	"github.com/had-nu/envpatrol/internal/types"
)

const envPrefix = "ENVPATROL"

// SearchPaths are tried in order when no config file is given explicitly.
var SearchPaths = []string{
	".envpatrol.yaml",
	"~/.config/envpatrol/config.yaml",
}

type Config struct {
	MaxInputBytes int           `mapstructure:"max_input_bytes"`
	ScanTimeout   time.Duration `mapstructure:"scan_timeout"`
	FailOn        string        `mapstructure:"fail_on"`
	Include       []string      `mapstructure:"include"`

	AutoFixPaid bool   `mapstructure:"auto_fix_paid"`
	PDFPaid     bool   `mapstructure:"pdf_paid"`
	HistoryPaid bool   `mapstructure:"history_paid"`
	LicenseKey  string `mapstructure:"license_key"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Normalize Normalize `mapstructure:"normalize"`
	History   History   `mapstructure:"history"`
	Server    Server    `mapstructure:"server"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type Normalize struct {
	Duplicates    string `mapstructure:"duplicates"`
	MissingAssign string `mapstructure:"missing_assign"`
}

type History struct {
	Path     string `mapstructure:"path"`
	Limit    int    `mapstructure:"limit"`
	StoreRaw bool   `mapstructure:"store_raw"`
}

type Server struct {
	Addr     string        `mapstructure:"addr"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("max_input_bytes", scanner.DefaultMaxInputBytes)
	v.SetDefault("scan_timeout", scanner.DefaultTimeout)
	v.SetDefault("fail_on", string(types.SeverityHigh))
	v.SetDefault("include", scanner.DefaultIncludes)
	v.SetDefault("auto_fix_paid", false)
	v.SetDefault("pdf_paid", false)
	v.SetDefault("history_paid", false)
	v.SetDefault("license_key", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("normalize.duplicates", string(normalizer.KeepFirst))
	v.SetDefault("normalize.missing_assign", string(normalizer.Drop))
	v.SetDefault("history.path", history.DefaultPath)
	v.SetDefault("history.limit", history.DefaultLimit)
	v.SetDefault("history.store_raw", false)
	v.SetDefault("server.addr", "127.0.0.1:8787")
	v.SetDefault("server.cache_ttl", 5*time.Minute)
}

// Load reads the configuration. An explicit path must exist; otherwise the
// first existing entry of SearchPaths is used, and none at all is fine.
func Load(path string) (Config, error) {
	// isolated instance, the global viper is never touched
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file, err := resolveFile(path)
	if err != nil {
		return Config{}, err
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
		log.Debugf("(config) loaded %s", file)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = file

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveFile(path string) (string, error) {
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return "", fmt.Errorf("expand config path %q: %w", path, err)
		}
		if _, err := os.Stat(expanded); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return expanded, nil
	}

	for _, candidate := range SearchPaths {
		expanded, err := homedir.Expand(candidate)
		if err != nil {
			log.Debugf("(config) skipping %s: %v", candidate, err)
			continue
		}
		if _, err := os.Stat(expanded); err == nil {
			return expanded, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("config file: %w", err)
		}
	}
	return "", nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	if _, err := c.FailOnSeverity(); err != nil {
		return err
	}
	if _, err := normalizer.ParseDuplicatePolicy(c.Normalize.Duplicates); err != nil {
		return fmt.Errorf("normalize.duplicates: %w", err)
	}
	if _, err := normalizer.ParseMissingAssignPolicy(c.Normalize.MissingAssign); err != nil {
		return fmt.Errorf("normalize.missing_assign: %w", err)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format: unknown format %q", c.LogFormat)
	}
	if c.MaxInputBytes < 0 {
		return fmt.Errorf("max_input_bytes: must not be negative")
	}
	return nil
}

// FailOnSeverity returns the parsed fail_on threshold.
func (c Config) FailOnSeverity() (types.Severity, error) {
	sev, ok := types.ParseSeverity(strings.ToLower(c.FailOn))
	if !ok {
		return "", fmt.Errorf("fail_on: unknown severity %q", c.FailOn)
	}
	return sev, nil
}

// ScannerOptions returns the scanner settings derived from c.
func (c Config) ScannerOptions() []scanner.Option {
	return []scanner.Option{
		scanner.WithMaxInputBytes(c.MaxInputBytes),
		scanner.WithTimeout(c.ScanTimeout),
	}
}

// NormalizerOptions returns the normalizer settings derived from c. The
// policies are assumed valid; Load rejects anything else.
func (c Config) NormalizerOptions() []normalizer.Option {
	dup, _ := normalizer.ParseDuplicatePolicy(c.Normalize.Duplicates)
	missing, _ := normalizer.ParseMissingAssignPolicy(c.Normalize.MissingAssign)
	return []normalizer.Option{
		normalizer.WithDuplicatePolicy(dup),
		normalizer.WithMissingAssignPolicy(missing),
		normalizer.WithMaxInputBytes(c.MaxInputBytes),
	}
}

// HistoryOptions returns the history store settings derived from c.
func (c Config) HistoryOptions() []history.Option {
	return []history.Option{
		history.WithLimit(c.History.Limit),
		history.WithRawSamples(c.History.StoreRaw),
	}
}
