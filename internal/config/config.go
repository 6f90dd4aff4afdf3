package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for chatfilter.
type Config struct {
	General  GeneralConfig  `json:"general" yaml:"general"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Snapshot SnapshotConfig `json:"snapshot" yaml:"snapshot"`
	Filter   FilterConfig   `json:"filter" yaml:"filter"`
	Report   ReportConfig   `json:"report" yaml:"report"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel" yaml:"logLevel"` // debug | info | warn | error
}

// StoreConfig points at the relational database holding the messages table.
type StoreConfig struct {
	Driver string `json:"driver" yaml:"driver"` // "sqlite" | "postgres"
	DSN    string `json:"dsn" yaml:"dsn"`       // file path for sqlite, connection string for postgres
}

type SnapshotConfig struct {
	Path string `json:"path" yaml:"path"`
}

// FilterConfig holds the spam predicate thresholds.
type FilterConfig struct {
	MaxChars       int     `json:"maxChars" yaml:"maxChars"`
	MaxNewlines    int     `json:"maxNewlines" yaml:"maxNewlines"`
	MinWords       int     `json:"minWords" yaml:"minWords"`
	MinUniqueRatio float64 `json:"minUniqueRatio" yaml:"minUniqueRatio"`
}

type ReportConfig struct {
	RemovedSamples int `json:"removedSamples" yaml:"removedSamples"`
	CleanSamples   int `json:"cleanSamples" yaml:"cleanSamples"`
	PreviewWidth   int `json:"previewWidth" yaml:"previewWidth"`
}

// DefaultConfigPath is looked up relative to the working directory.
func DefaultConfigPath() string {
	return filepath.Join("data", "chatfilter.yaml")
}

// Load reads a JSON or YAML config file (chosen by extension) over Defaults.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Snapshot.Path = ExpandPath(cfg.Snapshot.Path)
	if cfg.Store.Driver == "sqlite" {
		cfg.Store.DSN = ExpandPath(cfg.Store.DSN)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

// Save writes cfg to path, as YAML or JSON depending on the extension.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	switch cfg.Store.Driver {
	case "sqlite", "postgres":
		// valid
	default:
		errs = append(errs, "store.driver must be one of: sqlite, postgres")
	}
	if cfg.Store.DSN == "" {
		errs = append(errs, "store.dsn is required")
	}
	if cfg.Snapshot.Path == "" {
		errs = append(errs, "snapshot.path is required")
	}

	if cfg.Filter.MaxChars < 1 {
		errs = append(errs, "filter.maxChars must be >= 1")
	}
	if cfg.Filter.MaxNewlines < 0 {
		errs = append(errs, "filter.maxNewlines must be >= 0")
	}
	if cfg.Filter.MinWords < 1 {
		errs = append(errs, "filter.minWords must be >= 1")
	}
	if cfg.Filter.MinUniqueRatio <= 0 || cfg.Filter.MinUniqueRatio > 1 {
		errs = append(errs, "filter.minUniqueRatio must be in (0, 1]")
	}

	if cfg.Report.RemovedSamples < 0 || cfg.Report.CleanSamples < 0 {
		errs = append(errs, "report sample counts must be >= 0")
	}
	if cfg.Report.PreviewWidth < 0 {
		errs = append(errs, "report.previewWidth must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
