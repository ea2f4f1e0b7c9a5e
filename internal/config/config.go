package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the dbas API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Reference ReferenceConfig `yaml:"reference"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error (default: determined by env)
	Encoding string `yaml:"encoding"` // json, console (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ReferenceConfig locates the reference tables and describes their layout.
type ReferenceConfig struct {
	RatingsPath          string       `yaml:"ratings_path"`
	CorrelationsPath     string       `yaml:"correlations_path"`
	CorrelationDelimiter string       `yaml:"correlation_delimiter"` // default ";"
	GroupsPath           string       `yaml:"groups_path"`           // optional
	ScoresPath           string       `yaml:"scores_path"`           // optional
	Scores               ScoresConfig `yaml:"scores"`
	AudioDir             string       `yaml:"audio_dir"`
	IDColumn             string       `yaml:"id_column"` // default "sound"
	Dimensions           []string     `yaml:"dimensions"`
	DimensionRange       []int        `yaml:"dimension_range"` // [from, to) header positions
}

// ScoresConfig describes the group score table.
type ScoresConfig struct {
	Layout            string `yaml:"layout"` // long (default) | wide
	Scale             string `yaml:"scale"`  // percent (default) | fraction
	IDColumn          string `yaml:"id_column"`
	FamiliarityOffset int    `yaml:"familiarity_offset"` // wide layout only, default 12
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	DefaultTopN   int    `yaml:"default_top_n"`
	DefaultMetric string `yaml:"default_metric"` // euclidean | mahalanobis
}

// CacheConfig holds match cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"`
}

// StorageConfig holds cache store connection settings.
type StorageConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expands ${VAR} references, applies
// defaults and validates the result.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Reference.CorrelationDelimiter == "" {
		c.Reference.CorrelationDelimiter = ";"
	}
	if c.Reference.IDColumn == "" {
		c.Reference.IDColumn = "sound"
	}
	if c.Reference.Scores.Layout == "" {
		c.Reference.Scores.Layout = "long"
	}
	if c.Reference.Scores.Scale == "" {
		c.Reference.Scores.Scale = "percent"
	}
	if c.Reference.Scores.FamiliarityOffset <= 0 {
		c.Reference.Scores.FamiliarityOffset = 12
	}
	if c.Search.DefaultTopN <= 0 {
		c.Search.DefaultTopN = 5
	}
	if c.Search.DefaultMetric == "" {
		c.Search.DefaultMetric = "euclidean"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Storage.ReadinessTimeout <= 0 {
		c.Storage.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "dbas:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Reference.RatingsPath == "" {
		return fmt.Errorf("reference.ratings_path is required")
	}
	if c.Reference.CorrelationsPath == "" {
		return fmt.Errorf("reference.correlations_path is required")
	}
	if n := len([]rune(c.Reference.CorrelationDelimiter)); n != 1 {
		return fmt.Errorf("reference.correlation_delimiter must be a single character, got %q",
			c.Reference.CorrelationDelimiter)
	}
	switch c.Reference.Scores.Layout {
	case "long", "wide":
	default:
		return fmt.Errorf("reference.scores.layout must be \"long\" or \"wide\", got %q", c.Reference.Scores.Layout)
	}
	switch c.Reference.Scores.Scale {
	case "percent", "fraction":
	default:
		return fmt.Errorf("reference.scores.scale must be \"percent\" or \"fraction\", got %q", c.Reference.Scores.Scale)
	}
	if len(c.Reference.Dimensions) > 0 && len(c.Reference.DimensionRange) > 0 {
		return fmt.Errorf("reference.dimensions and reference.dimension_range are mutually exclusive")
	}
	if r := c.Reference.DimensionRange; len(r) > 0 && (len(r) != 2 || r[0] < 0 || r[0] >= r[1]) {
		return fmt.Errorf("reference.dimension_range must be [from, to) with 0 <= from < to, got %v", r)
	}
	if c.Search.DefaultTopN < 1 || c.Search.DefaultTopN > 10 {
		return fmt.Errorf("search.default_top_n must be between 1 and 10, got %d", c.Search.DefaultTopN)
	}
	switch c.Search.DefaultMetric {
	case "euclidean", "mahalanobis":
	default:
		return fmt.Errorf("search.default_metric must be \"euclidean\" or \"mahalanobis\", got %q",
			c.Search.DefaultMetric)
	}
	switch c.Logging.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.encoding must be \"json\" or \"console\", got %q", c.Logging.Encoding)
	}
	if c.Cache.Enabled && len(c.Storage.Addrs) == 0 {
		return fmt.Errorf("storage.addrs is required when cache is enabled")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
