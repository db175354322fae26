package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/faceauth/internal/constants"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Match     MatchConfig     `yaml:"match"`
	Enroll    EnrollConfig    `yaml:"enroll"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Log       LogConfig       `yaml:"log"`
}

type StoreConfig struct {
	EnrollDir string `yaml:"enroll_dir"` // every enrolled user
	AuthDir   string `yaml:"auth_dir"`   // users allowed to authenticate
	ExportDir string `yaml:"export_dir"`
	Dimension int    `yaml:"dimension"` // 0 lets the first record decide
}

type MatchConfig struct {
	Tolerance float64 `yaml:"tolerance"`
	Consensus string  `yaml:"consensus"` // min, mean or weighted
}

type EnrollConfig struct {
	Samples        int  `yaml:"samples"`
	DuplicateCheck bool `yaml:"duplicate_check"`
}

type ExtractorConfig struct {
	Providers      []string `yaml:"providers"` // tried in order: command, http
	URL            string   `yaml:"url"`
	Interpreters   []string `yaml:"interpreters"`
	Scripts        []string `yaml:"scripts"`
	MinDetScore    float64  `yaml:"min_det_score"`
	MaxImageSize   int      `yaml:"max_image_size"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Timeout returns the per-request extraction timeout.
func (c *ExtractorConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return constants.DefaultExtractorTimeoutSeconds * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a finite float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated list.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

// Load builds the configuration from defaults, the optional file named by
// FACEAUTH_CONFIG, and FACEAUTH_* environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("FACEAUTH_CONFIG"))
}

// LoadFile is Load with an explicit config file. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the operator
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Keys absent from the file keep their defaults.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Store.EnrollDir = envString("FACEAUTH_ENROLL_DIR", c.Store.EnrollDir)
	c.Store.AuthDir = envString("FACEAUTH_AUTH_DIR", c.Store.AuthDir)
	c.Store.ExportDir = envString("FACEAUTH_EXPORT_DIR", c.Store.ExportDir)
	c.Store.Dimension = envInt("FACEAUTH_DIMENSION", c.Store.Dimension)

	c.Match.Tolerance = envFloat("FACEAUTH_TOLERANCE", c.Match.Tolerance)
	c.Match.Consensus = envString("FACEAUTH_CONSENSUS", c.Match.Consensus)

	c.Enroll.Samples = envInt("FACEAUTH_SAMPLES", c.Enroll.Samples)
	c.Enroll.DuplicateCheck = envBool("FACEAUTH_DUPLICATE_CHECK", c.Enroll.DuplicateCheck)

	c.Extractor.Providers = envList("FACEAUTH_PROVIDERS", c.Extractor.Providers)
	c.Extractor.URL = envString("EMBEDDING_URL", c.Extractor.URL)
	c.Extractor.Interpreters = envList("FACEAUTH_INTERPRETERS", c.Extractor.Interpreters)
	c.Extractor.Scripts = envList("FACEAUTH_SCRIPTS", c.Extractor.Scripts)
	c.Extractor.MinDetScore = envFloat("FACEAUTH_MIN_DET_SCORE", c.Extractor.MinDetScore)
	c.Extractor.MaxImageSize = envInt("FACEAUTH_MAX_IMAGE_SIZE", c.Extractor.MaxImageSize)
	c.Extractor.TimeoutSeconds = envInt("FACEAUTH_EXTRACTOR_TIMEOUT", c.Extractor.TimeoutSeconds)

	c.Log.Level = envString("FACEAUTH_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envString("FACEAUTH_LOG_FORMAT", c.Log.Format)
}

var knownProviders = map[string]bool{"command": true, "http": true}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Store.EnrollDir == "" {
		errs = append(errs, errors.New("store.enroll_dir must not be empty"))
	}
	if c.Store.AuthDir == "" {
		errs = append(errs, errors.New("store.auth_dir must not be empty"))
	}
	if c.Store.EnrollDir != "" && c.Store.EnrollDir == c.Store.AuthDir {
		errs = append(errs, errors.New("store.enroll_dir and store.auth_dir must differ"))
	}
	if c.Store.Dimension < 0 {
		errs = append(errs, errors.New("store.dimension must be >= 0"))
	}
	if math.IsNaN(c.Match.Tolerance) || c.Match.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("match.tolerance must be >= 0, got %v", c.Match.Tolerance))
	}
	switch strings.ToLower(c.Match.Consensus) {
	case "", "min", "mean", "weighted":
	default:
		errs = append(errs, fmt.Errorf("match.consensus %q is not one of min, mean, weighted", c.Match.Consensus))
	}
	if c.Enroll.Samples < 1 || c.Enroll.Samples > constants.MaxSampleCount {
		errs = append(errs, fmt.Errorf("enroll.samples must be between 1 and %d, got %d", constants.MaxSampleCount, c.Enroll.Samples))
	}
	for _, p := range c.Extractor.Providers {
		if !knownProviders[p] {
			errs = append(errs, fmt.Errorf("extractor.providers: unknown provider %q", p))
		}
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not console or json", c.Log.Format))
	}
	return multierr.Combine(errs...)
}
