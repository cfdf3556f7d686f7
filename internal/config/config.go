package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Extractor  ExtractorConfig
	Database   DatabaseConfig
	SIS        SISConfig
	Matcher    MatcherConfig
	Storage    StorageConfig
	Web        WebConfig
	Thresholds ThresholdsConfig
}

type ExtractorConfig struct {
	URL            string // face embedding server base URL
	Model          string // model name, used to pick a default threshold
	TimeoutSeconds int    // per-request timeout for detection calls
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (profiles + attendance)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// SISConfig points at the school's student information system database.
// The engine only ever reads from it: students, classes, enrollments.
type SISConfig struct {
	DatabaseURL string // MySQL/MariaDB DSN, e.g. sis:sis@tcp(db:3306)/school
}

type MatcherConfig struct {
	Threshold float64 // explicit override; 0 means use the model default
}

type StorageConfig struct {
	PhotoDir string // directory for enrollment photo files (default ./photos)
}

type WebConfig struct {
	APIToken string // bearer token required by the API; empty disables auth
}

type ThresholdsConfig struct {
	Models map[string]float64 `yaml:"models"`
}

// DefaultMatchThreshold is used when neither an explicit override nor a
// model-specific default applies.
const DefaultMatchThreshold = 0.6

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var thresholds ThresholdsConfig
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// This is an embedded file so this error should never happen in practice.
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	return &Config{
		Extractor: ExtractorConfig{
			URL:            os.Getenv("EXTRACTOR_URL"),
			Model:          os.Getenv("EXTRACTOR_MODEL"),
			TimeoutSeconds: envInt("EXTRACTOR_TIMEOUT_SECONDS", 30),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		SIS: SISConfig{
			DatabaseURL: os.Getenv("SIS_DATABASE_URL"),
		},
		Matcher: MatcherConfig{
			Threshold: envFloat("MATCH_THRESHOLD", 0),
		},
		Storage: StorageConfig{
			PhotoDir: os.Getenv("PHOTO_DIR"),
		},
		Web: WebConfig{
			APIToken: os.Getenv("API_TOKEN"),
		},
		Thresholds: thresholds,
	}
}

// MatchThreshold resolves the effective confidence threshold: an explicit
// MATCH_THRESHOLD wins, then the model default from thresholds.yaml, then
// DefaultMatchThreshold.
func (c *Config) MatchThreshold() float64 {
	if c.Matcher.Threshold > 0 {
		return c.Matcher.Threshold
	}
	if t, ok := c.Thresholds.Models[c.Extractor.Model]; ok && t > 0 {
		return t
	}
	return DefaultMatchThreshold
}
