package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Fuseki     FusekiConfig
	PostgreSQL PostgreSQLConfig
	Search     SearchConfig
	Scoring    ScoringConfig
	Translator TranslatorConfig
	Logging    LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// FusekiConfig holds triple store configuration
type FusekiConfig struct {
	URL           string
	Dataset       string
	Username      string
	Password      string
	Timeout       int // seconds
	MaxRetries    int
	RetryInterval time.Duration
}

// PostgreSQLConfig holds the search log database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, takes precedence over the fields below
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	Enabled            bool
}

// SearchConfig holds search-related configuration
type SearchConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// ScoringConfig holds relevance score weights
type ScoringConfig struct {
	WeightName      float64
	WeightAttribute float64
	WeightMedical   float64
}

// TranslatorConfig holds question analysis configuration
type TranslatorConfig struct {
	AnalyzerMode string // keyword or lemma
	LexiconPath  string // empty uses the embedded lexicon
	CacheSize    int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	dsn := getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", "")))

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Fuseki: FusekiConfig{
			URL:           getEnv("FUSEKI_URL", "http://localhost:3030"),
			Dataset:       getEnv("FUSEKI_DATASET", "nutrition"),
			Username:      getEnv("FUSEKI_USERNAME", "admin"),
			Password:      getEnv("FUSEKI_PASSWORD", "admin"),
			Timeout:       getEnvAsInt("FUSEKI_TIMEOUT", 10),
			MaxRetries:    getEnvAsInt("FUSEKI_MAX_RETRIES", 2),
			RetryInterval: time.Duration(getEnvAsInt("FUSEKI_RETRY_INTERVAL_MS", 200)) * time.Millisecond,
		},
		PostgreSQL: PostgreSQLConfig{
			DSN:                dsn,
			Host:               getEnv("PG_HOST", ""),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "nutrition_search"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 2),
		},
		Search: SearchConfig{
			DefaultLimit: getEnvAsInt("SEARCH_DEFAULT_LIMIT", 20),
			MaxLimit:     getEnvAsInt("SEARCH_MAX_LIMIT", 100),
		},
		Scoring: ScoringConfig{
			WeightName:      getEnvAsFloat("SCORE_WEIGHT_NAME", 2.0),
			WeightAttribute: getEnvAsFloat("SCORE_WEIGHT_ATTRIBUTE", 0.5),
			WeightMedical:   getEnvAsFloat("SCORE_WEIGHT_MEDICAL", 1.0),
		},
		Translator: TranslatorConfig{
			AnalyzerMode: strings.ToLower(getEnv("ANALYZER_MODE", "keyword")),
			LexiconPath:  getEnv("LEXICON_PATH", ""),
			CacheSize:    getEnvAsInt("TRANSLATION_CACHE_SIZE", 1024),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// The search log is optional: enabled by a DSN or an explicit host
	cfg.PostgreSQL.Enabled = getEnvAsBool("SEARCH_LOG_ENABLED", dsn != "" || cfg.PostgreSQL.Host != "")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	var errs []error
	if c.Fuseki.URL == "" {
		errs = append(errs, errors.New("FUSEKI_URL is required"))
	}
	if c.Fuseki.Dataset == "" {
		errs = append(errs, errors.New("FUSEKI_DATASET is required"))
	}
	switch c.Translator.AnalyzerMode {
	case "keyword", "lemma":
	default:
		errs = append(errs, fmt.Errorf("ANALYZER_MODE must be keyword or lemma, got %q", c.Translator.AnalyzerMode))
	}
	if c.Search.MaxLimit < 1 || c.Search.MaxLimit > 100 {
		errs = append(errs, fmt.Errorf("SEARCH_MAX_LIMIT must be between 1 and 100, got %d", c.Search.MaxLimit))
	}
	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > c.Search.MaxLimit {
		errs = append(errs, fmt.Errorf("SEARCH_DEFAULT_LIMIT must be between 1 and SEARCH_MAX_LIMIT, got %d", c.Search.DefaultLimit))
	}
	return errors.Join(errs...)
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	host := c.PostgreSQL.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}
