package config

import (
	"os"
	"strconv"
	"time"

	"aalr/internal"
	"aalr/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Fit      FitConfig
	Ensemble EnsembleConfig
	Logging  LoggingConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds ledger database settings. An empty URL disables
// persistence and runs are kept in memory only.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
}

// Enabled reports whether a ledger database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// FitConfig holds the refinement defaults applied when a request does not
// override them
type FitConfig struct {
	MaxIterations int
	KnotCount     int
	Degree        int
	LowerMultiple float64
	UpperMultiple float64
	Dispersion    string
}

// EnsembleConfig holds the knot-shift aggregation settings
type EnsembleConfig struct {
	Duplicates      int
	ProximityFactor float64
	MaxConcurrent   int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Fit:      loadFitConfig(),
		Ensemble: loadEnsembleConfig(),
		Logging:  loadLoggingConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:         getEnvOrDefault("PORT", "8080"),
		ReadTimeout:  getEnvDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:          getEnvOrDefault("DATABASE_URL", ""),
		MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
	}
}

func loadFitConfig() FitConfig {
	return FitConfig{
		MaxIterations: getEnvIntOrDefault("FIT_MAX_ITERATIONS", 50),
		KnotCount:     getEnvIntOrDefault("FIT_KNOT_COUNT", 23),
		Degree:        getEnvIntOrDefault("FIT_DEGREE", 3),
		LowerMultiple: getEnvFloatOrDefault("FIT_LOWER_MULTIPLE", -10),
		UpperMultiple: getEnvFloatOrDefault("FIT_UPPER_MULTIPLE", 4),
		Dispersion:    getEnvOrDefault("FIT_DISPERSION", "mad"),
	}
}

func loadEnsembleConfig() EnsembleConfig {
	return EnsembleConfig{
		Duplicates:      getEnvIntOrDefault("ENSEMBLE_DUPLICATES", 3),
		ProximityFactor: getEnvFloatOrDefault("ENSEMBLE_PROXIMITY_FACTOR", 0.001),
		MaxConcurrent:   getEnvIntOrDefault("ENSEMBLE_MAX_CONCURRENT", 4),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Fit.MaxIterations < 1 {
		return errors.ConfigInvalid("FIT_MAX_ITERATIONS must be positive")
	}
	if config.Fit.KnotCount < 1 {
		return errors.ConfigInvalid("FIT_KNOT_COUNT must be positive")
	}
	if config.Fit.Degree < 1 {
		return errors.ConfigInvalid("FIT_DEGREE must be positive")
	}
	if config.Fit.LowerMultiple >= 0 {
		return errors.ConfigInvalid("FIT_LOWER_MULTIPLE must be negative")
	}
	if config.Fit.UpperMultiple <= 0 {
		return errors.ConfigInvalid("FIT_UPPER_MULTIPLE must be positive")
	}
	if config.Fit.Dispersion != "mad" && config.Fit.Dispersion != "stddev" {
		return errors.ConfigInvalid("FIT_DISPERSION must be \"mad\" or \"stddev\"")
	}
	if config.Ensemble.Duplicates < 1 {
		return errors.ConfigInvalid("ENSEMBLE_DUPLICATES must be positive")
	}
	if config.Ensemble.ProximityFactor <= 0 || config.Ensemble.ProximityFactor >= 1 {
		return errors.ConfigInvalid("ENSEMBLE_PROXIMITY_FACTOR must be in (0, 1)")
	}
	if config.Ensemble.MaxConcurrent < 1 {
		return errors.ConfigInvalid("ENSEMBLE_MAX_CONCURRENT must be positive")
	}
	if _, ok := internal.ParseLogLevel(config.Logging.Level); !ok {
		return errors.ConfigInvalid("LOG_LEVEL must be one of ERROR, WARN, INFO, DEBUG, TRACE")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
