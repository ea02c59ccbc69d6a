// Package config loads engine configuration from the environment, with
// optional .env file support.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"gutpulse-engine/pkg/errors"
	"gutpulse-engine/pkg/events"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Analysis  AnalysisConfig  `json:"analysis"`
	Database  DatabaseConfig  `json:"database"`
	Messaging MessagingConfig `json:"messaging"`
	HTTP      HTTPConfig      `json:"http"`
}

// LoggingConfig holds log output configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // "json" or "text"
}

// AnalysisConfig holds the acoustic analysis tunables
type AnalysisConfig struct {
	// Detector carries the event detection and classifier thresholds.
	Detector events.DetectorConfig `json:"detector"`

	// DefaultSampleRate applies when the input source reports none.
	DefaultSampleRate float64 `json:"default_sample_rate"`
}

// DatabaseConfig holds session store connection settings
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Name     string `json:"name"`
	User     string `json:"user"`
	Password string `json:"-"`
}

// MessagingConfig holds AMQP publishing settings
type MessagingConfig struct {
	URL       string `json:"url"` // empty disables publishing
	QueueName string `json:"queue_name"`
}

// HTTPConfig holds the metrics endpoint settings
type HTTPConfig struct {
	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsAddr    string `json:"metrics_addr"`
}

// Load reads configuration from a .env file (when present) and the
// environment.
func Load(logger *logrus.Logger) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		path, _ := filepath.Abs(".env")
		logger.WithField("path", path).Info("Loaded .env file")
	} else {
		logger.Debug("No .env file found, using environment variables only")
	}

	cfg := &Config{
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Analysis: AnalysisConfig{
			Detector:          events.DefaultDetectorConfig(),
			DefaultSampleRate: getEnvFloat("DEFAULT_SAMPLE_RATE", 44100),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 3306),
			Name:     getEnv("DB_NAME", "gutpulse"),
			User:     getEnv("DB_USER", "gutpulse"),
			Password: getEnv("DB_PASSWORD", ""),
		},
		Messaging: MessagingConfig{
			URL:       getEnv("AMQP_URL", ""),
			QueueName: getEnv("AMQP_QUEUE", "gutpulse.analytics"),
		},
		HTTP: HTTPConfig{
			MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
			MetricsAddr:    getEnv("METRICS_ADDR", ":9090"),
		},
	}

	// Detector threshold overrides
	cfg.Analysis.Detector.NoiseFloor = getEnvFloat("DETECTOR_NOISE_FLOOR", cfg.Analysis.Detector.NoiseFloor)
	cfg.Analysis.Detector.ThresholdStdFactor = getEnvFloat("DETECTOR_THRESHOLD_STD_FACTOR", cfg.Analysis.Detector.ThresholdStdFactor)
	cfg.Analysis.Detector.MaxBreathConfidence = getEnvFloat("DETECTOR_MAX_BREATH_CONFIDENCE", cfg.Analysis.Detector.MaxBreathConfidence)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Analysis.DefaultSampleRate <= 0 {
		return errors.Wrap(errors.ErrInvalidInput, "DEFAULT_SAMPLE_RATE must be positive")
	}
	if c.Analysis.Detector.MinEventMs >= c.Analysis.Detector.MaxEventMs {
		return errors.Wrap(errors.ErrInvalidInput, "detector minimum event duration must be below maximum")
	}
	if c.Database.Enabled && c.Database.Host == "" {
		return errors.Wrap(errors.ErrInvalidInput, "DB_HOST required when DB_ENABLED")
	}
	return nil
}

// DSN returns the MySQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// ConfigureLogger applies the logging config to a logrus logger.
func (c LoggingConfig) ConfigureLogger(logger *logrus.Logger) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
