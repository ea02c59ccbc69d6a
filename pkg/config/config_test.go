package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gutpulse-engine/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"LOG_LEVEL", "DEFAULT_SAMPLE_RATE", "DB_ENABLED", "AMQP_QUEUE", "METRICS_ADDR"} {
		t.Setenv(key, "")
	}

	logger := logrus.New()
	cfg, err := Load(logger)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 44100.0, cfg.Analysis.DefaultSampleRate)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "gutpulse.analytics", cfg.Messaging.QueueName)
	assert.Equal(t, ":9090", cfg.HTTP.MetricsAddr)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEFAULT_SAMPLE_RATE", "8000")
	t.Setenv("DETECTOR_MAX_BREATH_CONFIDENCE", "0.8")
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := Load(logrus.New())
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 8000.0, cfg.Analysis.DefaultSampleRate)
	assert.Equal(t, 0.8, cfg.Analysis.Detector.MaxBreathConfidence)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestValidateRejectsBadSampleRate(t *testing.T) {
	t.Setenv("DEFAULT_SAMPLE_RATE", "-1")

	_, err := Load(logrus.New())
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestDSNFormat(t *testing.T) {
	db := DatabaseConfig{
		Host: "localhost", Port: 3306,
		Name: "gutpulse", User: "app", Password: "secret",
	}
	assert.Equal(t, "app:secret@tcp(localhost:3306)/gutpulse?parseTime=true", db.DSN())
}

func TestConfigureLoggerFallsBackOnBadLevel(t *testing.T) {
	logger := logrus.New()
	LoggingConfig{Level: "nonsense", Format: "json"}.ConfigureLogger(logger)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
