package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 3, cfg.JPEGWorkers)
	require.Equal(t, 3, cfg.WEBPWorkers)
	require.Equal(t, LogSimple, cfg.LogLevel)
	require.Equal(t, 2*time.Minute, cfg.TranscodeTimeout)
	require.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "machine-learning", cfg.AnalysisTopic)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PREVIEWGEN_JPEG_WORKERS", "5")
	t.Setenv("PREVIEWGEN_WEBP_WORKERS", "1")
	t.Setenv("PREVIEWGEN_LOG_LEVEL", "verbose")
	t.Setenv("PREVIEWGEN_TRANSCODE_TIMEOUT", "30s")
	t.Setenv("PREVIEWGEN_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 5, cfg.JPEGWorkers)
	require.Equal(t, 1, cfg.WEBPWorkers)
	require.Equal(t, LogVerbose, cfg.LogLevel)
	require.Equal(t, 30*time.Second, cfg.TranscodeTimeout)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoadRejectsNonsense(t *testing.T) {
	t.Setenv("PREVIEWGEN_JPEG_WORKERS", "-2")
	t.Setenv("PREVIEWGEN_TRANSCODE_TIMEOUT", "not-a-duration")
	t.Setenv("PREVIEWGEN_LOG_LEVEL", "SHOUTING")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 3, cfg.JPEGWorkers)
	require.Equal(t, 2*time.Minute, cfg.TranscodeTimeout)
	require.Equal(t, LogSimple, cfg.LogLevel)
}
