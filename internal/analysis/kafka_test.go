package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerDefaults(t *testing.T) {
	p, err := NewProducer(ProducerConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "machine-learning",
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, p.config.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, p.config.RetryBackoff)
	assert.Equal(t, 10*time.Second, p.config.WriteTimeout)
	assert.Equal(t, 100, p.config.BatchSize)
}

func TestNewProducerValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  ProducerConfig
		wantErr string
	}{
		{
			name:    "empty brokers",
			config:  ProducerConfig{Topic: "t"},
			wantErr: "brokers list is empty",
		},
		{
			name:    "empty topic",
			config:  ProducerConfig{Brokers: []string{"localhost:9092"}},
			wantErr: "topic is empty",
		},
		{
			name: "negative max retries",
			config: ProducerConfig{
				Brokers:    []string{"localhost:9092"},
				Topic:      "t",
				MaxRetries: -1,
			},
			wantErr: "max_retries cannot be negative",
		},
		{
			name: "negative retry backoff",
			config: ProducerConfig{
				Brokers:      []string{"localhost:9092"},
				Topic:        "t",
				RetryBackoff: -time.Second,
			},
			wantErr: "retry_backoff cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProducer(tt.config)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsRetriable(t *testing.T) {
	assert.False(t, isRetriable(nil))
	assert.False(t, isRetriable(context.Canceled))
	assert.False(t, isRetriable(context.DeadlineExceeded))
	assert.False(t, isRetriable(errors.New("invalid message format")))
	assert.True(t, isRetriable(errors.New("connection refused")))
	assert.True(t, isRetriable(errors.New("i/o timeout")))
	assert.True(t, isRetriable(errors.New("leader not available")))
}
