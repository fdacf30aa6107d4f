package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// ProducerConfig configures the Kafka producer behind the dispatcher.
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	MaxRetries   int
	RetryBackoff time.Duration
	WriteTimeout time.Duration
	BatchSize    int
	Logger       zerolog.Logger
}

// Producer publishes analysis jobs to the machine-learning topic.
type Producer struct {
	writer *kafkago.Writer
	config ProducerConfig
}

// NewProducer validates the config, applies defaults and constructs a
// producer.
func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka producer: brokers list is empty")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka producer: topic is empty")
	}
	if cfg.MaxRetries < 0 {
		return nil, errors.New("kafka producer: max_retries cannot be negative")
	}
	if cfg.RetryBackoff < 0 {
		return nil, errors.New("kafka producer: retry_backoff cannot be negative")
	}
	if cfg.WriteTimeout < 0 {
		return nil, errors.New("kafka producer: write_timeout cannot be negative")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}

	return &Producer{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafkago.LeastBytes{},
			BatchSize:    cfg.BatchSize,
			WriteTimeout: cfg.WriteTimeout,
		},
		config: cfg,
	}, nil
}

// Publish writes a single message, retrying transient broker errors.
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	msg := kafkago.Message{Key: []byte(key), Value: value}

	var err error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			p.config.Logger.Debug().
				Int("attempt", attempt).
				Str("key", key).
				Msg("kafka publish retry")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.config.RetryBackoff << (attempt - 1)):
			}
		}
		err = p.writer.WriteMessages(ctx, msg)
		if err == nil {
			return nil
		}
		if !isRetriable(err) {
			break
		}
	}
	return fmt.Errorf("kafka publish: %w", err)
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func isRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"i/o timeout",
		"leader not available",
		"broken pipe",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
