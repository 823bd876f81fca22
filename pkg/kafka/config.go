package kafka

import (
	"errors"
	"fmt"
	"time"
)

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds producer configuration. Zero values passed through
// options keep the defaults.
type ProducerConfig struct {
	Brokers         []string
	RequiredAcks    int
	Compression     string
	MaxAttempts     int
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	BatchSize       int
	BatchBytes      int
	BatchTimeout    time.Duration
	Async           bool
	HashByKey       bool
	AutoCreateTopic bool
}

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		RequiredAcks:    -1,
		Compression:     "gzip",
		MaxAttempts:     3,
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     10 * time.Second,
		BatchSize:       100,
		BatchBytes:      1 << 20,
		BatchTimeout:    100 * time.Millisecond,
		AutoCreateTopic: true,
	}
}

func (c *ProducerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("brokers are required")
	}
	switch c.RequiredAcks {
	case -1, 0, 1:
	default:
		return fmt.Errorf("required acks must be -1, 0 or 1, got %d", c.RequiredAcks)
	}
	switch c.Compression {
	case "gzip", "snappy", "lz4", "zstd":
	default:
		return fmt.Errorf("unsupported compression %q", c.Compression)
	}
	return nil
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = brokers
	}
}

func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) {
		if compression != "" {
			c.Compression = compression
		}
	}
}

// WithRequiredAcks sets required acknowledgements (-1 = all in-sync replicas).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
	}
}

// WithMaxAttempts sets how often the writer retries a batch.
func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

func WithBatchSize(size int) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.BatchSize = size
		}
	}
}

// WithBatchTimeout sets how long the writer lingers before flushing a batch.
func WithBatchTimeout(timeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if timeout > 0 {
			c.BatchTimeout = timeout
		}
	}
}

func WithBatchBytes(bytes int) ProducerOption {
	return func(c *ProducerConfig) {
		if bytes > 0 {
			c.BatchBytes = bytes
		}
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if write > 0 {
			c.WriteTimeout = write
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

// WithAsync makes writes fire-and-forget. Errors are then only visible in
// the writer's own logs.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.Async = async
	}
}

// WithHashByKey routes messages with the same key (currency) to one partition.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.HashByKey = hash
	}
}

func WithAutoCreateTopic(create bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.AutoCreateTopic = create
	}
}
