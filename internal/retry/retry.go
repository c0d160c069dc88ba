package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts     int           // Maximum number of attempts (default: 3)
	InitialDelay    time.Duration // Delay before the first retry (default: 100ms)
	MaxDelay        time.Duration // Upper bound for the backoff (default: 5s)
	Multiplier      float64       // Exponential backoff multiplier (default: 2.0)
	RetryableErrors []string      // Error substrings treated as transient
}

// DefaultConfig returns default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		RetryableErrors: []string{
			"connection refused",
			"connection reset",
			"connection lost",
			"timeout",
			"network is unreachable",
			"no such host",
			"temporary failure",
			"code: 999", // ClickHouse: Connection lost
			"code: 159", // ClickHouse: Timeout exceeded
			"code: 210", // ClickHouse: Connection pool timeout
		},
	}
}

// IsRetryableError checks if an error is transient
func IsRetryableError(err error, cfg Config) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())

	// Syntax errors never heal on their own
	if strings.Contains(msg, "code: 62") || strings.Contains(msg, "syntax error") {
		return false
	}

	for _, pattern := range cfg.RetryableErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// Do executes operation with retry logic
func Do(ctx context.Context, cfg Config, operation func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, operation()
	})
	return err
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, cfg Config, operation func() (T, error)) (T, error) {
	var zero T
	delay := cfg.InitialDelay
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return zero, fmt.Errorf("context cancelled: %w", ctx.Err())
		}

		result, err := operation()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Operation succeeded after retry")
			}
			return result, nil
		}

		if !IsRetryableError(err, cfg) {
			log.Debug().
				Err(err).
				Int("attempt", attempt).
				Msg("Error is not retryable, aborting")
			return zero, err
		}

		if attempt >= attempts {
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_attempts", attempts).
				Msg("Max retry attempts reached")
			return zero, fmt.Errorf("operation failed after %d attempts: %w", attempts, err)
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("retry_delay", delay).
			Msg("Operation failed, retrying")

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}
