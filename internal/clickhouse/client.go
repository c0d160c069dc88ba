package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/SteelMorgan/log-viewer/internal/retry"
	"github.com/rs/zerolog/log"
)

// Options configures the ClickHouse connection
type Options struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Retry    retry.Config
}

// Client wraps a ClickHouse connection; every call goes through retry
type Client struct {
	conn     clickhouse.Conn
	database string
	retryCfg retry.Config
}

// NewClient connects to ClickHouse and verifies the connection with a ping
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.Username == "" {
		opts.Username = "default"
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", opts.Host, opts.Port)},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := retry.Do(ctx, opts.Retry, func() error {
		return conn.Ping(ctx)
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	log.Info().
		Str("host", opts.Host).
		Int("port", opts.Port).
		Str("database", opts.Database).
		Msg("Connected to ClickHouse")

	return &Client{
		conn:     conn,
		database: opts.Database,
		retryCfg: opts.Retry,
	}, nil
}

// Database returns the database name the client was opened with
func (c *Client) Database() string {
	return c.database
}

// Close closes the connection
func (c *Client) Close() error {
	log.Info().Msg("Closing ClickHouse connection")
	return c.conn.Close()
}

// Query executes a SELECT query with retry logic
func (c *Client) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	return retry.DoWithResult(ctx, c.retryCfg, func() (driver.Rows, error) {
		return c.conn.Query(ctx, query, args...)
	})
}

// Exec executes a non-SELECT statement with retry logic
func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	return retry.Do(ctx, c.retryCfg, func() error {
		return c.conn.Exec(ctx, query, args...)
	})
}
