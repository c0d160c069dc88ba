package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/SteelMorgan/log-viewer/internal/domain"
	"github.com/rs/zerolog/log"
)

// Conn is the subset of the ClickHouse client used by ClickHouseStore
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
	Database() string
	Close() error
}

// ClickHouseStore implements IndexStore on a ReplacingMergeTree table.
// Rows are versioned by insert time and read with FINAL, so the latest save wins.
type ClickHouseStore struct {
	conn  Conn
	table string
}

// NewClickHouseStore creates the file_indices table if absent
func NewClickHouseStore(ctx context.Context, conn Conn) (*ClickHouseStore, error) {
	s := &ClickHouseStore{
		conn:  conn,
		table: conn.Database() + "." + bucketName,
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		path String,
		total_lines UInt64,
		line_offsets String,
		file_size UInt64,
		encoding LowCardinality(String),
		file_mtime Int64,
		indexed_at String,
		fingerprint UInt64,
		version DateTime64(9)
	) ENGINE = ReplacingMergeTree(version)
	ORDER BY path`, s.table)

	if err := conn.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("%w: failed to create table %s: %w", domain.ErrStorage, s.table, err)
	}

	log.Info().
		Str("table", s.table).
		Msg("ClickHouse index store initialized")

	return s, nil
}

// Save inserts a new row version for idx.Path
func (s *ClickHouseStore) Save(ctx context.Context, idx *domain.LineIndex, mtime int64) error {
	query := fmt.Sprintf(`INSERT INTO %s
		(path, total_lines, line_offsets, file_size, encoding, file_mtime, indexed_at, fingerprint, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)

	err := s.conn.Exec(ctx, query,
		idx.Path,
		idx.TotalLines,
		string(EncodeOffsets(idx.LineStartOffsets)),
		idx.FileSize,
		string(idx.Encoding),
		mtime,
		formatIndexedAt(idx.IndexedAt),
		idx.Fingerprint,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save index for %s: %w", domain.ErrStorage, idx.Path, err)
	}
	return nil
}

// Get retrieves the latest row for path
func (s *ClickHouseStore) Get(ctx context.Context, path string) (*domain.LineIndex, error) {
	return s.get(ctx, path, true)
}

// GetSummary skips the line_offsets column
func (s *ClickHouseStore) GetSummary(ctx context.Context, path string) (*domain.LineIndex, error) {
	return s.get(ctx, path, false)
}

func (s *ClickHouseStore) GetStatus(ctx context.Context, path string) (domain.IndexStatus, error) {
	entries, err := s.statuses(ctx, "WHERE path = ?", path)
	if err != nil {
		return domain.IndexStatus{}, fmt.Errorf("%w: failed to get index status for %s: %w", domain.ErrStorage, path, err)
	}
	if len(entries) == 0 {
		return domain.IndexStatus{}, nil
	}
	return entries[0].IndexStatus, nil
}

// Delete removes every row version for path
func (s *ClickHouseStore) Delete(ctx context.Context, path string) error {
	query := fmt.Sprintf(`ALTER TABLE %s DELETE WHERE path = ?`, s.table)
	if err := s.conn.Exec(ctx, query, path); err != nil {
		return fmt.Errorf("%w: failed to delete index for %s: %w", domain.ErrStorage, path, err)
	}
	return nil
}

// List returns every stored status ordered by path
func (s *ClickHouseStore) List(ctx context.Context) ([]domain.IndexStatusEntry, error) {
	entries, err := s.statuses(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list indexes: %w", domain.ErrStorage, err)
	}
	return entries, nil
}

// Close closes the underlying connection
func (s *ClickHouseStore) Close() error {
	return s.conn.Close()
}

func (s *ClickHouseStore) statuses(ctx context.Context, where string, args ...any) ([]domain.IndexStatusEntry, error) {
	query := fmt.Sprintf(`SELECT path, total_lines, indexed_at FROM %s FINAL %s ORDER BY path`, s.table, where)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.IndexStatusEntry
	for rows.Next() {
		var (
			entry     domain.IndexStatusEntry
			indexedAt string
		)
		if err := rows.Scan(&entry.Path, &entry.TotalLines, &indexedAt); err != nil {
			return nil, err
		}
		ts, err := parseIndexedAt(indexedAt)
		if err != nil {
			return nil, err
		}
		entry.Indexed = true
		entry.IndexedAt = &ts
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *ClickHouseStore) get(ctx context.Context, path string, withOffsets bool) (*domain.LineIndex, error) {
	offsetsCol := "''"
	if withOffsets {
		offsetsCol = "line_offsets"
	}
	query := fmt.Sprintf(`SELECT total_lines, %s, file_size, encoding, file_mtime, indexed_at, fingerprint
		FROM %s FINAL WHERE path = ? LIMIT 1`, offsetsCol, s.table)

	rows, err := s.conn.Query(ctx, query, path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get index for %s: %w", domain.ErrStorage, path, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: failed to get index for %s: %w", domain.ErrStorage, path, err)
		}
		return nil, nil
	}

	var (
		idx       = domain.LineIndex{Path: path}
		blob      string
		enc       string
		indexedAt string
	)
	if err := rows.Scan(&idx.TotalLines, &blob, &idx.FileSize, &enc, &idx.FileMtime, &indexedAt, &idx.Fingerprint); err != nil {
		return nil, fmt.Errorf("%w: failed to scan index for %s: %w", domain.ErrStorage, path, err)
	}

	if withOffsets {
		if idx.LineStartOffsets, err = DecodeOffsets([]byte(blob), idx.TotalLines); err != nil {
			return nil, fmt.Errorf("%w: corrupt index for %s: %w", domain.ErrStorage, path, err)
		}
	}
	if idx.IndexedAt, err = parseIndexedAt(indexedAt); err != nil {
		return nil, fmt.Errorf("%w: corrupt index for %s: %w", domain.ErrStorage, path, err)
	}
	idx.Encoding = domain.ParseEncoding(enc)

	return &idx, nil
}
