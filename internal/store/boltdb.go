package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SteelMorgan/log-viewer/internal/domain"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
)

const (
	bucketName = "file_indices"
)

// BoltDBStore implements IndexStore using BoltDB.
// Each path owns a nested bucket holding one key per record column.
type BoltDBStore struct {
	db *bbolt.DB
}

// NewBoltDBStore opens (or creates) the index database at dbPath
func NewBoltDBStore(dbPath string) (*BoltDBStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create data dir: %w", domain.ErrStorage, err)
	}

	// Short timeout: a stale lock means another process still holds the file
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open boltdb (file may be locked by another process): %w", domain.ErrStorage, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to create bucket: %w", domain.ErrStorage, err)
	}

	log.Info().
		Str("db_path", dbPath).
		Msg("BoltDB index store initialized")

	return &BoltDBStore{db: db}, nil
}

// Save replaces the record for idx.Path in a single transaction
func (s *BoltDBStore) Save(ctx context.Context, idx *domain.LineIndex, mtime int64) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(bucketName))
		if root == nil {
			return fmt.Errorf("bucket not found")
		}

		key := []byte(idx.Path)
		if root.Bucket(key) != nil {
			if err := root.DeleteBucket(key); err != nil {
				return err
			}
		}
		rec, err := root.CreateBucket(key)
		if err != nil {
			return err
		}

		columns := []struct {
			name  string
			value []byte
		}{
			{colPath, []byte(idx.Path)},
			{colTotalLines, encodeUint64(idx.TotalLines)},
			{colOffsets, EncodeOffsets(idx.LineStartOffsets)},
			{colFileSize, encodeUint64(idx.FileSize)},
			{colEncoding, []byte(idx.Encoding)},
			{colFileMtime, encodeUint64(uint64(mtime))},
			{colIndexedAt, []byte(formatIndexedAt(idx.IndexedAt))},
			{colFingerprint, encodeUint64(idx.Fingerprint)},
		}
		for _, c := range columns {
			if err := rec.Put([]byte(c.name), c.value); err != nil {
				return fmt.Errorf("put %s: %w", c.name, err)
			}
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("%w: failed to save index for %s: %w", domain.ErrStorage, idx.Path, err)
	}

	log.Debug().
		Str("file_path", idx.Path).
		Uint64("total_lines", idx.TotalLines).
		Int64("file_mtime", mtime).
		Msg("Index saved")

	return nil
}

// Get retrieves the index for path
func (s *BoltDBStore) Get(ctx context.Context, path string) (*domain.LineIndex, error) {
	var idx *domain.LineIndex

	err := s.db.View(func(tx *bbolt.Tx) error {
		rec, err := recordBucket(tx, path)
		if err != nil || rec == nil {
			return err
		}
		idx, err = decodeRecord(path, rec)
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("%w: failed to get index for %s: %w", domain.ErrStorage, path, err)
	}

	return idx, nil
}

// GetStatus reads only the status columns, skipping the offsets blob
// GetSummary reads the record metadata and leaves the offsets column untouched
func (s *BoltDBStore) GetSummary(ctx context.Context, path string) (*domain.LineIndex, error) {
	var idx *domain.LineIndex

	err := s.db.View(func(tx *bbolt.Tx) error {
		rec, err := recordBucket(tx, path)
		if err != nil || rec == nil {
			return err
		}
		idx, err = decodeSummary(path, rec)
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("%w: failed to get index summary for %s: %w", domain.ErrStorage, path, err)
	}

	return idx, nil
}

func (s *BoltDBStore) GetStatus(ctx context.Context, path string) (domain.IndexStatus, error) {
	var status domain.IndexStatus

	err := s.db.View(func(tx *bbolt.Tx) error {
		rec, err := recordBucket(tx, path)
		if err != nil || rec == nil {
			return err
		}
		status, err = decodeStatus(rec)
		return err
	})

	if err != nil {
		return domain.IndexStatus{}, fmt.Errorf("%w: failed to get index status for %s: %w", domain.ErrStorage, path, err)
	}

	return status, nil
}

// Delete removes the index for path
func (s *BoltDBStore) Delete(ctx context.Context, path string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(bucketName))
		if root == nil {
			return fmt.Errorf("bucket not found")
		}

		if root.Bucket([]byte(path)) == nil {
			return nil
		}
		return root.DeleteBucket([]byte(path))
	})

	if err != nil {
		return fmt.Errorf("%w: failed to delete index for %s: %w", domain.ErrStorage, path, err)
	}

	return nil
}

// List returns all stored index statuses in key order
func (s *BoltDBStore) List(ctx context.Context) ([]domain.IndexStatusEntry, error) {
	var result []domain.IndexStatusEntry

	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(bucketName))
		if root == nil {
			return fmt.Errorf("bucket not found")
		}

		return root.ForEach(func(k, v []byte) error {
			rec := root.Bucket(k)
			if rec == nil {
				return nil
			}
			status, err := decodeStatus(rec)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			result = append(result, domain.IndexStatusEntry{Path: string(k), IndexStatus: status})
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("%w: failed to list indexes: %w", domain.ErrStorage, err)
	}

	return result, nil
}

// Close closes the BoltDB database
func (s *BoltDBStore) Close() error {
	log.Info().Msg("Closing BoltDB index store")
	return s.db.Close()
}

func recordBucket(tx *bbolt.Tx, path string) (*bbolt.Bucket, error) {
	root := tx.Bucket([]byte(bucketName))
	if root == nil {
		return nil, fmt.Errorf("bucket not found")
	}
	return root.Bucket([]byte(path)), nil
}

// decodeRecord copies every column out of rec; bbolt values die with the tx
func decodeRecord(path string, rec *bbolt.Bucket) (*domain.LineIndex, error) {
	idx, err := decodeSummary(path, rec)
	if err != nil {
		return nil, err
	}
	if idx.LineStartOffsets, err = DecodeOffsets(rec.Get([]byte(colOffsets)), idx.TotalLines); err != nil {
		return nil, err
	}
	return idx, nil
}

// decodeSummary decodes every column except colOffsets
func decodeSummary(path string, rec *bbolt.Bucket) (*domain.LineIndex, error) {
	status, err := decodeStatus(rec)
	if err != nil {
		return nil, err
	}

	fileSize, err := decodeUint64(rec.Get([]byte(colFileSize)))
	if err != nil {
		return nil, fmt.Errorf("file_size: %w", err)
	}
	mtime, err := decodeUint64(rec.Get([]byte(colFileMtime)))
	if err != nil {
		return nil, fmt.Errorf("file_mtime: %w", err)
	}
	fingerprint, err := decodeUint64(rec.Get([]byte(colFingerprint)))
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}

	return &domain.LineIndex{
		Path:        path,
		TotalLines:  status.TotalLines,
		FileSize:    fileSize,
		Encoding:    domain.ParseEncoding(string(rec.Get([]byte(colEncoding)))),
		IndexedAt:   *status.IndexedAt,
		FileMtime:   int64(mtime),
		Fingerprint: fingerprint,
	}, nil
}

func decodeStatus(rec *bbolt.Bucket) (domain.IndexStatus, error) {
	total, err := decodeUint64(rec.Get([]byte(colTotalLines)))
	if err != nil {
		return domain.IndexStatus{}, fmt.Errorf("total_lines: %w", err)
	}
	indexedAt, err := parseIndexedAt(string(rec.Get([]byte(colIndexedAt))))
	if err != nil {
		return domain.IndexStatus{}, err
	}
	return domain.IndexStatus{
		Indexed:    true,
		TotalLines: total,
		IndexedAt:  &indexedAt,
	}, nil
}
