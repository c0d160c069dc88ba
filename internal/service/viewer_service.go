package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SteelMorgan/log-viewer/internal/clickhouse"
	"github.com/SteelMorgan/log-viewer/internal/config"
	"github.com/SteelMorgan/log-viewer/internal/filemap"
	"github.com/SteelMorgan/log-viewer/internal/handlers"
	"github.com/SteelMorgan/log-viewer/internal/loader"
	"github.com/SteelMorgan/log-viewer/internal/store"
	"github.com/rs/zerolog/log"
)

// ViewerService owns the index store and the components built on it.
// Both binaries create one per process and Close it on exit.
type ViewerService struct {
	cfg     *config.Config
	store   store.IndexStore
	loader  *loader.FileLoader
	handler *handlers.FileHandler
}

// NewViewerService opens the index store described by cfg and wires the
// loader and the tool handler on top of it
func NewViewerService(ctx context.Context, cfg *config.Config) (*ViewerService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	l := loader.New(st, loader.Options{
		Mode:             FileMode(cfg),
		SearchMaxResults: cfg.SearchMaxResults,
	})

	return &ViewerService{
		cfg:    cfg,
		store:  st,
		loader: l,
		handler: handlers.NewFileHandler(l, handlers.Options{
			AllowedPaths: cfg.AllowedPaths,
			MaxReadLines: cfg.MaxReadLines,
		}),
	}, nil
}

// Loader returns the file access facade
func (s *ViewerService) Loader() *loader.FileLoader {
	return s.loader
}

// Handler returns the validated, traced tool surface
func (s *ViewerService) Handler() *handlers.FileHandler {
	return s.handler
}

// Close releases the index store
func (s *ViewerService) Close() error {
	log.Debug().Msg("Viewer service stopping...")
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("failed to close index store: %w", err)
	}
	return nil
}

// FileMode maps MMAP_DISABLED to a filemap access mode
func FileMode(cfg *config.Config) filemap.Mode {
	if cfg.MmapDisabled {
		return filemap.ModeRead
	}
	return filemap.ModeAuto
}

func openStore(ctx context.Context, cfg *config.Config) (store.IndexStore, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(cfg.DataDir, "logviewer.db")
	}

	primary, err := store.NewBoltDBStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}

	if !cfg.IndexMirror {
		return primary, nil
	}

	client, err := clickhouse.NewClient(ctx, clickhouse.Options{
		Host:     cfg.ClickHouseHost,
		Port:     cfg.ClickHousePort,
		Database: cfg.ClickHouseDB,
		Username: os.Getenv("CLICKHOUSE_USER"),
		Password: os.Getenv("CLICKHOUSE_PASSWORD"),
	})
	if err != nil {
		log.Warn().Err(err).Msg("ClickHouse unavailable, index mirror disabled")
		return primary, nil
	}

	mirror, err := store.NewClickHouseStore(ctx, client)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to prepare ClickHouse index table, index mirror disabled")
		if cerr := client.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("Failed to close ClickHouse client")
		}
		return primary, nil
	}

	log.Info().
		Str("host", cfg.ClickHouseHost).
		Str("database", cfg.ClickHouseDB).
		Msg("Index mirror enabled")

	return store.NewMirroredStore(primary, mirror), nil
}
