package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/SteelMorgan/log-viewer/internal/config"
	"github.com/SteelMorgan/log-viewer/internal/filemap"
	"github.com/SteelMorgan/log-viewer/internal/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewViewerService_RequiresConfig(t *testing.T) {
	_, err := NewViewerService(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewViewerService_BoltOnly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.MmapDisabled = true

	svc, err := NewViewerService(ctx, cfg)
	require.NoError(t, err)
	defer svc.Close()

	assert.FileExists(t, filepath.Join(dir, "data", "logviewer.db"))

	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0o644))

	summary, err := svc.Handler().BuildIndex(ctx, handlers.PathParams{Path: path})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), summary.TotalLines)

	lines, err := svc.Loader().ReadLines(ctx, path, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestFileMode(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, filemap.ModeAuto, FileMode(cfg))
	cfg.MmapDisabled = true
	assert.Equal(t, filemap.ModeRead, FileMode(cfg))
}
