package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/SteelMorgan/log-viewer/internal/domain"
	"github.com/SteelMorgan/log-viewer/internal/filemap"
	"github.com/SteelMorgan/log-viewer/internal/loader"
	"github.com/SteelMorgan/log-viewer/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, opts Options) (*FileHandler, string) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.NewBoltDBStore(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	l := loader.New(st, loader.Options{Mode: filemap.ModeAuto})
	return NewFileHandler(l, opts), dir
}

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	var te *ToolError
	require.True(t, errors.As(err, &te), "expected *ToolError, got %T", err)
	assert.Equal(t, kind, te.Kind)
}

func TestFileHandler_Lifecycle(t *testing.T) {
	ctx := context.Background()
	h, dir := newTestHandler(t, Options{MaxReadLines: 100})
	path := writeLog(t, dir, "app.log", "start\nERROR disk full\nstop\n")

	desc, err := h.OpenFile(ctx, PathParams{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "app.log", desc.DisplayName)
	assert.False(t, desc.IsIndexed)
	assert.Nil(t, desc.TotalLines)

	summary, err := h.BuildIndex(ctx, PathParams{Path: path})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), summary.TotalLines)
	assert.Equal(t, domain.EncodingUTF8, summary.Encoding)

	status, err := h.GetIndexStatus(ctx, PathParams{Path: path})
	require.NoError(t, err)
	assert.True(t, status.Indexed)
	assert.False(t, status.Stale)

	page, err := h.ReadLines(ctx, ReadLinesParams{Path: path, Start: 1, Count: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"ERROR disk full", "stop"}, page.Lines)

	found, err := h.Search(ctx, SearchParams{Path: path, Pattern: "error"})
	require.NoError(t, err)
	require.Len(t, found.Matches, 1)
	assert.Equal(t, uint64(2), found.Matches[0].LineNumber)
	assert.False(t, found.Truncated)

	list, err := h.ListIndices(ctx)
	require.NoError(t, err)
	require.Len(t, list.Indices, 1)
	assert.Equal(t, path, list.Indices[0].Path)

	forgotten, err := h.ForgetIndex(ctx, PathParams{Path: path})
	require.NoError(t, err)
	assert.True(t, forgotten.Forgotten)

	_, err = h.ReadLines(ctx, ReadLinesParams{Path: path, Count: 1})
	requireKind(t, err, domain.KindIndexMissing)

	list, err = h.ListIndices(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list.Indices)
	assert.Empty(t, list.Indices)
}

func TestFileHandler_Errors(t *testing.T) {
	ctx := context.Background()
	h, dir := newTestHandler(t, Options{MaxReadLines: 10})
	path := writeLog(t, dir, "app.log", "a\n")

	tests := []struct {
		name string
		call func() error
		kind domain.ErrorKind
	}{
		{"relative path", func() error {
			_, err := h.OpenFile(ctx, PathParams{Path: "app.log"})
			return err
		}, KindValidation},
		{"empty path", func() error {
			_, err := h.BuildIndex(ctx, PathParams{})
			return err
		}, KindValidation},
		{"missing file", func() error {
			_, err := h.OpenFile(ctx, PathParams{Path: filepath.Join(dir, "nope.log")})
			return err
		}, domain.KindNotFound},
		{"not indexed", func() error {
			_, err := h.ReadLines(ctx, ReadLinesParams{Path: path, Count: 1})
			return err
		}, domain.KindIndexMissing},
		{"bad regex", func() error {
			_, err := h.Search(ctx, SearchParams{Path: path, Pattern: "(", UseRegex: true})
			return err
		}, domain.KindInvalidPattern},
		{"empty pattern", func() error {
			_, err := h.Search(ctx, SearchParams{Path: path})
			return err
		}, domain.KindInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireKind(t, tt.call(), tt.kind)
		})
	}
}

func TestFileHandler_AllowedPaths(t *testing.T) {
	ctx := context.Background()
	h, dir := newTestHandler(t, Options{})
	h.opts.AllowedPaths = []string{filepath.Join(dir, "logs", "**", "*.log")}

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs", "app"), 0o755))
	allowed := writeLog(t, dir, filepath.Join("logs", "app", "server.log"), "ok\n")
	denied := writeLog(t, dir, "secret.txt", "no\n")

	_, err := h.OpenFile(ctx, PathParams{Path: allowed})
	assert.NoError(t, err)

	_, err = h.OpenFile(ctx, PathParams{Path: denied})
	requireKind(t, err, KindValidation)
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		allowed []string
		wantErr bool
	}{
		{"absolute no restriction", "/var/log/a.log", nil, false},
		{"relative", "var/log/a.log", nil, true},
		{"empty", "", nil, true},
		{"glob match", "/var/log/nginx/access.log", []string{"/var/log/**"}, false},
		{"glob miss", "/etc/passwd", []string{"/var/log/**"}, true},
		{"dot segments cleaned", "/var/log/../../etc/passwd", []string{"/var/log/**"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path, tt.allowed)
			if tt.wantErr {
				var ve *ValidationError
				assert.ErrorAs(t, err, &ve)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClampCount(t *testing.T) {
	tests := []struct {
		count uint64
		max   int
		want  uint64
	}{
		{1000, 0, 1000},
		{10, 10, 10},
		{11, 10, 10},
		{^uint64(0), 10000, 10000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampCount(tt.count, tt.max))
	}
}

func TestFileHandler_ReadLinesClampsCount(t *testing.T) {
	ctx := context.Background()
	h, dir := newTestHandler(t, Options{MaxReadLines: 2})
	path := writeLog(t, dir, "app.log", "line1\nline2\nline3")

	_, err := h.BuildIndex(ctx, PathParams{Path: path})
	require.NoError(t, err)

	tests := []struct {
		name  string
		start uint64
		count uint64
		want  []string
	}{
		{"over limit from start", 0, 20000, []string{"line1", "line2"}},
		{"huge count near end", 2, 1 << 20, []string{"line3"}},
		{"at end", 3, 1 << 20, []string{}},
		{"past end", 100, ^uint64(0), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := h.ReadLines(ctx, ReadLinesParams{Path: path, Start: tt.start, Count: tt.count})
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.Lines)
		})
	}
}

func TestToToolError(t *testing.T) {
	assert.Nil(t, toToolError(nil))

	te := toToolError(errors.New("boom"))
	assert.Equal(t, domain.KindInternal, te.Kind)

	wrapped := toToolError(&ToolError{Kind: domain.KindStorage, Message: "x"})
	assert.Equal(t, domain.KindStorage, wrapped.Kind)

	ve := toToolError(&ValidationError{Field: "path", Message: "bad", Instructions: []string{"fix it"}})
	assert.Equal(t, KindValidation, ve.Kind)
	assert.Equal(t, []string{"fix it"}, ve.Instructions)
}
