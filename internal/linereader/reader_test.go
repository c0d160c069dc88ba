package linereader

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SteelMorgan/log-viewer/internal/domain"
	"github.com/SteelMorgan/log-viewer/internal/filemap"
	"github.com/SteelMorgan/log-viewer/internal/indexer"
	"github.com/SteelMorgan/log-viewer/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *store.BoltDBStore
	path  string
}

func setup(t *testing.T, content string, mode filemap.Mode) fixture {
	t.Helper()
	dir := t.TempDir()

	st, err := store.NewBoltDBStore(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	idx, err := indexer.New(mode).Build(path)
	require.NoError(t, err)
	require.NoError(t, st.Save(context.Background(), idx, idx.FileMtime))

	return fixture{store: st, path: path}
}

var modes = []struct {
	name string
	mode filemap.Mode
}{
	{"mapped", filemap.ModeAuto},
	{"read", filemap.ModeRead},
}

func TestReadLines(t *testing.T) {
	const content = "line1\nline2\nline3"

	tests := []struct {
		name         string
		start, count uint64
		want         []string
	}{
		{"middle to end", 1, 2, []string{"line2", "line3"}},
		{"all", 0, 3, []string{"line1", "line2", "line3"}},
		{"clamped", 2, 100, []string{"line3"}},
		{"zero count", 0, 0, []string{}},
		{"start at end", 3, 5, []string{}},
		{"start past end", 10, 5, []string{}},
		{"overflowing count", 1, math.MaxUint64, []string{"line2", "line3"}},
	}

	for _, m := range modes {
		f := setup(t, content, m.mode)
		r := New(f.store, m.mode)

		for _, tt := range tests {
			t.Run(m.name+"/"+tt.name, func(t *testing.T) {
				got, err := r.ReadLines(context.Background(), f.path, tt.start, tt.count)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	}
}

func TestReadLines_Terminators(t *testing.T) {
	f := setup(t, "a\r\nb\n\nc\r\n", filemap.ModeAuto)

	got, err := New(f.store, filemap.ModeAuto).ReadLines(context.Background(), f.path, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "", "c"}, got)
}

func TestReadLines_RoundTrip(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 300; i++ {
		sb.WriteString(strings.Repeat("ab", i%13))
		sb.WriteByte('\n')
	}
	content := sb.String()
	f := setup(t, content, filemap.ModeAuto)
	r := New(f.store, filemap.ModeAuto)

	all := strings.SplitAfter(content, "\n")
	all = all[:len(all)-1] // drop empty tail after final newline

	for _, rng := range [][2]uint64{{0, 300}, {17, 40}, {299, 1}, {150, 500}} {
		got, err := r.ReadLines(context.Background(), f.path, rng[0], rng[1])
		require.NoError(t, err)

		want := uint64(len(all)) - rng[0]
		if rng[1] < want {
			want = rng[1]
		}
		require.Len(t, got, int(want))
		assert.Equal(t, strings.Join(all[rng[0]:rng[0]+want], ""), strings.Join(got, "\n")+"\n")
	}
}

func TestReadLines_DecodesEncoding(t *testing.T) {
	f := setup(t, "first\n\xd6\xd0\xce\xc4 log\n", filemap.ModeAuto)

	got, err := New(f.store, filemap.ModeAuto).ReadLines(context.Background(), f.path, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"中文 log"}, got)
}

func TestReadLines_IndexMissing(t *testing.T) {
	f := setup(t, "x\n", filemap.ModeAuto)

	other := filepath.Join(filepath.Dir(f.path), "other.log")
	require.NoError(t, os.WriteFile(other, []byte("y\n"), 0o644))

	_, err := New(f.store, filemap.ModeAuto).ReadLines(context.Background(), other, 0, 1)
	assert.ErrorIs(t, err, domain.ErrIndexMissing)
}

func TestReadLines_TruncatedFile(t *testing.T) {
	f := setup(t, "line1\nline2\nline3\n", filemap.ModeAuto)
	require.NoError(t, os.WriteFile(f.path, []byte("line1\n"), 0o644))

	got, err := New(f.store, filemap.ModeAuto).ReadLines(context.Background(), f.path, 0, 3)
	assert.ErrorIs(t, err, domain.ErrIO)
	assert.Nil(t, got)
}

func TestReadLines_FileRemoved(t *testing.T) {
	f := setup(t, "line1\n", filemap.ModeAuto)
	require.NoError(t, os.Remove(f.path))

	_, err := New(f.store, filemap.ModeAuto).ReadLines(context.Background(), f.path, 0, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
