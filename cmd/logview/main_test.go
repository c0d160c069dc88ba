package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/SteelMorgan/log-viewer/internal/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	dir string
	db  string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "absent.yaml"))
	t.Setenv("DATA_DIR", dir)
	t.Setenv("ALLOWED_PATHS", "")
	t.Setenv("INDEX_MIRROR", "false")
	return cliEnv{dir: dir, db: filepath.Join(dir, "cli.db")}
}

func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	full := append([]string{"logview", "--db", e.db, "--log-level", "error"}, args...)
	err := app.Run(full)
	return out.String(), err
}

func (e cliEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCLI_IndexReadSearch(t *testing.T) {
	e := newCLIEnv(t)
	a := e.write(t, "a.log", "one\ntwo\nthree\n")
	b := e.write(t, "b.log", "x\n")

	out, err := e.run(t, "index", "--jobs", "2", a, b)
	require.NoError(t, err)
	var summaries []handlers.IndexSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 2)
	assert.Equal(t, uint64(3), summaries[0].TotalLines)
	assert.Equal(t, uint64(1), summaries[1].TotalLines)

	out, err = e.run(t, "read", "--start", "1", "--count", "5", a)
	require.NoError(t, err)
	var page handlers.ReadLinesResult
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, []string{"two", "three"}, page.Lines)

	out, err = e.run(t, "search", "--whole-word", a, "two")
	require.NoError(t, err)
	var found handlers.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found.Matches, 1)
	assert.Equal(t, uint64(2), found.Matches[0].LineNumber)

	out, err = e.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, a)
	assert.Contains(t, out, b)

	_, err = e.run(t, "forget", b)
	require.NoError(t, err)

	out, err = e.run(t, "status", b)
	require.NoError(t, err)
	assert.Contains(t, out, `"indexed": false`)
}

func TestCLI_RelativePath(t *testing.T) {
	e := newCLIEnv(t)
	e.write(t, "rel.log", "hello\n")
	t.Chdir(e.dir)

	out, err := e.run(t, "describe", "rel.log")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(e.dir, "rel.log"))
}

func TestCLI_Errors(t *testing.T) {
	e := newCLIEnv(t)
	path := e.write(t, "c.log", "data\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"index without paths", []string{"index"}, "PATH"},
		{"read without index", []string{"read", path}, "index_missing"},
		{"search without pattern", []string{"search", path}, "PATTERN"},
		{"bad regex", []string{"search", "--regex", path, "("}, "invalid_pattern"},
		{"missing file", []string{"describe", filepath.Join(e.dir, "gone.log")}, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCLI_IndexDirectory(t *testing.T) {
	e := newCLIEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(e.dir, "logs", "app"), 0o755))
	e.write(t, filepath.Join("logs", "app", "server.log"), "a\nb\n")
	e.write(t, filepath.Join("logs", "notes.txt"), "skip\n")

	out, err := e.run(t, "index", filepath.Join(e.dir, "logs"))
	require.NoError(t, err)

	var summaries []handlers.IndexSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, filepath.Join(e.dir, "logs", "app", "server.log"), summaries[0].Path)
	assert.Equal(t, uint64(2), summaries[0].TotalLines)
}
