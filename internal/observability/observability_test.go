package observability

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestInitLogger_WritesFileAndConsole(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "viewer.log")

	closeFn := initLogger(&console, "info", path)
	log.Info().Str("path", "/var/log/app.log").Msg("index built")
	log.Debug().Msg("hidden")
	require.NoError(t, closeFn())

	assert.Contains(t, console.String(), "index built")
	assert.NotContains(t, console.String(), "hidden")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"index built"`)
	assert.Contains(t, string(data), `"path":"/var/log/app.log"`)
}

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracerConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_UnsupportedProtocol(t *testing.T) {
	_, err := InitTracer(context.Background(), TracerConfig{Enabled: true, Protocol: "udp", ServiceName: "log-viewer"})
	assert.Error(t, err)
}
