package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the global logger with the specified level.
// Console output goes to stderr because stdout carries the stdio transport.
// If logFile is not empty, the same events are appended to it as JSON.
// The returned function closes the log file, if one was opened.
func InitLogger(level string, logFile string) func() error {
	return initLogger(os.Stderr, level, logFile)
}

func initLogger(console io.Writer, level string, logFile string) func() error {
	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: "2006-01-02 15:04:05",
		},
	}

	closeFn := func() error { return nil }
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, using stderr only\n", logFile, err)
		} else {
			writers = append(writers, file)
			closeFn = file.Close
		}
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()

	logLevel := parseLogLevel(level)
	zerolog.SetGlobalLevel(logLevel)

	log.Debug().
		Str("level", logLevel.String()).
		Str("file", logFile).
		Msg("Logger initialized")

	return closeFn
}

// parseLogLevel parses a string log level to zerolog.Level
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
