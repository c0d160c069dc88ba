package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/SteelMorgan/log-viewer/internal/domain"
	"github.com/SteelMorgan/log-viewer/internal/handlers"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-ID"

// Server exposes the file tools over HTTP (POST /tools/<name>) and over
// MCP stdio
type Server struct {
	port       int
	version    string
	handler    *handlers.FileHandler
	httpServer *http.Server
}

// NewServer creates a new MCP server
func NewServer(handler *handlers.FileHandler, port int, version string) (*Server, error) {
	if handler == nil {
		return nil, fmt.Errorf("file handler is required")
	}

	return &Server{
		port:    port,
		version: version,
		handler: handler,
	}, nil
}

// Handler returns the HTTP routing for the tool endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/tools/open_file", toolEndpoint("open_file", s.handler.OpenFile))
	mux.HandleFunc("/tools/build_index", toolEndpoint("build_index", s.handler.BuildIndex))
	mux.HandleFunc("/tools/get_index_status", toolEndpoint("get_index_status", s.handler.GetIndexStatus))
	mux.HandleFunc("/tools/read_lines", toolEndpoint("read_lines", s.handler.ReadLines))
	mux.HandleFunc("/tools/search", toolEndpoint("search", s.handler.Search))
	mux.HandleFunc("/tools/forget_index", toolEndpoint("forget_index", s.handler.ForgetIndex))
	mux.HandleFunc("/tools/list_indices", toolEndpoint("list_indices", s.listIndices))

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
	})

	return withRequestID(mux)
}

// Start serves HTTP until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves HTTP on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("HTTP tool server started")

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	log.Info().Msg("HTTP tool server stopping...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	log.Info().Msg("HTTP tool server stopped")
	return nil
}

func (s *Server) listIndices(ctx context.Context, _ struct{}) (*handlers.ListResult, error) {
	return s.handler.ListIndices(ctx)
}

// toolEndpoint adapts a handler method to a POST endpoint with a JSON body
func toolEndpoint[P, R any](name string, call func(context.Context, P) (R, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		started := time.Now()
		requestID := w.Header().Get(requestIDHeader)

		var params P
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, &handlers.ToolError{
				Kind:    handlers.KindValidation,
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			return
		}

		result, err := call(r.Context(), params)
		if err != nil {
			te := asToolError(err)
			status := statusFor(te)
			event := log.Warn()
			if status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.Err(err).
				Str("request_id", requestID).
				Str("tool", name).
				Int("status", status).
				Msg("Tool call failed")
			writeJSON(w, status, te)
			return
		}

		log.Debug().
			Str("request_id", requestID).
			Str("tool", name).
			Dur("elapsed", time.Since(started)).
			Msg("Tool call")
		writeJSON(w, http.StatusOK, result)
	}
}

func asToolError(err error) *handlers.ToolError {
	var te *handlers.ToolError
	if errors.As(err, &te) {
		return te
	}
	return &handlers.ToolError{Kind: domain.KindOf(err), Message: err.Error()}
}

// statusFor maps a tool error to an HTTP status code
func statusFor(te *handlers.ToolError) int {
	switch te.Kind {
	case handlers.KindValidation, domain.KindInvalidPattern:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindIndexMissing:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// withRequestID assigns every request an ID, reusing the caller's if present
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}
