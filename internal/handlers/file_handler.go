package handlers

import (
	"context"
	"time"

	"github.com/SteelMorgan/log-viewer/internal/domain"
	"github.com/SteelMorgan/log-viewer/internal/loader"
	"go.opentelemetry.io/otel/attribute"
)

// Options holds the request limits enforced by FileHandler
type Options struct {
	AllowedPaths []string
	MaxReadLines int
}

// FileHandler serves the file tools on top of a FileLoader.
// Every method returns either a result or a *ToolError.
type FileHandler struct {
	loader *loader.FileLoader
	opts   Options
}

// NewFileHandler creates a new file handler
func NewFileHandler(l *loader.FileLoader, opts Options) *FileHandler {
	return &FileHandler{
		loader: l,
		opts:   opts,
	}
}

// PathParams identifies a file
type PathParams struct {
	Path string `json:"path" jsonschema:"absolute path of the log file"`
}

// ReadLinesParams defines parameters for read_lines tool
type ReadLinesParams struct {
	Path  string `json:"path" jsonschema:"absolute path of an indexed log file"`
	Start uint64 `json:"start" jsonschema:"0-based index of the first line"`
	Count uint64 `json:"count" jsonschema:"number of lines to return"`
}

// SearchParams defines parameters for search tool
type SearchParams struct {
	Path          string `json:"path" jsonschema:"absolute path of the log file"`
	Pattern       string `json:"pattern" jsonschema:"literal text or regular expression"`
	CaseSensitive bool   `json:"case_sensitive,omitempty" jsonschema:"match case exactly"`
	UseRegex      bool   `json:"use_regex,omitempty" jsonschema:"treat pattern as a regular expression"`
	WholeWord     bool   `json:"whole_word,omitempty" jsonschema:"match only at word boundaries"`
}

// IndexSummary is the build_index result. Offsets are never sent to callers.
type IndexSummary struct {
	Path       string          `json:"path"`
	TotalLines uint64          `json:"total_lines"`
	FileSize   uint64          `json:"file_size"`
	Encoding   domain.Encoding `json:"encoding"`
	IndexedAt  time.Time       `json:"indexed_at"`
}

// ReadLinesResult is the read_lines result
type ReadLinesResult struct {
	Path  string   `json:"path"`
	Start uint64   `json:"start"`
	Lines []string `json:"lines"`
}

// SearchResult is the search result
type SearchResult struct {
	Path      string               `json:"path"`
	Matches   []domain.MatchResult `json:"matches"`
	Truncated bool                 `json:"truncated"`
}

// ForgetResult is the forget_index result
type ForgetResult struct {
	Path      string `json:"path"`
	Forgotten bool   `json:"forgotten"`
}

// ListResult is the list_indices result
type ListResult struct {
	Indices []domain.IndexStatusEntry `json:"indices"`
}

// OpenFile describes a file without indexing it
func (h *FileHandler) OpenFile(ctx context.Context, params PathParams) (*domain.FileDescriptor, error) {
	ctx, span := startSpan(ctx, "handlers.OpenFile", attribute.String("file.path", params.Path))

	if err := ValidatePath(params.Path, h.opts.AllowedPaths); err != nil {
		endSpanWithError(span, err, "validation failed")
		return nil, toToolError(err)
	}

	desc, err := h.loader.Describe(ctx, params.Path)
	if err != nil {
		endSpanWithError(span, err, "describe failed")
		return nil, toToolError(err)
	}

	span.SetAttributes(
		attribute.Int64("file.size", int64(desc.SizeBytes)),
		attribute.Bool("file.indexed", desc.IsIndexed),
	)
	endSpanSuccess(span)
	return desc, nil
}

// BuildIndex indexes a file and returns a summary of the new index
func (h *FileHandler) BuildIndex(ctx context.Context, params PathParams) (*IndexSummary, error) {
	ctx, span := startSpan(ctx, "handlers.BuildIndex", attribute.String("file.path", params.Path))

	if err := ValidatePath(params.Path, h.opts.AllowedPaths); err != nil {
		endSpanWithError(span, err, "validation failed")
		return nil, toToolError(err)
	}

	idx, err := h.loader.BuildIndex(ctx, params.Path)
	if err != nil {
		endSpanWithError(span, err, "build index failed")
		return nil, toToolError(err)
	}

	span.SetAttributes(
		attribute.Int64("index.total_lines", int64(idx.TotalLines)),
		attribute.String("index.encoding", string(idx.Encoding)),
	)
	endSpanSuccess(span)
	return &IndexSummary{
		Path:       idx.Path,
		TotalLines: idx.TotalLines,
		FileSize:   idx.FileSize,
		Encoding:   idx.Encoding,
		IndexedAt:  idx.IndexedAt,
	}, nil
}

// GetIndexStatus reports the stored index state of a file
func (h *FileHandler) GetIndexStatus(ctx context.Context, params PathParams) (*domain.IndexStatusEntry, error) {
	ctx, span := startSpan(ctx, "handlers.GetIndexStatus", attribute.String("file.path", params.Path))

	if err := ValidatePath(params.Path, h.opts.AllowedPaths); err != nil {
		endSpanWithError(span, err, "validation failed")
		return nil, toToolError(err)
	}

	status, err := h.loader.GetIndexStatus(ctx, params.Path)
	if err != nil {
		endSpanWithError(span, err, "get status failed")
		return nil, toToolError(err)
	}

	endSpanSuccess(span)
	return &domain.IndexStatusEntry{Path: params.Path, IndexStatus: status}, nil
}

// ReadLines returns a page of decoded lines
func (h *FileHandler) ReadLines(ctx context.Context, params ReadLinesParams) (*ReadLinesResult, error) {
	ctx, span := startSpan(ctx, "handlers.ReadLines",
		attribute.String("file.path", params.Path),
		attribute.Int64("read.start", int64(params.Start)),
		attribute.Int64("read.count", int64(params.Count)),
	)

	if err := ValidatePath(params.Path, h.opts.AllowedPaths); err != nil {
		endSpanWithError(span, err, "validation failed")
		return nil, toToolError(err)
	}
	count := ClampCount(params.Count, h.opts.MaxReadLines)
	if count != params.Count {
		span.SetAttributes(attribute.Int64("read.clamped_count", int64(count)))
	}

	lines, err := h.loader.ReadLines(ctx, params.Path, params.Start, count)
	if err != nil {
		endSpanWithError(span, err, "read lines failed")
		return nil, toToolError(err)
	}

	span.SetAttributes(attribute.Int("read.returned", len(lines)))
	endSpanSuccess(span)
	return &ReadLinesResult{Path: params.Path, Start: params.Start, Lines: lines}, nil
}

// Search scans a file for matching lines
func (h *FileHandler) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	ctx, span := startSpan(ctx, "handlers.Search",
		attribute.String("file.path", params.Path),
		attribute.Bool("search.regex", params.UseRegex),
	)

	if err := ValidatePath(params.Path, h.opts.AllowedPaths); err != nil {
		endSpanWithError(span, err, "validation failed")
		return nil, toToolError(err)
	}

	res, err := h.loader.Search(ctx, params.Path, domain.SearchSpec{
		Pattern:       params.Pattern,
		CaseSensitive: params.CaseSensitive,
		UseRegex:      params.UseRegex,
		WholeWord:     params.WholeWord,
	})
	if err != nil {
		endSpanWithError(span, err, "search failed")
		return nil, toToolError(err)
	}

	span.SetAttributes(
		attribute.Int("search.matches", len(res.Matches)),
		attribute.Bool("search.truncated", res.Truncated),
	)
	endSpanSuccess(span)
	return &SearchResult{Path: params.Path, Matches: res.Matches, Truncated: res.Truncated}, nil
}

// ForgetIndex drops the stored index of a file. The file itself is untouched.
func (h *FileHandler) ForgetIndex(ctx context.Context, params PathParams) (*ForgetResult, error) {
	ctx, span := startSpan(ctx, "handlers.ForgetIndex", attribute.String("file.path", params.Path))

	if err := ValidatePath(params.Path, h.opts.AllowedPaths); err != nil {
		endSpanWithError(span, err, "validation failed")
		return nil, toToolError(err)
	}

	if err := h.loader.ForgetIndex(ctx, params.Path); err != nil {
		endSpanWithError(span, err, "forget index failed")
		return nil, toToolError(err)
	}

	endSpanSuccess(span)
	return &ForgetResult{Path: params.Path, Forgotten: true}, nil
}

// ListIndices returns every stored index
func (h *FileHandler) ListIndices(ctx context.Context) (*ListResult, error) {
	ctx, span := startSpan(ctx, "handlers.ListIndices")

	entries, err := h.loader.ListIndices(ctx)
	if err != nil {
		endSpanWithError(span, err, "list indices failed")
		return nil, toToolError(err)
	}
	if entries == nil {
		entries = []domain.IndexStatusEntry{}
	}

	span.SetAttributes(attribute.Int("index.count", len(entries)))
	endSpanSuccess(span)
	return &ListResult{Indices: entries}, nil
}
