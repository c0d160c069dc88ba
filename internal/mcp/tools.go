package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const instructions = `This server opens large log files without loading them into memory.

Typical workflow:
1. open_file to see the size and whether the file is already indexed
2. build_index once per file (or again when get_index_status reports stale)
3. read_lines to page through the file by 0-based line index
4. search to find matching lines; it does not need an index

Paths must be absolute. Line numbers in search results are 1-based.`

// NewMCPServer registers the file tools on a go-sdk MCP server
func (s *Server) NewMCPServer() *mcpsdk.Server {
	server := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "log-viewer",
			Version: s.version,
		},
		&mcpsdk.ServerOptions{
			Instructions: instructions,
		},
	)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "open_file",
		Description: "Describe a log file: display name, size in bytes, and line count if it has been indexed. Never indexes the file.",
	}, toolHandler("open_file", s.handler.OpenFile))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "build_index",
		Description: "Scan a log file once, record where every line starts and detect its encoding (utf8, gbk, latin1). Replaces any previous index of the file.",
	}, toolHandler("build_index", s.handler.BuildIndex))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "get_index_status",
		Description: "Report whether a file is indexed, its total line count, when it was indexed, and whether the file changed since.",
	}, toolHandler("get_index_status", s.handler.GetIndexStatus))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name: "read_lines",
		Description: `Read count lines starting at 0-based line start from an indexed file.

Lines are decoded to UTF-8 and returned without their line terminator.
count is capped at the server limit and ranges past the end of the file are clamped; an empty list means nothing is left to read.`,
	}, toolHandler("read_lines", s.handler.ReadLines))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name: "search",
		Description: `Find lines matching a pattern. Works on any file, indexed or not.

Options:
  - case_sensitive: match case exactly (default false)
  - use_regex: treat pattern as an RE2 regular expression (default false, literal text)
  - whole_word: match only at word boundaries (default false)

Each match reports a 1-based line_number and the byte span of the first match in the line.`,
	}, toolHandler("search", s.handler.Search))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "forget_index",
		Description: "Delete the stored index of a file. The file itself is not touched.",
	}, toolHandler("forget_index", s.handler.ForgetIndex))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "list_indices",
		Description: "List every indexed file with its line count and indexing time.",
	}, toolHandler("list_indices", s.listIndices))

	return server
}

// RunStdio serves the MCP protocol on stdin/stdout until ctx is cancelled
func (s *Server) RunStdio(ctx context.Context) error {
	log.Info().Msg("MCP stdio server started")
	if err := s.NewMCPServer().Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp stdio server failed: %w", err)
	}
	return nil
}

// toolHandler adapts a handler method to a go-sdk tool handler.
// Tool failures are reported in the result with IsError set, not as protocol errors.
func toolHandler[P, R any](name string, call func(context.Context, P) (R, error)) mcpsdk.ToolHandlerFor[P, any] {
	return func(ctx context.Context, _ *mcpsdk.CallToolRequest, args P) (*mcpsdk.CallToolResult, any, error) {
		started := time.Now()

		result, err := call(ctx, args)
		if err != nil {
			te := asToolError(err)
			log.Warn().Err(err).Str("tool", name).Msg("Tool call failed")
			return textResult(te, true), nil, nil
		}

		log.Debug().
			Str("tool", name).
			Dur("elapsed", time.Since(started)).
			Msg("Tool call")
		return textResult(result, false), nil, nil
	}
}

func textResult(v any, isError bool) *mcpsdk.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: fmt.Sprintf("Error: failed to encode result: %v", err)}},
			IsError: true,
		}
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
		IsError: isError,
	}
}
