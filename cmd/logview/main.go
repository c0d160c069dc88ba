package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/SteelMorgan/log-viewer/internal/config"
	"github.com/SteelMorgan/log-viewer/internal/discovery"
	"github.com/SteelMorgan/log-viewer/internal/handlers"
	"github.com/SteelMorgan/log-viewer/internal/observability"
	"github.com/SteelMorgan/log-viewer/internal/service"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const version = "0.1.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "logview",
		Usage:                  "Index, page through and search large log files",
		Version:                version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "Index database path (overrides DB_PATH)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level written to stderr",
				Value: "warn",
			},
			&cli.BoolFlag{
				Name:  "no-mmap",
				Usage: "Read files with buffered I/O instead of memory mapping",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "describe",
				Usage:     "Show size and index state of a file",
				ArgsUsage: "PATH",
				Action: withHandler(func(c *cli.Context, h *handlers.FileHandler) error {
					path, err := pathArg(c, 0)
					if err != nil {
						return err
					}
					desc, err := h.OpenFile(c.Context, handlers.PathParams{Path: path})
					if err != nil {
						return err
					}
					return printJSON(c, desc)
				}),
			},
			{
				Name:      "index",
				Usage:     "Build line indexes for files and the logs found under directories",
				ArgsUsage: "PATH...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "glob",
						Aliases: []string{"g"},
						Usage:   "Pattern selecting files inside directory arguments",
						Value:   discovery.DefaultPattern,
					},
					&cli.IntFlag{
						Name:    "jobs",
						Aliases: []string{"j"},
						Usage:   "Files indexed concurrently",
						Value:   runtime.NumCPU(),
					},
				},
				Action: withHandler(indexCommand),
			},
			{
				Name:      "status",
				Usage:     "Show whether a file is indexed and whether the index is stale",
				ArgsUsage: "PATH",
				Action: withHandler(func(c *cli.Context, h *handlers.FileHandler) error {
					path, err := pathArg(c, 0)
					if err != nil {
						return err
					}
					status, err := h.GetIndexStatus(c.Context, handlers.PathParams{Path: path})
					if err != nil {
						return err
					}
					return printJSON(c, status)
				}),
			},
			{
				Name:      "read",
				Usage:     "Print lines from an indexed file",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:    "start",
						Aliases: []string{"s"},
						Usage:   "0-based index of the first line",
					},
					&cli.Uint64Flag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of lines",
						Value:   100,
					},
				},
				Action: withHandler(func(c *cli.Context, h *handlers.FileHandler) error {
					path, err := pathArg(c, 0)
					if err != nil {
						return err
					}
					page, err := h.ReadLines(c.Context, handlers.ReadLinesParams{
						Path:  path,
						Start: c.Uint64("start"),
						Count: c.Uint64("count"),
					})
					if err != nil {
						return err
					}
					return printJSON(c, page)
				}),
			},
			{
				Name:      "search",
				Usage:     "Find lines matching a pattern",
				ArgsUsage: "PATH PATTERN",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "case-sensitive",
						Aliases: []string{"c"},
						Usage:   "Match case exactly",
					},
					&cli.BoolFlag{
						Name:    "regex",
						Aliases: []string{"e"},
						Usage:   "Treat PATTERN as a regular expression",
					},
					&cli.BoolFlag{
						Name:    "whole-word",
						Aliases: []string{"w"},
						Usage:   "Match only at word boundaries",
					},
				},
				Action: withHandler(func(c *cli.Context, h *handlers.FileHandler) error {
					path, err := pathArg(c, 0)
					if err != nil {
						return err
					}
					if c.NArg() < 2 {
						return fmt.Errorf("PATTERN is required")
					}
					found, err := h.Search(c.Context, handlers.SearchParams{
						Path:          path,
						Pattern:       c.Args().Get(1),
						CaseSensitive: c.Bool("case-sensitive"),
						UseRegex:      c.Bool("regex"),
						WholeWord:     c.Bool("whole-word"),
					})
					if err != nil {
						return err
					}
					return printJSON(c, found)
				}),
			},
			{
				Name:      "forget",
				Usage:     "Delete the stored index of a file",
				ArgsUsage: "PATH",
				Action: withHandler(func(c *cli.Context, h *handlers.FileHandler) error {
					path, err := pathArg(c, 0)
					if err != nil {
						return err
					}
					res, err := h.ForgetIndex(c.Context, handlers.PathParams{Path: path})
					if err != nil {
						return err
					}
					return printJSON(c, res)
				}),
			},
			{
				Name:  "list",
				Usage: "List indexed files",
				Action: withHandler(func(c *cli.Context, h *handlers.FileHandler) error {
					res, err := h.ListIndices(c.Context)
					if err != nil {
						return err
					}
					return printJSON(c, res)
				}),
			},
		},
	}
}

func indexCommand(c *cli.Context, h *handlers.FileHandler) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one PATH is required")
	}

	paths, err := discovery.ScanForLogs(c.Args().Slice(), c.String("glob"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files match %q", c.String("glob"))
	}

	summaries := make([]*handlers.IndexSummary, len(paths))

	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(max(c.Int("jobs"), 1))
	for i, path := range paths {
		g.Go(func() error {
			summary, err := h.BuildIndex(ctx, handlers.PathParams{Path: path})
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return printJSON(c, summaries)
}

// withHandler loads configuration, applies global flags and runs action
// with a handler backed by a freshly opened index store
func withHandler(action func(*cli.Context, *handlers.FileHandler) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		closeLog := observability.InitLogger(c.String("log-level"), cfg.LogFile)
		defer closeLog()

		ctx := c.Context
		if ctx == nil {
			ctx = context.Background()
		}

		svc, err := service.NewViewerService(ctx, cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		return action(c, svc.Handler())
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if db := c.String("db"); db != "" {
		cfg.DBPath = db
	}
	if c.Bool("no-mmap") {
		cfg.MmapDisabled = true
	}
	return cfg, nil
}

// pathArg returns positional argument i as an absolute path
func pathArg(c *cli.Context, i int) (string, error) {
	arg := c.Args().Get(i)
	if arg == "" {
		return "", fmt.Errorf("PATH is required")
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", arg, err)
	}
	return abs, nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
