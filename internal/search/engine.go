// Package search scans log files for lines matching a pattern.
// It works on raw file bytes and needs no line index.
package search

import (
	"fmt"
	"math"
	"time"

	"github.com/SteelMorgan/log-viewer/internal/domain"
	"github.com/SteelMorgan/log-viewer/internal/encoding"
	"github.com/SteelMorgan/log-viewer/internal/filemap"
	"github.com/SteelMorgan/log-viewer/internal/indexer"
	"github.com/rs/zerolog/log"
)

// Options tunes the engine
type Options struct {
	Mode       filemap.Mode
	MaxResults int // 0 means unlimited
}

// Engine runs searches. It holds no per-file state and is safe for concurrent use.
type Engine struct {
	opts Options
}

// New creates a search engine
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Result is the outcome of a search
type Result struct {
	Matches   []domain.MatchResult
	Truncated bool // stopped at Options.MaxResults
}

// Search scans path and returns one MatchResult per matching line in file order.
// Pattern errors are reported before the file is touched.
func (e *Engine) Search(path string, spec domain.SearchSpec) (*Result, error) {
	re, err := Compile(spec)
	if err != nil {
		return nil, err
	}

	region, err := indexer.Open(path, e.opts.Mode)
	if err != nil {
		return nil, err
	}
	defer region.Close()

	started := time.Now()
	res := &Result{Matches: []domain.MatchResult{}}
	var (
		lineNumber uint64
		raw        [][]byte // undecoded text of each match
	)

	// Mapped files are classified from the whole mapping after the scan.
	// Unmapped files are sniffed line by line, so their scan runs to the end
	// even after truncation.
	var sniffer *encoding.Sniffer
	if !region.Mapped() {
		sniffer = &encoding.Sniffer{}
	}

	err = region.EachLine(func(_ int64, line []byte) error {
		if sniffer != nil {
			sniffer.Write(line)
		}
		if res.Truncated {
			return nil
		}

		lineNumber++
		content := encoding.TrimTerminator(line)

		loc := re.FindIndex(content)
		if loc == nil {
			return nil
		}

		if e.opts.MaxResults > 0 && len(res.Matches) >= e.opts.MaxResults {
			res.Truncated = true
			if sniffer == nil {
				return filemap.ErrStop
			}
			return nil
		}

		if sniffer != nil {
			content = append([]byte(nil), content...)
		}
		raw = append(raw, content)
		res.Matches = append(res.Matches, domain.MatchResult{
			LineNumber:  lineNumber,
			ColumnStart: column(loc[0]),
			ColumnEnd:   column(loc[1]),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %w", domain.ErrIO, path, err)
	}

	var enc domain.Encoding
	if sniffer != nil {
		enc = sniffer.Result()
	} else {
		enc = encoding.Detect(region.Bytes())
	}
	for i := range res.Matches {
		res.Matches[i].LineText = encoding.Decode(raw[i], enc)
	}

	log.Debug().
		Str("path", path).
		Str("pattern", spec.Pattern).
		Uint64("lines_scanned", lineNumber).
		Int("matches", len(res.Matches)).
		Bool("truncated", res.Truncated).
		Str("encoding", string(enc)).
		Dur("elapsed", time.Since(started)).
		Msg("Search finished")

	return res, nil
}

// column converts a byte offset within a line to a MatchResult column.
// Offsets past 4 GiB saturate at math.MaxUint32.
func column(n int) uint32 {
	if uint64(n) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}
