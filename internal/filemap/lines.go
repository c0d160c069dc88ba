package filemap

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

const readBufferSize = 256 * 1024

// LineFunc receives each line with its terminator and the byte offset it starts at.
// The line slice is only valid for the duration of the call.
// Returning ErrStop ends the iteration without error.
type LineFunc func(start int64, line []byte) error

// ErrStop can be returned by a LineFunc to stop EachLine early
var ErrStop = errors.New("stop iteration")

// EachLine calls fn for every line in file order. A line ends after '\n';
// a trailing unterminated line is yielded as well. Empty files yield nothing.
func (r *Region) EachLine(fn LineFunc) error {
	var err error
	if r.data != nil {
		err = eachMappedLine(r.data, fn)
	} else {
		err = eachReadLine(io.NewSectionReader(r.file, 0, r.size), fn)
	}
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

func eachMappedLine(data []byte, fn LineFunc) error {
	var start int
	for start < len(data) {
		end := len(data)
		if i := bytes.IndexByte(data[start:], '\n'); i >= 0 {
			end = start + i + 1
		}
		if err := fn(int64(start), data[start:end]); err != nil {
			return err
		}
		start = end
	}
	return nil
}

func eachReadLine(src io.Reader, fn LineFunc) error {
	br := bufio.NewReaderSize(src, readBufferSize)
	var (
		offset int64
		long   []byte // accumulates lines longer than the buffer
	)

	for {
		chunk, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			long = append(long, chunk...)
			continue
		}

		line := chunk
		if long != nil {
			long = append(long, chunk...)
			line = long
		}

		if len(line) > 0 {
			if cbErr := fn(offset, line); cbErr != nil {
				return cbErr
			}
			offset += int64(len(line))
		}
		long = nil

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read line at offset %d: %w", offset, err)
		}
	}
}
