// Package streaming computes byte-range response plans and reads exact
// file spans for partial-content transfers.
package streaming

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"phrasevid/errors"
)

// DefaultChunkSize caps how many bytes one range response carries.
const DefaultChunkSize int64 = 1_000_000

// Plan is the resolved byte span for one range request.
type Plan struct {
	Start int64
	End   int64
	Size  int64
}

// ParseRange resolves a "bytes=<start>-" header against the asset size.
// Only the open-ended form is supported; explicit upper bounds and
// multi-range requests are rejected. The span end is capped at
// start+chunkSize-1 and the last byte of the asset, whichever comes first.
func ParseRange(header string, size, chunkSize int64) (Plan, error) {
	const op = "streaming.ParseRange"

	if header == "" {
		return Plan{}, errors.RangeRequired(op, nil, "Range header is required")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return Plan{}, errors.RangeRequired(op, nil,
			fmt.Sprintf("unsupported Range unit in %q", header))
	}

	startText, ok := strings.CutSuffix(spec, "-")
	if !ok || strings.ContainsAny(startText, "-,") {
		return Plan{}, errors.RangeRequired(op, nil,
			fmt.Sprintf("only the bytes=<start>- form is supported, got %q", header))
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startText), 10, 64)
	if err != nil || start < 0 {
		return Plan{}, errors.RangeRequired(op, err,
			fmt.Sprintf("invalid range start in %q", header))
	}
	if start >= size {
		return Plan{}, errors.RangeRequired(op, nil,
			fmt.Sprintf("range start %d beyond asset size %d", start, size))
	}

	end := start + chunkSize - 1
	if end > size-1 {
		end = size - 1
	}

	return Plan{Start: start, End: end, Size: size}, nil
}

// Length is the exact number of bytes the response body carries.
func (p Plan) Length() int64 {
	return p.End - p.Start + 1
}

// ContentRange renders the Content-Range header value.
func (p Plan) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", p.Start, p.End, p.Size)
}

// SpanReader reads exactly one plan's byte span from a file and invokes a
// release callback when closed. Close runs on completion, error, and client
// disconnect alike, so reader leases are always returned promptly.
type SpanReader struct {
	file      *os.File
	remaining int64
	release   func()
	closed    bool
}

// OpenSpan opens the file positioned at the plan's start offset. The
// release callback may be nil.
func OpenSpan(path string, plan Plan, release func()) (*SpanReader, error) {
	const op = "streaming.OpenSpan"

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AssetNotFound(op, err, "asset file missing")
		}
		return nil, errors.CacheIO(op, err, "failed to open asset")
	}

	if _, err := file.Seek(plan.Start, io.SeekStart); err != nil {
		file.Close()
		return nil, errors.CacheIO(op, err, "failed to seek to range start")
	}

	return &SpanReader{
		file:      file,
		remaining: plan.Length(),
		release:   release,
	}, nil
}

func (r *SpanReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}

	n, err := r.file.Read(p)
	r.remaining -= int64(n)
	if err == nil && r.remaining == 0 {
		err = io.EOF
	}
	return n, err
}

func (r *SpanReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	err := r.file.Close()
	if r.release != nil {
		r.release()
	}
	return err
}
