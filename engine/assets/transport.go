// Package assets provides the transports the fetch system downloads asset
// containers with: a remote HTTP mirror and a local directory mirror.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// Range selects Size bytes starting at Offset. A zero Size reads to the end.
type Range struct {
	Offset int64
	Size   int64
}

func (r *Range) String() string {
	if r.Size <= 0 {
		return fmt.Sprintf("bytes=%d-", r.Offset)
	}
	return fmt.Sprintf("bytes=%d-%d", r.Offset, r.Offset+r.Size-1)
}

// slice cuts the range out of the complete content of path. A range ending
// past the content is cut at its end, as servers do.
func (r *Range) slice(path string, content []byte) ([]byte, error) {
	length := int64(len(content))
	if r.Offset < 0 || r.Offset >= length {
		return nil, fmt.Errorf("%s: range %s starts past the end (%d bytes)", path, r, length)
	}
	end := length
	if r.Size > 0 && r.Offset+r.Size < length {
		end = r.Offset + r.Size
	}
	return content[r.Offset:end], nil
}

// OnProgress receives the completed fraction of a single transfer.
type OnProgress func(fraction float64)

// Transport downloads one logical path. Implementations must honour ctx
// cancellation and must report progress through onProgress when it is set.
type Transport interface {
	Fetch(ctx context.Context, path string, rng *Range, onProgress OnProgress) ([]byte, error)
}

// progressReader reports how much of an expected total has been read.
type progressReader struct {
	ctx        context.Context
	r          io.Reader
	total      int64
	read       int64
	onProgress OnProgress
}

func (pr *progressReader) Read(p []byte) (int, error) {
	if err := pr.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := pr.r.Read(p)
	pr.read += int64(n)
	if pr.onProgress != nil && pr.total > 0 && n > 0 {
		pr.onProgress(float64(pr.read) / float64(pr.total))
	}
	return n, err
}

func readAll(ctx context.Context, r io.Reader, total int64, onProgress OnProgress) ([]byte, error) {
	pr := &progressReader{ctx: ctx, r: r, total: total, onProgress: onProgress}
	var buf bytes.Buffer
	if total > 0 {
		buf.Grow(int(total))
	}
	if _, err := buf.ReadFrom(pr); err != nil {
		return nil, err
	}
	if onProgress != nil {
		onProgress(1)
	}
	return buf.Bytes(), nil
}
