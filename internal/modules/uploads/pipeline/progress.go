package pipeline

import (
	"io"
	"math"
	"sync/atomic"

	"go.uber.org/zap"
)

// Progress is one progress event of an upload.
type Progress struct {
	Stage   Stage `json:"stage"`
	Loaded  int64 `json:"loaded"`
	Total   int64 `json:"total"`
	Percent int   `json:"percent"`
}

func uploadProgress(loaded, total, size int64) Progress {
	if total <= 0 {
		total = size
	}
	if total <= 0 {
		total = 1
	}
	pct := int(math.Round(float64(loaded) / float64(total) * 100))
	if pct > 100 {
		pct = 100
	}
	return Progress{Stage: StageUpload, Loaded: loaded, Total: total, Percent: pct}
}

// countingReader reports the running byte count as the body is consumed.
type countingReader struct {
	r      io.Reader
	total  int64
	n      atomic.Int64
	report func(loaded, total int64)
}

func newCountingReader(r io.Reader, total int64, report func(loaded, total int64)) *countingReader {
	return &countingReader{r: r, total: total, report: report}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		loaded := c.n.Add(int64(n))
		if c.report != nil {
			c.report(loaded, c.total)
		}
	}
	return n, err
}

func (c *countingReader) Count() int64 { return c.n.Load() }

// emit calls fn and recovers from a panic in it.
func emit(log *zap.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("upload callback panicked", zap.String("callback", name), zap.Any("panic", r))
		}
	}()
	fn()
}
