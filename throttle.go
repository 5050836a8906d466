package ftp

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// throttle limits data channel throughput. A nil *throttle does nothing.
type throttle struct {
	limiter *rate.Limiter
}

// newThrottle returns nil when bytesPerSecond is zero. The burst is at least
// one block so a full chunk can always be admitted.
func newThrottle(bytesPerSecond int64, blockSize int) *throttle {
	if bytesPerSecond <= 0 {
		return nil
	}
	burst := int(max(bytesPerSecond, int64(blockSize)))
	return &throttle{limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst)}
}

// maxChunk is the largest read that wait can account for in one call, or
// zero when unlimited.
func (t *throttle) maxChunk() int {
	if t == nil {
		return 0
	}
	return t.limiter.Burst()
}

// wait blocks until n more bytes fit in the configured rate.
func (t *throttle) wait(n int) {
	if t == nil {
		return
	}
	burst := t.limiter.Burst()
	for n > 0 {
		k := min(n, burst)
		// WaitN only fails for k > burst or a cancelled context; neither
		// can happen here.
		_ = t.limiter.WaitN(context.Background(), k)
		n -= k
	}
}

func (t *throttle) reader(r io.Reader) io.Reader {
	if t == nil {
		return r
	}
	return &throttledReader{r: r, t: t}
}

type throttledReader struct {
	r io.Reader
	t *throttle
}

func (tr *throttledReader) Read(p []byte) (int, error) {
	if limit := tr.t.maxChunk(); len(p) > limit {
		p = p[:limit]
	}
	n, err := tr.r.Read(p)
	tr.t.wait(n)
	return n, err
}
