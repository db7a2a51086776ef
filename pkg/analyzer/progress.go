package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc is called after each file with the number of finished files,
// the expected total and the path that just finished.
type ProgressFunc func(done, total int, path string)

// Tracker counts finished files. It is safe for concurrent use.
type Tracker struct {
	done   atomic.Int64
	total  atomic.Int64
	onTick ProgressFunc
}

// NewTracker creates a tracker that reports to fn (which may be nil).
func NewTracker(fn ProgressFunc) *Tracker {
	return &Tracker{onTick: fn}
}

// Add grows the expected total by n.
func (t *Tracker) Add(n int) {
	t.total.Add(int64(n))
}

// Tick marks path as finished.
func (t *Tracker) Tick(path string) {
	done := int(t.done.Add(1))
	if t.onTick != nil {
		t.onTick(done, int(t.total.Load()), path)
	}
}

// Done returns the number of finished files.
func (t *Tracker) Done() int {
	return int(t.done.Load())
}

// Total returns the expected total.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

type trackerKey struct{}

// WithTracker returns a context carrying t.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the tracker carried by ctx, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}
