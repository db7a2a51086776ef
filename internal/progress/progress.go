// Package progress draws a progress bar for a complexity analysis pass.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/panbanda/decomplex/pkg/analyzer"
	"github.com/schollz/progressbar/v3"
)

// Tracker is a progress bar fed by an analyzer.Tracker.
type Tracker struct {
	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	label string
	w     io.Writer
}

// NewTracker draws on stderr.
func NewTracker(label string, total int) *Tracker {
	return NewTrackerTo(os.Stderr, label, total)
}

// NewTrackerTo draws on w.
func NewTrackerTo(w io.Writer, label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label, w: w}
}

// Update moves the bar to done of total, growing it when more files were
// queued. Calls may come from several workers.
func (t *Tracker) Update(done, total int, _ string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int64(total) != t.bar.GetMax64() {
		t.bar.ChangeMax(total)
	}
	_ = t.bar.Set(done)
}

// ProgressFunc returns Update for use with recorder.WithProgress.
func (t *Tracker) ProgressFunc() analyzer.ProgressFunc {
	return t.Update
}

// Current returns the number of finished files.
func (t *Tracker) Current() int64 {
	return t.bar.State().CurrentNum
}

// FinishSuccess completes and erases the bar.
func (t *Tracker) FinishSuccess() {
	_ = t.bar.Finish()
	_ = t.bar.Clear()
}

// FinishError erases the bar and prints err under the label.
func (t *Tracker) FinishError(err error) {
	_ = t.bar.Finish()
	_ = t.bar.Clear()
	fmt.Fprintf(t.w, "  %s error: %v\n", t.label, err)
}
