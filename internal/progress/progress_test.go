package progress

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/panbanda/decomplex/pkg/analyzer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracker(t *testing.T) {
	tests := []struct {
		name  string
		label string
		total int
	}{
		{"standard tracker", "Analyzing", 100},
		{"zero total", "Empty task", 0},
		{"single item", "One file", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTrackerTo(io.Discard, tt.label, tt.total)
			require.NotNil(t, tracker.bar)
			assert.Equal(t, tt.label, tracker.label)
		})
	}
}

func TestUpdateConcurrent(t *testing.T) {
	tracker := NewTrackerTo(io.Discard, "Analyzing", 0)
	at := analyzer.NewTracker(tracker.ProgressFunc())
	at.Add(50)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			at.Tick("a.py")
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 50, at.Done())
	assert.EqualValues(t, 50, tracker.bar.GetMax64())
	tracker.FinishSuccess()
}

func TestUpdateFollowsAnalyzerTracker(t *testing.T) {
	tracker := NewTrackerTo(io.Discard, "Analyzing", 0)

	at := analyzer.NewTracker(tracker.ProgressFunc())
	at.Add(3)
	at.Tick("a.py")
	at.Tick("b.py")

	assert.EqualValues(t, 2, tracker.Current())
	assert.EqualValues(t, 3, tracker.bar.GetMax64())

	at.Add(2)
	at.Tick("c.py")
	assert.EqualValues(t, 3, tracker.Current())
	assert.EqualValues(t, 5, tracker.bar.GetMax64())
}

func TestFinishError(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTrackerTo(&buf, "Analyzing", 1)
	tracker.FinishError(errors.New("boom"))

	assert.Contains(t, buf.String(), "Analyzing error: boom")
}
