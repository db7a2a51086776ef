package recorder

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/panbanda/decomplex/internal/fileproc"
	"github.com/panbanda/decomplex/pkg/models"
	"github.com/panbanda/decomplex/pkg/parser"
	"github.com/panbanda/decomplex/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleSource = "def fun1(): return 1\n\ndef fun2():\n    if x:\n        return 1\n    return 2\n"

// fakeStore records every call made to it.
type fakeStore struct {
	mu      sync.Mutex
	history map[string]models.FileHistory
	loads   int
	saves   int
	loadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{history: make(map[string]models.FileHistory)}
}

func (s *fakeStore) LoadPreviousScores(_ context.Context, path string) (models.FileHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if h, ok := s.history[path]; ok {
		return h, nil
	}
	return models.FileHistory{}, nil
}

func (s *fakeStore) SaveScores(_ context.Context, path string, history models.FileHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.history[path] = history
	return nil
}

func (s *fakeStore) Close() error { return nil }

// fakeClock returns a later time on every call.
type fakeClock struct {
	t     time.Time
	calls int
}

func (c *fakeClock) Now() time.Time {
	c.calls++
	c.t = c.t.Add(time.Second)
	return c.t
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2018, 8, 2, 12, 0, 0, 0, time.UTC)}
}

func TestAnalyzeRecordsScores(t *testing.T) {
	src := source.NewMemory(map[string]string{"example.py": exampleSource})
	clock := newClock()
	r := New(WithSource(src), WithClock(clock.Now))

	require.NoError(t, r.Analyze(context.Background(), "example.py"))

	summary := r.Summary()
	require.Equal(t, []string{"example.py"}, summary.Paths())
	ts, run, ok := summary["example.py"].Latest()
	require.True(t, ok)
	assert.Equal(t, "2018-08-02T12:00:01.000000", ts)
	assert.Equal(t, models.RunScores{
		"fun1": {Name: "fun1", Cyclomatic: 1, Cognitive: 0},
		"fun2": {Name: "fun2", Cyclomatic: 2, Cognitive: 1},
	}, run)
}

func TestSummaryIsMemoized(t *testing.T) {
	src := source.NewMemory(map[string]string{"example.py": exampleSource})
	clock := newClock()
	r := New(WithSource(src), WithClock(clock.Now))

	assert.Empty(t, r.Summary())
	assert.Equal(t, 0, clock.calls, "no stamp without data")

	require.NoError(t, r.Analyze(context.Background(), "example.py"))
	first := r.Summary()
	second := r.Summary()

	assert.Equal(t, first, second)
	assert.Equal(t, 1, clock.calls)

	require.NoError(t, r.Analyze(context.Background(), "example.py"))
	third := r.Summary()
	assert.Equal(t, 2, clock.calls, "Analyze invalidates the cached summary")
	assert.NotEqual(t, first["example.py"].Timestamps(), third["example.py"].Timestamps())
}

func TestHasData(t *testing.T) {
	src := source.NewMemory(map[string]string{"example.py": exampleSource})
	r := New(WithSource(src))

	assert.False(t, r.HasData())
	require.NoError(t, r.Analyze(context.Background(), "example.py"))
	assert.True(t, r.HasData())

	r.Reset()
	assert.False(t, r.HasData())
	assert.Empty(t, r.Summary())
}

func TestPersistWithoutData(t *testing.T) {
	st := newFakeStore()
	r := New(WithStore(st))

	require.NoError(t, r.Persist(context.Background()))
	assert.Equal(t, 0, st.loads)
	assert.Equal(t, 0, st.saves)

	// no store configured is fine as long as there is nothing to write
	require.NoError(t, New().Persist(context.Background()))
}

func TestPersistWritesOnce(t *testing.T) {
	src := source.NewMemory(map[string]string{"example.py": exampleSource})
	st := newFakeStore()
	st.history["example.py"] = models.FileHistory{
		"2018-08-01T00:00:00.000000": {"fun1": {Name: "fun1", Cyclomatic: 1}},
	}
	r := New(WithSource(src), WithStore(st), WithClock(newClock().Now))

	require.NoError(t, r.Analyze(context.Background(), "example.py"))
	require.NoError(t, r.Persist(context.Background()))

	assert.Equal(t, 1, st.loads)
	assert.Equal(t, 1, st.saves)
	assert.Equal(t, []string{
		"2018-08-01T00:00:00.000000",
		"2018-08-02T12:00:01.000000",
	}, st.history["example.py"].Timestamps())
}

func TestPersistErrors(t *testing.T) {
	src := source.NewMemory(map[string]string{"example.py": exampleSource})

	r := New(WithSource(src))
	require.NoError(t, r.Analyze(context.Background(), "example.py"))
	assert.True(t, errors.Is(r.Persist(context.Background()), ErrNoStore))

	st := newFakeStore()
	st.loadErr = errors.New("disk on fire")
	r = New(WithSource(src), WithStore(st))
	require.NoError(t, r.Analyze(context.Background(), "example.py"))

	err := r.Persist(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, 0, st.saves)
}

func TestAddFiles(t *testing.T) {
	r := New(WithFiles("a.py", "b.py"))
	r.AddFiles("c.py", "a.py", "", "d.py")

	assert.Equal(t, []string{"a.py", "b.py", "c.py", "d.py"}, r.Files())
}

func TestAnalyzeGroup(t *testing.T) {
	src := source.NewMemory(map[string]string{
		"a.py": "def a():\n    pass\n",
		"b.py": exampleSource,
	})
	var finished []string
	r := New(
		WithSource(src),
		WithFiles("a.py"),
		WithProgress(func(_, _ int, path string) { finished = append(finished, path) }),
	)
	r.AddFiles("b.py")

	require.NoError(t, r.Analyze(context.Background(), ""))

	summary := r.Summary()
	assert.Equal(t, []string{"a.py", "b.py"}, summary.Paths())
	assert.ElementsMatch(t, []string{"a.py", "b.py"}, finished)

	// both files share the run timestamp
	assert.Equal(t, summary["a.py"].Timestamps(), summary["b.py"].Timestamps())
}

func TestAnalyzeGroupCollectsFailures(t *testing.T) {
	src := source.NewMemory(map[string]string{
		"good.py":   exampleSource,
		"broken.py": "def broken(:\n",
	})
	r := New(WithSource(src), WithFiles("good.py", "broken.py", "gone.py"), WithWorkers(2))

	err := r.Analyze(context.Background(), "")
	require.Error(t, err)

	var perrs *fileproc.ProcessingErrors
	require.True(t, errors.As(err, &perrs))
	assert.Len(t, perrs.Errors, 2)
	assert.True(t, errors.Is(err, ErrFileNotFound))
	assert.True(t, errors.Is(err, parser.ErrParse))

	assert.Equal(t, []string{"good.py"}, r.Summary().Paths(), "failed files leave no record")
}

func TestAnalyzeErrors(t *testing.T) {
	src := source.NewMemory(map[string]string{"broken.py": "def broken(:\n"})
	r := New(WithSource(src))

	err := r.Analyze(context.Background(), "missing.py")
	assert.True(t, errors.Is(err, ErrFileNotFound))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	err = r.Analyze(context.Background(), "broken.py")
	var perr *parser.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "broken.py", perr.Path)

	assert.False(t, r.HasData())
	assert.True(t, errors.Is(r.Analyze(context.Background(), ""), ErrNoFiles))
}
