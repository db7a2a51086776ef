package complexity

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/decomplex/internal/fileproc"
	"github.com/panbanda/decomplex/pkg/analyzer"
	"github.com/panbanda/decomplex/pkg/models"
	"github.com/panbanda/decomplex/pkg/parser"
	"github.com/panbanda/decomplex/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// score is a (cyclomatic, cognitive) pair.
type score [2]int

func analyzeSource(t *testing.T, path, code string) models.RunScores {
	t.Helper()
	a := New()
	defer a.Close()

	result, err := a.AnalyzeSource([]byte(code), path)
	require.NoError(t, err)
	return result.Functions
}

func assertScores(t *testing.T, want map[string]score, got models.RunScores) {
	t.Helper()
	require.Len(t, got, len(want), "functions: %v", got.Names())
	for name, w := range want {
		nc, ok := got[name]
		if !assert.True(t, ok, "missing %s in %v", name, got.Names()) {
			continue
		}
		assert.Equal(t, name, nc.Name)
		assert.Equal(t, w, score{nc.Cyclomatic, nc.Cognitive}, name)
	}
}

func TestNew(t *testing.T) {
	a := New(WithMaxFileSize(1024), WithWorkers(3))
	defer a.Close()

	assert.NotNil(t, a.parser)
	assert.EqualValues(t, 1024, a.maxFileSize)
	assert.Equal(t, 3, a.workers)
}

func TestPythonEndToEnd(t *testing.T) {
	code := "def fun1(): return 1\n\ndef fun2():\n    if x:\n        return 1\n    return 2\n"

	assertScores(t, map[string]score{
		"fun1": {1, 0},
		"fun2": {2, 1},
	}, analyzeSource(t, "example.py", code))
}

func TestPythonScoring(t *testing.T) {
	tests := []struct {
		name string
		code string
		want map[string]score
	}{
		{
			name: "nesting",
			code: `def nested(a, b):
    for x in a:
        if x:
            while b:
                b -= 1
    return b
`,
			want: map[string]score{"nested": {4, 6}},
		},
		{
			name: "elif and else are flat",
			code: `def branches(x):
    if x > 0:
        return 1
    elif x < 0:
        return -1
    else:
        return 0
`,
			want: map[string]score{"branches": {3, 3}},
		},
		{
			name: "boolean sequences",
			code: `def cond(a, b, c, d):
    if a and b and c:
        return 1
    if a and b or d:
        return 2
    return 3
`,
			want: map[string]score{"cond": {7, 5}},
		},
		{
			name: "parentheses continue a boolean sequence",
			code: `def grouped(a, b, c):
    if (a and b) and c:
        return 1
    return 2
`,
			want: map[string]score{"grouped": {4, 2}},
		},
		{
			name: "conditional expression condition is not nested",
			code: `def pick(x):
    return 1 if x and x > 1 else 2
`,
			want: map[string]score{"pick": {3, 2}},
		},
		{
			name: "nested functions are scored separately",
			code: `def outer(x):
    def inner(y):
        if y:
            return y
        return 0
    return inner(x) if x else 0
`,
			want: map[string]score{
				"outer":       {2, 1},
				"outer.inner": {2, 1},
			},
		},
		{
			name: "class methods",
			code: `class Greeter:
    def greet(self, name):
        return name or "world"
`,
			want: map[string]score{"Greeter.greet": {2, 1}},
		},
		{
			name: "comprehension clauses",
			code: `def evens(xs):
    return [x for x in xs if x % 2 == 0]
`,
			want: map[string]score{"evens": {3, 0}},
		},
		{
			name: "except clauses",
			code: `def safe(f):
    try:
        return f()
    except ValueError:
        return None
    except (TypeError, KeyError):
        return None
`,
			want: map[string]score{"safe": {3, 2}},
		},
		{
			name: "match ignores the wildcard arm",
			code: `def dispatch(cmd):
    match cmd:
        case "a":
            return 1
        case "b":
            return 2
        case _:
            return 0
`,
			want: map[string]score{"dispatch": {3, 1}},
		},
		{
			name: "assigned lambda",
			code: "square = lambda x: x * x\n",
			want: map[string]score{"square": {1, 0}},
		},
		{
			name: "anonymous lambda",
			code: "callbacks = [lambda: 1]\n",
			want: map[string]score{"<lambda@1:14>": {1, 0}},
		},
		{
			name: "duplicate names",
			code: `class C:
    @property
    def value(self):
        return 1

    @value.setter
    def value(self, v):
        pass
`,
			want: map[string]score{
				"C.value":   {1, 0},
				"C.value#2": {1, 0},
			},
		},
		{
			name: "no functions",
			code: "x = 1\n",
			want: map[string]score{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertScores(t, tt.want, analyzeSource(t, "test.py", tt.code))
		})
	}
}

func TestGoScoring(t *testing.T) {
	code := `package main

func simple() int {
	return 42
}

func nested(x, y int) int {
	if x > 0 {
		if y > 0 {
			return x + y
		}
	}
	return 0
}

func chain(x int) string {
	if x > 10 {
		return "big"
	} else if x > 5 {
		return "medium"
	} else {
		return "small"
	}
}

func loop(items []int) (n int) {
	for _, it := range items {
		switch {
		case it > 0:
			n++
		case it < 0:
			n--
		default:
		}
	}
	return n
}

type T struct{}

func (t *T) Run(ok bool) bool {
	check := func() bool {
		return ok || t != nil
	}
	return check()
}

func fast(x int) int

func (t *T) stub()

func slow(x int) int {
	if x > 0 {
		return fast(x)
	}
	return 0
}
`

	assertScores(t, map[string]score{
		"fast":        {1, 0},
		"T.stub":      {1, 0},
		"slow":        {2, 1},
		"simple":      {1, 0},
		"nested":      {3, 3},
		"chain":       {3, 3},
		"loop":        {4, 3},
		"T.Run":       {1, 0},
		"T.Run.check": {2, 1},
	}, analyzeSource(t, "main.go", code))
}

func TestJavaScriptScoring(t *testing.T) {
	code := `function classify(x) {
  if (x > 10) {
    return "big";
  } else if (x > 5) {
    return "medium";
  } else {
    return "small";
  }
}

const check = (a, b) => a && b;

class Counter {
  increment(step) {
    for (let i = 0; i < step; i++) {
      this.n += i > 2 ? 2 : 1;
    }
  }
}

setTimeout(function () {
  return 1;
}, 0);
`

	want := map[string]score{
		"classify":          {3, 3},
		"check":             {2, 1},
		"Counter.increment": {3, 3},
		"<anonymous@21:12>": {1, 0},
	}
	assertScores(t, want, analyzeSource(t, "app.js", code))
	assertScores(t, want, analyzeSource(t, "app.ts", code))
}

func TestAnalyzeSourceErrors(t *testing.T) {
	a := New()
	defer a.Close()

	_, err := a.AnalyzeSource([]byte("def broken(:\n"), "broken.py")
	assert.True(t, errors.Is(err, parser.ErrParse), "got %v", err)

	_, err = a.AnalyzeSource([]byte("x"), "notes.txt")
	assert.True(t, errors.Is(err, parser.ErrUnsupportedLanguage), "got %v", err)

	small := New(WithMaxFileSize(4))
	defer small.Close()
	_, err = small.AnalyzeSource([]byte("def f(): pass\n"), "f.py")
	assert.True(t, errors.Is(err, ErrFileTooLarge), "got %v", err)
}

func TestScorerUnscorable(t *testing.T) {
	p := parser.New()
	defer p.Close()

	result, err := p.Parse([]byte("x = 1\n"), parser.LangPython, "x.py")
	require.NoError(t, err)
	defer result.Tree.Close()

	s := NewScorer()

	_, err = s.Score(FunctionNode{Name: "module", Node: result.Root(), Source: result.Source, Language: parser.LangPython})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnscorable))
	var uerr *UnscorableNodeError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "module", uerr.Kind)

	_, err = s.Score(FunctionNode{Name: "x", Node: result.Root(), Language: parser.LangUnknown})
	assert.True(t, errors.Is(err, ErrUnscorable))

	_, err = s.Score(FunctionNode{Name: "x", Language: parser.LangPython})
	assert.True(t, errors.Is(err, ErrUnscorable))
}

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(path, []byte("def f(a):\n    return a and 1\n"), 0o644))

	a := New()
	defer a.Close()

	result, err := a.AnalyzeFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, result.Path)
	assert.Equal(t, "python", result.Language)
	assertScores(t, map[string]score{"f": {2, 1}}, result.Functions)

	cyc, cog := result.Totals()
	assert.Equal(t, 2, cyc)
	assert.Equal(t, 1, cog)

	_, err = a.AnalyzeFile(filepath.Join(dir, "missing.py"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestAnalyzeProjectFromSource(t *testing.T) {
	src := source.NewMemory(map[string]string{
		"a.py":      "def a():\n    pass\n",
		"b.go":      "package b\n\nfunc B(x bool) {\n\tif x {\n\t}\n}\n",
		"broken.py": "def broken(:\n",
	})
	files := []string{"a.py", "b.go", "broken.py", "missing.py"}

	var ticks int
	tracker := analyzer.NewTracker(func(done, total int, path string) { ticks++ })
	ctx := analyzer.WithTracker(context.Background(), tracker)

	a := New(WithWorkers(1))
	defer a.Close()

	analysis, err := a.AnalyzeProjectFromSource(ctx, files, src)
	require.Error(t, err)

	assert.Equal(t, []string{"a.py", "b.go"}, analysis.Paths())
	assert.Equal(t, 2, analysis.Files["b.go"].Functions["B"].Cyclomatic)

	var perrs *fileproc.ProcessingErrors
	require.True(t, errors.As(err, &perrs))
	require.Len(t, perrs.Errors, 2)
	assert.Equal(t, "broken.py", perrs.Errors[0].Path)
	assert.Equal(t, "missing.py", perrs.Errors[1].Path)
	assert.True(t, errors.Is(err, parser.ErrParse))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	assert.Equal(t, 4, ticks)
	assert.Equal(t, 4, tracker.Total())
}

func TestAnalyzeParallelMatchesSequential(t *testing.T) {
	files := map[string]string{}
	var paths []string
	for i := range 12 {
		path := filepath.Join("pkg", string(rune('a'+i))+".py")
		files[path] = "def f(x):\n    for i in x:\n        if i:\n            return i\n"
		paths = append(paths, path)
	}
	src := source.NewMemory(files)

	seq := New(WithWorkers(1))
	defer seq.Close()
	par := New(WithWorkers(4))
	defer par.Close()

	want, err := seq.AnalyzeProjectFromSource(context.Background(), paths, src)
	require.NoError(t, err)
	got, err := par.AnalyzeProjectFromSource(context.Background(), paths, src)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}
