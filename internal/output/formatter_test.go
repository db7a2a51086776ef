package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type point struct {
	Name  string `json:"name" yaml:"name" toon:"name"`
	Score int    `json:"score" yaml:"score" toon:"score"`
}

func sampleTable() *Table {
	return NewTable("app.py",
		[]string{"Node", "Cyclomatic"},
		[][]string{{"fun1", "1"}, {"fun2", "2"}},
		[]string{"Total", "3"},
		nil,
	)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"TEXT", FormatText},
		{"table", FormatTable},
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"yaml", FormatYAML},
		{"yml", FormatYAML},
		{"toon", FormatTOON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"", FormatText},
		{"unknown", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFormat(tt.input))
		})
	}
}

func TestNewFormatterWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	f, err := NewFormatter(FormatJSON, path, true)
	require.NoError(t, err)
	assert.False(t, f.Colored(), "file output is never colored")
	assert.Equal(t, FormatJSON, f.Format())

	require.NoError(t, f.Output(map[string]int{"a": 1}))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(data))
}

func TestNewFormatterInvalidPath(t *testing.T) {
	_, err := NewFormatter(FormatText, filepath.Join(t.TempDir(), "missing", "out.txt"), false)
	assert.Error(t, err)
}

func TestNewFormatterStdout(t *testing.T) {
	f, err := NewFormatter(FormatText, "", true)
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, f.Writer())
	assert.True(t, f.Colored())
	assert.NoError(t, f.Close())
}

func TestTableRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTable().RenderText(&buf, false))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "app.py\n======\n\n"), out)
	for _, want := range []string{"fun1", "fun2", "Total", "3"} {
		assert.Contains(t, out, want)
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTable().RenderMarkdown(&buf))

	assert.Equal(t, ""+
		"## app.py\n\n"+
		"| Node | Cyclomatic |\n"+
		"| --- | --- |\n"+
		"| fun1 | 1 |\n"+
		"| fun2 | 2 |\n"+
		"| Total | 3 |\n\n",
		buf.String())
}

func TestTableRenderData(t *testing.T) {
	assert.Equal(t, []map[string]string{
		{"Node": "fun1", "Cyclomatic": "1"},
		{"Node": "fun2", "Cyclomatic": "2"},
	}, sampleTable().RenderData())

	data := []point{{"a", 1}}
	withData := NewTable("t", nil, nil, nil, data)
	assert.Equal(t, data, withData.RenderData())
}

func TestReportRender(t *testing.T) {
	rep := &Report{
		Title:    "Complexity",
		Sections: []Renderable{sampleTable(), NewTable("b.py", []string{"Node"}, [][]string{{"g"}}, nil, nil)},
	}

	var text bytes.Buffer
	require.NoError(t, rep.RenderText(&text, false))
	assert.True(t, strings.HasPrefix(text.String(), "Complexity\n==========\n\n"))
	assert.Contains(t, text.String(), "b.py")

	var md bytes.Buffer
	require.NoError(t, rep.RenderMarkdown(&md))
	assert.True(t, strings.HasPrefix(md.String(), "# Complexity\n\n## app.py\n"))
	assert.Contains(t, md.String(), "## b.py\n")

	data, ok := rep.RenderData().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Complexity", data["title"])
	assert.Len(t, data["sections"], 2)
}

func TestFormatterOutputRenderable(t *testing.T) {
	data := []point{{"fun1", 1}, {"fun2", 2}}
	table := NewTable("scores", []string{"Name", "Score"}, [][]string{{"fun1", "1"}, {"fun2", "2"}}, nil, data)

	tests := []struct {
		format Format
		check  func(t *testing.T, out string)
	}{
		{FormatJSON, func(t *testing.T, out string) {
			var got []point
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, data, got)
		}},
		{FormatYAML, func(t *testing.T, out string) {
			var got []point
			require.NoError(t, yaml.Unmarshal([]byte(out), &got))
			assert.Equal(t, data, got)
		}},
		{FormatTOON, func(t *testing.T, out string) {
			assert.Contains(t, out, "fun1")
			assert.Contains(t, out, "score")
		}},
		{FormatMarkdown, func(t *testing.T, out string) {
			assert.Contains(t, out, "| fun2 | 2 |")
		}},
		{FormatText, func(t *testing.T, out string) {
			assert.True(t, strings.HasPrefix(out, "scores\n"))
		}},
		{FormatTable, func(t *testing.T, out string) {
			assert.True(t, strings.HasPrefix(out, "scores\n"))
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewWriterFormatter(tt.format, &buf, false).Output(table))
			tt.check(t, buf.String())
		})
	}
}

func TestFormatterOutputRaw(t *testing.T) {
	data := map[string]int{"cyclomatic": 3}

	t.Run("text falls back to json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewWriterFormatter(FormatText, &buf, false).Output(data))
		assert.JSONEq(t, `{"cyclomatic": 3}`, buf.String())
	})

	t.Run("markdown fences json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewWriterFormatter(FormatMarkdown, &buf, false).Output(data))
		assert.Equal(t, "```json\n{\n  \"cyclomatic\": 3\n}\n```\n", buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewWriterFormatter(FormatYAML, &buf, false).Output(data))
		assert.Equal(t, "cyclomatic: 3\n", buf.String())
	})
}

func TestFormatterMessages(t *testing.T) {
	var buf bytes.Buffer
	f := NewWriterFormatter(FormatText, &buf, false)

	f.Success("done %d", 1)
	f.Warning("skipped %s", "a.py")
	f.Error("failed")
	f.Info("note")

	assert.Equal(t, "done 1\nWARNING: skipped a.py\nERROR: failed\nnote\n", buf.String())
}

func TestDeltaColor(t *testing.T) {
	assert.Equal(t, "0", DeltaColor(0, "0"))
	assert.Contains(t, DeltaColor(1, "+1"), "+1")
	assert.Contains(t, DeltaColor(-1, "-1"), "-1")
}
