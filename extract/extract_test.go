package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	tt "github.com/gnolang/revxslt/internal/types"
	"github.com/gnolang/revxslt/match"
)

func init() {
	ProgressWriter = io.Discard
}

type mockExtractEngine struct {
	mock.Mock
}

func (m *mockExtractEngine) Run(ctx context.Context, source string) (tt.Record, error) {
	args := m.Called(ctx, source)
	return args.Get(0).(tt.Record), args.Error(1)
}

func (m *mockExtractEngine) RunSource(ctx context.Context, name string, src []byte, contentType string) tt.Record {
	args := m.Called(ctx, name, src, contentType)
	return args.Get(0).(tt.Record)
}

func (m *mockExtractEngine) IgnorePath(path string) {
	m.Called(path)
}

func (m *mockExtractEngine) IsIgnored(path string) bool {
	args := m.Called(path)
	return args.Bool(0)
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestProcessFile(t *testing.T) {
	t.Parallel()

	expected := tt.Record{Source: "a.html", Status: tt.StatusMatched}
	engine := new(mockExtractEngine)
	engine.On("Run", mock.Anything, "a.html").Return(expected, nil)

	record, err := ProcessFile(context.Background(), engine, "a.html")
	require.NoError(t, err)
	assert.Equal(t, expected, record)
	engine.AssertExpectations(t)
}

func TestProcessPathDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"b.html":            "b",
		"a.htm":             "a",
		"nested/c.xhtml":    "c",
		"notes.txt":         "skipped",
		"archive/old.html":  "ignored",
		"template.xsl":      "skipped",
		"nested/d.xml":      "d",
		"nested/broken.htm": "broken",
	})

	engine := new(mockExtractEngine)
	engine.On("IsIgnored", filepath.Join(dir, "archive")).Return(true)
	engine.On("IsIgnored", mock.Anything).Return(false)
	engine.On("Run", mock.Anything, filepath.Join(dir, "nested", "broken.htm")).
		Return(tt.Record{Source: "broken", Status: tt.StatusError}, fmt.Errorf("read error"))
	engine.On("Run", mock.Anything, mock.Anything).
		Return(tt.Record{Status: tt.StatusMatched}, nil)

	records, err := ProcessPath(context.Background(), nil, engine, dir, ProcessFile)
	require.NoError(t, err)
	require.Len(t, records, 5)

	var errored int
	for _, r := range records {
		if r.Status == tt.StatusError {
			errored++
		}
	}
	assert.Equal(t, 1, errored)
	engine.AssertNotCalled(t, "Run", mock.Anything, filepath.Join(dir, "archive", "old.html"))
	engine.AssertNotCalled(t, "Run", mock.Anything, filepath.Join(dir, "notes.txt"))
}

func TestProcessPathOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{}
	for i := 0; i < 20; i++ {
		files[fmt.Sprintf("n%02d.html", i)] = "x"
	}
	writeFiles(t, dir, files)

	engine := new(mockExtractEngine)
	engine.On("IsIgnored", mock.Anything).Return(false)
	for i := 0; i < 20; i++ {
		path := filepath.Join(dir, fmt.Sprintf("n%02d.html", i))
		engine.On("Run", mock.Anything, path).Return(tt.Record{Source: path}, nil)
	}

	records, err := ProcessPath(context.Background(), nil, engine, dir, ProcessFile)
	require.NoError(t, err)
	require.Len(t, records, 20)
	for i, r := range records {
		assert.Equal(t, filepath.Join(dir, fmt.Sprintf("n%02d.html", i)), r.Source)
	}
}

func TestProcessPathContextCancellation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{}
	for i := 0; i < 10; i++ {
		files[fmt.Sprintf("n%d.html", i)] = "x"
	}
	writeFiles(t, dir, files)

	engine := new(mockExtractEngine)
	engine.On("IsIgnored", mock.Anything).Return(false)
	engine.On("Run", mock.Anything, mock.Anything).Return(tt.Record{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, err := ProcessPath(ctx, nil, engine, dir, ProcessFile)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, records)
}

func TestProcessFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.html": "a"})
	file := filepath.Join(dir, "a.html")

	engine := new(mockExtractEngine)
	engine.On("IsIgnored", file).Return(false)
	engine.On("Run", mock.Anything, file).Return(tt.Record{Source: file, Status: tt.StatusMatched}, nil)
	engine.On("Run", mock.Anything, "https://notices.test/b.html").
		Return(tt.Record{Source: "https://notices.test/b.html", Status: tt.StatusNoMatch}, nil)

	records, err := ProcessFiles(context.Background(), nil, engine, []string{file, "https://notices.test/b.html"}, ProcessFile)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, tt.StatusMatched, records[0].Status)
	assert.Equal(t, tt.StatusNoMatch, records[1].Status)

	_, err = ProcessFiles(context.Background(), nil, engine, []string{filepath.Join(dir, "missing")}, ProcessFile)
	assert.Error(t, err)
}

func TestProcessSources(t *testing.T) {
	t.Parallel()

	engine := new(mockExtractEngine)
	engine.On("RunSource", mock.Anything, "stdin", []byte("<p>x</p>"), "text/html").
		Return(tt.Record{Source: "stdin", Status: tt.StatusMatched})

	records, err := ProcessSources(context.Background(), engine, []Source{
		{Name: "stdin", Content: []byte("<p>x</p>"), ContentType: "text/html"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "stdin", records[0].Source)
	engine.AssertExpectations(t)
}

func TestNew(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"templates/bits.xsl": `<p><xsl:value-of select="count"/> bits</p>`,
		"docs/a.html":        `<p>127 bits</p>`,
		"docs/b.html":        `<p>many bits</p>`,
		"archive/c.html":     `<p>1 bits</p>`,
	})

	cfg := Config{
		Name:        "bits",
		Template:    "templates/bits.xsl",
		Constraints: map[string]string{"count": `\d+`},
		CacheDir:    "cache",
		Ignore:      []string{"archive"},
	}
	engine, err := New(cfg, dir, nil, nil)
	require.NoError(t, err)

	records, err := ProcessFiles(context.Background(), nil, engine, []string{
		filepath.Join(dir, "docs"),
		filepath.Join(dir, "archive"),
	}, ProcessFile)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, tt.StatusMatched, records[0].Status)
	assert.Equal(t, match.Value("127"), records[0].Bindings["count"])
	assert.Equal(t, tt.StatusNoMatch, records[1].Status)
	assert.DirExists(t, filepath.Join(dir, "cache"))

	_, err = New(Config{Name: "x"}, dir, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{Name: "x", Template: "missing.xsl"}, dir, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{Name: "x", Template: "templates/bits.xsl", Constraints: map[string]string{"a": "("}}, dir, nil, nil)
	assert.Error(t, err)
}
