package internal

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tt "github.com/gnolang/revxslt/internal/types"
	"github.com/gnolang/revxslt/match"
)

func sampleRecord(source string) tt.Record {
	return tt.Record{
		Source:   source,
		Template: "notice.xsl",
		Status:   tt.StatusMatched,
		Bindings: match.Bindings{
			"nazwa": match.Value("Kraków"),
			"rows":  match.List(match.Bindings{"n": match.Value("1")}),
		},
		Duration:    time.Millisecond,
		ExtractedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func TestCache(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	cache, err := NewCache(filepath.Join(tmpDir, "cache"))
	require.NoError(t, err)

	t.Run("SaveAndLoad", func(t *testing.T) {
		filename := filepath.Join(tmpDir, "a.html")
		writeTestFile(t, filename, "<p>Kraków</p>")

		record := sampleRecord(filename)
		require.NoError(t, cache.Set(filename, record))

		loaded, found := cache.Get(filename)
		require.True(t, found)
		assert.Equal(t, record.Status, loaded.Status)
		assert.True(t, record.Bindings.Equal(loaded.Bindings))
	})

	t.Run("NotFound", func(t *testing.T) {
		_, found := cache.Get("nonexistent.html")
		assert.False(t, found)
	})

	t.Run("FileModified", func(t *testing.T) {
		filename := filepath.Join(tmpDir, "modified.html")
		writeTestFile(t, filename, "<p>one</p>")
		require.NoError(t, cache.Set(filename, sampleRecord(filename)))

		writeTestFile(t, filename, "<p>two</p>")

		_, found := cache.Get(filename)
		assert.False(t, found)
	})

	t.Run("Expired", func(t *testing.T) {
		filename := filepath.Join(tmpDir, "old.html")
		writeTestFile(t, filename, "<p>old</p>")
		require.NoError(t, cache.Set(filename, sampleRecord(filename)))

		cache.SetMaxAge(0)
		defer cache.SetMaxAge(defaultMaxAge)

		_, found := cache.Get(filename)
		assert.False(t, found)
	})
}

func TestCachePersistence(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	cacheDir := filepath.Join(tmpDir, "cache")
	template := filepath.Join(tmpDir, "notice.xsl")
	writeTestFile(t, template, `<p><xsl:value-of select="a"/></p>`)
	filename := filepath.Join(tmpDir, "a.html")
	writeTestFile(t, filename, "<p>x</p>")

	cache, err := NewCache(cacheDir, template)
	require.NoError(t, err)
	require.NoError(t, cache.Set(filename, sampleRecord(filename)))

	reopened, err := NewCache(cacheDir, template)
	require.NoError(t, err)
	_, found := reopened.Get(filename)
	assert.True(t, found)

	// an edited template drops every stored entry
	writeTestFile(t, template, `<p>x<xsl:value-of select="a"/></p>`)
	invalidated, err := NewCache(cacheDir, template)
	require.NoError(t, err)
	assert.Equal(t, 0, invalidated.Len())
}

func TestCacheInvalidateAll(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	cache, err := NewCache(filepath.Join(tmpDir, "cache"))
	require.NoError(t, err)

	filename := filepath.Join(tmpDir, "a.html")
	writeTestFile(t, filename, "<p>x</p>")
	require.NoError(t, cache.Set(filename, sampleRecord(filename)))

	cache.InvalidateAll()
	_, found := cache.Get(filename)
	assert.False(t, found)
}

func TestCacheConcurrency(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	cache, err := NewCache(filepath.Join(tmpDir, "cache"))
	require.NoError(t, err)

	testFile := filepath.Join(tmpDir, "test.html")
	writeTestFile(t, testFile, "<p>x</p>")
	record := sampleRecord(testFile)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, cache.Set(testFile, record))
		}()
		go func() {
			defer wg.Done()
			_, _ = cache.Get(testFile)
		}()
	}
	wg.Wait()

	_, found := cache.Get(testFile)
	assert.True(t, found)
}

func writeTestFile(t *testing.T, filename string, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))

	// ensure the modification time differs between writes
	mod := time.Now().Add(time.Duration(len(content)) * time.Second)
	require.NoError(t, os.Chtimes(filename, mod, mod))
}
