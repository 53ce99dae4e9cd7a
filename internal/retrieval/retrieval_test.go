package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Run("short text is one chunk", func(t *testing.T) {
		assert.Equal(t, []string{"hello world"}, Split("hello world", 100, 10))
	})

	t.Run("chunks respect size", func(t *testing.T) {
		text := strings.Repeat("alpha beta gamma delta. ", 200)
		chunks := Split(text, 100, 20)
		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
		}
	})

	t.Run("prefers paragraph boundaries", func(t *testing.T) {
		text := "first paragraph here\n\nsecond paragraph here"
		chunks := Split(text, 25, 0)
		assert.Equal(t, []string{"first paragraph here", "second paragraph here"}, chunks)
	})

	t.Run("overlap carries trailing words", func(t *testing.T) {
		chunks := Split("one two three four five six", 13, 5)
		require.Greater(t, len(chunks), 1)
		first := strings.Fields(chunks[0])
		second := strings.Fields(chunks[1])
		assert.Equal(t, first[len(first)-1], second[0])
	})

	t.Run("long word is hard cut", func(t *testing.T) {
		chunks := Split(strings.Repeat("x", 25), 10, 0)
		assert.Equal(t, []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxx"}, chunks)
	})

	t.Run("blank text", func(t *testing.T) {
		assert.Empty(t, Split("  \n\n ", 10, 2))
	})
}

func TestIndexSearch(t *testing.T) {
	ix, err := Build([]Document{
		{Source: "sec.md", Text: "SQL injection: use parameterized queries. Avoid eval on untrusted input."},
		{Source: "perf.md", Text: "Nested loops are quadratic. Use a set for membership lookups."},
		{Source: "style.md", Text: "Use snake_case names and four space indentation."},
	}, 1000, 200)
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())

	hits := ix.Search("sql injection eval", 3)
	require.NotEmpty(t, hits)
	assert.Equal(t, "sec.md", hits[0].Source)

	hits = ix.Search("nested loops quadratic", 1)
	require.Len(t, hits, 1)
	assert.Equal(t, "perf.md", hits[0].Source)

	assert.Empty(t, ix.Search("kubernetes", 3), "no shared terms")
	assert.Empty(t, ix.Search("injection", 0))
}

func TestBuild_NoDocuments(t *testing.T) {
	_, err := Build(nil, 1000, 200)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestBuiltinDocuments(t *testing.T) {
	docs, err := Builtin()
	require.NoError(t, err)
	require.Len(t, docs, 3)

	ix, err := DirBuilder(Config{ChunkSize: 1000, ChunkOverlap: 200})()
	require.NoError(t, err)
	hits := ix.Search("OWASP injection secrets deserialization", 3)
	require.NotEmpty(t, hits)
	assert.Equal(t, "owasp_security.md", hits[0].Source)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("alpha"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("beta"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.pdf"), []byte("ignored"), 0o644))

	docs, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.md", docs[0].Source)
	assert.Equal(t, "sub/b.txt", docs[1].Source)

	_, err = LoadDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestService_UnavailableUntilInit(t *testing.T) {
	ctx := context.Background()
	svc := NewService(DirBuilder(Config{}), nil)

	_, err := svc.Retrieve(ctx, "injection", 3)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, svc.Ready())

	require.NoError(t, svc.Init())
	assert.True(t, svc.Ready())
	hits, err := svc.Retrieve(ctx, "injection", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)

	svc.Reset()
	_, err = svc.Retrieve(ctx, "injection", 3)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestService_NilIsUnavailable(t *testing.T) {
	var svc *Service
	_, err := svc.Retrieve(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestService_ConcurrentInitBuildsOnce(t *testing.T) {
	var builds atomic.Int32
	svc := NewService(func() (*Index, error) {
		builds.Add(1)
		return Build([]Document{{Source: "a", Text: "alpha beta"}}, 100, 0)
	}, nil)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Init())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
}

func TestService_FailedBuildCanRetry(t *testing.T) {
	var calls atomic.Int32
	svc := NewService(func() (*Index, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("disk on fire")
		}
		return Build([]Document{{Source: "a", Text: "alpha beta"}}, 100, 0)
	}, nil)

	require.Error(t, svc.Init())
	assert.False(t, svc.Ready())
	require.NoError(t, svc.Init())
	assert.True(t, svc.Ready())
}
