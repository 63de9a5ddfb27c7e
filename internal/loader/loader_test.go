package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadTextFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "meeting at noon")

	l := New(nil)
	docs, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "meeting at noon", docs[0].Content)
	assert.Equal(t, path, docs[0].Source)
	assert.Equal(t, path, docs[0].Metadata["source"])
}

func TestLoader_LoadMarkdownFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "readme.md", "# title\nbody")

	l := New(nil)
	docs, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "# title\nbody", docs[0].Content)
}

func TestLoader_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "image.png", "binary-ish")

	l := New(nil)
	_, err := l.Load(context.Background(), path)
	require.Error(t, err)

	var unsupported *UnsupportedFormatError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, ".png", unsupported.Ext)
}

func TestLoader_MissingPath(t *testing.T) {
	l := New(nil)
	_, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}

func TestLoader_LoadDirectory(t *testing.T) {
	t.Run("递归加载并跳过不支持的文件", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.txt", "alpha")
		writeFile(t, dir, "skip.png", "noise")
		sub := filepath.Join(dir, "sub")
		require.NoError(t, os.Mkdir(sub, 0o755))
		writeFile(t, sub, "b.md", "beta")

		l := New(nil)
		docs, err := l.Load(context.Background(), dir)
		require.NoError(t, err)
		require.Len(t, docs, 2)

		var contents []string
		for _, d := range docs {
			contents = append(contents, d.Content)
		}
		assert.ElementsMatch(t, []string{"alpha", "beta"}, contents)
	})

	t.Run("目录内全部失败时返回首个错误", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "only.png", "noise")

		l := New(nil)
		_, err := l.Load(context.Background(), dir)
		require.Error(t, err)

		var unsupported *UnsupportedFormatError
		assert.True(t, errors.As(err, &unsupported))
	})

	t.Run("空目录返回空列表", func(t *testing.T) {
		l := New(nil)
		docs, err := l.Load(context.Background(), t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestFromText(t *testing.T) {
	doc := FromText("a reusable fact", "memory:123")
	assert.Equal(t, "a reusable fact", doc.Content)
	assert.Equal(t, "memory:123", doc.Source)
	assert.Equal(t, "true", doc.Metadata["ephemeral"])
}

func TestMemorySource(t *testing.T) {
	s1 := MemorySource()
	s2 := MemorySource()
	assert.True(t, strings.HasPrefix(s1, "memory:"))
	// 纳秒时间戳保证来源标识不重复
	assert.NotEqual(t, s1, s2)
}
