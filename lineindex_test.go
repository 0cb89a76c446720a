package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestBuildLineIndexExactMatch(t *testing.T) {
	path := writeTempFile(t, "7;0;6;28;0;23;5;0;\n1;0;6;16;0;19;3;0;\nhello world\n")

	idx, err := BuildLineIndex(path, 4096)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	assert.True(t, idx.Contains([]byte("7;0;6;28;0;23;5;0;")))
	assert.True(t, idx.Contains([]byte("hello world")))
	assert.False(t, idx.Contains([]byte("hello worl")))
	assert.False(t, idx.Contains([]byte("nonexistent")))
}

func TestBuildLineIndexDropsEmptyLinesAndDuplicates(t *testing.T) {
	path := writeTempFile(t, "a\n\na\nb\n\n")

	idx, err := BuildLineIndex(path, 4096)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
}

func TestBuildLineIndexMissingFile(t *testing.T) {
	_, err := BuildLineIndex("/does/not/exist", 4096)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestBuildLineIndexHandlesMissingTrailingNewline(t *testing.T) {
	path := writeTempFile(t, "first\nsecond")

	idx, err := BuildLineIndex(path, 4096)
	require.NoError(t, err)
	assert.True(t, idx.Contains([]byte("first")))
	assert.True(t, idx.Contains([]byte("second")))
}

func TestNormalizeLineStripsCRLF(t *testing.T) {
	assert.Equal(t, []byte("abc"), normalizeLine([]byte("abc\r\n")))
	assert.Equal(t, []byte("abc"), normalizeLine([]byte("abc\n")))
	assert.Equal(t, []byte(""), normalizeLine([]byte("\n")))
}
