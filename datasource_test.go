package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRereadDataSourceReflectsFileChanges(t *testing.T) {
	path := writeTempFile(t, "7;0;6;28;0;23;5;0;\n1;0;6;16;0;19;3;0;\nhello world\n")
	ds := newRereadDataSource(path, 4096)

	exists, err := ds.Contains([]byte("hello world"))
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, os.WriteFile(path, []byte("7;0;6;28;0;23;5;0;\n1;0;6;16;0;19;3;0;\n"), 0o644))

	exists, err = ds.Contains([]byte("hello world"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRereadDataSourceMissingFile(t *testing.T) {
	ds := newRereadDataSource("/does/not/exist", 4096)
	_, err := ds.Contains([]byte("anything"))
	require.Error(t, err)
	var ioErr *IoError
	assert.ErrorAs(t, err, &ioErr)
}

func TestFastDataSourceMatchesIndex(t *testing.T) {
	path := writeTempFile(t, "alpha\nbeta\n")
	idx, err := BuildLineIndex(path, 4096)
	require.NoError(t, err)

	ds := newFastDataSource(idx)
	exists, err := ds.Contains([]byte("alpha"))
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = ds.Contains([]byte("gamma"))
	require.NoError(t, err)
	assert.False(t, exists)
}
