package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureEmptyDirCreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	require.NoError(t, EnsureEmptyDir(path, true))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnsureEmptyDirKeepsEmptyDirectory(t *testing.T) {
	path := t.TempDir()
	assert.NoError(t, EnsureEmptyDir(path, true))
}

func TestEnsureEmptyDirClearsSilently(t *testing.T) {
	path := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(path, "stale.go"), []byte("old"), 0o644))

	require.NoError(t, EnsureEmptyDir(path, true))

	entries, err := os.ReadDir(path)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
