package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.jpg", "a.png", "b.txt", ".hidden.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "d.jpg"), []byte("x"), 0o644))

	files, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.txt", "c.jpg"}, files)
}

func TestListFilesMissingDir(t *testing.T) {
	_, err := ListFiles(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestEnsureDirIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	assert.False(t, FileExists(dir))
}
