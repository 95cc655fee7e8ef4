package corpus

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCollectSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	writeFile(t, path, "ciao")

	files, err := Collect(path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestCollectDirectoryRecursiveSorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "b")
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "nested", "c.txt"), "c")
	writeFile(t, filepath.Join(dir, "ignored.md"), "not txt")

	files, err := Collect(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(dir, "a.txt"), files[0])
	assert.Equal(t, filepath.Join(dir, "b.txt"), files[1])
	assert.Equal(t, filepath.Join(dir, "nested", "c.txt"), files[2])
}

func TestCollectMissingPath(t *testing.T) {
	_, err := Collect(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReadDocumentDropsInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixed.txt")
	require.NoError(t, os.WriteFile(path, []byte("ciao\xff\xfemondo"), 0o644))

	text, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "ciaomondo", text)
}
