package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.PNG", "notes.txt", "README"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.d"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub.d", "c.jpg"), []byte("x"), 0o644))

	files, err := ListImageFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.PNG"),
		filepath.Join(dir, "b.jpg"),
	}, files)
}

func TestListImageFilesFollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	elsewhere := t.TempDir()
	target := filepath.Join(elsewhere, "real.jpg")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(elsewhere, "folder.jpg"), 0o755))

	if err := os.Symlink(target, filepath.Join(dir, "linked.jpg")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(elsewhere, "gone.jpg"), filepath.Join(dir, "dangling.jpg")))
	require.NoError(t, os.Symlink(filepath.Join(elsewhere, "folder.jpg"), filepath.Join(dir, "dir.jpg")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.jpg"), []byte("x"), 0o644))

	files, err := ListImageFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "linked.jpg"),
		filepath.Join(dir, "plain.jpg"),
	}, files)
}

func TestListImageFilesMissingDir(t *testing.T) {
	_, err := ListImageFiles(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestCropFilename(t *testing.T) {
	assert.Equal(t, "photo_0.jpg", CropFilename("/data/in/photo.png", 0))
	assert.Equal(t, "img.v2_3.jpg", CropFilename("img.v2.jpeg", 3))
	assert.Equal(t, "photo", BaseName("/x/photo.webp"))
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("a.JPG"))
	assert.True(t, IsImageFile("a.webp"))
	assert.False(t, IsImageFile("a.txt"))
	assert.False(t, IsImageFile("jpg"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "teddy bear", SanitizeFilename("teddy bear"))
	assert.Equal(t, "a_b_c", SanitizeFilename("a/b:c"))
	assert.Equal(t, "x", SanitizeFilename(" .x. "))
}

func TestEnsureDirAndExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	assert.False(t, FileExists(dir))

	f := filepath.Join(dir, "f.jpg")
	require.NoError(t, os.WriteFile(f, nil, 0o644))
	assert.True(t, FileExists(f))
	assert.False(t, DirExists(f))
}
