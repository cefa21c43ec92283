package staging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shannon-orourke/mediavault/internal/models"
)

func TestMediaKindSubdir(t *testing.T) {
	assert.Equal(t, "movies", mediaKindSubdir(models.MediaKindMovie))
	assert.Equal(t, "tv", mediaKindSubdir(models.MediaKindTV))
	assert.Equal(t, "other", mediaKindSubdir(models.MediaKindOther))
	assert.Equal(t, "other", mediaKindSubdir(models.MediaKindUnknown))
}

func TestUniqueDestPathReturnsBaseNameWhenFree(t *testing.T) {
	dir := t.TempDir()
	got, err := uniqueDestPath(dir, "movie.mkv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "movie.mkv"), got)
}

func TestUniqueDestPathSuffixesOnCollision(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie.mkv"), []byte("x"), 0o644))

	got, err := uniqueDestPath(dir, "movie.mkv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "movie_1.mkv"), got)
}

func TestUniqueDestPathSkipsMultipleCollisions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie.mkv"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie_1.mkv"), []byte("x"), 0o644))

	got, err := uniqueDestPath(dir, "movie.mkv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "movie_2.mkv"), got)
}

func TestMoveFileRenamesWithinSameFilesystem(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mkv")
	dst := filepath.Join(dir, "dst.mkv")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	require.NoError(t, moveFile(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err), "source must no longer exist after a move")
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestCopyThenRemoveFailsOnExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mkv")
	dst := filepath.Join(dir, "dst.mkv")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("existing"), 0o644))

	err := copyThenRemove(src, dst)
	assert.Error(t, err, "copyThenRemove must not clobber an existing destination file")

	_, statErr := os.Stat(src)
	assert.NoError(t, statErr, "the source file must be left intact when the copy fails")
}
