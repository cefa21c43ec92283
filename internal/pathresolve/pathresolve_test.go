package pathresolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFallsBackToShareMountPrefix(t *testing.T) {
	tmp := t.TempDir()
	shareRoot := filepath.Join(tmp, "share")
	libDir := filepath.Join(shareRoot, "Movies")
	require.NoError(t, os.MkdirAll(libDir, 0o755))
	target := filepath.Join(libDir, "film.mkv")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	r := New(shareRoot, "", nil, zerolog.Nop())

	logical := filepath.Join("/original/nas/path/Movies", "film.mkv")
	resolved, ok := r.Resolve(logical)
	require.True(t, ok)
	assert.Equal(t, target, resolved)
}

func TestResolveReturnsFalseWhenNothingExists(t *testing.T) {
	r := New("", "", nil, zerolog.Nop())
	resolved, ok := r.Resolve("/nowhere/at/all.mkv")
	assert.False(t, ok)
	assert.Empty(t, resolved)
}

func TestResolvePrefersLogicalPathAsIs(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "direct.mkv")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	r := New(filepath.Join(tmp, "share"), "", nil, zerolog.Nop())
	resolved, ok := r.Resolve(target)
	require.True(t, ok)
	assert.Equal(t, target, resolved)
}

func TestRewriteForWriteNeverRequiresExistence(t *testing.T) {
	r := New("/mnt/nas", "", nil, zerolog.Nop())
	got := r.RewriteForWrite("/original/Movies/film.mkv")
	assert.Equal(t, filepath.Join("/mnt/nas", "Movies", "film.mkv"), got)
}

func TestFirstWritableStageRoot(t *testing.T) {
	tmp := t.TempDir()
	badRoot := filepath.Join(tmp, "no-permission-root", "nested")
	goodRoot := filepath.Join(tmp, "good")
	require.NoError(t, os.MkdirAll(goodRoot, 0o755))

	r := New("", "", []string{badRoot, goodRoot}, zerolog.Nop())
	// badRoot's parent path is occupied by a regular file, so MkdirAll
	// cannot create badRoot, simulating an unwritable candidate.
	blocker := filepath.Join(tmp, "no-permission-root")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	dest, ok := r.FirstWritableStageRoot("2026-07-31")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(goodRoot, "2026-07-31"), dest)
}

func TestIsDenied(t *testing.T) {
	denyList := []string{".git", "node_modules"}
	assert.True(t, IsDenied(".GIT", denyList), "deny matching must be case-insensitive")
	assert.False(t, IsDenied("Movies", denyList))
}
