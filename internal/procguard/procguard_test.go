package procguard

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireThenReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.lock")

	g, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, g.Release())

	g2, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, g2.Release())
}

func TestAcquireFailsWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.lock")

	g, err := Acquire(path)
	require.NoError(t, err)
	defer g.Release()

	_, err = Acquire(path)
	assert.Error(t, err, "a second acquire against an already-held lock path must fail")
}
