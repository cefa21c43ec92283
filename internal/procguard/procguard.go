// Package procguard prevents two instances of the worker process from
// running against the same job queue at once, mirroring the
// single-instance guarantee a local daemon needs before it starts
// touching shared state.
package procguard

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Guard holds an exclusive, advisory file lock for the lifetime of the
// process that acquired it.
type Guard struct {
	lock *flock.Flock
	path string
}

// Acquire tries to take the lock at path, returning an error if
// another live process already holds it.
func Acquire(path string) (*Guard, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("procguard: acquire %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("procguard: another instance already holds %s", path)
	}
	return &Guard{lock: lock, path: path}, nil
}

// Release drops the lock.
func (g *Guard) Release() error {
	return g.lock.Unlock()
}
