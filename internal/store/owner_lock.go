package store

import (
	"fmt"
	"sync/atomic"

	"github.com/gofrs/flock"
)

// ownerLock guards a local store against a second owner. The zero value only
// excludes owners inside this process; with a file set it also holds an
// advisory flock so that other processes opening the same database fail.
type ownerLock struct {
	file *flock.Flock
	held atomic.Bool
}

func newFileOwnerLock(path string) *ownerLock {
	return &ownerLock{file: flock.New(path)}
}

func (l *ownerLock) Lock() error {
	if !l.held.CompareAndSwap(false, true) {
		return ErrStorageLocked
	}
	if l.file == nil {
		return nil
	}

	locked, err := l.file.TryLock()
	if err != nil {
		l.held.Store(false)
		return fmt.Errorf("acquire %s: %w", l.file.Path(), err)
	}
	if !locked {
		l.held.Store(false)
		return fmt.Errorf("%w: %s", ErrStorageLocked, l.file.Path())
	}

	return nil
}

func (l *ownerLock) Unlock() error {
	if !l.held.CompareAndSwap(true, false) {
		return nil
	}
	if l.file == nil {
		return nil
	}

	return l.file.Unlock()
}
