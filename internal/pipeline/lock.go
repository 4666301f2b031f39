package pipeline

import (
	"errors"
	"sync"

	"github.com/gofrs/flock"
)

// ErrBusy is returned when a run is requested while another holds the lock.
// Callers surface it immediately; it is never retried here.
var ErrBusy = errors.New("pipeline run already in progress")

// RunLock guards the pipeline so at most one run executes at a time.
// TryAcquire never blocks.
type RunLock interface {
	TryAcquire() (bool, error)
	Release() error
}

// FileRunLock is an advisory file lock. The OS drops it when the holding
// process dies, so a crashed run never leaves a stale lock behind.
type FileRunLock struct {
	fl *flock.Flock
}

func NewFileRunLock(path string) *FileRunLock {
	return &FileRunLock{fl: flock.New(path)}
}

func (l *FileRunLock) TryAcquire() (bool, error) {
	return l.fl.TryLock()
}

func (l *FileRunLock) Release() error {
	return l.fl.Unlock()
}

// MutexRunLock is an in-process lock for tests.
type MutexRunLock struct {
	mu   sync.Mutex
	held bool
}

func (l *MutexRunLock) TryAcquire() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *MutexRunLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}
