// Package cursor persists the incremental-fetch watermark: the date of the
// most recent posting a run fully committed.
package cursor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Cursor reads and advances the fetch watermark. Read reports ok=false on a
// first-ever run; Write must only be called after a run's batches have
// committed.
type Cursor interface {
	Read() (mark time.Time, ok bool, err error)
	Write(mark time.Time) error
}

const layout = "2006-01-02"

// FileCursor stores the watermark as a single ISO date in a flat file.
type FileCursor struct {
	Path string
}

func (c FileCursor) Read() (time.Time, bool, error) {
	b, err := os.ReadFile(c.Path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read cursor: %w", err)
	}
	t, err := time.Parse(layout, strings.TrimSpace(string(b)))
	if err != nil {
		// Unparseable state is treated like a first run rather than
		// wedging every future fetch.
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func (c FileCursor) Write(mark time.Time) error {
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	tmp := c.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(mark.Format(layout)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	if err := os.Rename(tmp, c.Path); err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	return nil
}

// MemCursor is an in-memory Cursor for tests.
type MemCursor struct {
	mu   sync.Mutex
	mark time.Time
	set  bool
}

func (c *MemCursor) Read() (time.Time, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mark, c.set, nil
}

func (c *MemCursor) Write(mark time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mark, c.set = mark, true
	return nil
}
