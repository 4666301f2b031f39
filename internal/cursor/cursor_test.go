package cursor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileCursorFirstRun(t *testing.T) {
	c := FileCursor{Path: filepath.Join(t.TempDir(), "last_run.txt")}

	_, ok, err := c.Read()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileCursorRoundtrip(t *testing.T) {
	c := FileCursor{Path: filepath.Join(t.TempDir(), "last_run.txt")}

	mark := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.Write(mark))

	got, ok, err := c.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, mark.Equal(got))

	// advancing overwrites
	next := mark.AddDate(0, 0, 3)
	require.NoError(t, c.Write(next))
	got, ok, err = c.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, next.Equal(got))
}

func TestFileCursorGarbageIsFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_run.txt")
	require.NoError(t, os.WriteFile(path, []byte("not-a-date\n"), 0o644))

	c := FileCursor{Path: path}
	_, ok, err := c.Read()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemCursor(t *testing.T) {
	var c MemCursor

	_, ok, err := c.Read()
	require.NoError(t, err)
	require.False(t, ok)

	mark := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.Write(mark))

	got, ok, err := c.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, mark.Equal(got))
}
