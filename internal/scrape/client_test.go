package scrape

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffGrowsToCeilingAndDecaysToBase(t *testing.T) {
	b := newBackoff(350*time.Millisecond, 8*time.Second)
	require.Equal(t, 350*time.Millisecond, b.Current())

	b.Bump()
	require.Equal(t, 700*time.Millisecond, b.Current())
	b.Bump()
	require.Equal(t, 1400*time.Millisecond, b.Current())

	for i := 0; i < 10; i++ {
		b.Bump()
	}
	require.Equal(t, 8*time.Second, b.Current(), "growth is capped at the ceiling")

	b.Ease()
	require.Equal(t, 6*time.Second, b.Current())

	for i := 0; i < 50; i++ {
		b.Ease()
	}
	require.Equal(t, 350*time.Millisecond, b.Current(), "decay stops at the base delay")
}

func TestBackoffZeroBaseJumpsToCeiling(t *testing.T) {
	b := newBackoff(0, 2*time.Second)
	require.Equal(t, time.Duration(0), b.Current())

	// doubling zero stays zero, so the first failure jumps to the ceiling
	b.Bump()
	require.Equal(t, 2*time.Second, b.Current())

	b.Ease()
	require.Equal(t, 1500*time.Millisecond, b.Current())
}
