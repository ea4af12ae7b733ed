package goroutineid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGet_StableWithinGoroutine(t *testing.T) {
	t.Parallel()

	id := Get()
	require.Positive(t, id)
	require.Equal(t, id, Get())
}

func TestGet_DistinctAcrossGoroutines(t *testing.T) {
	t.Parallel()

	main := Get()
	var other int64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		other = Get()
	}()
	wg.Wait()
	require.Positive(t, other)
	require.NotEqual(t, main, other)
}

func TestParse(t *testing.T) {
	t.Parallel()

	require.EqualValues(t, 42, parse([]byte("goroutine 42 [running]:\n")))
	require.Zero(t, parse([]byte("no header here")))
	require.Zero(t, parse(nil))
}
