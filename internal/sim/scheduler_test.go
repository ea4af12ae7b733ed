package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScheduler_FiresInDueOrder(t *testing.T) {
	t.Parallel()

	var s Scheduler
	var fired []string

	s.Schedule(2.0, func() { fired = append(fired, "late") })
	s.Schedule(0.5, func() { fired = append(fired, "early") })
	s.Schedule(1.0, func() { fired = append(fired, "mid") })

	s.Advance(0.4)
	require.Empty(t, fired)
	require.Equal(t, 3, s.Pending())

	s.Advance(1.0)
	require.Equal(t, []string{"early", "mid"}, fired)
	require.Equal(t, 1, s.Pending())

	s.Advance(5.0)
	require.Equal(t, []string{"early", "mid", "late"}, fired)
	require.Zero(t, s.Pending())
}

func TestScheduler_SameInstantIsFIFO(t *testing.T) {
	t.Parallel()

	var s Scheduler
	var fired []int
	for i := 0; i < 5; i++ {
		i := i
		s.Schedule(1.0, func() { fired = append(fired, i) })
	}
	s.Advance(1.0)
	require.Equal(t, []int{0, 1, 2, 3, 4}, fired)
}

func TestScheduler_ReentrantScheduling(t *testing.T) {
	t.Parallel()

	var s Scheduler
	var fired []string
	s.Schedule(1.0, func() {
		fired = append(fired, "outer")
		// Due in the past relative to the advance target fires in the same
		// Advance call; future entries stay queued.
		s.Schedule(1.5, func() { fired = append(fired, "inner-due") })
		s.Schedule(10, func() { fired = append(fired, "inner-later") })
	})

	s.Advance(2.0)
	require.Equal(t, []string{"outer", "inner-due"}, fired)
	require.Equal(t, 1, s.Pending())
}

func TestStage_BroadcastFiltering(t *testing.T) {
	t.Parallel()

	st := NewStage()
	on := NewActor("on")
	off := NewActor("off")
	off.OnStage = false
	st.Add(on)
	st.Add(off)

	require.Equal(t, []*Actor{on}, st.Actors(DefaultBroadcast()))
	require.Equal(t, []*Actor{off}, st.Actors(BroadcastOptions{OffStage: true}))
	require.Equal(t, []*Actor{on, off}, st.Actors(BroadcastOptions{OnStage: true, OffStage: true}))
	require.Empty(t, st.Actors(BroadcastOptions{}))
}
