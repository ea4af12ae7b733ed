package sim

import "container/heap"

// Scheduler delivers callbacks at requested offsets in simulation time. It
// never waits: Advance fires, synchronously and in due order, everything that
// came due at or before the new time. Entries scheduled for the same instant
// fire in scheduling order. Scheduled entries cannot be cancelled.
type Scheduler struct {
	queue pendingQueue
	seq   uint64
}

type pending struct {
	due float64
	seq uint64
	fn  func()
}

type pendingQueue []*pending

func (q pendingQueue) Len() int { return len(q) }

func (q pendingQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}

func (q pendingQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pendingQueue) Push(x any) { *q = append(*q, x.(*pending)) }

func (q *pendingQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Schedule registers fn to fire when the simulation clock reaches due.
func (s *Scheduler) Schedule(due float64, fn func()) {
	s.seq++
	heap.Push(&s.queue, &pending{due: due, seq: s.seq, fn: fn})
}

// Advance fires every entry due at or before now. Entries scheduled during a
// callback for a time at or before now fire within the same Advance call.
func (s *Scheduler) Advance(now float64) {
	for s.queue.Len() > 0 && s.queue[0].due <= now {
		item := heap.Pop(&s.queue).(*pending)
		item.fn()
	}
}

// Pending returns the number of entries not yet fired.
func (s *Scheduler) Pending() int { return s.queue.Len() }
