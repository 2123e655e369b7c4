// Package sim runs the node core against simulated hardware: a tick clock,
// wake timers, ADC, I2C pressure sensor, GPIO and a radio that frames
// reports onto a serial line.
package sim

// Timer handler results
const (
	TimerDone       = 0
	TimerReschedule = 1
)

// Timer is a scheduled callback on the simulated clock.
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

// TimerQueue keeps timers sorted by WakeTime. Timers with equal WakeTime
// fire in the order they were scheduled.
type TimerQueue struct {
	head *Timer
}

// Schedule adds t to the queue.
func (q *TimerQueue) Schedule(t *Timer) {
	if q.head == nil || t.WakeTime < q.head.WakeTime {
		t.Next = q.head
		q.head = t
		return
	}

	current := q.head
	for current.Next != nil && current.Next.WakeTime <= t.WakeTime {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Cancel removes t if it is queued.
func (q *TimerQueue) Cancel(t *Timer) {
	if q.head == t {
		q.head = t.Next
		t.Next = nil
		return
	}
	for current := q.head; current != nil; current = current.Next {
		if current.Next == t {
			current.Next = t.Next
			t.Next = nil
			return
		}
	}
}

// Clear drops every queued timer.
func (q *TimerQueue) Clear() {
	q.head = nil
}

// Next returns the wake time of the earliest timer.
func (q *TimerQueue) Next() (uint32, bool) {
	if q.head == nil {
		return 0, false
	}
	return q.head.WakeTime, true
}

// Dispatch runs every timer due at or before now. A handler returning
// TimerReschedule is queued again at its (updated) WakeTime.
func (q *TimerQueue) Dispatch(now uint32) {
	for q.head != nil && q.head.WakeTime <= now {
		timer := q.head
		q.head = timer.Next
		timer.Next = nil

		if timer.Handler(timer) == TimerReschedule {
			q.Schedule(timer)
		}
	}
}

// Len returns the number of queued timers.
func (q *TimerQueue) Len() int {
	n := 0
	for t := q.head; t != nil; t = t.Next {
		n++
	}
	return n
}

// Clock is the simulated free-running tick counter.
type Clock struct {
	now uint32
}

func (c *Clock) Ticks() uint32 {
	return c.now
}

func (c *Clock) set(t uint32) {
	c.now = t
}
