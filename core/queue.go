package core

const eventQueueSize = 16

// eventQueue is the run-to-completion queue in front of Machine.Handle.
// Push may be called from interrupt context.
type eventQueue struct {
	buf     [eventQueueSize]Event
	head    uint8
	count   uint8
	dropped uint32
}

func (q *eventQueue) push(ev Event) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if q.count == eventQueueSize {
		q.dropped++
		return false
	}
	q.buf[(q.head+q.count)%eventQueueSize] = ev
	q.count++
	return true
}

func (q *eventQueue) pop() (Event, bool) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if q.count == 0 {
		return Event{}, false
	}
	ev := q.buf[q.head]
	q.head = (q.head + 1) % eventQueueSize
	q.count--
	return ev, true
}
