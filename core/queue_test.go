package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventQueueOrder(t *testing.T) {
	var q eventQueue
	assert.True(t, q.push(TimerTick()))
	assert.True(t, q.push(HardwareComplete(SourceADC)))
	assert.True(t, q.push(OrderKick()))
	assert.Equal(t, uint8(3), q.count)

	kinds := []EventKind{}
	for {
		ev, ok := q.pop()
		if !ok {
			break
		}
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{EventTimerTick, EventHardwareComplete, EventOrderKick}, kinds)
}

func TestEventQueueOverflow(t *testing.T) {
	var q eventQueue
	for i := 0; i < eventQueueSize; i++ {
		assert.True(t, q.push(TransmitComplete(uint8(i), true)))
	}
	assert.False(t, q.push(OrderKick()))
	assert.Equal(t, uint32(1), q.dropped)

	// wrap around
	for i := 0; i < 4; i++ {
		ev, _ := q.pop()
		assert.Equal(t, uint8(i), ev.TxID)
	}
	for i := 0; i < 4; i++ {
		assert.True(t, q.push(TimerTick()))
	}
	ev, ok := q.pop()
	assert.True(t, ok)
	assert.Equal(t, uint8(4), ev.TxID)
	assert.Equal(t, uint8(eventQueueSize-1), q.count)
}

func TestTraceRingKeepsNewest(t *testing.T) {
	var r traceRing
	assert.Empty(t, r.snapshot())

	for i := 0; i < TraceRingSize+5; i++ {
		r.record(Transition{From: StateIdle, To: StateSleep, Tick: uint32(i)})
	}
	got := r.snapshot()
	assert.Len(t, got, TraceRingSize)
	assert.Equal(t, uint32(5), got[0].Tick)
	assert.Equal(t, uint32(TraceRingSize+4), got[len(got)-1].Tick)
}
