package cec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitter_MultipleSubscribers(t *testing.T) {
	e := NewEmitter()
	var got []int

	e.On("packet", func(any) { got = append(got, 1) })
	e.On("packet", func(any) { got = append(got, 2) })

	n := e.Emit("packet", nil)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 2}, got)
}

func TestEmitter_PayloadDelivered(t *testing.T) {
	e := NewEmitter()
	var got any
	e.On("ready", func(payload any) { got = payload })

	e.Emit("ready", LogicalAddressRecordingDevice1)
	assert.Equal(t, LogicalAddressRecordingDevice1, got)
}

func TestEmitter_OnceFiresExactlyOnce(t *testing.T) {
	e := NewEmitter()
	count := 0
	e.Once("packet", func(any) { count++ })

	assert.Equal(t, 1, e.Emit("packet", nil))
	assert.Equal(t, 0, e.Emit("packet", nil))
	assert.Equal(t, 1, count)
}

func TestEmitter_Off(t *testing.T) {
	e := NewEmitter()
	count := 0
	id := e.On("packet", func(any) { count++ })

	assert.True(t, e.Off("packet", id))
	e.Emit("packet", nil)
	assert.Zero(t, count)

	// Removing twice reports nothing left to remove.
	assert.False(t, e.Off("packet", id))
}

func TestEmitter_OffConsumedOnceReportsFalse(t *testing.T) {
	e := NewEmitter()
	id := e.Once("packet", func(any) {})

	e.Emit("packet", nil)

	// The one-shot subscription was consumed by the emit; a late Off
	// must be a no-op and say so, which is what lets a query timer
	// detect that it lost the race.
	assert.False(t, e.Off("packet", id))
}

func TestEmitter_EmitUnknownEvent(t *testing.T) {
	e := NewEmitter()
	assert.Equal(t, 0, e.Emit("nothing", nil))
}
