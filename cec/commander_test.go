package cec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyWriter plays the adapter: every command written to it is
// answered by processing the mapped traffic line, so replies arrive
// while the query is still in flight.
type replyWriter struct {
	m       *Monitor
	replies map[string]string
	sent    []string
}

func (w *replyWriter) Write(p []byte) (int, error) {
	line := strings.TrimSuffix(string(p), "\n")
	w.sent = append(w.sent, line)
	if reply, ok := w.replies[line]; ok {
		w.m.ProcessLine(reply)
	}
	return len(p), nil
}

type failWriter struct{ err error }

func (w failWriter) Write([]byte) (int, error) { return 0, w.err }

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func TestCommander_BroadcastStandby(t *testing.T) {
	m := newTestMonitor(t)
	var buf bytes.Buffer
	m.SetOutput(&buf)

	require.NoError(t, NewCommander(m).BroadcastStandby())
	assert.Equal(t, "tx 1f:36\n", buf.String())
}

func TestCommander_SetPowerState(t *testing.T) {
	m := newTestMonitor(t)
	var buf bytes.Buffer
	m.SetOutput(&buf)
	c := NewCommander(m)

	require.NoError(t, c.SetPowerState(LogicalAddressTV, true))
	require.NoError(t, c.SetPowerState(LogicalAddressTV, false))
	assert.Equal(t, "tx 10:4\ntx 10:36\n", buf.String())
}

func TestCommander_PressButtonSendsPressAndRelease(t *testing.T) {
	m := newTestMonitor(t)
	var buf bytes.Buffer
	m.SetOutput(&buf)

	require.NoError(t, NewCommander(m).PressButton(LogicalAddressTV, KeycodeVolumeUp))
	assert.Equal(t, "tx 10:44:41\ntx 10:45\n", buf.String())
}

func TestCommander_PressButtonFailsOnTransportError(t *testing.T) {
	m := newTestMonitor(t)
	m.SetOutput(failWriter{err: errors.New("pipe broken")})

	assert.Error(t, NewCommander(m).PressButton(LogicalAddressTV, KeycodeSelect))
}

func TestCommander_GetPowerState(t *testing.T) {
	m := newTestMonitor(t)
	m.SetOutput(&replyWriter{m: m, replies: map[string]string{
		"tx 10:8f": "TRAFFIC: [1]\t<< 01:90:01",
	}})

	status, err := NewCommander(m).GetPowerState(LogicalAddressTV)
	require.NoError(t, err)
	assert.Equal(t, PowerStatusStandby, status)
}

func TestCommander_GetPowerStateTimeout(t *testing.T) {
	m := newTestMonitor(t)
	var buf bytes.Buffer
	m.SetOutput(&buf)
	c := NewCommander(m)
	c.Timeout = 20 * time.Millisecond

	_, err := c.GetPowerState(LogicalAddressTV)
	require.ErrorIs(t, err, ErrTimeout)

	// The torn-down subscription must not react to a late reply.
	n := m.Events().Emit(OpEvent("REPORT_POWER_STATUS"), OpcodeEvent{})
	assert.Zero(t, n)
}

func TestCommander_QuerySendFailureRegistersNothing(t *testing.T) {
	m := newTestMonitor(t)
	m.SetOutput(failWriter{err: errors.New("pipe broken")})

	_, err := NewCommander(m).GetPowerState(LogicalAddressTV)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)

	assert.Zero(t, m.Events().Emit(OpEvent("REPORT_POWER_STATUS"), OpcodeEvent{}))
}

func TestCommander_GetOSDName(t *testing.T) {
	m := newTestMonitor(t)
	m.SetOutput(&replyWriter{m: m, replies: map[string]string{
		"tx 10:46": "TRAFFIC: [1]\t<< 01:47:54:56:20:32",
	}})

	name, err := NewCommander(m).GetOSDName(LogicalAddressTV)
	require.NoError(t, err)
	assert.Equal(t, "TV 2", name)
}

func TestCommander_GetPhysicalAddress(t *testing.T) {
	m := newTestMonitor(t)
	m.SetOutput(&replyWriter{m: m, replies: map[string]string{
		"tx 10:83": "TRAFFIC: [1]\t<< 0f:84:00:00:00",
	}})

	addr, devType, err := NewCommander(m).GetPhysicalAddress(LogicalAddressTV)
	require.NoError(t, err)
	assert.Equal(t, PhysicalAddress(0), addr)
	assert.Equal(t, DeviceTypeTV, devType)
}

func TestCommander_GetDeviceInfo(t *testing.T) {
	m := newTestMonitor(t)
	w := &replyWriter{m: m, replies: map[string]string{
		"tx 10:8f": "TRAFFIC: [1]\t<< 01:90:00",
		"tx 10:46": "TRAFFIC: [2]\t<< 01:47:54:56",
		"tx 10:83": "TRAFFIC: [3]\t<< 0f:84:00:00:00",
	}}
	m.SetOutput(w)

	dev, err := NewCommander(m).GetDeviceInfo(LogicalAddressTV)
	require.NoError(t, err)
	assert.Equal(t, PowerStatusOn, dev.PowerStatus)
	assert.Equal(t, "TV", dev.OSDName)
	assert.Equal(t, PhysicalAddress(0), dev.PhysicalAddress)
}

func TestCommander_GetDeviceInfoNoAnswers(t *testing.T) {
	m := newTestMonitor(t)
	var buf bytes.Buffer
	m.SetOutput(&buf)
	c := NewCommander(m)
	c.Timeout = 10 * time.Millisecond

	_, err := c.GetDeviceInfo(LogicalAddressPlaybackDevice2)
	assert.Error(t, err)
}

func TestCommander_ConcurrentQueriesIndependentlySatisfied(t *testing.T) {
	m := newTestMonitor(t)
	c := NewCommander(m)

	sent := make(chan struct{}, 2)
	m.SetOutput(writerFunc(func(p []byte) (int, error) {
		sent <- struct{}{}
		return len(p), nil
	}))

	results := make(chan PowerStatus, 2)
	for i := 0; i < 2; i++ {
		go func() {
			status, err := c.GetPowerState(LogicalAddressTV)
			if err == nil {
				results <- status
			}
		}()
	}

	// Each query registers its one-shot subscription before sending, so
	// once both requests hit the transport both subscriptions exist.
	for i := 0; i < 2; i++ {
		select {
		case <-sent:
		case <-time.After(time.Second):
			t.Fatal("request not sent")
		}
	}

	// Two reports resolve both queries, in event order.
	m.Events().Emit(OpEvent("REPORT_POWER_STATUS"), OpcodeEvent{Name: "REPORT_POWER_STATUS", Args: []int{0}})
	m.Events().Emit(OpEvent("REPORT_POWER_STATUS"), OpcodeEvent{Name: "REPORT_POWER_STATUS", Args: []int{1}})

	got := map[PowerStatus]bool{}
	for i := 0; i < 2; i++ {
		select {
		case s := <-results:
			got[s] = true
		case <-time.After(time.Second):
			t.Fatal("query did not resolve")
		}
	}
	assert.True(t, got[PowerStatusOn] || got[PowerStatusStandby])
}
