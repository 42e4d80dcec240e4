package cec

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(t *testing.T) *Monitor {
	t.Helper()
	return NewMonitor(MonitorConfig{
		OwnAddress: LogicalAddressRecordingDevice1,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestMonitor_ReadyLine(t *testing.T) {
	m := newTestMonitor(t)
	var got any
	m.On(EventReady, func(payload any) { got = payload })

	assert.False(t, m.Ready())
	m.ProcessLine("waiting for input")

	assert.True(t, m.Ready())
	assert.Equal(t, LogicalAddressRecordingDevice1, got)
}

func TestMonitor_AddressGrantReassignsOwnAddress(t *testing.T) {
	m := newTestMonitor(t)

	// The adapter may grant a different address than the one requested.
	m.ProcessLine("DEBUG:   [  1368]\tCEC client registered: libCEC version = 4.0.4, " +
		"logical address(es) = Recording 2 (2) , physical address: 1.0.0.0")

	assert.Equal(t, LogicalAddressRecordingDevice2, m.OwnAddress())
}

func TestMonitor_TrafficEmitsPacketAndOpcodeEvent(t *testing.T) {
	m := newTestMonitor(t)
	var packets []*Packet
	var ops []OpcodeEvent
	osdFired := false
	m.On(EventPacket, func(p any) { packets = append(packets, p.(*Packet)) })
	m.On(OpEvent("STANDBY"), func(p any) { ops = append(ops, p.(OpcodeEvent)) })
	m.On(EventSetOSDName, func(any) { osdFired = true })

	m.ProcessLine("TRAFFIC: [18:35:40.1]\t<< 0f:36")

	require.Len(t, packets, 1)
	assert.Equal(t, LogicalAddressTV, packets[0].Source)
	assert.Equal(t, LogicalAddressBroadcast, packets[0].Target)
	assert.Equal(t, int(OpcodeStandby), packets[0].Opcode)
	assert.Empty(t, packets[0].Args)

	require.Len(t, ops, 1)
	assert.Equal(t, "STANDBY", ops[0].Name)
	assert.False(t, osdFired)
}

func TestMonitor_PollingNeverEmitsPacket(t *testing.T) {
	m := newTestMonitor(t)
	var polling, packet int
	m.On(EventPolling, func(any) { polling++ })
	m.On(EventPacket, func(any) { packet++ })

	m.ProcessLine("TRAFFIC: [1368]\t<< 0f")

	assert.Equal(t, 1, polling)
	assert.Zero(t, packet)
}

func TestMonitor_TargetFiltering(t *testing.T) {
	m := newTestMonitor(t)
	var packet, op int
	m.On(EventPacket, func(any) { packet++ })
	m.On(OpEvent("STANDBY"), func(any) { op++ })

	// Target 4 is neither own address (1) nor broadcast.
	m.ProcessLine("TRAFFIC: [1]\t<< 04:36")
	assert.Zero(t, packet)
	assert.Zero(t, op)

	// Addressed to us.
	m.ProcessLine("TRAFFIC: [2]\t<< 01:36")
	assert.Equal(t, 1, packet)
	assert.Equal(t, 1, op)

	// Monitor mode surfaces other devices' conversations too.
	m.SetMonitorMode(true)
	m.ProcessLine("TRAFFIC: [3]\t<< 04:36")
	assert.Equal(t, 2, packet)
	assert.Equal(t, 2, op)
}

func TestMonitor_SetOSDName(t *testing.T) {
	m := newTestMonitor(t)
	var got OSDNameEvent
	m.On(EventSetOSDName, func(p any) { got = p.(OSDNameEvent) })

	m.ProcessLine("TRAFFIC: [1]\t<< 01:47:52:65:63")

	assert.Equal(t, "Rec", got.Name)
	assert.Equal(t, LogicalAddressTV, got.Packet.Source)
}

func TestMonitor_RoutingChange(t *testing.T) {
	m := newTestMonitor(t)
	var got RoutingChangeEvent
	m.On(EventRoutingChange, func(p any) { got = p.(RoutingChangeEvent) })

	m.ProcessLine("TRAFFIC: [1]\t<< 0f:80:10:00:20:00")

	assert.Equal(t, PhysicalAddress(0x1000), got.From)
	assert.Equal(t, PhysicalAddress(0x2000), got.To)
}

func TestMonitor_ActiveSource(t *testing.T) {
	m := newTestMonitor(t)
	var got ActiveSourceEvent
	m.On(EventActiveSource, func(p any) { got = p.(ActiveSourceEvent) })

	m.ProcessLine("TRAFFIC: [1]\t<< 4f:82:30:00")

	assert.Equal(t, PhysicalAddress(0x3000), got.Source)
}

func TestMonitor_ReportPhysicalAddress(t *testing.T) {
	m := newTestMonitor(t)
	var got PhysicalAddressEvent
	m.On(EventReportPhysicalAddress, func(p any) { got = p.(PhysicalAddressEvent) })

	m.ProcessLine("TRAFFIC: [1]\t<< 1f:84:10:00:01")

	assert.Equal(t, PhysicalAddress(0x1000), got.Address)
	assert.Equal(t, DeviceTypeRecordingDevice, got.DeviceType)
}

func TestMonitor_InsufficientArgsDowngradesToUnhandled(t *testing.T) {
	m := newTestMonitor(t)
	var packet int
	semantic := false
	m.On(EventPacket, func(any) { packet++ })
	m.On(EventSetOSDName, func(any) { semantic = true })
	m.On(EventRoutingChange, func(any) { semantic = true })

	// SET_OSD_NAME without a name byte, ROUTING_CHANGE with only two.
	m.ProcessLine("TRAFFIC: [1]\t<< 01:47")
	m.ProcessLine("TRAFFIC: [2]\t<< 0f:80:10:00")

	assert.Equal(t, 2, packet)
	assert.False(t, semantic)
}

func TestMonitor_UnmatchedLineEmitsLineEvent(t *testing.T) {
	m := newTestMonitor(t)
	var data, lines []string
	m.On(EventData, func(p any) { data = append(data, p.(string)) })
	m.On(EventLine, func(p any) { lines = append(lines, p.(string)) })

	m.ProcessLine("some unrelated diagnostic")
	m.ProcessLine("waiting for input")

	assert.Equal(t, []string{"some unrelated diagnostic", "waiting for input"}, data)
	assert.Equal(t, []string{"some unrelated diagnostic"}, lines)
}

func TestMonitor_WriteReassemblesChunks(t *testing.T) {
	m := newTestMonitor(t)
	var packets int
	m.On(EventPacket, func(any) { packets++ })

	line := "TRAFFIC: [1]\t<< 01:36\n"
	for _, b := range []byte(line) {
		_, err := m.Write([]byte{b})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, packets)
}

func TestMonitor_Send(t *testing.T) {
	m := newTestMonitor(t)

	assert.ErrorIs(t, m.Send("tx 10:36"), ErrNoTransport)

	var buf bytes.Buffer
	m.SetOutput(&buf)
	require.NoError(t, m.SendOperation(LogicalAddressTV, OpcodeStandby, nil))
	assert.Equal(t, "tx 10:36\n", buf.String())
}

func TestMonitor_StopFlushesAndReports(t *testing.T) {
	m := newTestMonitor(t)
	var stopErr error
	stopped := false
	var lines []string
	m.On(EventStop, func(p any) {
		stopped = true
		stopErr, _ = p.(error)
	})
	m.On(EventData, func(p any) { lines = append(lines, p.(string)) })

	m.ProcessLine("waiting for input")
	_, _ = m.Write([]byte("trailing partial"))

	cause := errors.New("pipe closed")
	m.Stop(cause)

	assert.True(t, stopped)
	assert.Equal(t, cause, stopErr)
	assert.False(t, m.Ready())
	assert.Contains(t, lines, "trailing partial")
}
