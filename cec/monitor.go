package cec

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync"
)

// Event names emitted by a Monitor. Payload types:
//
//	EventReady   LogicalAddress (own address granted by the adapter)
//	EventStop    error (nil on clean shutdown)
//	EventData    string (every raw line, before dispatch)
//	EventLine    string (lines no handler matched)
//	EventPolling *Packet (header-only bus message)
//	EventPacket  *Packet (every decoded, non-polling, non-filtered packet)
//
// Opcode-specific events carry the structs declared below; every other
// recognized opcode fires "op.<NAME>" with an OpcodeEvent.
const (
	EventReady   = "ready"
	EventStop    = "stop"
	EventData    = "data"
	EventLine    = "line"
	EventPolling = "polling"
	EventPacket  = "packet"

	EventSetOSDName            = "SET_OSD_NAME"
	EventRoutingChange         = "ROUTING_CHANGE"
	EventActiveSource          = "ACTIVE_SOURCE"
	EventReportPhysicalAddress = "REPORT_PHYSICAL_ADDRESS"
)

// OpEvent returns the event name carrying packets for one recognized
// opcode, e.g. OpEvent("REPORT_POWER_STATUS").
func OpEvent(name string) string {
	return "op." + name
}

// OSDNameEvent is the payload of EventSetOSDName.
type OSDNameEvent struct {
	Packet *Packet
	Name   string
}

// RoutingChangeEvent is the payload of EventRoutingChange.
type RoutingChangeEvent struct {
	Packet *Packet
	From   PhysicalAddress
	To     PhysicalAddress
}

// ActiveSourceEvent is the payload of EventActiveSource.
type ActiveSourceEvent struct {
	Packet *Packet
	Source PhysicalAddress
}

// PhysicalAddressEvent is the payload of EventReportPhysicalAddress.
type PhysicalAddressEvent struct {
	Packet     *Packet
	Address    PhysicalAddress
	DeviceType DeviceType
}

// OpcodeEvent is the payload of every "op.<NAME>" event.
type OpcodeEvent struct {
	Name   string
	Packet *Packet
	Args   []int
}

// ErrNoTransport is returned by send operations before an adapter input
// stream has been attached.
var ErrNoTransport = errors.New("cec: no adapter transport attached")

var (
	trafficPattern      = regexp.MustCompile(`^TRAFFIC:`)
	addressGrantPattern = regexp.MustCompile(`logical address\(es\) = [^(]*\(([0-9A-Fa-f])\)`)
)

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// OwnAddress is the logical address assumed until the adapter
	// reports the address it actually granted.
	OwnAddress LogicalAddress

	// MonitorMode disables target filtering: packets addressed to other
	// devices are surfaced instead of discarded.
	MonitorMode bool

	Logger *slog.Logger
}

// Monitor owns the line-dispatch pipeline of one adapter process: it
// classifies raw output into lines, runs them through the handler
// registry, decodes traffic lines into packets and republishes them as
// semantic events. It does not spawn the adapter; Client does.
type Monitor struct {
	events   *Emitter
	registry *HandlerRegistry
	reader   *LineReader
	logger   *slog.Logger

	mu          sync.Mutex
	out         io.Writer
	ownAddress  LogicalAddress
	monitorMode bool
	ready       bool
}

// NewMonitor returns a Monitor with the built-in line handlers
// registered: adapter readiness, traffic decoding and the
// logical-address grant notice.
func NewMonitor(cfg MonitorConfig) *Monitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{
		events:      NewEmitter(),
		registry:    NewHandlerRegistry(),
		logger:      logger,
		ownAddress:  cfg.OwnAddress,
		monitorMode: cfg.MonitorMode,
	}
	m.reader = NewLineReader(m.ProcessLine)

	m.registry.Contains("waiting for input", m.handleReady)
	m.registry.Pattern(trafficPattern, m.handleTraffic)
	m.registry.Pattern(addressGrantPattern, m.handleAddressGrant)
	return m
}

// Events exposes the monitor's event registry for subscribers.
func (m *Monitor) Events() *Emitter {
	return m.events
}

// Registry exposes the line-handler registry so collaborators (Remote)
// can install their own pattern entries.
func (m *Monitor) Registry() *HandlerRegistry {
	return m.registry
}

// On, Once and Off delegate to the monitor's event registry.
func (m *Monitor) On(event string, fn Handler) uint64   { return m.events.On(event, fn) }
func (m *Monitor) Once(event string, fn Handler) uint64 { return m.events.Once(event, fn) }
func (m *Monitor) Off(event string, id uint64) bool     { return m.events.Off(event, id) }

// Write feeds a raw output chunk from the adapter process. Chunks may
// split lines anywhere; complete lines are dispatched in order.
func (m *Monitor) Write(p []byte) (int, error) {
	return m.reader.Write(p)
}

// ProcessLine dispatches one complete line through the handler
// registry. Lines that match no handler are re-emitted as EventLine for
// external diagnostics.
func (m *Monitor) ProcessLine(line string) {
	m.events.Emit(EventData, line)
	if m.registry.Dispatch(line) == 0 {
		m.events.Emit(EventLine, line)
	}
}

// Stop flushes any trailing partial line and reports transport loss via
// EventStop. err is nil on a clean shutdown.
func (m *Monitor) Stop(err error) {
	m.reader.Flush()
	m.mu.Lock()
	m.ready = false
	m.mu.Unlock()
	m.events.Emit(EventStop, err)
}

// Ready reports whether the adapter has announced it is accepting
// input.
func (m *Monitor) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// OwnAddress returns this device's logical address on the bus.
func (m *Monitor) OwnAddress() LogicalAddress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ownAddress
}

// SetMonitorMode toggles promiscuous packet delivery.
func (m *Monitor) SetMonitorMode(enabled bool) {
	m.mu.Lock()
	m.monitorMode = enabled
	m.mu.Unlock()
}

// SetOutput attaches the adapter's input stream for outbound commands.
func (m *Monitor) SetOutput(w io.Writer) {
	m.mu.Lock()
	m.out = w
	m.mu.Unlock()
}

// Send writes one literal command line to the adapter's input. Failures
// are transport-level only; the bus acknowledges nothing.
func (m *Monitor) Send(line string) error {
	m.mu.Lock()
	out := m.out
	m.mu.Unlock()
	if out == nil {
		return ErrNoTransport
	}
	if _, err := io.WriteString(out, line+"\n"); err != nil {
		return fmt.Errorf("write to adapter: %w", err)
	}
	return nil
}

// SendOperation encodes and sends one operation from this device.
func (m *Monitor) SendOperation(target LogicalAddress, opcode Opcode, params []byte) error {
	return m.Send(EncodeOperation(m.OwnAddress(), target, opcode, params))
}

func (m *Monitor) handleReady(string) {
	m.mu.Lock()
	m.ready = true
	addr := m.ownAddress
	m.mu.Unlock()
	m.logger.Info("adapter ready", "address", addr)
	m.events.Emit(EventReady, addr)
}

// The requested logical address may differ from the one the bus grants;
// the grant notice is authoritative.
func (m *Monitor) handleAddressGrant(line string) {
	sub := addressGrantPattern.FindStringSubmatch(line)
	if sub == nil {
		return
	}
	nib, ok := hexNibble(sub[1][0])
	if !ok {
		return
	}
	m.mu.Lock()
	m.ownAddress = LogicalAddress(nib)
	m.mu.Unlock()
	m.logger.Info("logical address granted", "address", LogicalAddress(nib))
}

func (m *Monitor) handleTraffic(line string) {
	p := DecodeTraffic(line)
	if p.Polling() {
		m.events.Emit(EventPolling, p)
		return
	}

	m.mu.Lock()
	own, promiscuous := m.ownAddress, m.monitorMode
	m.mu.Unlock()
	if !promiscuous && p.Target != own && p.Target != LogicalAddressBroadcast {
		// Another device's conversation; not ours to surface.
		return
	}

	m.events.Emit(EventPacket, p)
	if !m.dispatchOpcode(p) {
		m.logger.Debug("unhandled packet", "packet", p.String())
	}
}

// dispatchOpcode emits the semantic event for a decoded packet and
// reports whether one was emitted. Unknown opcodes, malformed opcode
// tokens and recognized opcodes with too few argument bytes all
// downgrade to "decoded but not understood".
func (m *Monitor) dispatchOpcode(p *Packet) bool {
	if p.Opcode == InvalidByte {
		return false
	}
	opcode := Opcode(p.Opcode)
	name, known := opcode.Name()
	if !known {
		return false
	}

	switch opcode {
	case OpcodeSetOSDName:
		if len(p.Args) < 1 {
			return false
		}
		m.events.Emit(EventSetOSDName, OSDNameEvent{Packet: p, Name: string(p.ArgBytes())})
	case OpcodeRoutingChange:
		if len(p.Args) < 4 {
			return false
		}
		b := p.ArgBytes()
		m.events.Emit(EventRoutingChange, RoutingChangeEvent{
			Packet: p,
			From:   PhysicalAddress(b[0])<<8 | PhysicalAddress(b[1]),
			To:     PhysicalAddress(b[2])<<8 | PhysicalAddress(b[3]),
		})
	case OpcodeActiveSource:
		if len(p.Args) < 2 {
			return false
		}
		b := p.ArgBytes()
		m.events.Emit(EventActiveSource, ActiveSourceEvent{
			Packet: p,
			Source: PhysicalAddress(b[0])<<8 | PhysicalAddress(b[1]),
		})
	case OpcodeReportPhysicalAddress:
		if len(p.Args) < 2 {
			return false
		}
		b := p.ArgBytes()
		ev := PhysicalAddressEvent{
			Packet:  p,
			Address: PhysicalAddress(b[0])<<8 | PhysicalAddress(b[1]),
		}
		if len(b) > 2 {
			ev.DeviceType = DeviceType(b[2])
		}
		m.events.Emit(EventReportPhysicalAddress, ev)
	default:
		m.events.Emit(OpEvent(name), OpcodeEvent{Name: name, Packet: p, Args: p.Args})
	}
	return true
}
