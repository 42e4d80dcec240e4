package cec

import (
	"errors"
	"fmt"
	"time"
)

// DefaultQueryTimeout bounds how long a query waits for its reply
// opcode before failing.
const DefaultQueryTimeout = 5000 * time.Millisecond

// ErrTimeout is returned when no matching reply opcode was observed
// within the query deadline.
var ErrTimeout = errors.New("cec: query timed out")

// Commander encodes high-level intents into adapter commands. Sends are
// fire-and-forget at the transport level; queries layer a one-shot
// reply subscription with a deadline on top, because the bus itself
// never acknowledges anything.
type Commander struct {
	mon *Monitor

	// Timeout applies to all queries. Zero means DefaultQueryTimeout.
	Timeout time.Duration
}

// NewCommander returns a Commander sending through mon. It holds the
// monitor but does not own it.
func NewCommander(mon *Monitor) *Commander {
	return &Commander{mon: mon}
}

func (c *Commander) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultQueryTimeout
}

// BroadcastStandby puts every device on the bus into standby.
func (c *Commander) BroadcastStandby() error {
	return c.mon.Send(EncodeBroadcast(c.mon.OwnAddress(), OpcodeStandby, nil))
}

// SetPowerState wakes target (Image View On) or puts it into standby.
// No bus-level confirmation is awaited; poll GetPowerState for that.
func (c *Commander) SetPowerState(target LogicalAddress, on bool) error {
	if on {
		return c.mon.SendOperation(target, OpcodeImageViewOn, nil)
	}
	return c.mon.SendOperation(target, OpcodeStandby, nil)
}

// PressButton sends a user-control press immediately followed by its
// release. It succeeds only if both sends succeed at the transport
// level.
func (c *Commander) PressButton(target LogicalAddress, key Keycode) error {
	if err := c.mon.SendOperation(target, OpcodeUserControlPressed, []byte{byte(key)}); err != nil {
		return err
	}
	return c.mon.SendOperation(target, OpcodeUserControlReleased, nil)
}

// VolumeUp, VolumeDown and Mute press the corresponding key on the
// audio system.
func (c *Commander) VolumeUp() error {
	return c.PressButton(LogicalAddressAudioSystem, KeycodeVolumeUp)
}

func (c *Commander) VolumeDown() error {
	return c.PressButton(LogicalAddressAudioSystem, KeycodeVolumeDown)
}

func (c *Commander) Mute() error {
	return c.PressButton(LogicalAddressAudioSystem, KeycodeMute)
}

// GetPowerState queries target's power status and waits for its
// REPORT_POWER_STATUS reply.
func (c *Commander) GetPowerState(target LogicalAddress) (PowerStatus, error) {
	payload, err := c.request(
		func() error { return c.mon.SendOperation(target, OpcodeGiveDevicePowerStatus, nil) },
		OpEvent("REPORT_POWER_STATUS"),
	)
	if err != nil {
		return PowerStatusUnknown, err
	}
	ev, ok := payload.(OpcodeEvent)
	if !ok || len(ev.Args) < 1 || ev.Args[0] == InvalidByte {
		return PowerStatusUnknown, fmt.Errorf("cec: malformed power status report")
	}
	return PowerStatus(ev.Args[0]), nil
}

// GetOSDName queries target's OSD name and waits for the SET_OSD_NAME
// reply.
func (c *Commander) GetOSDName(target LogicalAddress) (string, error) {
	payload, err := c.request(
		func() error { return c.mon.SendOperation(target, OpcodeGiveOSDName, nil) },
		EventSetOSDName,
	)
	if err != nil {
		return "", err
	}
	ev, ok := payload.(OSDNameEvent)
	if !ok {
		return "", fmt.Errorf("cec: malformed OSD name report")
	}
	return ev.Name, nil
}

// GetPhysicalAddress queries target's physical address and device type.
func (c *Commander) GetPhysicalAddress(target LogicalAddress) (PhysicalAddress, DeviceType, error) {
	payload, err := c.request(
		func() error { return c.mon.SendOperation(target, OpcodeGivePhysicalAddress, nil) },
		EventReportPhysicalAddress,
	)
	if err != nil {
		return 0, 0, err
	}
	ev, ok := payload.(PhysicalAddressEvent)
	if !ok {
		return 0, 0, fmt.Errorf("cec: malformed physical address report")
	}
	return ev.Address, ev.DeviceType, nil
}

// GetDeviceInfo aggregates the per-device queries into one snapshot.
// Individual query timeouts leave the corresponding field at its zero
// value; a device that answers nothing at all is reported as absent.
func (c *Commander) GetDeviceInfo(target LogicalAddress) (*Device, error) {
	dev := &Device{LogicalAddress: target, PowerStatus: PowerStatusUnknown}
	answered := false

	if status, err := c.GetPowerState(target); err == nil {
		dev.PowerStatus = status
		answered = true
	}
	if name, err := c.GetOSDName(target); err == nil {
		dev.OSDName = name
		answered = true
	}
	if addr, _, err := c.GetPhysicalAddress(target); err == nil {
		dev.PhysicalAddress = addr
		answered = true
	}

	if !answered {
		return nil, fmt.Errorf("cec: device %s did not respond", target)
	}
	return dev, nil
}

// request sends a query and waits for the reply event or the deadline,
// whichever comes first; the losing path is disarmed. The reply
// subscription is registered before the send so a reply racing the
// send's return cannot be missed; a failed send unregisters it
// immediately.
func (c *Commander) request(send func() error, event string) (any, error) {
	// Buffered so the one-shot handler never blocks the dispatch path.
	ch := make(chan any, 1)
	id := c.mon.Once(event, func(payload any) {
		ch <- payload
	})

	if err := send(); err != nil {
		c.mon.Off(event, id)
		return nil, err
	}

	timer := time.NewTimer(c.timeout())
	defer timer.Stop()

	select {
	case payload := <-ch:
		return payload, nil
	case <-timer.C:
		if c.mon.Off(event, id) {
			return nil, fmt.Errorf("%w: no %s within %s", ErrTimeout, event, c.timeout())
		}
		// The subscription was already consumed: the event won the race
		// with the deadline, so take its payload.
		return <-ch, nil
	}
}
