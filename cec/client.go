package cec

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"time"
)

// ErrAlreadyStarted is returned by Client.Start after a successful
// start.
var ErrAlreadyStarted = errors.New("cec: client already started")

// ClientConfig configures the adapter subprocess.
type ClientConfig struct {
	// Command is the adapter binary. Defaults to "cec-client".
	Command string

	// Device is the adapter device path (e.g. "/dev/ttyACM0");
	// auto-detected by the adapter when empty.
	Device string

	// OSDName is announced to the bus. Defaults to "cec-bridge".
	OSDName string

	DeviceType  DeviceType
	MonitorMode bool

	// LogLevel is the adapter's -d argument. Defaults to 31 (all);
	// traffic and key diagnostics are only printed at TRAFFIC and DEBUG
	// level, so lowering this starves the monitor.
	LogLevel int

	Logger *slog.Logger
}

// Client spawns the adapter process and wires its pipes into a Monitor:
// stdout feeds the line engine, stdin carries outbound commands, stderr
// goes to the log. The Monitor stays usable after the process exits;
// only EventStop is emitted.
type Client struct {
	mon    *Monitor
	cfg    ClientConfig
	logger *slog.Logger

	cmd   *exec.Cmd
	stdin io.WriteCloser
	done  chan struct{}
}

// NewClient returns an unstarted client driving mon.
func NewClient(mon *Monitor, cfg ClientConfig) *Client {
	if cfg.Command == "" {
		cfg.Command = "cec-client"
	}
	if cfg.OSDName == "" {
		cfg.OSDName = "cec-bridge"
	}
	if cfg.LogLevel == 0 {
		cfg.LogLevel = 31
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{mon: mon, cfg: cfg, logger: logger, done: make(chan struct{})}
}

// Start launches the adapter process and begins feeding the monitor.
func (c *Client) Start() error {
	if c.cmd != nil {
		return ErrAlreadyStarted
	}

	args := []string{
		"-t", c.cfg.DeviceType.ClientFlag(),
		"-o", c.cfg.OSDName,
		"-d", strconv.Itoa(c.cfg.LogLevel),
	}
	if c.cfg.MonitorMode {
		args = append(args, "-m")
	}
	if c.cfg.Device != "" {
		args = append(args, c.cfg.Device)
	}

	cmd := exec.Command(c.cfg.Command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("adapter stdin: %w", err)
	}
	cmd.Stdout = c.mon
	cmd.Stderr = NewLineReader(func(line string) {
		c.logger.Warn("adapter stderr", "line", line)
	})

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.cfg.Command, err)
	}
	c.cmd = cmd
	c.stdin = stdin
	c.mon.SetOutput(stdin)
	c.mon.SetMonitorMode(c.cfg.MonitorMode)
	c.logger.Info("adapter started", "command", c.cfg.Command, "args", args)

	go func() {
		err := cmd.Wait()
		c.mon.SetOutput(nil)
		if err != nil {
			c.logger.Error("adapter exited", "error", err)
		}
		c.mon.Stop(err)
		close(c.done)
	}()
	return nil
}

// WaitReady blocks until the adapter announces it is accepting input,
// then returns the logical address it was granted.
func (c *Client) WaitReady(timeout time.Duration) (LogicalAddress, error) {
	ch := make(chan LogicalAddress, 1)
	id := c.mon.Once(EventReady, func(payload any) {
		if addr, ok := payload.(LogicalAddress); ok {
			ch <- addr
		}
	})
	if c.mon.Ready() {
		c.mon.Off(EventReady, id)
		return c.mon.OwnAddress(), nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case addr := <-ch:
		return addr, nil
	case <-c.done:
		c.mon.Off(EventReady, id)
		return LogicalAddressUnregistered, errors.New("cec: adapter exited before becoming ready")
	case <-timer.C:
		if c.mon.Off(EventReady, id) {
			return LogicalAddressUnregistered, fmt.Errorf("%w: adapter not ready within %s", ErrTimeout, timeout)
		}
		return <-ch, nil
	}
}

// Stop terminates the adapter process and waits for its exit to be
// reported through EventStop.
func (c *Client) Stop() error {
	if c.cmd == nil {
		return nil
	}
	// Closing stdin asks the adapter to quit; kill if it lingers.
	_ = c.stdin.Close()
	select {
	case <-c.done:
		return nil
	case <-time.After(2 * time.Second):
	}
	if err := c.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("kill adapter: %w", err)
	}
	<-c.done
	return nil
}
