package cec

import (
	"regexp"
	"strconv"
	"sync"
)

// Remote-control event names. Payloads are KeyEvent; a completed press
// additionally fires the keyed variant "keypress.<KEY_NAME>".
const (
	EventKeyDown  = "keydown"
	EventKeyUp    = "keyup"
	EventKeyPress = "keypress"
)

// KeyPressEvent returns the keyed event name for one key, e.g.
// KeyPressEvent("volume up").
func KeyPressEvent(key string) string {
	return "keypress." + key
}

// KeyEvent describes one remote-control edge. On keydown, Repeat means
// the same key was already held; on keypress, that the previous
// completed press used the same key.
type KeyEvent struct {
	Key    string
	Code   int
	Repeat bool
}

var (
	keyPressedPattern  = regexp.MustCompile(`key pressed: ([^(]+) \(([0-9A-Fa-f]+)\)`)
	keyReleasedPattern = regexp.MustCompile(`key released: ([^(]+) \(([0-9A-Fa-f]+)\)`)
)

type keyState struct {
	key  string
	code int
}

// Remote derives discrete keydown/keyup/keypress events from the
// adapter's key diagnostic lines, which arrive as separate pressed and
// released notifications outside the traffic channel. The held-key
// state is owned here and mutated only by the two line handlers.
type Remote struct {
	events *Emitter

	mu       sync.Mutex
	current  keyState
	previous keyState
}

// NewRemote installs the key pressed/released patterns into mon's
// handler registry and republishes derived key events through mon's
// event registry.
func NewRemote(mon *Monitor) *Remote {
	r := &Remote{events: mon.Events()}
	mon.Registry().Pattern(keyPressedPattern, r.handlePressed)
	mon.Registry().Pattern(keyReleasedPattern, r.handleReleased)
	return r
}

func (r *Remote) handlePressed(line string) {
	key, code, ok := parseKeyLine(keyPressedPattern, line)
	if !ok {
		return
	}

	r.mu.Lock()
	repeat := r.current.key != "" && r.current.key == key
	r.previous = r.current
	r.current = keyState{key: key, code: code}
	r.mu.Unlock()

	r.events.Emit(EventKeyDown, KeyEvent{Key: key, Code: code, Repeat: repeat})
}

func (r *Remote) handleReleased(line string) {
	key, code, ok := parseKeyLine(keyReleasedPattern, line)
	if !ok {
		return
	}

	r.events.Emit(EventKeyUp, KeyEvent{Key: key, Code: code})

	r.mu.Lock()
	// A release that does not match the held key completes nothing: the
	// key was released out of order or never seen going down.
	if r.current.key == "" || r.current.code != code {
		r.mu.Unlock()
		return
	}
	press := KeyEvent{
		Key:    r.current.key,
		Code:   r.current.code,
		Repeat: r.previous.key != "" && r.previous.key == r.current.key,
	}
	r.current = keyState{}
	r.mu.Unlock()

	r.events.Emit(EventKeyPress, press)
	r.events.Emit(KeyPressEvent(press.Key), press)
}

func parseKeyLine(re *regexp.Regexp, line string) (string, int, bool) {
	sub := re.FindStringSubmatch(line)
	if sub == nil {
		return "", 0, false
	}
	code, err := strconv.ParseUint(sub[2], 16, 32)
	if err != nil {
		return "", 0, false
	}
	return sub[1], int(code), true
}
