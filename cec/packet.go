package cec

import (
	"fmt"
	"strconv"
	"strings"
)

// InvalidByte marks a traffic token that did not parse as hex. Decoding
// keeps going and stores the sentinel instead of dropping the whole
// line, so consumers see the gap but keep the valid remainder.
const InvalidByte = -1

// Packet is one decoded traffic line: the raw colon-separated hex
// tokens plus the fields derived from them. Source and Target are only
// meaningful when the header token carried at least two hex digits;
// Opcode and Args only when OpcodeSet is true. A packet without an
// opcode is a bus polling message, not a command.
type Packet struct {
	Tokens    []string
	Source    LogicalAddress
	Target    LogicalAddress
	Opcode    int
	OpcodeSet bool
	Args      []int
}

// Polling reports whether the packet is a header-only presence check.
func (p *Packet) Polling() bool {
	return !p.OpcodeSet
}

// ArgBytes returns the argument bytes with invalid sentinels squashed
// to zero, for consumers that need a well-formed byte slice.
func (p *Packet) ArgBytes() []byte {
	out := make([]byte, len(p.Args))
	for i, a := range p.Args {
		if a >= 0 && a <= 0xFF {
			out[i] = byte(a)
		}
	}
	return out
}

func (p *Packet) String() string {
	return strings.Join(p.Tokens, ":")
}

// DecodeTraffic decodes one adapter traffic line. Everything before the
// "]\t" marker is timestamp/direction metadata and is discarded, as is
// the direction arrow after it; the remainder is split on ':' into hex
// tokens. The first token's two nibbles are the source and target
// logical addresses, the second token the opcode, every further token
// one argument byte. Malformed hex tokens become InvalidByte.
func DecodeTraffic(line string) *Packet {
	rest := line
	if i := strings.Index(rest, "]\t"); i >= 0 {
		rest = rest[i+2:]
	}
	if i := strings.IndexByte(rest, ' '); i >= 0 {
		rest = rest[i+1:]
	}

	p := &Packet{Tokens: strings.Split(rest, ":")}

	if len(p.Tokens[0]) >= 2 {
		if src, ok := hexNibble(p.Tokens[0][0]); ok {
			p.Source = LogicalAddress(src)
		}
		if tgt, ok := hexNibble(p.Tokens[0][1]); ok {
			p.Target = LogicalAddress(tgt)
		}
	}
	if len(p.Tokens) > 1 {
		p.Opcode = parseHexByte(p.Tokens[1])
		p.OpcodeSet = true
		for _, tok := range p.Tokens[2:] {
			p.Args = append(p.Args, parseHexByte(tok))
		}
	}
	return p
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func parseHexByte(tok string) int {
	v, err := strconv.ParseUint(tok, 16, 8)
	if err != nil {
		return InvalidByte
	}
	return int(v)
}

// EncodeOperation formats the adapter's tx command for one operation:
// "tx <src><tgt>:<opcode>[:<param>...]", lower-case hex, addresses one
// digit each.
func EncodeOperation(source, target LogicalAddress, opcode Opcode, params []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tx %x%x:%x", uint8(source)&0xF, uint8(target)&0xF, uint8(opcode))
	for _, p := range params {
		fmt.Fprintf(&b, ":%x", p)
	}
	return b.String()
}

// EncodeBroadcast is EncodeOperation aimed at every device on the bus.
func EncodeBroadcast(source LogicalAddress, opcode Opcode, params []byte) string {
	return EncodeOperation(source, LogicalAddressBroadcast, opcode, params)
}

// EncodeBoolParam maps a boolean to its single-byte parameter form.
func EncodeBoolParam(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// EncodeIntParam maps an integer to exactly three big-endian bytes.
// Values above 0xFFFFFF lose their high bits; the fixed framing is part
// of the wire contract.
func EncodeIntParam(v int) []byte {
	return []byte{byte(v >> 16), byte(v >> 8), byte(v)}
}

// EncodeStringParam maps a string to one byte per code point. Code
// points above 0xFF are truncated to their low byte; callers that need
// more than OSD-style ASCII must encode themselves.
func EncodeStringParam(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, byte(r))
	}
	return out
}
