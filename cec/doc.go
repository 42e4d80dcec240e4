// Package cec bridges a host process to an HDMI-CEC bus exposed through
// a line-oriented adapter process (cec-client). It decodes the
// adapter's diagnostic text into typed bus events and encodes outbound
// intents into the adapter's command syntax.
//
// A Monitor owns the inbound pipeline: raw output chunks are framed
// into lines, dispatched through a handler registry, decoded into
// packets and republished as semantic events. A Commander layers
// synchronous-looking queries on top by pairing each request with a
// one-shot subscription on its reply opcode and a deadline. A Remote
// derives keydown/keyup/keypress edges from the adapter's key
// diagnostics. A Client spawns the adapter process and wires its pipes
// into the Monitor.
package cec
