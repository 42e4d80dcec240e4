package cec

import (
	"regexp"
	"strings"
	"sync"
)

// LineHandler is invoked with the raw line that matched its entry.
type LineHandler func(line string)

type handlerEntry struct {
	match func(line string) bool
	fn    LineHandler
}

// HandlerRegistry is an ordered list of (predicate, action) pairs
// evaluated against every classified line. Order carries no priority:
// every entry whose predicate matches fires, independently of the
// others. The registry is shared between the Monitor's built-in entries
// and collaborators such as Remote, so registration is safe from any
// goroutine.
type HandlerRegistry struct {
	mu      sync.Mutex
	entries []handlerEntry
}

// NewHandlerRegistry returns an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Contains registers fn for lines containing substr.
func (r *HandlerRegistry) Contains(substr string, fn LineHandler) {
	r.register(func(line string) bool { return strings.Contains(line, substr) }, fn)
}

// Pattern registers fn for lines matching re at least once.
func (r *HandlerRegistry) Pattern(re *regexp.Regexp, fn LineHandler) {
	r.register(re.MatchString, fn)
}

// Match registers fn for lines satisfying pred.
func (r *HandlerRegistry) Match(pred func(line string) bool, fn LineHandler) {
	r.register(pred, fn)
}

func (r *HandlerRegistry) register(match func(string) bool, fn LineHandler) {
	r.mu.Lock()
	r.entries = append(r.entries, handlerEntry{match: match, fn: fn})
	r.mu.Unlock()
}

// Dispatch evaluates every entry against line, invokes each matching
// entry's handler, and returns the number of handlers invoked.
func (r *HandlerRegistry) Dispatch(line string) int {
	r.mu.Lock()
	entries := make([]handlerEntry, len(r.entries))
	copy(entries, r.entries)
	r.mu.Unlock()

	n := 0
	for _, e := range entries {
		if e.match(line) {
			e.fn(line)
			n++
		}
	}
	return n
}
