package cec

import "bytes"

// LineReader turns an arbitrarily fragmented chunk stream into complete
// lines. Chunks carry no framing guarantees: a line may span several
// chunks and a chunk may carry several lines. The backlog holds whatever
// trails the last terminator until the next chunk (or Flush) completes
// it.
type LineReader struct {
	backlog []byte
	emit    func(line string)
}

// NewLineReader returns a reader that calls emit once per complete line,
// terminator stripped, in input order.
func NewLineReader(emit func(line string)) *LineReader {
	return &LineReader{emit: emit}
}

// Write feeds one chunk. It always returns len(p), nil so the reader can
// sit behind io.Copy on a process pipe.
func (r *LineReader) Write(p []byte) (int, error) {
	r.backlog = append(r.backlog, p...)
	for {
		i := bytes.IndexByte(r.backlog, '\n')
		if i < 0 {
			break
		}
		line := r.backlog[:i]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		r.emit(string(line))
		r.backlog = r.backlog[i+1:]
	}
	return len(p), nil
}

// Flush emits any trailing unterminated line. Call on end-of-stream so a
// final line without a terminator is not lost.
func (r *LineReader) Flush() {
	if len(r.backlog) == 0 {
		return
	}
	line := r.backlog
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	r.backlog = nil
	r.emit(string(line))
}
