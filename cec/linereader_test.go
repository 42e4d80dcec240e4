package cec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectLines() (*LineReader, *[]string) {
	var lines []string
	r := NewLineReader(func(line string) {
		lines = append(lines, line)
	})
	return r, &lines
}

func TestLineReader_SingleChunk(t *testing.T) {
	r, lines := collectLines()

	n, err := r.Write([]byte("first\nsecond\n"))
	require.NoError(t, err)
	assert.Equal(t, 13, n)
	assert.Equal(t, []string{"first", "second"}, *lines)
}

func TestLineReader_ChunkingInvariance(t *testing.T) {
	input := "TRAFFIC: [123]\t<< 0f:36\nwaiting for input\nkey pressed: up (1)\n"

	// The emitted line sequence must not depend on how the byte stream
	// is fragmented.
	var want []string
	{
		r, lines := collectLines()
		_, _ = r.Write([]byte(input))
		r.Flush()
		want = *lines
	}

	for size := 1; size <= len(input); size++ {
		r, lines := collectLines()
		for i := 0; i < len(input); i += size {
			end := i + size
			if end > len(input) {
				end = len(input)
			}
			_, err := r.Write([]byte(input[i:end]))
			require.NoError(t, err)
		}
		r.Flush()
		assert.Equal(t, want, *lines, "chunk size %d", size)
	}
}

func TestLineReader_FlushEmitsTrailingPartialLine(t *testing.T) {
	r, lines := collectLines()

	_, _ = r.Write([]byte("complete\npartial"))
	assert.Equal(t, []string{"complete"}, *lines)

	r.Flush()
	assert.Equal(t, []string{"complete", "partial"}, *lines)

	// Flush on an empty backlog emits nothing.
	r.Flush()
	assert.Len(t, *lines, 2)
}

func TestLineReader_StripsCarriageReturn(t *testing.T) {
	r, lines := collectLines()

	_, _ = r.Write([]byte("one\r\ntwo\r"))
	r.Flush()
	assert.Equal(t, []string{"one", "two"}, *lines)
}

func TestLineReader_EmptyLines(t *testing.T) {
	r, lines := collectLines()

	_, _ = r.Write([]byte("\n\na\n"))
	assert.Equal(t, []string{"", "", "a"}, *lines)
}
