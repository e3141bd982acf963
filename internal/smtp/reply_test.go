package smtp

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// chunkingReader releases data in pieces of at most chunk bytes per Read
// call, regardless of how much the caller asked for, so a bufio.Reader
// reading from it is forced to assemble lines across many underlying
// reads — the condition a single net.Pipe write/read pair never exercises.
type chunkingReader struct {
	data  []byte
	chunk int
}

func (c *chunkingReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.chunk
	if n <= 0 || n > len(p) {
		n = len(p)
	}
	if n > len(c.data) {
		n = len(c.data)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func readReplyChunked(raw string, chunkSize int) *bufio.Reader {
	return bufio.NewReader(&chunkingReader{data: []byte(raw), chunk: chunkSize})
}

func TestReadReply_SingleLineSplitByteByByte(t *testing.T) {
	r := readReplyChunked("250 OK\r\n", 1)
	reply, err := readReply(r)

	assert.NoError(t, err)
	assert.Equal(t, 250, reply.Code)
	assert.Equal(t, "OK", reply.Text)
}

func TestReadReply_GreetingSplitAcrossReads(t *testing.T) {
	r := readReplyChunked("220 mx.example.com ESMTP\r\n", 3)
	reply, err := readReply(r)

	assert.NoError(t, err)
	assert.Equal(t, 220, reply.Code)
	assert.Equal(t, "mx.example.com ESMTP", reply.Text)
}

func TestReadReply_MultiLineReply(t *testing.T) {
	raw := "250-mx.example.com Hello\r\n250-SIZE 10485760\r\n250-STARTTLS\r\n250 HELP\r\n"
	r := readReplyChunked(raw, 5)
	reply, err := readReply(r)

	assert.NoError(t, err)
	assert.Equal(t, 250, reply.Code)
	assert.Equal(t, "mx.example.com Hello | SIZE 10485760 | STARTTLS | HELP", reply.Text)
}

func TestReadReply_IdempotentRegardlessOfChunkSize(t *testing.T) {
	raw := "250-mx.example.com Hello\r\n250-STARTTLS\r\n250 HELP\r\n"

	for _, chunkSize := range []int{1, 2, 3, 7, 64, 4096} {
		r := readReplyChunked(raw, chunkSize)
		reply, err := readReply(r)
		assert.NoError(t, err, "chunk size %d", chunkSize)
		assert.Equal(t, 250, reply.Code, "chunk size %d", chunkSize)
		assert.Equal(t, "mx.example.com Hello | STARTTLS | HELP", reply.Text, "chunk size %d", chunkSize)
	}
}

func TestReadReply_OversizedReplyIsProtocolViolation(t *testing.T) {
	raw := "250 " + strings.Repeat("a", maxReplyBytes+100) + "\r\n"
	r := readReplyChunked(raw, 4096)

	_, err := readReply(r)

	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestReadReply_NonNumericCodeIsProtocolViolation(t *testing.T) {
	r := readReplyChunked("abc ok\r\n", 4096)

	_, err := readReply(r)

	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestReadReply_OutOfRangeCodeIsProtocolViolation(t *testing.T) {
	r := readReplyChunked("999 nope\r\n", 4096)

	_, err := readReply(r)

	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestReadReply_ShortLineIsProtocolViolation(t *testing.T) {
	r := readReplyChunked("25\r\n", 4096)

	_, err := readReply(r)

	assert.ErrorIs(t, err, ErrProtocolViolation)
}
