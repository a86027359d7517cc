// Copyright 2025 Joseph Cumines
//
// Stdio transport: line-delimited JSON-RPC 2.0

package transport

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrStdinClosed is returned by ReadMessage when the peer closes stdin.
var ErrStdinClosed = errors.New("stdin closed")

// StdioTransport speaks JSON-RPC 2.0 over stdin/stdout, one JSON message
// per line. Reads and writes are guarded separately: ReadMessage blocks on
// the input stream while handler goroutines write responses, so a shared
// mutex would stall every reply behind the next incoming line.
type StdioTransport struct {
	reader *bufio.Reader
	writer io.Writer

	readMu  sync.Mutex
	writeMu sync.Mutex

	closeMu sync.Mutex
	closed  bool
}

// NewStdioTransport creates a stdio transport over the given streams.
func NewStdioTransport(stdin io.Reader, stdout io.Writer) *StdioTransport {
	return &StdioTransport{
		reader: bufio.NewReader(stdin),
		writer: stdout,
	}
}

// ReadMessage reads the next message. It returns ErrStdinClosed once the
// input stream ends.
func (t *StdioTransport) ReadMessage() (*Message, error) {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	if t.IsClosed() {
		return nil, fmt.Errorf("transport is closed")
	}

	line, err := t.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return nil, ErrStdinClosed
		}
		return nil, fmt.Errorf("failed to read line: %w", err)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty line received")
	}

	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &msg, nil
}

// WriteMessage writes one message followed by a newline. It may be called
// while another goroutine is blocked in ReadMessage.
func (t *StdioTransport) WriteMessage(msg *Message) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.IsClosed() {
		return fmt.Errorf("transport is closed")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if _, err := t.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close marks the transport closed. Idempotent.
func (t *StdioTransport) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	t.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (t *StdioTransport) IsClosed() bool {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	return t.closed
}
