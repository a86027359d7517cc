// Copyright 2025 Joseph Cumines

// Package transport provides JSON-RPC 2.0 message transports for the MCP
// server: stdio (line-delimited JSON) and HTTP with SSE streaming, plus the
// rate limiting and metrics the HTTP transport is served with.
package transport

import "encoding/json"

// JSON-RPC 2.0 standard error codes.
// See: https://www.jsonrpc.org/specification#error_object
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Message is a JSON-RPC 2.0 message, request or response. Requests carry
// Method and optionally Params and ID; responses carry ID and exactly one
// of Result or Error. Field names are lowercase per the JSON-RPC 2.0
// specification.
type Message struct {
	Error   *ErrorObj       `json:"error,omitempty"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// ErrorObj is a JSON-RPC 2.0 error object.
type ErrorObj struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Code    int             `json:"code"`
}

// NewResponse builds a success response for the given request ID.
func NewResponse(id json.RawMessage, result json.RawMessage) *Message {
	return &Message{JSONRPC: "2.0", ID: id, Result: result}
}

// NewError builds an error response for the given request ID.
func NewError(id json.RawMessage, code int, message string) *Message {
	return &Message{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &ErrorObj{Code: code, Message: message},
	}
}

// Transport is the server-side message transport. Implementations must be
// safe for concurrent use.
//
// StdioTransport supports the pull pattern (ReadMessage); HTTPTransport
// delivers requests through the Serve callback and returns an error from
// ReadMessage. WriteMessage on the HTTP transport broadcasts to SSE
// subscribers.
type Transport interface {
	ReadMessage() (*Message, error)
	WriteMessage(msg *Message) error
	Close() error
	IsClosed() bool
}

var (
	_ Transport = (*StdioTransport)(nil)
	_ Transport = (*HTTPTransport)(nil)
)
