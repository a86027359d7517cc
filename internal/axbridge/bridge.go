// Copyright 2025 Joseph Cumines
//
// Client for the host accessibility bridge

// Package axbridge implements ax.TreeAccessPort against the host
// accessibility bridge: a per-user daemon that owns the actual
// accessibility API calls and exposes them over a Unix socket with
// line-delimited JSON requests. Bridge failures arrive as google.rpc.Status
// JSON and are rehydrated into gRPC status errors, which is the error
// vocabulary the ax package translates from.
package axbridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/joeycumines/axpilot/internal/ax"
)

// Config configures a bridge client.
type Config struct {
	// SocketPath is the bridge's Unix socket.
	SocketPath string
	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration
	// RequestTimeout bounds each request when the caller's context carries
	// no deadline of its own.
	RequestTimeout time.Duration
}

// DefaultConfig returns the conventional bridge socket and timeouts.
func DefaultConfig() Config {
	return Config{
		SocketPath:     "/tmp/axpilot-bridge.sock",
		DialTimeout:    5 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// Client is a bridge connection implementing ax.TreeAccessPort. Requests
// are serialized over a single connection; the ax.Service layer already
// queues callers, so per-connection pipelining buys nothing here.
type Client struct {
	cfg Config

	mu   sync.Mutex
	conn net.Conn
	rd   *bufio.Reader
	seq  uint64
}

// Dial connects to the bridge.
func Dial(cfg Config) (*Client, error) {
	if cfg.SocketPath == "" {
		cfg = DefaultConfig()
	}
	c := &Client{cfg: cfg}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := net.DialTimeout("unix", c.cfg.SocketPath, c.cfg.DialTimeout)
	if err != nil {
		return fmt.Errorf("failed to dial accessibility bridge at %s: %w", c.cfg.SocketPath, err)
	}
	c.conn = conn
	c.rd = bufio.NewReader(conn)
	return nil
}

// Close closes the bridge connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// request is one line-delimited JSON request to the bridge.
type request struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// response is the bridge's reply. Error, when present, is a
// google.rpc.Status in protojson form.
type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// wireElement is the bridge's element encoding.
type wireElement struct {
	ID         string            `json:"id"`
	Role       string            `json:"role"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Children   []*wireElement    `json:"children,omitempty"`
}

type scopeParams struct {
	Kind     string  `json:"kind"`
	BundleID string  `json:"bundle_id,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
}

type performParams struct {
	ElementID string `json:"element_id"`
	Action    string `json:"action"`
}

type setAttributeParams struct {
	ElementID string `json:"element_id"`
	Name      string `json:"name"`
	Value     string `json:"value"`
}

type bridgeHandle struct {
	id string
}

func (h bridgeHandle) ID() string { return h.id }

// RootForScope fetches a fresh snapshot of the scope's subtree.
func (c *Client) RootForScope(ctx context.Context, scope ax.Scope) (*ax.Element, error) {
	params, err := json.Marshal(wireScope(scope))
	if err != nil {
		return nil, err
	}
	result, err := c.call(ctx, "root_for_scope", params)
	if err != nil {
		return nil, err
	}
	var root wireElement
	if err := json.Unmarshal(result, &root); err != nil {
		return nil, fmt.Errorf("failed to decode bridge snapshot: %w", err)
	}
	return decodeElement(&root), nil
}

// Perform executes an accessibility action on a live node.
func (c *Client) Perform(ctx context.Context, h ax.Handle, action string) error {
	params, err := json.Marshal(performParams{ElementID: h.ID(), Action: action})
	if err != nil {
		return err
	}
	_, err = c.call(ctx, "perform", params)
	return err
}

// SetAttribute writes an attribute on a live node.
func (c *Client) SetAttribute(ctx context.Context, h ax.Handle, name, value string) error {
	params, err := json.Marshal(setAttributeParams{ElementID: h.ID(), Name: name, Value: value})
	if err != nil {
		return err
	}
	_, err = c.call(ctx, "set_attribute", params)
	return err
}

func wireScope(scope ax.Scope) scopeParams {
	switch scope.Kind {
	case ax.ScopeApplication:
		return scopeParams{Kind: "application", BundleID: scope.BundleID}
	case ax.ScopeFocusedApplication:
		return scopeParams{Kind: "focused_application"}
	case ax.ScopePoint:
		return scopeParams{Kind: "point", X: scope.X, Y: scope.Y}
	default:
		return scopeParams{Kind: "system"}
	}
}

func decodeElement(w *wireElement) *ax.Element {
	el := &ax.Element{
		Role:       ax.Role(w.Role),
		Attributes: w.Attributes,
		Handle:     bridgeHandle{id: w.ID},
	}
	if el.Attributes == nil {
		el.Attributes = map[string]string{}
	}
	for _, c := range w.Children {
		el.Children = append(el.Children, decodeElement(c))
	}
	return el
}

// call sends one request and reads its reply, honoring the context
// deadline via the connection's I/O deadlines.
func (c *Client) call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connect(); err != nil {
			return nil, grpcstatus.Error(codes.Unavailable, err.Error())
		}
	}

	deadline := time.Now().Add(c.cfg.RequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	c.seq++
	req := request{ID: c.seq, Method: method, Params: params}
	payload, err := json.Marshal(&req)
	if err != nil {
		return nil, err
	}
	if _, err := c.conn.Write(append(payload, '\n')); err != nil {
		c.dropConn()
		return nil, grpcstatus.Errorf(codes.Unavailable, "bridge write failed: %v", err)
	}

	line, err := c.rd.ReadBytes('\n')
	if err != nil {
		c.dropConn()
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, grpcstatus.Errorf(codes.DeadlineExceeded, "bridge call %s timed out", method)
		}
		return nil, grpcstatus.Errorf(codes.Unavailable, "bridge read failed: %v", err)
	}

	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode bridge response: %w", err)
	}
	if resp.ID != req.ID {
		c.dropConn()
		return nil, grpcstatus.Errorf(codes.Internal, "bridge response id %d does not match request %d", resp.ID, req.ID)
	}
	if len(resp.Error) > 0 {
		return nil, decodeStatus(resp.Error)
	}
	return resp.Result, nil
}

// dropConn discards the connection after a transport-level failure; the
// next call reconnects. Must hold c.mu.
func (c *Client) dropConn() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// decodeStatus rehydrates a google.rpc.Status JSON payload into a gRPC
// status error, preserving code, message, and details.
func decodeStatus(raw json.RawMessage) error {
	var pb spb.Status
	if err := protojson.Unmarshal(raw, &pb); err != nil {
		return grpcstatus.Errorf(codes.Unknown, "undecodable bridge error: %s", raw)
	}
	return grpcstatus.FromProto(&pb).Err()
}
