// Copyright 2025 Joseph Cumines
//
// Bridge client tests against a scripted in-process bridge daemon

package axbridge

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/joeycumines/axpilot/internal/ax"
)

// testBridge is a scripted bridge daemon on a real Unix socket. Each
// incoming request is answered by handle; requests are also journaled.
type testBridge struct {
	t      *testing.T
	ln     net.Listener
	handle func(method string, params json.RawMessage) (result any, errStatus *errPayload)

	mu       sync.Mutex
	requests []request
}

// errPayload is a google.rpc.Status in its protojson shape.
type errPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newTestBridge(t *testing.T, handle func(method string, params json.RawMessage) (any, *errPayload)) *testBridge {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	b := &testBridge{t: t, ln: ln, handle: handle}
	t.Cleanup(func() { _ = ln.Close() })
	go b.serve()
	return b
}

func (b *testBridge) socketPath() string {
	return b.ln.Addr().String()
}

func (b *testBridge) serve() {
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return
		}
		go b.serveConn(conn)
	}
}

func (b *testBridge) serveConn(conn net.Conn) {
	defer conn.Close()
	rd := bufio.NewReader(conn)
	for {
		line, err := rd.ReadBytes('\n')
		if err != nil {
			return
		}
		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			return
		}
		b.mu.Lock()
		b.requests = append(b.requests, req)
		b.mu.Unlock()

		resp := response{ID: req.ID}
		result, errStatus := b.handle(req.Method, req.Params)
		if errStatus != nil {
			raw, _ := json.Marshal(errStatus)
			resp.Error = raw
		} else if result != nil {
			raw, _ := json.Marshal(result)
			resp.Result = raw
		} else {
			resp.Result = json.RawMessage(`{}`)
		}
		payload, _ := json.Marshal(&resp)
		if _, err := conn.Write(append(payload, '\n')); err != nil {
			return
		}
	}
}

func (b *testBridge) methodCalls(method string) []request {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []request
	for _, r := range b.requests {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

func dialTestBridge(t *testing.T, b *testBridge) *Client {
	t.Helper()
	c, err := Dial(Config{
		SocketPath:     b.socketPath(),
		DialTimeout:    time.Second,
		RequestTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func okHandler(result any) func(string, json.RawMessage) (any, *errPayload) {
	return func(string, json.RawMessage) (any, *errPayload) {
		return result, nil
	}
}

func TestRootForScope(t *testing.T) {
	bridge := newTestBridge(t, okHandler(wireElement{
		ID:   "app-1",
		Role: "AXApplication",
		Children: []*wireElement{
			{
				ID:         "win-1",
				Role:       "AXWindow",
				Attributes: map[string]string{"AXTitle": "Untitled"},
			},
		},
	}))
	c := dialTestBridge(t, bridge)

	root, err := c.RootForScope(context.Background(), ax.ApplicationScope("com.example.App"))
	if err != nil {
		t.Fatalf("RootForScope() error = %v", err)
	}

	if root.Role != ax.RoleApplication || root.Handle.ID() != "app-1" {
		t.Errorf("root = %s/%s, want AXApplication/app-1", root.Role, root.Handle.ID())
	}
	if root.Attributes == nil {
		t.Error("missing attribute map should decode as empty, not nil")
	}
	if len(root.Children) != 1 || root.Children[0].Attributes["AXTitle"] != "Untitled" {
		t.Errorf("child window did not decode, got %+v", root.Children)
	}

	calls := bridge.methodCalls("root_for_scope")
	if len(calls) != 1 {
		t.Fatalf("got %d root_for_scope calls, want 1", len(calls))
	}
	var scope scopeParams
	if err := json.Unmarshal(calls[0].Params, &scope); err != nil {
		t.Fatal(err)
	}
	if scope.Kind != "application" || scope.BundleID != "com.example.App" {
		t.Errorf("scope params = %+v, want application/com.example.App", scope)
	}
}

func TestPerform_SendsElementAndAction(t *testing.T) {
	bridge := newTestBridge(t, okHandler(nil))
	c := dialTestBridge(t, bridge)

	if err := c.Perform(context.Background(), bridgeHandle{id: "btn-1"}, ax.ActionPress); err != nil {
		t.Fatalf("Perform() error = %v", err)
	}

	calls := bridge.methodCalls("perform")
	if len(calls) != 1 {
		t.Fatalf("got %d perform calls, want 1", len(calls))
	}
	var p performParams
	if err := json.Unmarshal(calls[0].Params, &p); err != nil {
		t.Fatal(err)
	}
	if p.ElementID != "btn-1" || p.Action != ax.ActionPress {
		t.Errorf("perform params = %+v", p)
	}
}

func TestCall_BridgeErrorBecomesStatus(t *testing.T) {
	bridge := newTestBridge(t, func(string, json.RawMessage) (any, *errPayload) {
		return nil, &errPayload{Code: int(codes.NotFound), Message: "element is gone"}
	})
	c := dialTestBridge(t, bridge)

	err := c.Perform(context.Background(), bridgeHandle{id: "gone"}, ax.ActionPress)
	if err == nil {
		t.Fatal("want an error from the bridge")
	}
	st, ok := grpcstatus.FromError(err)
	if !ok {
		t.Fatalf("error %v is not a gRPC status", err)
	}
	if st.Code() != codes.NotFound || st.Message() != "element is gone" {
		t.Errorf("status = %s/%s, want NotFound/element is gone", st.Code(), st.Message())
	}
}

func TestCall_RequestIDsIncrement(t *testing.T) {
	bridge := newTestBridge(t, okHandler(nil))
	c := dialTestBridge(t, bridge)

	ctx := context.Background()
	_ = c.Perform(ctx, bridgeHandle{id: "a"}, ax.ActionPress)
	_ = c.Perform(ctx, bridgeHandle{id: "b"}, ax.ActionPress)

	calls := bridge.methodCalls("perform")
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[1].ID != calls[0].ID+1 {
		t.Errorf("request ids %d, %d are not sequential", calls[0].ID, calls[1].ID)
	}
}

func TestDial_FailsWithoutDaemon(t *testing.T) {
	_, err := Dial(Config{
		SocketPath:  filepath.Join(t.TempDir(), "absent.sock"),
		DialTimeout: 100 * time.Millisecond,
	})
	if err == nil {
		t.Error("Dial() should fail when no daemon is listening")
	}
}

func TestListWindows(t *testing.T) {
	bridge := newTestBridge(t, okHandler(map[string]any{
		"windows": []ax.WindowInfo{
			{Title: "Main", X: 0, Y: 22, Width: 1280, Height: 778, Main: true},
		},
	}))
	c := dialTestBridge(t, bridge)

	windows, err := c.ListWindows(context.Background(), "com.example.App")
	if err != nil {
		t.Fatalf("ListWindows() error = %v", err)
	}
	if len(windows) != 1 || windows[0].Title != "Main" || !windows[0].Main {
		t.Errorf("windows = %+v", windows)
	}

	calls := bridge.methodCalls("list_windows")
	if len(calls) != 1 {
		t.Fatalf("got %d list_windows calls, want 1", len(calls))
	}
	var p bundleParams
	if err := json.Unmarshal(calls[0].Params, &p); err != nil {
		t.Fatal(err)
	}
	if p.BundleID != "com.example.App" {
		t.Errorf("bundle_id = %s", p.BundleID)
	}
}

func TestCheckPermission(t *testing.T) {
	bridge := newTestBridge(t, okHandler(map[string]any{"granted": true}))
	c := dialTestBridge(t, bridge)

	granted, err := c.CheckPermission(context.Background())
	if err != nil {
		t.Fatalf("CheckPermission() error = %v", err)
	}
	if !granted {
		t.Error("granted = false, want true")
	}
}

func TestCaptureWindow(t *testing.T) {
	bridge := newTestBridge(t, okHandler(map[string]any{"image": "cG5nLWJ5dGVz"}))
	c := dialTestBridge(t, bridge)

	img, err := c.CaptureWindow(context.Background(), bridgeHandle{id: "win-1"})
	if err != nil {
		t.Fatalf("CaptureWindow() error = %v", err)
	}
	if string(img) != "png-bytes" {
		t.Errorf("image = %q, want png-bytes", img)
	}
}

func TestDecodeStatus_Undecodable(t *testing.T) {
	err := decodeStatus(json.RawMessage(`not json`))
	st, ok := grpcstatus.FromError(err)
	if !ok {
		t.Fatalf("error %v is not a gRPC status", err)
	}
	if st.Code() != codes.Unknown {
		t.Errorf("code = %s, want Unknown", st.Code())
	}
}

func TestWireScope(t *testing.T) {
	tests := []struct {
		scope ax.Scope
		want  scopeParams
	}{
		{ax.SystemScope(), scopeParams{Kind: "system"}},
		{ax.ApplicationScope("com.example.App"), scopeParams{Kind: "application", BundleID: "com.example.App"}},
		{ax.FocusedApplicationScope(), scopeParams{Kind: "focused_application"}},
		{ax.PointScope(10, 20), scopeParams{Kind: "point", X: 10, Y: 20}},
	}
	for _, tt := range tests {
		if got := wireScope(tt.scope); got != tt.want {
			t.Errorf("wireScope(%s) = %+v, want %+v", tt.scope, got, tt.want)
		}
	}
}
