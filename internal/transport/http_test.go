// Copyright 2025 Joseph Cumines
//
// HTTP/SSE transport unit tests

package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestTransport(cfg *HTTPTransportConfig) (*HTTPTransport, *httptest.Server) {
	tr := NewHTTPTransport(cfg)
	tr.handler = func(msg *Message) (*Message, error) {
		return NewResponse(msg.ID, json.RawMessage(`{"echo":"`+msg.Method+`"}`)), nil
	}
	return tr, httptest.NewServer(tr.server.Handler)
}

func TestHTTPTransport_Message(t *testing.T) {
	tr, srv := newTestTransport(nil)
	defer srv.Close()
	defer tr.Close()

	body := `{"jsonrpc":"2.0","id":7,"method":"tools/list"}`
	resp, err := http.Post(srv.URL+"/message", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /message error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var msg Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(msg.ID) != "7" {
		t.Errorf("ID = %s, want 7", msg.ID)
	}
	if !strings.Contains(string(msg.Result), "tools/list") {
		t.Errorf("Result = %s, want echo of method", msg.Result)
	}
}

func TestHTTPTransport_Message_InvalidJSON(t *testing.T) {
	tr, srv := newTestTransport(nil)
	defer srv.Close()
	defer tr.Close()

	resp, err := http.Post(srv.URL+"/message", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("POST /message error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHTTPTransport_Message_MethodNotAllowed(t *testing.T) {
	tr, srv := newTestTransport(nil)
	defer srv.Close()
	defer tr.Close()

	resp, err := http.Get(srv.URL + "/message")
	if err != nil {
		t.Fatalf("GET /message error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHTTPTransport_RateLimit(t *testing.T) {
	// Tiny rate gives a burst of one: the second request is rejected.
	tr, srv := newTestTransport(&HTTPTransportConfig{RateLimit: 0.001})
	defer srv.Close()
	defer tr.Close()

	body := `{"jsonrpc":"2.0","id":1,"method":"x"}`
	first, err := http.Post(srv.URL+"/message", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	first.Body.Close()
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first status = %d, want 200", first.StatusCode)
	}

	second, err := http.Post(srv.URL+"/message", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", second.StatusCode)
	}
}

func TestHTTPTransport_Health(t *testing.T) {
	tr, srv := newTestTransport(nil)
	defer srv.Close()
	defer tr.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var health map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["status"] != "ok" {
		t.Errorf("status = %v, want ok", health["status"])
	}
}

func TestHTTPTransport_Metrics(t *testing.T) {
	tr, srv := newTestTransport(nil)
	defer srv.Close()
	defer tr.Close()

	body := `{"jsonrpc":"2.0","id":1,"method":"x"}`
	resp, err := http.Post(srv.URL+"/message", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	metrics, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer metrics.Body.Close()

	var sb strings.Builder
	if _, err := tr.metrics.WriteTo(&sb); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), `mcp_http_requests_total{path="/message"} 1`) {
		t.Errorf("request not counted, got:\n%s", sb.String())
	}
	if !strings.Contains(sb.String(), "mcp_http_request_duration_seconds_count 1") {
		t.Errorf("latency not observed, got:\n%s", sb.String())
	}
}

func TestHTTPTransport_CORSPreflight(t *testing.T) {
	tr, srv := newTestTransport(&HTTPTransportConfig{CORSOrigin: "https://example.com"})
	defer srv.Close()
	defer tr.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/message", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Allow-Origin = %s, want https://example.com", got)
	}
}

func TestHTTPTransport_WriteMessageAfterClose(t *testing.T) {
	tr, srv := newTestTransport(nil)
	defer srv.Close()

	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !tr.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	if err := tr.WriteMessage(&Message{JSONRPC: "2.0"}); err == nil {
		t.Error("WriteMessage() should fail after Close")
	}
	// Close is idempotent.
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestHTTPTransport_ReadMessageUnsupported(t *testing.T) {
	tr := NewHTTPTransport(nil)
	if _, err := tr.ReadMessage(); err == nil {
		t.Error("ReadMessage() should be unsupported")
	}
}

func TestSubscriberSet_Broadcast(t *testing.T) {
	s := newSubscriberSet()
	id, ch := s.add()
	defer s.remove(id)

	s.broadcast(&sseEvent{ID: "1", Data: "hello"})

	select {
	case e := <-ch:
		if e.Data != "hello" {
			t.Errorf("Data = %s, want hello", e.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcast event not delivered")
	}
}

func TestSubscriberSet_Replay(t *testing.T) {
	s := newSubscriberSet()
	s.broadcast(&sseEvent{ID: "1", Data: "a"})
	s.broadcast(&sseEvent{ID: "2", Data: "b"})
	s.broadcast(&sseEvent{ID: "3", Data: "c"})

	replayed := s.since("1")
	if len(replayed) != 2 {
		t.Fatalf("len(since) = %d, want 2", len(replayed))
	}
	if replayed[0].ID != "2" || replayed[1].ID != "3" {
		t.Errorf("replay order wrong: %s, %s", replayed[0].ID, replayed[1].ID)
	}

	if got := s.since(""); got != nil {
		t.Error("empty Last-Event-ID should replay nothing")
	}
	if got := s.since("unknown"); got != nil {
		t.Error("unknown Last-Event-ID should replay nothing")
	}
}

func TestSubscriberSet_RemoveClosesChannel(t *testing.T) {
	s := newSubscriberSet()
	id, ch := s.add()
	if s.count() != 1 {
		t.Fatalf("count = %d, want 1", s.count())
	}
	s.remove(id)
	if s.count() != 0 {
		t.Fatalf("count = %d, want 0", s.count())
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after remove")
	}
}

func TestWriteSSEEvent_MultilineData(t *testing.T) {
	var sb strings.Builder
	if err := writeSSEEvent(&sb, &sseEvent{ID: "5", Data: "line1\nline2"}); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, "id: 5\n") {
		t.Error("missing id line")
	}
	if !strings.Contains(out, "data: line1\ndata: line2\n") {
		t.Errorf("multiline data not prefixed per line, got %q", out)
	}
	if !strings.HasSuffix(out, "\n\n") {
		t.Error("event must end with blank line")
	}
}
