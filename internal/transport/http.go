// Copyright 2025 Joseph Cumines
//
// HTTP/SSE transport for JSON-RPC 2.0 communication

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPTransportConfig configures the HTTP/SSE transport. SocketPath, when
// set, takes precedence over Address. WriteTimeout defaults to 0 because
// SSE streams are long-lived. RateLimit of 0 disables limiting.
type HTTPTransportConfig struct {
	Address           string
	SocketPath        string
	CORSOrigin        string
	HeartbeatInterval time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	RateLimit         float64
}

// DefaultHTTPConfig returns the default HTTP transport configuration.
func DefaultHTTPConfig() *HTTPTransportConfig {
	return &HTTPTransportConfig{
		Address:           ":8080",
		HeartbeatInterval: 15 * time.Second,
		CORSOrigin:        "*",
		ReadTimeout:       30 * time.Second,
	}
}

// HTTPTransport serves JSON-RPC over POST /message, streams responses over
// GET /events (SSE), and exposes /health and /metrics. Requests are
// delivered through the Serve callback.
type HTTPTransport struct {
	config     *HTTPTransportConfig
	server     *http.Server
	handler    func(*Message) (*Message, error)
	subs       *subscriberSet
	metrics    *MetricsRegistry
	shutdownCh chan struct{}
	eventID    atomic.Uint64
	closed     atomic.Bool
}

// sseEvent is one server-sent event.
type sseEvent struct {
	ID   string
	Data string
}

// subscriberSet tracks connected SSE clients plus a bounded replay buffer
// for Last-Event-ID reconnection.
type subscriberSet struct {
	mu     sync.RWMutex
	subs   map[uint64]chan *sseEvent
	replay []*sseEvent
	nextID atomic.Uint64
}

const replayBufferSize = 1000

func newSubscriberSet() *subscriberSet {
	return &subscriberSet{subs: make(map[uint64]chan *sseEvent)}
}

func (s *subscriberSet) add() (uint64, chan *sseEvent) {
	id := s.nextID.Add(1)
	ch := make(chan *sseEvent, 100)
	s.mu.Lock()
	s.subs[id] = ch
	s.mu.Unlock()
	return id, ch
}

func (s *subscriberSet) remove(id uint64) {
	s.mu.Lock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()
}

func (s *subscriberSet) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *subscriberSet) broadcast(e *sseEvent) {
	s.mu.Lock()
	if len(s.replay) >= replayBufferSize {
		s.replay = s.replay[1:]
	}
	s.replay = append(s.replay, e)
	for id, ch := range s.subs {
		select {
		case ch <- e:
		default:
			log.Printf("Warning: dropping event %s for SSE client %d (buffer full)", e.ID, id)
		}
	}
	s.mu.Unlock()
}

// since returns replay-buffered events after lastEventID, oldest first.
func (s *subscriberSet) since(lastEventID string) []*sseEvent {
	if lastEventID == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, e := range s.replay {
		if e.ID == lastEventID {
			return append([]*sseEvent(nil), s.replay[i+1:]...)
		}
	}
	return nil
}

// NewHTTPTransport creates an HTTP/SSE transport.
func NewHTTPTransport(config *HTTPTransportConfig) *HTTPTransport {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = 15 * time.Second
	}
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 30 * time.Second
	}

	t := &HTTPTransport{
		config:     config,
		subs:       newSubscriberSet(),
		metrics:    NewMetricsRegistry(),
		shutdownCh: make(chan struct{}),
	}

	limiter := NewRateLimiter(config.RateLimit)

	mux := http.NewServeMux()
	mux.Handle("/message", limiter.Middleware(http.HandlerFunc(t.handleMessage)))
	mux.HandleFunc("/events", t.handleSSE)
	mux.HandleFunc("/health", t.handleHealth)
	mux.HandleFunc("/metrics", t.handleMetrics)

	t.server = &http.Server{
		Handler:      t.corsMiddleware(mux),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return t
}

func (t *HTTPTransport) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", t.config.CORSOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleMessage handles POST /message: one JSON-RPC request, one response,
// with the response also broadcast to SSE subscribers.
func (t *HTTPTransport) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	t.metrics.IncCounter("mcp_http_requests_total", `path="/message"`)

	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if t.handler == nil {
		http.Error(w, "Handler not set", http.StatusInternalServerError)
		return
	}

	response, err := t.handler(&msg)
	if err != nil {
		response = NewError(msg.ID, ErrCodeInternalError, err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
	t.metrics.ObserveLatency("mcp_http_request_duration_seconds", time.Since(start))

	if response != nil {
		data, _ := json.Marshal(response)
		t.subs.broadcast(&sseEvent{
			ID:   strconv.FormatUint(t.eventID.Add(1), 10),
			Data: string(data),
		})
	}
}

// handleSSE handles GET /events: an event stream with heartbeats and
// Last-Event-ID replay.
func (t *HTTPTransport) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, ch := t.subs.add()
	defer t.subs.remove(id)
	t.metrics.SetGauge("mcp_sse_clients", float64(t.subs.count()))
	defer func() { t.metrics.SetGauge("mcp_sse_clients", float64(t.subs.count()-1)) }()

	for _, e := range t.subs.since(r.Header.Get("Last-Event-ID")) {
		if err := writeSSEEvent(w, e); err != nil {
			return
		}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(t.config.HeartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.shutdownCh:
			fmt.Fprintf(w, "event: complete\ndata: server shutdown\n\n")
			flusher.Flush()
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, e); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes one event, prefixing each data line per the SSE
// specification.
func writeSSEEvent(w io.Writer, e *sseEvent) error {
	if _, err := fmt.Fprintf(w, "id: %s\nevent: message\n", e.ID); err != nil {
		return err
	}
	for _, line := range strings.Split(e.Data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, "\n")
	return err
}

func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"clients":     t.subs.count(),
		"server_time": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("Error encoding health response: %v", err)
	}
}

func (t *HTTPTransport) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	if _, err := t.metrics.WriteTo(w); err != nil {
		log.Printf("Error writing metrics: %v", err)
	}
}

// Serve starts the HTTP server, delivering each request to handler.
func (t *HTTPTransport) Serve(handler func(*Message) (*Message, error)) error {
	t.handler = handler

	var (
		listener net.Listener
		err      error
	)
	if t.config.SocketPath != "" {
		if err := os.Remove(t.config.SocketPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: failed to remove stale socket %s: %v", t.config.SocketPath, err)
		}
		listener, err = net.Listen("unix", t.config.SocketPath)
		if err != nil {
			return fmt.Errorf("failed to listen on socket %s: %w", t.config.SocketPath, err)
		}
		log.Printf("HTTP/SSE transport listening on unix:%s", t.config.SocketPath)
	} else {
		listener, err = net.Listen("tcp", t.config.Address)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", t.config.Address, err)
		}
		log.Printf("HTTP/SSE transport listening on %s", t.config.Address)
	}

	if err := t.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ReadMessage is unsupported: the HTTP transport delivers requests through
// the Serve callback.
func (t *HTTPTransport) ReadMessage() (*Message, error) {
	return nil, fmt.Errorf("ReadMessage is not supported by HTTPTransport: use Serve(handler)")
}

// WriteMessage broadcasts a message to all connected SSE clients.
func (t *HTTPTransport) WriteMessage(msg *Message) error {
	if t.closed.Load() {
		return fmt.Errorf("transport is closed")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	t.subs.broadcast(&sseEvent{
		ID:   strconv.FormatUint(t.eventID.Add(1), 10),
		Data: string(data),
	})
	return nil
}

// Close shuts the server down and removes any Unix socket file.
func (t *HTTPTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	close(t.shutdownCh)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	if t.config.SocketPath != "" {
		if err := os.Remove(t.config.SocketPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: failed to remove socket file %s: %v", t.config.SocketPath, err)
		}
	}
	return nil
}

// IsClosed reports whether the transport has been closed.
func (t *HTTPTransport) IsClosed() bool {
	return t.closed.Load()
}
