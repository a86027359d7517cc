// Copyright 2025 Joseph Cumines
//
// MCP server implementation

// Package server exposes the accessibility core as MCP tools over a
// JSON-RPC 2.0 transport.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/joeycumines/axpilot/internal/ax"
	"github.com/joeycumines/axpilot/internal/config"
	"github.com/joeycumines/axpilot/internal/transport"
)

// Ports bundles the injected host capabilities. Tree is required; the
// collaborator ports may be nil, in which case their tools report an
// unavailable capability instead of being registered absent.
type Ports struct {
	Tree        ax.TreeAccessPort
	Windows     ax.WindowPort
	Lifecycle   ax.LifecyclePort
	Permissions ax.PermissionPort
	Screenshots ax.ScreenshotPort
}

// MCPServer dispatches MCP tool calls onto the accessibility service and
// the collaborator ports.
type MCPServer struct {
	svc    *ax.Service
	ports  Ports
	ctx    context.Context
	cfg    *config.Config
	tools  map[string]*Tool
	audit  *AuditLogger
	cancel context.CancelFunc
	mu     sync.RWMutex
}

// Tool represents an MCP tool.
type Tool struct {
	Handler     func(*ToolCall) (*ToolResult, error)
	InputSchema map[string]any
	Name        string
	Description string
}

// ToolCall represents a tool call request.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult represents a tool call result.
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content represents a content item in a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Data string `json:"data,omitempty"`     // base64, image content only
	Mime string `json:"mimeType,omitempty"` // image content only
}

// NewMCPServer creates an MCP server over the given ports.
func NewMCPServer(cfg *config.Config, ports Ports) (*MCPServer, error) {
	if ports.Tree == nil {
		return nil, fmt.Errorf("tree access port is required")
	}

	audit, err := NewAuditLogger(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &MCPServer{
		svc: ax.NewService(ports.Tree, ax.ServiceOptions{
			SettleInterval: cfg.SettleInterval,
		}),
		ports:  ports,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		audit:  audit,
	}
	s.registerTools()
	return s, nil
}

// Shutdown gracefully shuts down the server.
func (s *MCPServer) Shutdown() {
	s.cancel()
	if err := s.audit.Close(); err != nil {
		log.Printf("Error closing audit log: %v", err)
	}
	log.Println("Shutting down MCP server...")
}

// callCtx returns the bounded context for one tool invocation.
func (s *MCPServer) callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.cfg.RequestTimeout)
}

// registerTools registers all available tools.
func (s *MCPServer) registerTools() {
	s.tools = make(map[string]*Tool)
	for _, t := range []*Tool{
		s.resolveElementTool(),
		s.performActionTool(),
		s.setElementValueTool(),
		s.getApplicationMenusTool(),
		s.getMenuItemsTool(),
		s.activateMenuItemTool(),
		s.listWindowsTool(),
		s.moveWindowTool(),
		s.resizeWindowTool(),
		s.minimizeWindowTool(),
		s.closeWindowTool(),
		s.raiseWindowTool(),
		s.orderWindowTool(),
		s.launchApplicationTool(),
		s.terminateApplicationTool(),
		s.hideApplicationTool(),
		s.activateApplicationTool(),
		s.checkPermissionTool(),
		s.captureScreenshotTool(),
	} {
		s.tools[t.Name] = t
	}
}

// callTool dispatches one tool invocation with audit logging.
func (s *MCPServer) callTool(call *ToolCall) (*ToolResult, error) {
	s.mu.RLock()
	tool, exists := s.tools[call.Name]
	s.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", errUnknownTool, call.Name)
	}

	start := time.Now()
	result, err := tool.Handler(call)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case result != nil && result.IsError:
		outcome = "tool_error"
	}
	s.audit.LogToolCall(call.Name, call.Arguments, outcome, time.Since(start))

	return result, err
}

// Serve reads MCP requests from a stdio transport until EOF or shutdown.
func (s *MCPServer) Serve(tr *transport.StdioTransport) error {
	log.Println("MCP server starting (stdio)...")
	for {
		select {
		case <-s.ctx.Done():
			log.Println("MCP server stopping (context cancelled)")
			return nil
		default:
			msg, err := tr.ReadMessage()
			if err != nil {
				if err == transport.ErrStdinClosed || err == io.EOF {
					log.Println("MCP server stopping (EOF)")
					return nil
				}
				log.Printf("Error reading message: %v", err)
				continue
			}
			go func() {
				if response := s.handleMessage(msg); response != nil {
					if err := tr.WriteMessage(response); err != nil {
						log.Printf("Error writing response: %v", err)
					}
				}
			}()
		}
	}
}

// ServeHTTP serves MCP requests over the HTTP/SSE transport.
func (s *MCPServer) ServeHTTP(tr *transport.HTTPTransport) error {
	log.Println("MCP server starting (http)...")
	go func() {
		<-s.ctx.Done()
		if err := tr.Close(); err != nil {
			log.Printf("Error closing HTTP transport: %v", err)
		}
	}()
	return tr.Serve(func(msg *transport.Message) (*transport.Message, error) {
		return s.handleMessage(msg), nil
	})
}

// handleMessage handles a single MCP message and returns the response, or
// nil for notifications.
func (s *MCPServer) handleMessage(msg *transport.Message) *transport.Message {
	switch msg.Method {
	case "initialize":
		return transport.NewResponse(msg.ID, json.RawMessage(
			`{"protocolVersion":"2024-11-05","capabilities":{"tools":{}},"serverInfo":{"name":"axpilot","version":"0.1.0"}}`))

	case "notifications/initialized":
		return nil

	case "tools/list":
		s.mu.RLock()
		tools := make([]map[string]any, 0, len(s.tools))
		for _, tool := range s.tools {
			tools = append(tools, map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"inputSchema": tool.InputSchema,
			})
		}
		s.mu.RUnlock()
		result, err := json.Marshal(map[string]any{"tools": tools})
		if err != nil {
			return transport.NewError(msg.ID, transport.ErrCodeInternalError, err.Error())
		}
		return transport.NewResponse(msg.ID, result)

	case "tools/call":
		var params ToolCall
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return transport.NewError(msg.ID, transport.ErrCodeInvalidRequest,
				fmt.Sprintf("Invalid request: %v", err))
		}

		result, err := s.callTool(&params)
		if err != nil {
			code := transport.ErrCodeInternalError
			if errors.Is(err, errUnknownTool) {
				code = transport.ErrCodeMethodNotFound
			}
			return transport.NewError(msg.ID, code, err.Error())
		}

		resultBytes, err := json.Marshal(result)
		if err != nil {
			return transport.NewError(msg.ID, transport.ErrCodeInternalError, err.Error())
		}
		return transport.NewResponse(msg.ID, resultBytes)
	}

	return transport.NewError(msg.ID, transport.ErrCodeMethodNotFound,
		fmt.Sprintf("Method not found: %s", msg.Method))
}
