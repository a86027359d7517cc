// Copyright 2025 Joseph Cumines
//
// Window management tool handlers

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joeycumines/axpilot/internal/ax"
)

func (s *MCPServer) listWindowsTool() *Tool {
	return &Tool{
		Name:        "list_windows",
		Description: "List the windows of an application with their geometry",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bundle_id": map[string]any{
					"type":        "string",
					"description": "Application bundle ID; empty for the focused application",
				},
			},
		},
		Handler: s.handleListWindows,
	}
}

func (s *MCPServer) handleListWindows(call *ToolCall) (*ToolResult, error) {
	if s.ports.Windows == nil {
		return errorResult("Window management is not available"), nil
	}
	ctx, cancel := s.callCtx()
	defer cancel()

	var params struct {
		BundleID string `json:"bundle_id"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}

	windows, err := s.ports.Windows.ListWindows(ctx, params.BundleID)
	if err != nil {
		return axErrorResult("list_windows", err), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d windows\n", len(windows))
	for _, w := range windows {
		fmt.Fprintf(&sb, "%q at (%.0f, %.0f) size %.0fx%.0f", w.Title, w.X, w.Y, w.Width, w.Height)
		if w.Minimized {
			sb.WriteString(" [minimized]")
		}
		if w.Main {
			sb.WriteString(" [main]")
		}
		sb.WriteString("\n")
	}
	return textResult(sb.String()), nil
}

// windowPathSchema is the shared schema for tools that address one window by
// element path.
func windowPathSchema(extra map[string]any, required ...string) map[string]any {
	props := map[string]any{
		"path": map[string]any{
			"type":        "string",
			"description": "Element path addressing the window, e.g. ui://app/AXWindow[title=Untitled]",
		},
		"bundle_id": map[string]any{
			"type":        "string",
			"description": "Application bundle ID; empty for the focused application",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   append([]string{"path"}, required...),
	}
}

// resolveWindow resolves a window path to its host handle.
func (s *MCPServer) resolveWindow(ctx context.Context, pathText, bundleID string) (ax.Handle, error) {
	el, err := s.svc.Resolve(ctx, pathText, scopeFromParams(bundleID))
	if err != nil {
		return nil, err
	}
	return el.Handle, nil
}

func (s *MCPServer) moveWindowTool() *Tool {
	return &Tool{
		Name:        "move_window",
		Description: "Move a window to new screen coordinates",
		InputSchema: windowPathSchema(map[string]any{
			"x": map[string]any{"type": "number", "description": "New X position in screen points"},
			"y": map[string]any{"type": "number", "description": "New Y position in screen points"},
		}, "x", "y"),
		Handler: s.handleMoveWindow,
	}
}

func (s *MCPServer) handleMoveWindow(call *ToolCall) (*ToolResult, error) {
	if s.ports.Windows == nil {
		return errorResult("Window management is not available"), nil
	}
	ctx, cancel := s.callCtx()
	defer cancel()

	var params struct {
		Path     string  `json:"path"`
		BundleID string  `json:"bundle_id"`
		X        float64 `json:"x"`
		Y        float64 `json:"y"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if params.Path == "" {
		return errorResult("path parameter is required"), nil
	}

	handle, err := s.resolveWindow(ctx, params.Path, params.BundleID)
	if err != nil {
		return axErrorResult("move_window", err), nil
	}
	if err := s.ports.Windows.MoveWindow(ctx, handle, params.X, params.Y); err != nil {
		return axErrorResult("move_window", err), nil
	}
	return textResultf("Moved %s to (%.0f, %.0f)", params.Path, params.X, params.Y), nil
}

func (s *MCPServer) resizeWindowTool() *Tool {
	return &Tool{
		Name:        "resize_window",
		Description: "Resize a window",
		InputSchema: windowPathSchema(map[string]any{
			"width":  map[string]any{"type": "number", "description": "New width in screen points"},
			"height": map[string]any{"type": "number", "description": "New height in screen points"},
		}, "width", "height"),
		Handler: s.handleResizeWindow,
	}
}

func (s *MCPServer) handleResizeWindow(call *ToolCall) (*ToolResult, error) {
	if s.ports.Windows == nil {
		return errorResult("Window management is not available"), nil
	}
	ctx, cancel := s.callCtx()
	defer cancel()

	var params struct {
		Path     string  `json:"path"`
		BundleID string  `json:"bundle_id"`
		Width    float64 `json:"width"`
		Height   float64 `json:"height"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if params.Path == "" {
		return errorResult("path parameter is required"), nil
	}
	if params.Width <= 0 || params.Height <= 0 {
		return errorResult("width and height must be positive"), nil
	}

	handle, err := s.resolveWindow(ctx, params.Path, params.BundleID)
	if err != nil {
		return axErrorResult("resize_window", err), nil
	}
	if err := s.ports.Windows.ResizeWindow(ctx, handle, params.Width, params.Height); err != nil {
		return axErrorResult("resize_window", err), nil
	}
	return textResultf("Resized %s to %.0fx%.0f", params.Path, params.Width, params.Height), nil
}

func (s *MCPServer) minimizeWindowTool() *Tool {
	return &Tool{
		Name:        "minimize_window",
		Description: "Minimize a window to the Dock",
		InputSchema: windowPathSchema(nil),
		Handler: func(call *ToolCall) (*ToolResult, error) {
			return s.simpleWindowOp(call, "minimize_window", func(ctx context.Context, h ax.Handle) error {
				return s.ports.Windows.MinimizeWindow(ctx, h)
			})
		},
	}
}

func (s *MCPServer) closeWindowTool() *Tool {
	return &Tool{
		Name:        "close_window",
		Description: "Close a window",
		InputSchema: windowPathSchema(nil),
		Handler: func(call *ToolCall) (*ToolResult, error) {
			return s.simpleWindowOp(call, "close_window", func(ctx context.Context, h ax.Handle) error {
				return s.ports.Windows.CloseWindow(ctx, h)
			})
		},
	}
}

func (s *MCPServer) raiseWindowTool() *Tool {
	return &Tool{
		Name:        "raise_window",
		Description: "Bring a window to the front of its application",
		InputSchema: windowPathSchema(nil),
		Handler: func(call *ToolCall) (*ToolResult, error) {
			return s.simpleWindowOp(call, "raise_window", func(ctx context.Context, h ax.Handle) error {
				return s.ports.Windows.RaiseWindow(ctx, h)
			})
		},
	}
}

func (s *MCPServer) simpleWindowOp(call *ToolCall, toolName string, op func(context.Context, ax.Handle) error) (*ToolResult, error) {
	if s.ports.Windows == nil {
		return errorResult("Window management is not available"), nil
	}
	ctx, cancel := s.callCtx()
	defer cancel()

	var params struct {
		Path     string `json:"path"`
		BundleID string `json:"bundle_id"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if params.Path == "" {
		return errorResult("path parameter is required"), nil
	}

	handle, err := s.resolveWindow(ctx, params.Path, params.BundleID)
	if err != nil {
		return axErrorResult(toolName, err), nil
	}
	if err := op(ctx, handle); err != nil {
		return axErrorResult(toolName, err), nil
	}
	return textResultf("%s: done for %s", toolName, params.Path), nil
}

func (s *MCPServer) orderWindowTool() *Tool {
	return &Tool{
		Name:        "order_window",
		Description: "Place one window in front of another within the same application (best-effort)",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Element path of the window to bring forward",
				},
				"above": map[string]any{
					"type":        "string",
					"description": "Element path of the reference window",
				},
				"bundle_id": map[string]any{
					"type":        "string",
					"description": "Application bundle ID; empty for the focused application",
				},
			},
			"required": []string{"path", "above"},
		},
		Handler: s.handleOrderWindow,
	}
}

func (s *MCPServer) handleOrderWindow(call *ToolCall) (*ToolResult, error) {
	if s.ports.Windows == nil {
		return errorResult("Window management is not available"), nil
	}
	ctx, cancel := s.callCtx()
	defer cancel()

	var params struct {
		Path     string `json:"path"`
		Above    string `json:"above"`
		BundleID string `json:"bundle_id"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if params.Path == "" || params.Above == "" {
		return errorResult("path and above parameters are required"), nil
	}

	target, err := s.resolveWindow(ctx, params.Path, params.BundleID)
	if err != nil {
		return axErrorResult("order_window", err), nil
	}
	reference, err := s.resolveWindow(ctx, params.Above, params.BundleID)
	if err != nil {
		return axErrorResult("order_window", err), nil
	}
	if err := ax.OrderWindowAbove(ctx, s.ports.Windows, target, reference); err != nil {
		return axErrorResult("order_window", err), nil
	}
	return textResultf("Ordered %s above %s", params.Path, params.Above), nil
}
