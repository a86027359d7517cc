// Copyright 2025 Joseph Cumines
//
// Application lifecycle and permission tool handlers

package server

import (
	"context"
	"encoding/json"
)

func (s *MCPServer) launchApplicationTool() *Tool {
	return &Tool{
		Name:        "launch_application",
		Description: "Launch an application by bundle ID",
		InputSchema: lifecycleSchema(),
		Handler: func(call *ToolCall) (*ToolResult, error) {
			return s.lifecycleOp(call, "launch_application", "Launched", func(ctx context.Context, bundleID string) error {
				return s.ports.Lifecycle.LaunchApplication(ctx, bundleID)
			})
		},
	}
}

func (s *MCPServer) terminateApplicationTool() *Tool {
	return &Tool{
		Name:        "terminate_application",
		Description: "Request graceful termination of an application",
		InputSchema: lifecycleSchema(),
		Handler: func(call *ToolCall) (*ToolResult, error) {
			return s.lifecycleOp(call, "terminate_application", "Terminated", func(ctx context.Context, bundleID string) error {
				return s.ports.Lifecycle.TerminateApplication(ctx, bundleID)
			})
		},
	}
}

func (s *MCPServer) hideApplicationTool() *Tool {
	return &Tool{
		Name:        "hide_application",
		Description: "Hide an application's windows",
		InputSchema: lifecycleSchema(),
		Handler: func(call *ToolCall) (*ToolResult, error) {
			return s.lifecycleOp(call, "hide_application", "Hid", func(ctx context.Context, bundleID string) error {
				return s.ports.Lifecycle.HideApplication(ctx, bundleID)
			})
		},
	}
}

func (s *MCPServer) activateApplicationTool() *Tool {
	return &Tool{
		Name:        "activate_application",
		Description: "Bring an application to the foreground",
		InputSchema: lifecycleSchema(),
		Handler: func(call *ToolCall) (*ToolResult, error) {
			return s.lifecycleOp(call, "activate_application", "Activated", func(ctx context.Context, bundleID string) error {
				return s.ports.Lifecycle.ActivateApplication(ctx, bundleID)
			})
		},
	}
}

func lifecycleSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"bundle_id": map[string]any{
				"type":        "string",
				"description": "Application bundle ID, e.g. com.apple.TextEdit",
			},
		},
		"required": []string{"bundle_id"},
	}
}

func (s *MCPServer) lifecycleOp(call *ToolCall, toolName, verb string, op func(context.Context, string) error) (*ToolResult, error) {
	if s.ports.Lifecycle == nil {
		return errorResult("Application lifecycle control is not available"), nil
	}
	ctx, cancel := s.callCtx()
	defer cancel()

	var params struct {
		BundleID string `json:"bundle_id"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if params.BundleID == "" {
		return errorResult("bundle_id parameter is required"), nil
	}

	if err := op(ctx, params.BundleID); err != nil {
		return axErrorResult(toolName, err), nil
	}
	return textResultf("%s %s", verb, params.BundleID), nil
}

func (s *MCPServer) checkPermissionTool() *Tool {
	return &Tool{
		Name:        "check_permission",
		Description: "Check whether the host has granted accessibility permission, optionally prompting for it",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"request": map[string]any{
					"type":        "boolean",
					"description": "Prompt the user for permission if it is not granted",
				},
			},
		},
		Handler: s.handleCheckPermission,
	}
}

func (s *MCPServer) handleCheckPermission(call *ToolCall) (*ToolResult, error) {
	if s.ports.Permissions == nil {
		return errorResult("Permission checks are not available"), nil
	}
	ctx, cancel := s.callCtx()
	defer cancel()

	var params struct {
		Request bool `json:"request"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}

	granted, err := s.ports.Permissions.CheckPermission(ctx)
	if err != nil {
		return axErrorResult("check_permission", err), nil
	}
	if granted {
		return textResult("Accessibility permission is granted"), nil
	}
	if params.Request {
		if err := s.ports.Permissions.RequestPermission(ctx); err != nil {
			return axErrorResult("check_permission", err), nil
		}
		return textResult("Accessibility permission is not granted; a permission prompt was requested"), nil
	}
	return textResult("Accessibility permission is not granted"), nil
}
