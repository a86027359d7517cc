// Copyright 2025 Joseph Cumines
//
// Element tool handlers

package server

import (
	"encoding/json"
	"fmt"
)

func (s *MCPServer) resolveElementTool() *Tool {
	return &Tool{
		Name:        "resolve_element",
		Description: "Resolve a UI element path and describe the element it addresses",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Element path, e.g. ui://app/AXWindow[title=Untitled]/AXButton[identifier=save]",
				},
				"bundle_id": map[string]any{
					"type":        "string",
					"description": "Application bundle ID; empty for the focused application, \"system\" for the system root",
				},
			},
			"required": []string{"path"},
		},
		Handler: s.handleResolveElement,
	}
}

func (s *MCPServer) handleResolveElement(call *ToolCall) (*ToolResult, error) {
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

	el, err := s.svc.Resolve(ctx, params.Path, scopeFromParams(params.BundleID))
	if err != nil {
		return axErrorResult("resolve_element", err), nil
	}
	return textResultf("Resolved %s\n%s", params.Path, elementSummary(el)), nil
}

func (s *MCPServer) performActionTool() *Tool {
	return &Tool{
		Name:        "perform_action",
		Description: "Resolve a UI element path and perform a named accessibility action on it",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Element path addressing the target element",
				},
				"action": map[string]any{
					"type":        "string",
					"description": "Accessibility action name, e.g. AXPress",
				},
				"bundle_id": map[string]any{
					"type":        "string",
					"description": "Application bundle ID; empty for the focused application",
				},
			},
			"required": []string{"path", "action"},
		},
		Handler: s.handlePerformAction,
	}
}

func (s *MCPServer) handlePerformAction(call *ToolCall) (*ToolResult, error) {
	ctx, cancel := s.callCtx()
	defer cancel()

	var params struct {
		Path     string `json:"path"`
		Action   string `json:"action"`
		BundleID string `json:"bundle_id"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if params.Path == "" || params.Action == "" {
		return errorResult("path and action parameters are required"), nil
	}

	if err := s.svc.PerformAction(ctx, params.Action, params.Path, scopeFromParams(params.BundleID)); err != nil {
		return axErrorResult("perform_action", err), nil
	}
	return textResultf("Performed %s on %s", params.Action, params.Path), nil
}

func (s *MCPServer) setElementValueTool() *Tool {
	return &Tool{
		Name:        "set_element_value",
		Description: "Resolve a UI element path and write one of its attributes",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Element path addressing the target element",
				},
				"attribute": map[string]any{
					"type":        "string",
					"description": "Attribute name to write, e.g. value",
				},
				"value": map[string]any{
					"type":        "string",
					"description": "New attribute value",
				},
				"bundle_id": map[string]any{
					"type":        "string",
					"description": "Application bundle ID; empty for the focused application",
				},
			},
			"required": []string{"path", "attribute"},
		},
		Handler: s.handleSetElementValue,
	}
}

func (s *MCPServer) handleSetElementValue(call *ToolCall) (*ToolResult, error) {
	ctx, cancel := s.callCtx()
	defer cancel()

	var params struct {
		Path      string `json:"path"`
		Attribute string `json:"attribute"`
		Value     string `json:"value"`
		BundleID  string `json:"bundle_id"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if params.Path == "" || params.Attribute == "" {
		return errorResult("path and attribute parameters are required"), nil
	}

	if err := s.svc.SetValue(ctx, params.Path, scopeFromParams(params.BundleID), params.Attribute, params.Value); err != nil {
		return axErrorResult("set_element_value", err), nil
	}
	return textResult(fmt.Sprintf("Set %s on %s", params.Attribute, params.Path)), nil
}
