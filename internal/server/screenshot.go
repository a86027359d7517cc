// Copyright 2025 Joseph Cumines
//
// Screenshot tool handler

package server

import (
	"encoding/base64"
	"encoding/json"
)

func (s *MCPServer) captureScreenshotTool() *Tool {
	return &Tool{
		Name:        "capture_screenshot",
		Description: "Capture the screen, or a single window when a window path is given",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"window_path": map[string]any{
					"type":        "string",
					"description": "Optional element path of a window to capture; omit for the full screen",
				},
				"bundle_id": map[string]any{
					"type":        "string",
					"description": "Application bundle ID for window_path; empty for the focused application",
				},
			},
		},
		Handler: s.handleCaptureScreenshot,
	}
}

func (s *MCPServer) handleCaptureScreenshot(call *ToolCall) (*ToolResult, error) {
	if s.ports.Screenshots == nil {
		return errorResult("Screenshot capture is not available"), nil
	}
	ctx, cancel := s.callCtx()
	defer cancel()

	var params struct {
		WindowPath string `json:"window_path"`
		BundleID   string `json:"bundle_id"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}

	var img []byte
	var err error
	if params.WindowPath != "" {
		handle, rerr := s.resolveWindow(ctx, params.WindowPath, params.BundleID)
		if rerr != nil {
			return axErrorResult("capture_screenshot", rerr), nil
		}
		img, err = s.ports.Screenshots.CaptureWindow(ctx, handle)
	} else {
		img, err = s.ports.Screenshots.CaptureScreen(ctx)
	}
	if err != nil {
		return axErrorResult("capture_screenshot", err), nil
	}

	return &ToolResult{Content: []Content{{
		Type: "image",
		Data: base64.StdEncoding.EncodeToString(img),
		Mime: "image/png",
	}}}, nil
}
