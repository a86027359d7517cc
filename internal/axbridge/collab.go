// Copyright 2025 Joseph Cumines
//
// Bridge-backed collaborator ports

package axbridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/joeycumines/axpilot/internal/ax"
)

// The bridge daemon also owns the NSWorkspace and CoreGraphics calls behind
// the collaborator ports, so the same connection serves them.

var (
	_ ax.WindowPort     = (*Client)(nil)
	_ ax.LifecyclePort  = (*Client)(nil)
	_ ax.PermissionPort = (*Client)(nil)
	_ ax.ScreenshotPort = (*Client)(nil)
)

type bundleParams struct {
	BundleID string `json:"bundle_id,omitempty"`
}

type windowGeometryParams struct {
	ElementID string  `json:"element_id"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
}

type elementParams struct {
	ElementID string `json:"element_id"`
}

// ListWindows lists the windows of an application, or of the focused
// application when bundleID is empty.
func (c *Client) ListWindows(ctx context.Context, bundleID string) ([]ax.WindowInfo, error) {
	params, err := json.Marshal(bundleParams{BundleID: bundleID})
	if err != nil {
		return nil, err
	}
	result, err := c.call(ctx, "list_windows", params)
	if err != nil {
		return nil, err
	}
	var out struct {
		Windows []ax.WindowInfo `json:"windows"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, fmt.Errorf("failed to decode window list: %w", err)
	}
	return out.Windows, nil
}

// MoveWindow repositions a window.
func (c *Client) MoveWindow(ctx context.Context, h ax.Handle, x, y float64) error {
	return c.windowCall(ctx, "move_window", windowGeometryParams{ElementID: h.ID(), X: x, Y: y})
}

// ResizeWindow resizes a window.
func (c *Client) ResizeWindow(ctx context.Context, h ax.Handle, width, height float64) error {
	return c.windowCall(ctx, "resize_window", windowGeometryParams{ElementID: h.ID(), Width: width, Height: height})
}

// MinimizeWindow minimizes a window to the Dock.
func (c *Client) MinimizeWindow(ctx context.Context, h ax.Handle) error {
	return c.windowCall(ctx, "minimize_window", windowGeometryParams{ElementID: h.ID()})
}

// CloseWindow closes a window.
func (c *Client) CloseWindow(ctx context.Context, h ax.Handle) error {
	return c.windowCall(ctx, "close_window", windowGeometryParams{ElementID: h.ID()})
}

// RaiseWindow brings a window to the front of its application.
func (c *Client) RaiseWindow(ctx context.Context, h ax.Handle) error {
	return c.windowCall(ctx, "raise_window", windowGeometryParams{ElementID: h.ID()})
}

// LowerWindow sends a window behind its application's other windows.
func (c *Client) LowerWindow(ctx context.Context, h ax.Handle) error {
	return c.windowCall(ctx, "lower_window", windowGeometryParams{ElementID: h.ID()})
}

func (c *Client) windowCall(ctx context.Context, method string, p windowGeometryParams) error {
	params, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, method, params)
	return err
}

// LaunchApplication launches an application by bundle id.
func (c *Client) LaunchApplication(ctx context.Context, bundleID string) error {
	return c.lifecycleCall(ctx, "launch_application", bundleID)
}

// TerminateApplication requests graceful termination.
func (c *Client) TerminateApplication(ctx context.Context, bundleID string) error {
	return c.lifecycleCall(ctx, "terminate_application", bundleID)
}

// HideApplication hides an application's windows.
func (c *Client) HideApplication(ctx context.Context, bundleID string) error {
	return c.lifecycleCall(ctx, "hide_application", bundleID)
}

// ActivateApplication brings an application to the foreground.
func (c *Client) ActivateApplication(ctx context.Context, bundleID string) error {
	return c.lifecycleCall(ctx, "activate_application", bundleID)
}

func (c *Client) lifecycleCall(ctx context.Context, method, bundleID string) error {
	params, err := json.Marshal(bundleParams{BundleID: bundleID})
	if err != nil {
		return err
	}
	_, err = c.call(ctx, method, params)
	return err
}

// CheckPermission reports whether the host has accessibility permission.
func (c *Client) CheckPermission(ctx context.Context) (bool, error) {
	result, err := c.call(ctx, "check_permission", nil)
	if err != nil {
		return false, err
	}
	var out struct {
		Granted bool `json:"granted"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return false, fmt.Errorf("failed to decode permission result: %w", err)
	}
	return out.Granted, nil
}

// RequestPermission asks the host to prompt the user for accessibility
// permission.
func (c *Client) RequestPermission(ctx context.Context) error {
	_, err := c.call(ctx, "request_permission", nil)
	return err
}

// CaptureScreen captures the full screen as an encoded image.
func (c *Client) CaptureScreen(ctx context.Context) ([]byte, error) {
	return c.captureCall(ctx, "capture_screen", nil)
}

// CaptureWindow captures one window as an encoded image.
func (c *Client) CaptureWindow(ctx context.Context, h ax.Handle) ([]byte, error) {
	params, err := json.Marshal(elementParams{ElementID: h.ID()})
	if err != nil {
		return nil, err
	}
	return c.captureCall(ctx, "capture_window", params)
}

func (c *Client) captureCall(ctx context.Context, method string, params json.RawMessage) ([]byte, error) {
	result, err := c.call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	var out struct {
		Image string `json:"image"` // base64
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, fmt.Errorf("failed to decode capture result: %w", err)
	}
	img, err := base64.StdEncoding.DecodeString(out.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to decode capture image: %w", err)
	}
	return img, nil
}
