// Copyright 2025 Joseph Cumines
//
// Collaborator ports: lifecycle, window geometry, permissions, screenshots

package ax

import "context"

// The ports below are out-of-scope collaborators: one-shot calls into OS
// services, keyed by bundle id or resolved handle. This package issues the
// requests and interprets only success or failure; their internals live
// with the host bridge.

// WindowInfo summarizes one window for listing purposes.
type WindowInfo struct {
	Title     string  `json:"title"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Minimized bool    `json:"minimized"`
	Main      bool    `json:"main"`
}

// WindowPort mutates window geometry and ordering.
type WindowPort interface {
	ListWindows(ctx context.Context, bundleID string) ([]WindowInfo, error)
	MoveWindow(ctx context.Context, handle Handle, x, y float64) error
	ResizeWindow(ctx context.Context, handle Handle, width, height float64) error
	MinimizeWindow(ctx context.Context, handle Handle) error
	CloseWindow(ctx context.Context, handle Handle) error
	// RaiseWindow brings the window to the front of its application.
	RaiseWindow(ctx context.Context, handle Handle) error
	// LowerWindow sends the window behind its application's other windows.
	LowerWindow(ctx context.Context, handle Handle) error
}

// LifecyclePort launches, terminates, hides, and activates applications.
type LifecyclePort interface {
	LaunchApplication(ctx context.Context, bundleID string) error
	TerminateApplication(ctx context.Context, bundleID string) error
	HideApplication(ctx context.Context, bundleID string) error
	ActivateApplication(ctx context.Context, bundleID string) error
}

// PermissionPort probes and prompts for host accessibility permission.
type PermissionPort interface {
	CheckPermission(ctx context.Context) (granted bool, err error)
	RequestPermission(ctx context.Context) error
}

// ScreenshotPort captures screen content. The returned bytes are an
// encoded image; the format is the host's choice (PNG in practice).
type ScreenshotPort interface {
	CaptureScreen(ctx context.Context) ([]byte, error)
	CaptureWindow(ctx context.Context, handle Handle) ([]byte, error)
}

// OrderWindowAbove places target in front of reference by lowering the
// reference and raising the target. This is a documented approximation, not
// a guaranteed ordering primitive: the host exposes no direct "insert
// above" operation, and the heuristic can misorder windows on multi-space
// or multi-display setups.
func OrderWindowAbove(ctx context.Context, wp WindowPort, target, reference Handle) error {
	if err := wp.LowerWindow(ctx, reference); err != nil {
		return translateActionError("lower reference window", err)
	}
	if err := wp.RaiseWindow(ctx, target); err != nil {
		return translateActionError("raise target window", err)
	}
	return nil
}
