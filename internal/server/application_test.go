// Copyright 2025 Joseph Cumines
//
// Application lifecycle and permission tool handler unit tests

package server

import (
	"context"
	"strings"
	"testing"
)

// fakeLifecyclePort records the last lifecycle call.
type fakeLifecyclePort struct {
	lastOp     string
	lastBundle string
	err        error
}

func (f *fakeLifecyclePort) record(op, bundleID string) error {
	f.lastOp = op
	f.lastBundle = bundleID
	return f.err
}

func (f *fakeLifecyclePort) LaunchApplication(_ context.Context, bundleID string) error {
	return f.record("launch", bundleID)
}

func (f *fakeLifecyclePort) TerminateApplication(_ context.Context, bundleID string) error {
	return f.record("terminate", bundleID)
}

func (f *fakeLifecyclePort) HideApplication(_ context.Context, bundleID string) error {
	return f.record("hide", bundleID)
}

func (f *fakeLifecyclePort) ActivateApplication(_ context.Context, bundleID string) error {
	return f.record("activate", bundleID)
}

type fakePermissionPort struct {
	granted   bool
	checkErr  error
	requested bool
}

func (f *fakePermissionPort) CheckPermission(context.Context) (bool, error) {
	return f.granted, f.checkErr
}

func (f *fakePermissionPort) RequestPermission(context.Context) error {
	f.requested = true
	return nil
}

func TestLifecycleTools(t *testing.T) {
	s, _ := newTestServer(t)
	lifecycle := &fakeLifecyclePort{}
	s.ports.Lifecycle = lifecycle

	tests := []struct {
		tool string
		op   string
		verb string
	}{
		{"launch_application", "launch", "Launched"},
		{"terminate_application", "terminate", "Terminated"},
		{"hide_application", "hide", "Hid"},
		{"activate_application", "activate", "Activated"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			result := callToolResult(t, s, tt.tool, `{"bundle_id":"com.apple.TextEdit"}`)
			if result.IsError {
				t.Fatalf("unexpected tool error: %s", resultText(result))
			}
			if lifecycle.lastOp != tt.op || lifecycle.lastBundle != "com.apple.TextEdit" {
				t.Errorf("recorded %s on %s, want %s on com.apple.TextEdit", lifecycle.lastOp, lifecycle.lastBundle, tt.op)
			}
			if !strings.Contains(resultText(result), tt.verb) {
				t.Errorf("result %q missing %q", resultText(result), tt.verb)
			}
		})
	}
}

func TestLifecycleTools_RequireBundleID(t *testing.T) {
	s, _ := newTestServer(t)
	lifecycle := &fakeLifecyclePort{}
	s.ports.Lifecycle = lifecycle

	result := callToolResult(t, s, "launch_application", `{}`)
	if !result.IsError {
		t.Error("missing bundle_id should be a tool error")
	}
	if lifecycle.lastOp != "" {
		t.Error("nothing should have been launched")
	}
}

func TestLifecycleTools_UnavailableWithoutPort(t *testing.T) {
	s, _ := newTestServer(t)

	result := callToolResult(t, s, "terminate_application", `{"bundle_id":"com.apple.TextEdit"}`)
	if !result.IsError || !strings.Contains(resultText(result), "not available") {
		t.Errorf("want unavailable error, got: %s", resultText(result))
	}
}

func TestCheckPermission_Granted(t *testing.T) {
	s, _ := newTestServer(t)
	perms := &fakePermissionPort{granted: true}
	s.ports.Permissions = perms

	result := callToolResult(t, s, "check_permission", `{}`)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}
	if !strings.Contains(resultText(result), "is granted") {
		t.Errorf("result %q should report granted", resultText(result))
	}
	if perms.requested {
		t.Error("granted permission should not trigger a prompt")
	}
}

func TestCheckPermission_NotGranted(t *testing.T) {
	s, _ := newTestServer(t)
	perms := &fakePermissionPort{granted: false}
	s.ports.Permissions = perms

	result := callToolResult(t, s, "check_permission", `{}`)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}
	if !strings.Contains(resultText(result), "not granted") {
		t.Errorf("result %q should report not granted", resultText(result))
	}
	if perms.requested {
		t.Error("prompt should only appear when request is set")
	}
}

func TestCheckPermission_Request(t *testing.T) {
	s, _ := newTestServer(t)
	perms := &fakePermissionPort{granted: false}
	s.ports.Permissions = perms

	result := callToolResult(t, s, "check_permission", `{"request":true}`)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}
	if !perms.requested {
		t.Error("request=true should trigger a permission prompt")
	}
	if !strings.Contains(resultText(result), "prompt was requested") {
		t.Errorf("result %q should mention the prompt", resultText(result))
	}
}
