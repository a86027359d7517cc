// Copyright 2025 Joseph Cumines
//
// Menu tool handler unit tests

package server

import (
	"strings"
	"testing"

	"github.com/joeycumines/axpilot/internal/ax"
	"github.com/joeycumines/axpilot/internal/axtest"
)

func TestGetApplicationMenus(t *testing.T) {
	s, port := newTestServer(t)

	result := callToolResult(t, s, "get_application_menus",
		`{"bundle_id":"com.example.App"}`)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}
	text := resultText(result)
	if !strings.Contains(text, "File") {
		t.Errorf("missing menu title, got: %s", text)
	}
	if len(port.PerformedActions()) != 0 {
		t.Error("listing menus must not activate anything")
	}
}

func TestGetApplicationMenus_EmptyBundleUsesFocusedApplication(t *testing.T) {
	// The schema promises focused-app defaulting on an empty bundle_id.
	port := axtest.NewPort()
	port.Focused = axtest.N(ax.RoleApplication, nil,
		axtest.N(ax.RoleMenuBar, nil,
			axtest.T(ax.RoleMenuBarItem, "File"),
		),
	)
	s, err := NewMCPServer(testConfig(), Ports{Tree: port})
	if err != nil {
		t.Fatalf("NewMCPServer() error = %v", err)
	}
	t.Cleanup(s.Shutdown)

	result := callToolResult(t, s, "get_application_menus", `{}`)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}
	if !strings.Contains(resultText(result), "File") {
		t.Errorf("missing focused app's menu title, got: %s", resultText(result))
	}
}

func TestGetMenuItems(t *testing.T) {
	s, port := newTestServer(t)

	result := callToolResult(t, s, "get_menu_items",
		`{"bundle_id":"com.example.App","menu_title":"File"}`)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}
	text := resultText(result)
	if !strings.Contains(text, "New") || !strings.Contains(text, "Save") {
		t.Errorf("missing menu items, got: %s", text)
	}
	// The fixture's File menu is pre-populated, so nothing was pressed.
	if len(port.PerformedActions()) != 0 {
		t.Errorf("performed = %v, want none for a cached menu", port.PerformedActions())
	}
}

func TestGetMenuItems_MissingTitle(t *testing.T) {
	s, _ := newTestServer(t)

	result := callToolResult(t, s, "get_menu_items", `{"bundle_id":"com.example.App"}`)
	if !result.IsError {
		t.Error("missing menu_title should be a tool error")
	}
}

func TestGetMenuItems_UnknownMenu(t *testing.T) {
	s, _ := newTestServer(t)

	result := callToolResult(t, s, "get_menu_items",
		`{"bundle_id":"com.example.App","menu_title":"Nonexistent"}`)
	if !result.IsError {
		t.Fatal("unknown menu should be a tool error")
	}
	text := resultText(result)
	if !strings.Contains(text, "MENU_ITEM_NOT_FOUND") {
		t.Errorf("missing structured reason, got: %s", text)
	}
	if !strings.Contains(text, "available: File") {
		t.Errorf("missing available menus, got: %s", text)
	}
}

func TestActivateMenuItem(t *testing.T) {
	s, port := newTestServer(t)

	result := callToolResult(t, s, "activate_menu_item",
		`{"bundle_id":"com.example.App","path":"ui://com.example.App/AXMenuBar/AXMenuBarItem[title=File]/AXMenu/AXMenuItem[title=Save]"}`)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}
	if actions := port.PerformedActions(); len(actions) != 1 {
		t.Errorf("performed = %v, want exactly one press", actions)
	}
}

func TestActivateMenuItem_MissingPath(t *testing.T) {
	s, _ := newTestServer(t)

	result := callToolResult(t, s, "activate_menu_item", `{"bundle_id":"com.example.App"}`)
	if !result.IsError {
		t.Error("missing path should be a tool error")
	}
}
