// Copyright 2025 Joseph Cumines
//
// Menu navigation tool handlers

package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joeycumines/axpilot/internal/ax"
)

func (s *MCPServer) getApplicationMenusTool() *Tool {
	return &Tool{
		Name:        "get_application_menus",
		Description: "List the top-level menu bar items of an application without opening any menus",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bundle_id": map[string]any{
					"type":        "string",
					"description": "Application bundle ID; empty for the focused application",
				},
			},
		},
		Handler: s.handleGetApplicationMenus,
	}
}

func (s *MCPServer) handleGetApplicationMenus(call *ToolCall) (*ToolResult, error) {
	ctx, cancel := s.callCtx()
	defer cancel()

	var params struct {
		BundleID string `json:"bundle_id"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}

	items, err := s.svc.ApplicationMenus(ctx, params.BundleID)
	if err != nil {
		return axErrorResult("get_application_menus", err), nil
	}
	return menuItemsResult(items), nil
}

func (s *MCPServer) getMenuItemsTool() *Tool {
	return &Tool{
		Name:        "get_menu_items",
		Description: "Open an application menu if needed and list its items, restoring menu state afterwards",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bundle_id": map[string]any{
					"type":        "string",
					"description": "Application bundle ID; empty for the focused application",
				},
				"menu_title": map[string]any{
					"type":        "string",
					"description": "Title of the menu bar item to read, e.g. File",
				},
				"include_submenus": map[string]any{
					"type":        "boolean",
					"description": "Recurse into already populated submenus",
				},
			},
			"required": []string{"menu_title"},
		},
		Handler: s.handleGetMenuItems,
	}
}

func (s *MCPServer) handleGetMenuItems(call *ToolCall) (*ToolResult, error) {
	ctx, cancel := s.callCtx()
	defer cancel()

	var params struct {
		BundleID        string `json:"bundle_id"`
		MenuTitle       string `json:"menu_title"`
		IncludeSubmenus bool   `json:"include_submenus"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if params.MenuTitle == "" {
		return errorResult("menu_title parameter is required"), nil
	}

	items, err := s.svc.MenuItems(ctx, params.BundleID, params.MenuTitle, params.IncludeSubmenus)
	if err != nil {
		return axErrorResult("get_menu_items", err), nil
	}
	return menuItemsResult(items), nil
}

func (s *MCPServer) activateMenuItemTool() *Tool {
	return &Tool{
		Name:        "activate_menu_item",
		Description: "Resolve a menu item by element path and press it",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bundle_id": map[string]any{
					"type":        "string",
					"description": "Application bundle ID; empty for the focused application",
				},
				"path": map[string]any{
					"type":        "string",
					"description": "Element path through the menu bar, e.g. ui://app/AXMenuBar/AXMenuBarItem[title=File]/AXMenu/AXMenuItem[title=Save]",
				},
			},
			"required": []string{"path"},
		},
		Handler: s.handleActivateMenuItem,
	}
}

func (s *MCPServer) handleActivateMenuItem(call *ToolCall) (*ToolResult, error) {
	ctx, cancel := s.callCtx()
	defer cancel()

	var params struct {
		BundleID string `json:"bundle_id"`
		Path     string `json:"path"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if params.Path == "" {
		return errorResult("path parameter is required"), nil
	}

	if err := s.svc.ActivateMenuItem(ctx, params.BundleID, params.Path); err != nil {
		return axErrorResult("activate_menu_item", err), nil
	}
	return textResultf("Activated %s", params.Path), nil
}

// menuItemsResult renders menu item descriptors as an indented text listing,
// one item per line, with the structured form appended as JSON.
func menuItemsResult(items []*ax.MenuItemDescriptor) *ToolResult {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d menu items\n", len(items))
	writeMenuItems(&sb, items, 0)
	if data, err := json.MarshalIndent(items, "", "  "); err == nil {
		sb.WriteString("\n")
		sb.Write(data)
	}
	return textResult(sb.String())
}

func writeMenuItems(sb *strings.Builder, items []*ax.MenuItemDescriptor, depth int) {
	for _, it := range items {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(it.Title)
		if it.Shortcut != "" {
			fmt.Fprintf(sb, " (%s)", it.Shortcut)
		}
		if !it.Enabled {
			sb.WriteString(" [disabled]")
		}
		if it.HasSubmenu {
			sb.WriteString(" >")
		}
		sb.WriteString("\n")
		writeMenuItems(sb, it.Children, depth+1)
	}
}
