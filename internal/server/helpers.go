// Copyright 2025 Joseph Cumines
//
// Helper functions for tool handlers

package server

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"

	"github.com/joeycumines/axpilot/internal/ax"
)

// errUnknownTool marks a tools/call naming an unregistered tool.
var errUnknownTool = errors.New("tool not found")

// maxDisplayTextLen is the maximum length for text shown in result summaries.
const maxDisplayTextLen = 50

// truncateText truncates text to maxDisplayTextLen characters with "..."
// suffix if needed.
func truncateText(s string) string {
	if len(s) > maxDisplayTextLen {
		return s[:maxDisplayTextLen] + "..."
	}
	return s
}

// errorResult creates a ToolResult with IsError=true and the given message.
func errorResult(msg string) *ToolResult {
	return &ToolResult{
		IsError: true,
		Content: []Content{{Type: "text", Text: msg}},
	}
}

// errorResultf is the sprintf version of errorResult.
func errorResultf(format string, args ...any) *ToolResult {
	return errorResult(fmt.Sprintf(format, args...))
}

// textResult creates a ToolResult with a single text content.
func textResult(text string) *ToolResult {
	return &ToolResult{
		Content: []Content{{Type: "text", Text: text}},
	}
}

// textResultf is the sprintf version of textResult.
func textResultf(format string, args ...any) *ToolResult {
	return textResult(fmt.Sprintf(format, args...))
}

// axErrorResult formats an accessibility-core error for a tool response,
// surfacing the structured reason and metadata from its status details and
// an actionable suggestion for common failure classes.
func axErrorResult(toolName string, err error) *ToolResult {
	st := ax.StatusOf(err)

	var info *errdetails.ErrorInfo
	for _, d := range st.Details() {
		if ei, ok := d.(*errdetails.ErrorInfo); ok {
			info = ei
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Error in %s: %s", toolName, st.Message())
	if info != nil {
		fmt.Fprintf(&b, "\nReason: %s", info.Reason)
		for _, key := range []string{"segment", "role", "matches", "present_roles", "available", "detail", "offset"} {
			if v, ok := info.Metadata[key]; ok && v != "" {
				fmt.Fprintf(&b, "\n  %s: %s", key, v)
			}
		}
	}
	if suggestion := suggestionFor(st.Code(), info); suggestion != "" {
		fmt.Fprintf(&b, "\nSuggestion: %s", suggestion)
	}
	return errorResult(b.String())
}

// suggestionFor picks an actionable hint for common failure classes.
func suggestionFor(code codes.Code, info *errdetails.ErrorInfo) string {
	if info != nil {
		switch info.Reason {
		case "MALFORMED_PATH":
			return "Check the path syntax: ui://authority/Role[name=value]#index"
		case "SEGMENT_AMBIGUOUS":
			return "Add predicates or a #index to disambiguate between the matched siblings"
		case "SEGMENT_NOT_FOUND", "STALE_REFERENCE":
			return "The UI may have changed; re-list elements and resolve a fresh path"
		}
	}
	switch code {
	case codes.PermissionDenied:
		return "Ensure accessibility permissions are granted in System Settings > Privacy & Security > Accessibility"
	case codes.NotFound:
		return "Verify the application is running and the identifier is correct"
	case codes.DeadlineExceeded:
		return "The host did not respond in time; retry or raise the request timeout"
	}
	return ""
}

// elementSummary renders a resolved element for a text result.
func elementSummary(el *ax.Element) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Role: %s", el.Role)
	if title := el.Title(); title != "" {
		fmt.Fprintf(&b, "\nTitle: %s", truncateText(title))
	}
	if id, ok := el.Attr(ax.AttrIdentifier); ok {
		fmt.Fprintf(&b, "\nIdentifier: %s", id)
	}
	fmt.Fprintf(&b, "\nEnabled: %v\nChildren: %d", el.Enabled(), len(el.Children))
	return b.String()
}

// scopeFromParams builds the resolution scope for handlers taking an
// optional bundle_id: empty means the focused application, "system" the
// system-wide root.
func scopeFromParams(bundleID string) ax.Scope {
	switch bundleID {
	case "":
		return ax.FocusedApplicationScope()
	case "system":
		return ax.SystemScope()
	default:
		return ax.ApplicationScope(bundleID)
	}
}
