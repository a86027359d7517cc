// Copyright 2025 Joseph Cumines
//
// Typed error taxonomy and host error translation

package ax

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain is the domain reported in ErrorInfo details attached to
// statuses produced by StatusOf.
const ErrorDomain = "axpilot.joeycumines.dev"

// MalformedPathError reports a syntactically invalid path text. Offset is a
// byte offset into Text; Detail is the specific violation ("empty role",
// "unterminated quote", ...). Distinct from resolution failures so callers
// can tell bad syntax from not-found.
type MalformedPathError struct {
	Text   string
	Offset int
	Detail string
}

func (e *MalformedPathError) Error() string {
	return fmt.Sprintf("malformed path %q at offset %d: %s", e.Text, e.Offset, e.Detail)
}

// ScopeUnavailableError reports that the resolution scope could not be
// materialized, e.g. the application is not running.
type ScopeUnavailableError struct {
	Scope Scope
	Cause error
}

func (e *ScopeUnavailableError) Error() string {
	return fmt.Sprintf("scope %s unavailable: %v", e.Scope, e.Cause)
}

func (e *ScopeUnavailableError) Unwrap() error { return e.Cause }

// SegmentNotFoundError reports that a path segment matched no child.
// Segment is the zero-based index of the failing segment; Present lists the
// roles of the siblings that were actually there, for diagnosability.
type SegmentNotFoundError struct {
	Segment int
	Role    Role
	Present []Role
}

func (e *SegmentNotFoundError) Error() string {
	if len(e.Present) == 0 {
		return fmt.Sprintf("segment %d: no %s child (node has no children)", e.Segment, e.Role)
	}
	roles := make([]string, len(e.Present))
	for i, r := range e.Present {
		roles[i] = string(r)
	}
	return fmt.Sprintf("segment %d: no matching %s child; present roles: %s",
		e.Segment, e.Role, strings.Join(roles, ", "))
}

// SegmentAmbiguousError reports that a segment without an index matched more
// than one sibling.
type SegmentAmbiguousError struct {
	Segment int
	Role    Role
	Matches int
}

func (e *SegmentAmbiguousError) Error() string {
	return fmt.Sprintf("segment %d: %s matched %d siblings; add predicates or a #index",
		e.Segment, e.Role, e.Matches)
}

// StaleReferenceError reports that a previously valid node handle no longer
// refers to a live node. The external tree mutated; the caller must
// re-resolve.
type StaleReferenceError struct {
	Cause error
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("stale element reference: %v", e.Cause)
}

func (e *StaleReferenceError) Unwrap() error { return e.Cause }

// MenuBarNotFoundError reports that the application root has no menu bar.
type MenuBarNotFoundError struct {
	BundleID string
}

func (e *MenuBarNotFoundError) Error() string {
	return fmt.Sprintf("application %s has no menu bar", e.BundleID)
}

// MenuItemNotFoundError reports that a top-level menu with the requested
// title does not exist. Available lists the titles that do.
type MenuItemNotFoundError struct {
	Title     string
	Available []string
}

func (e *MenuItemNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("menu %q not found (menu bar is empty)", e.Title)
	}
	return fmt.Sprintf("menu %q not found; available menus: %s",
		e.Title, strings.Join(e.Available, ", "))
}

// MenuItemsNotFoundError reports that a menu's submenu was still empty after
// activation and the settle wait.
type MenuItemsNotFoundError struct {
	Title string
}

func (e *MenuItemsNotFoundError) Error() string {
	return fmt.Sprintf("menu %q opened but contains no items", e.Title)
}

// ActionFailedError reports a host-side failure performing an accessibility
// action. Code is the host's gRPC status code.
type ActionFailedError struct {
	Action string
	Code   codes.Code
	Cause  error
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("action %s failed (%s): %v", e.Action, e.Code, e.Cause)
}

func (e *ActionFailedError) Unwrap() error { return e.Cause }

// PermissionDeniedError reports that the host refused access to the
// accessibility tree.
type PermissionDeniedError struct {
	Cause error
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("accessibility permission denied: %v", e.Cause)
}

func (e *PermissionDeniedError) Unwrap() error { return e.Cause }

// TimeoutError reports that a bounded host call exceeded its deadline.
type TimeoutError struct {
	Op    string
	Cause error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Cause)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// translateHostError maps a host (tree access port) error onto the shared
// taxonomy. op names the failing operation for timeout reporting. Errors
// already in the taxonomy pass through unchanged.
func translateHostError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTaxonomy(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Cause: err}
	}
	switch status.Code(err) {
	case codes.PermissionDenied:
		return &PermissionDeniedError{Cause: err}
	case codes.DeadlineExceeded:
		return &TimeoutError{Op: op, Cause: err}
	case codes.FailedPrecondition:
		return &StaleReferenceError{Cause: err}
	}
	return err
}

// translateScopeError maps a host error from root acquisition. A NotFound
// from the host means the scope itself could not be materialized.
func translateScopeError(scope Scope, err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return &ScopeUnavailableError{Scope: scope, Cause: err}
	}
	return translateHostError("root snapshot for "+scope.String(), err)
}

// translateActionError maps a host error from Perform/SetAttribute. NotFound
// or FailedPrecondition on a handle means the node vanished between
// resolution and action; everything else host-side is ActionFailed.
func translateActionError(action string, err error) error {
	if err == nil {
		return nil
	}
	if isTaxonomy(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: "action " + action, Cause: err}
	}
	switch c := status.Code(err); c {
	case codes.PermissionDenied:
		return &PermissionDeniedError{Cause: err}
	case codes.DeadlineExceeded:
		return &TimeoutError{Op: "action " + action, Cause: err}
	case codes.NotFound, codes.FailedPrecondition:
		return &StaleReferenceError{Cause: err}
	default:
		return &ActionFailedError{Action: action, Code: c, Cause: err}
	}
}

func isTaxonomy(err error) bool {
	switch err.(type) {
	case *MalformedPathError, *ScopeUnavailableError, *SegmentNotFoundError,
		*SegmentAmbiguousError, *StaleReferenceError, *MenuBarNotFoundError,
		*MenuItemNotFoundError, *MenuItemsNotFoundError, *ActionFailedError,
		*PermissionDeniedError, *TimeoutError:
		return true
	}
	return false
}

// StatusOf converts a taxonomy error into a gRPC status carrying an
// ErrorInfo detail with a stable reason and diagnostic metadata, suitable
// for surfacing across a wire boundary. Non-taxonomy errors map to Unknown.
func StatusOf(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}

	var (
		code     codes.Code
		reason   string
		metadata map[string]string
	)

	switch e := err.(type) {
	case *MalformedPathError:
		code, reason = codes.InvalidArgument, "MALFORMED_PATH"
		metadata = map[string]string{
			"path":   e.Text,
			"offset": strconv.Itoa(e.Offset),
			"detail": e.Detail,
		}
	case *ScopeUnavailableError:
		code, reason = codes.NotFound, "SCOPE_UNAVAILABLE"
		metadata = map[string]string{"scope": e.Scope.String()}
	case *SegmentNotFoundError:
		code, reason = codes.NotFound, "SEGMENT_NOT_FOUND"
		roles := make([]string, len(e.Present))
		for i, r := range e.Present {
			roles[i] = string(r)
		}
		metadata = map[string]string{
			"segment":       strconv.Itoa(e.Segment),
			"role":          string(e.Role),
			"present_roles": strings.Join(roles, ","),
		}
	case *SegmentAmbiguousError:
		code, reason = codes.FailedPrecondition, "SEGMENT_AMBIGUOUS"
		metadata = map[string]string{
			"segment": strconv.Itoa(e.Segment),
			"role":    string(e.Role),
			"matches": strconv.Itoa(e.Matches),
		}
	case *StaleReferenceError:
		code, reason = codes.FailedPrecondition, "STALE_REFERENCE"
	case *MenuBarNotFoundError:
		code, reason = codes.NotFound, "MENU_BAR_NOT_FOUND"
		metadata = map[string]string{"bundle_id": e.BundleID}
	case *MenuItemNotFoundError:
		code, reason = codes.NotFound, "MENU_ITEM_NOT_FOUND"
		metadata = map[string]string{
			"title":     e.Title,
			"available": strings.Join(e.Available, ","),
		}
	case *MenuItemsNotFoundError:
		code, reason = codes.NotFound, "MENU_ITEMS_NOT_FOUND"
		metadata = map[string]string{"title": e.Title}
	case *ActionFailedError:
		code, reason = codes.Internal, "ACTION_FAILED"
		metadata = map[string]string{
			"action":    e.Action,
			"host_code": e.Code.String(),
		}
	case *PermissionDeniedError:
		code, reason = codes.PermissionDenied, "PERMISSION_DENIED"
	case *TimeoutError:
		code, reason = codes.DeadlineExceeded, "TIMEOUT"
		metadata = map[string]string{"op": e.Op}
	default:
		return status.New(codes.Unknown, err.Error())
	}

	st := status.New(code, err.Error())
	detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   ErrorDomain,
		Metadata: metadata,
	})
	if derr != nil {
		return st
	}
	return detailed
}
