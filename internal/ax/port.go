// Copyright 2025 Joseph Cumines
//
// Tree access port: the injected capability boundary to the host tree

package ax

import (
	"context"
	"fmt"
)

// ScopeKind discriminates the starting point of a path resolution.
type ScopeKind int

const (
	// ScopeSystem starts at the system-wide accessibility root.
	ScopeSystem ScopeKind = iota
	// ScopeApplication starts at a named application's root.
	ScopeApplication
	// ScopeFocusedApplication starts at the currently focused application.
	ScopeFocusedApplication
	// ScopePoint starts at the element under a screen coordinate.
	ScopePoint
)

// Scope selects the root snapshot a resolution begins from.
type Scope struct {
	Kind     ScopeKind
	BundleID string  // ScopeApplication only
	X, Y     float64 // ScopePoint only
}

// SystemScope returns the system-wide scope.
func SystemScope() Scope { return Scope{Kind: ScopeSystem} }

// ApplicationScope returns a scope rooted at the application identified by
// bundleID.
func ApplicationScope(bundleID string) Scope {
	return Scope{Kind: ScopeApplication, BundleID: bundleID}
}

// FocusedApplicationScope returns a scope rooted at the frontmost
// application at resolution time.
func FocusedApplicationScope() Scope { return Scope{Kind: ScopeFocusedApplication} }

// PointScope returns a scope rooted at the element under the given screen
// coordinate.
func PointScope(x, y float64) Scope { return Scope{Kind: ScopePoint, X: x, Y: y} }

func (s Scope) String() string {
	switch s.Kind {
	case ScopeSystem:
		return "system"
	case ScopeApplication:
		return fmt.Sprintf("application(%s)", s.BundleID)
	case ScopeFocusedApplication:
		return "focusedApplication"
	case ScopePoint:
		return fmt.Sprintf("point(%.0f,%.0f)", s.X, s.Y)
	}
	return fmt.Sprintf("scope(%d)", int(s.Kind))
}

// TreeAccessPort is the capability through which all reads of and writes to
// the external accessibility tree happen. Implementations own the host
// connection; this package only borrows it.
//
// RootForScope returns a fresh snapshot of the subtree rooted at the scope.
// The snapshot is immutable and must be re-fetched for every resolution;
// callers never see a cached tree. Host failures are reported as gRPC status
// errors (codes.NotFound for a scope that cannot be materialized,
// codes.PermissionDenied, codes.DeadlineExceeded, ...), which the callers in
// this package translate into the typed taxonomy.
//
// Perform executes a named accessibility action on the live node behind the
// handle. SetAttribute writes an attribute on it. Both act on the live node,
// not the snapshot, and fail if the handle has gone stale.
type TreeAccessPort interface {
	RootForScope(ctx context.Context, scope Scope) (*Element, error)
	Perform(ctx context.Context, handle Handle, action string) error
	SetAttribute(ctx context.Context, handle Handle, name, value string) error
}
