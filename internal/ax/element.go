// Copyright 2025 Joseph Cumines
//
// Accessibility element model

// Package ax implements the accessibility-tree addressing core: a textual
// path grammar for UI elements, a deterministic resolver for those paths
// against a live tree, a menu navigation state machine, and the typed error
// taxonomy shared by all of them.
//
// The external accessibility tree is host-owned and mutates outside this
// package's control. Everything here treats it as borrowed: snapshots are
// fetched fresh per call, never cached, and handles are valid only until the
// next external mutation.
package ax

// Role is a UI element's type tag as reported by the accessibility tree.
// The well-known values below cover everything the resolver and the menu
// machinery special-case; arbitrary host roles are still representable.
type Role string

const (
	RoleApplication Role = "AXApplication"
	RoleWindow      Role = "AXWindow"
	RoleButton      Role = "AXButton"
	RoleGroup       Role = "AXGroup"
	RoleTextField   Role = "AXTextField"
	RoleCheckBox    Role = "AXCheckBox"
	RoleMenuBar     Role = "AXMenuBar"
	RoleMenuBarItem Role = "AXMenuBarItem"
	RoleMenu        Role = "AXMenu"
	RoleMenuItem    Role = "AXMenuItem"
)

// knownRoles is the closed set the rest of the package may switch over.
var knownRoles = map[Role]bool{
	RoleApplication: true,
	RoleWindow:      true,
	RoleButton:      true,
	RoleGroup:       true,
	RoleTextField:   true,
	RoleCheckBox:    true,
	RoleMenuBar:     true,
	RoleMenuBarItem: true,
	RoleMenu:        true,
	RoleMenuItem:    true,
}

// Known reports whether r is one of the roles this package special-cases.
func (r Role) Known() bool { return knownRoles[r] }

// Well-known attribute names. Attributes are an open name->value mapping;
// these are the ones the core itself reads.
const (
	AttrTitle      = "title"
	AttrIdentifier = "identifier"
	AttrEnabled    = "enabled"
	AttrShortcut   = "shortcut"
)

// Actions performed through the tree access port.
const (
	ActionPress  = "AXPress"
	ActionCancel = "AXCancel"
	ActionRaise  = "AXRaise"
)

// Handle identifies a live node owned by the external tree. It is opaque to
// this package and valid only until the host mutates the tree, which cannot
// be detected in advance; treat every handle as potentially stale
// immediately after use.
type Handle interface {
	// ID returns a port-specific identifier, for logging and diagnostics
	// only. It carries no liveness guarantee.
	ID() string
}

// Element is a read-only snapshot of one tree node at the moment it was
// fetched. Children are in the external tree's native order, which is
// semantically meaningful for index disambiguation. An Element is never
// mutated after construction and must not be retained across calls.
type Element struct {
	Role       Role
	Attributes map[string]string
	Children   []*Element
	Handle     Handle
}

// Attr returns the named attribute value, if present.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attributes[name]
	return v, ok
}

// Title returns the element's title attribute, or "".
func (e *Element) Title() string {
	return e.Attributes[AttrTitle]
}

// Enabled reports whether the element is enabled. Elements that do not carry
// the attribute are considered enabled.
func (e *Element) Enabled() bool {
	v, ok := e.Attributes[AttrEnabled]
	if !ok {
		return true
	}
	return v == "true" || v == "1"
}

// childrenWithRole returns the ordered children of e whose role is r.
func (e *Element) childrenWithRole(r Role) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Role == r {
			out = append(out, c)
		}
	}
	return out
}

// firstChildWithRole returns the first child of e with role r, or nil.
func (e *Element) firstChildWithRole(r Role) *Element {
	for _, c := range e.Children {
		if c.Role == r {
			return c
		}
	}
	return nil
}
