// Copyright 2025 Joseph Cumines
//
// In-memory fake tree access port for tests

// Package axtest provides an in-memory implementation of ax.TreeAccessPort
// backed by a mutable node tree, with scripted action side effects and a
// call journal. It stands in for the host accessibility bridge in unit
// tests the way a mock driver stands in for a device.
package axtest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joeycumines/axpilot/internal/ax"
)

var nodeSeq atomic.Int64

// Node is one mutable tree node. Unlike ax.Element snapshots, nodes persist
// across reads and may be mutated between them to model external tree
// changes.
type Node struct {
	Role     ax.Role
	Attrs    map[string]string
	Children []*Node

	id   string
	gone bool
}

// N builds a node. attrs may be nil.
func N(role ax.Role, attrs map[string]string, children ...*Node) *Node {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &Node{
		Role:     role,
		Attrs:    attrs,
		Children: children,
		id:       fmt.Sprintf("n%d", nodeSeq.Add(1)),
	}
}

// T is shorthand for a node carrying just a title attribute.
func T(role ax.Role, title string, children ...*Node) *Node {
	return N(role, map[string]string{ax.AttrTitle: title}, children...)
}

// ID returns the node's stable fake identifier.
func (n *Node) ID() string { return n.id }

// Remove marks the node stale: subsequent actions through its handles fail
// with NotFound, modeling a node the host dropped from the tree.
func (n *Node) Remove() { n.gone = true }

// Call is one journaled port operation.
type Call struct {
	Op     string // "perform" or "set"
	NodeID string
	Action string // perform only
	Name   string // set only
	Value  string // set only
}

// Port is a fake ax.TreeAccessPort. Configure roots per scope, optionally
// script side effects, then inspect Journal. All methods are safe for
// concurrent use.
type Port struct {
	mu sync.Mutex

	System  *Node
	Apps    map[string]*Node
	Focused *Node
	AtPoint func(x, y float64) *Node

	// RootErr, when set, fails every RootForScope call.
	RootErr error
	// PerformErr fails Perform calls for the given action name.
	PerformErr map[string]error
	// OnPerform runs under the port lock after journaling, before
	// pressOpens side effects. Returning an error fails the call.
	OnPerform func(n *Node, action string) error

	Journal   []Call
	RootReads int

	pressOpens map[*Node][]*Node
}

// NewPort returns an empty fake port.
func NewPort() *Port {
	return &Port{Apps: map[string]*Node{}}
}

// AddApp registers an application root for ApplicationScope(bundleID).
func (p *Port) AddApp(bundleID string, root *Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Apps[bundleID] = root
}

// MenuOpensOnPress scripts the asynchronous menu-open side effect: pressing
// item populates its AXMenu child with items, and canceling empties it
// again. The submenu child is created if item lacks one.
func (p *Port) MenuOpensOnPress(item *Node, items ...*Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pressOpens == nil {
		p.pressOpens = map[*Node][]*Node{}
	}
	p.pressOpens[item] = items
}

// Performed returns the journaled perform actions as "action@nodeID"
// strings, in call order.
func (p *Port) Performed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, c := range p.Journal {
		if c.Op == "perform" {
			out = append(out, c.Action+"@"+c.NodeID)
		}
	}
	return out
}

// PerformedActions returns just the action names, in call order.
func (p *Port) PerformedActions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, c := range p.Journal {
		if c.Op == "perform" {
			out = append(out, c.Action)
		}
	}
	return out
}

type handle struct {
	node *Node
}

func (h handle) ID() string { return h.node.id }

// RootForScope snapshots the configured root for the scope. Each call
// re-snapshots, so mutations to nodes between calls are visible, matching
// the borrowed-tree model.
func (p *Port) RootForScope(ctx context.Context, scope ax.Scope) (*ax.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RootReads++
	if p.RootErr != nil {
		return nil, p.RootErr
	}

	var root *Node
	switch scope.Kind {
	case ax.ScopeSystem:
		root = p.System
	case ax.ScopeApplication:
		root = p.Apps[scope.BundleID]
	case ax.ScopeFocusedApplication:
		root = p.Focused
	case ax.ScopePoint:
		if p.AtPoint != nil {
			root = p.AtPoint(scope.X, scope.Y)
		}
	}
	if root == nil {
		return nil, status.Errorf(codes.NotFound, "no tree for scope %s", scope)
	}
	return snapshot(root), nil
}

// Perform journals and applies the action on the live node.
func (p *Port) Perform(ctx context.Context, h ax.Handle, action string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fh, ok := h.(handle)
	if !ok {
		return status.Error(codes.InvalidArgument, "foreign handle")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if fh.node.gone {
		return status.Errorf(codes.NotFound, "node %s no longer exists", fh.node.id)
	}
	p.Journal = append(p.Journal, Call{Op: "perform", NodeID: fh.node.id, Action: action})
	if err := p.PerformErr[action]; err != nil {
		return err
	}
	if p.OnPerform != nil {
		if err := p.OnPerform(fh.node, action); err != nil {
			return err
		}
	}
	p.applyPressOpens(fh.node, action)
	return nil
}

// SetAttribute journals and applies an attribute write on the live node.
func (p *Port) SetAttribute(ctx context.Context, h ax.Handle, name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fh, ok := h.(handle)
	if !ok {
		return status.Error(codes.InvalidArgument, "foreign handle")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if fh.node.gone {
		return status.Errorf(codes.NotFound, "node %s no longer exists", fh.node.id)
	}
	p.Journal = append(p.Journal, Call{Op: "set", NodeID: fh.node.id, Name: name, Value: value})
	fh.node.Attrs[name] = value
	return nil
}

func (p *Port) applyPressOpens(n *Node, action string) {
	items, scripted := p.pressOpens[n]
	if !scripted {
		return
	}
	var sub *Node
	for _, c := range n.Children {
		if c.Role == ax.RoleMenu {
			sub = c
			break
		}
	}
	switch action {
	case ax.ActionPress:
		if sub == nil {
			sub = N(ax.RoleMenu, nil)
			n.Children = append(n.Children, sub)
		}
		sub.Children = items
	case ax.ActionCancel:
		if sub != nil {
			sub.Children = nil
		}
	}
}

// snapshot deep-copies the node tree into immutable ax.Elements with live
// handles.
func snapshot(n *Node) *ax.Element {
	attrs := make(map[string]string, len(n.Attrs))
	for k, v := range n.Attrs {
		attrs[k] = v
	}
	el := &ax.Element{
		Role:       n.Role,
		Attributes: attrs,
		Handle:     handle{node: n},
	}
	for _, c := range n.Children {
		el.Children = append(el.Children, snapshot(c))
	}
	return el
}
