// Copyright 2025 Joseph Cumines
//
// Path resolver: walks the tree access port one segment at a time

package ax

import (
	"context"
)

// Resolver resolves element paths against the live tree. Every call
// re-fetches the root snapshot for its scope; nothing is cached between
// calls, so resolving the same path twice against an unchanged tree yields
// the same node, and resolving it against a changed tree may legitimately
// fail with SegmentNotFound or SegmentAmbiguous.
//
// Resolver itself is stateless; serialization of port access is the
// Service's job.
type Resolver struct {
	port TreeAccessPort
}

// NewResolver returns a resolver reading through port.
func NewResolver(port TreeAccessPort) *Resolver {
	return &Resolver{port: port}
}

// Resolve walks path from the root snapshot of scope and returns the
// resolved node's snapshot, whose Handle refers to the live node. Failures
// are ScopeUnavailableError, SegmentNotFoundError, SegmentAmbiguousError, or
// a translated host error.
func (r *Resolver) Resolve(ctx context.Context, path ElementPath, scope Scope) (*Element, error) {
	root, err := r.port.RootForScope(ctx, scope)
	if err != nil {
		return nil, translateScopeError(scope, err)
	}
	return resolveFrom(root, path)
}

// resolveFrom applies the path's segments to an already fetched snapshot.
func resolveFrom(root *Element, path ElementPath) (*Element, error) {
	node := root
	for i, seg := range path.Segments {
		matches := filterChildren(node, seg)

		switch {
		case len(matches) == 0:
			return nil, &SegmentNotFoundError{Segment: i, Role: seg.Role, Present: presentRoles(node)}
		case len(matches) == 1 && !seg.HasIndex():
			node = matches[0]
		case seg.HasIndex():
			// The index selects within the filtered, order-preserving
			// match list, never the raw children.
			if seg.Index >= len(matches) {
				return nil, &SegmentNotFoundError{Segment: i, Role: seg.Role, Present: presentRoles(node)}
			}
			node = matches[seg.Index]
		default:
			return nil, &SegmentAmbiguousError{Segment: i, Role: seg.Role, Matches: len(matches)}
		}
	}
	return node, nil
}

// filterChildren returns node's children matching the segment's role and all
// of its predicates, preserving the tree's native order.
func filterChildren(node *Element, seg Segment) []*Element {
	var matches []*Element
	for _, child := range node.Children {
		if child.Role != seg.Role {
			continue
		}
		if !predicatesHold(child, seg.Predicates) {
			continue
		}
		matches = append(matches, child)
	}
	return matches
}

func predicatesHold(el *Element, preds []Predicate) bool {
	for _, pr := range preds {
		v, ok := el.Attr(pr.Name)
		if !ok || v != pr.Value {
			return false
		}
	}
	return true
}

// presentRoles returns the distinct roles of node's children in first-seen
// order, for not-found diagnostics.
func presentRoles(node *Element) []Role {
	seen := make(map[Role]bool, len(node.Children))
	var roles []Role
	for _, c := range node.Children {
		if !seen[c.Role] {
			seen[c.Role] = true
			roles = append(roles, c.Role)
		}
	}
	return roles
}
