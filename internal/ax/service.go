// Copyright 2025 Joseph Cumines
//
// Service facade: serialized access to the tree access port

package ax

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Service is the single serialization point for the tree access port. A
// resolution's multi-step read must never interleave with another caller's
// mutation through the same port, since the host guarantees no consistency
// across interleaved reads and writes. Every exposed operation holds
// the service mutex end to end. Concurrent callers queue; they are never
// parallelized against the live tree.
type Service struct {
	mu        sync.Mutex
	port      TreeAccessPort
	resolver  *Resolver
	dispatch  *Dispatcher
	navigator *MenuNavigator
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// SettleInterval overrides the menu settle wait; zero keeps the
	// default. Test environments shorten this.
	SettleInterval time.Duration
	// Logger receives cleanup diagnostics; nil selects slog.Default.
	Logger *slog.Logger
}

// NewService returns a service owning serialized access to port.
func NewService(port TreeAccessPort, opts ServiceOptions) *Service {
	return &Service{
		port:      port,
		resolver:  NewResolver(port),
		dispatch:  NewDispatcher(port),
		navigator: NewMenuNavigator(port, opts.SettleInterval, opts.Logger),
	}
}

// Resolve parses pathText and resolves it against scope, returning the
// resolved node's snapshot. The result is valid only until the next
// external-tree mutation; callers must not cache it across calls.
func (s *Service) Resolve(ctx context.Context, pathText string, scope Scope) (*Element, error) {
	path, err := Parse(pathText)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Resolve(ctx, path, scope)
}

// PerformAction resolves pathText against scope and performs the named
// accessibility action on the resolved node.
func (s *Service) PerformAction(ctx context.Context, action, pathText string, scope Scope) error {
	path, err := Parse(pathText)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	el, err := s.resolver.Resolve(ctx, path, scope)
	if err != nil {
		return err
	}
	return s.dispatch.Perform(ctx, el, action)
}

// SetValue resolves pathText against scope and writes an attribute on the
// resolved node.
func (s *Service) SetValue(ctx context.Context, pathText string, scope Scope, name, value string) error {
	path, err := Parse(pathText)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	el, err := s.resolver.Resolve(ctx, path, scope)
	if err != nil {
		return err
	}
	return s.dispatch.SetAttribute(ctx, el, name, value)
}

// ApplicationMenus lists the application's top-level menus without
// activating anything.
func (s *Service) ApplicationMenus(ctx context.Context, bundleID string) ([]*MenuItemDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.navigator.ApplicationMenus(ctx, bundleID)
}

// MenuItems lists the items of the named top-level menu, opening and
// closing it as needed.
func (s *Service) MenuItems(ctx context.Context, bundleID, menuTitle string, includeSubmenus bool) ([]*MenuItemDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.navigator.MenuItems(ctx, bundleID, menuTitle, includeSubmenus)
}

// ActivateMenuItem resolves the full path to a leaf menu item and presses
// it. Pressing a nested item opens the intermediate menus and executes the
// item as one host-level action, so no open/read/dismiss cycle is needed
// and none is performed.
func (s *Service) ActivateMenuItem(ctx context.Context, bundleID, pathText string) error {
	path, err := Parse(pathText)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	el, err := s.resolver.Resolve(ctx, path, menuScope(bundleID))
	if err != nil {
		return err
	}
	return s.dispatch.Perform(ctx, el, ActionPress)
}
