// Copyright 2025 Joseph Cumines
//
// Menu descriptors and the menu navigation state machine

package ax

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSettleInterval is the wait between pressing a menu bar item and
// re-reading its submenu. The host emits no "menu finished opening" event,
// so the open state can only be approximated by a bounded wait.
const DefaultSettleInterval = 150 * time.Millisecond

// dismissGrace bounds the best-effort dismiss performed during cleanup,
// including after caller cancellation.
const dismissGrace = 2 * time.Second

// MenuItemDescriptor is an immutable, serializable summary of one menu
// item. Path re-locates this exact item via the resolver; it carries no
// liveness guarantee.
type MenuItemDescriptor struct {
	Title      string                `json:"title"`
	HasSubmenu bool                  `json:"has_submenu"`
	Enabled    bool                  `json:"enabled"`
	Shortcut   string                `json:"shortcut,omitempty"`
	Path       string                `json:"path"`
	Children   []*MenuItemDescriptor `json:"children,omitempty"`
}

// Describe converts a snapshot node into a menu item descriptor. It returns
// nil for roles that are not menu items. path must already address node.
//
// When includeSubmenu is set and the submenu's children are present in the
// snapshot, they are described recursively. Describe never activates
// anything; expanding a submenu the host has not populated is the
// navigator's job, not the builder's.
func Describe(node *Element, path ElementPath, includeSubmenu bool) *MenuItemDescriptor {
	if node.Role != RoleMenuItem && node.Role != RoleMenuBarItem {
		return nil
	}
	d := &MenuItemDescriptor{
		Title:   node.Title(),
		Enabled: node.Enabled(),
		Path:    path.String(),
	}
	d.Shortcut, _ = node.Attr(AttrShortcut)
	sub := node.firstChildWithRole(RoleMenu)
	d.HasSubmenu = sub != nil
	if includeSubmenu && sub != nil && len(sub.Children) > 0 {
		d.Children = describeChildren(sub, path.Child(menuSegment()), includeSubmenu)
	}
	return d
}

// describeChildren describes the menu-item children of menu in document
// order. Items whose title collides with a sibling's get an explicit #index
// so their paths stay unambiguous under the resolver's tie rules.
func describeChildren(menu *Element, menuPath ElementPath, includeSubmenu bool) []*MenuItemDescriptor {
	if menu == nil {
		return nil
	}
	titleCount := make(map[string]int)
	for _, c := range menu.Children {
		if c.Role == RoleMenuItem {
			titleCount[c.Title()]++
		}
	}
	ordinal := make(map[string]int)
	var out []*MenuItemDescriptor
	for _, c := range menu.Children {
		if c.Role != RoleMenuItem {
			continue
		}
		seg := itemSegment(RoleMenuItem, c.Title())
		if titleCount[c.Title()] > 1 {
			seg.Index = ordinal[c.Title()]
		}
		ordinal[c.Title()]++
		if d := Describe(c, menuPath.Child(seg), includeSubmenu); d != nil {
			out = append(out, d)
		}
	}
	return out
}

// menuScope maps a bundle ID to a resolution scope. An empty bundle ID
// selects the focused application, matching the tool surface's defaulting.
func menuScope(bundleID string) Scope {
	if bundleID == "" {
		return FocusedApplicationScope()
	}
	return ApplicationScope(bundleID)
}

// menuAuthority is the authority text for descriptor paths. The authority
// is carried verbatim and never interpreted during resolution, but Parse
// rejects an empty one, so the focused application gets a placeholder.
func menuAuthority(bundleID string) string {
	if bundleID == "" {
		return "app"
	}
	return bundleID
}

func menuSegment() Segment {
	return Segment{Role: RoleMenu, Index: NoIndex}
}

func itemSegment(role Role, title string) Segment {
	return Segment{
		Role:       role,
		Predicates: []Predicate{{Name: AttrTitle, Value: title}},
		Index:      NoIndex,
	}
}

// navState is the menu navigation state machine's state. It exists only for
// the duration of one MenuItems call.
type navState int

const (
	navIdle navState = iota
	navCheckingCached
	navActivating
	navWaitingForOpen
	navReadingItems
	navDismissing
	navDone
	navFailed
)

func (s navState) String() string {
	switch s {
	case navIdle:
		return "Idle"
	case navCheckingCached:
		return "CheckingCached"
	case navActivating:
		return "Activating"
	case navWaitingForOpen:
		return "WaitingForOpen"
	case navReadingItems:
		return "ReadingItems"
	case navDismissing:
		return "Dismissing"
	case navDone:
		return "Done"
	case navFailed:
		return "Failed"
	}
	return "Unknown"
}

// MenuNavigator drives the open/read/dismiss cycle against application
// menus. A navigator is stateless between calls; all navigation state is
// local to one invocation.
type MenuNavigator struct {
	port     TreeAccessPort
	dispatch *Dispatcher
	settle   time.Duration
	logger   *slog.Logger
}

// NewMenuNavigator returns a navigator reading and acting through port.
// settle <= 0 selects DefaultSettleInterval; logger may be nil.
func NewMenuNavigator(port TreeAccessPort, settle time.Duration, logger *slog.Logger) *MenuNavigator {
	if settle <= 0 {
		settle = DefaultSettleInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MenuNavigator{
		port:     port,
		dispatch: NewDispatcher(port),
		settle:   settle,
		logger:   logger,
	}
}

// ApplicationMenus returns descriptors for the application's top-level menu
// bar items. It never activates anything.
func (n *MenuNavigator) ApplicationMenus(ctx context.Context, bundleID string) ([]*MenuItemDescriptor, error) {
	scope := menuScope(bundleID)
	root, err := n.port.RootForScope(ctx, scope)
	if err != nil {
		return nil, translateScopeError(scope, err)
	}
	bar := root.firstChildWithRole(RoleMenuBar)
	if bar == nil {
		return nil, &MenuBarNotFoundError{BundleID: bundleID}
	}
	barPath := ElementPath{
		Authority: menuAuthority(bundleID),
		Segments:  []Segment{{Role: RoleMenuBar, Index: NoIndex}},
	}
	var out []*MenuItemDescriptor
	for _, item := range bar.childrenWithRole(RoleMenuBarItem) {
		seg := itemSegment(RoleMenuBarItem, item.Title())
		if d := Describe(item, barPath.Child(seg), false); d != nil {
			out = append(out, d)
		}
	}
	return out, nil
}

// MenuItems returns the items currently contained in the named top-level
// menu, opening the menu only if its submenu is not already populated and
// always leaving it closed afterward. Dismissal is best-effort cleanup: its
// failure is logged, never surfaced, and already-read items are still
// returned.
func (n *MenuNavigator) MenuItems(ctx context.Context, bundleID, menuTitle string, includeSubmenus bool) ([]*MenuItemDescriptor, error) {
	scope := menuScope(bundleID)
	itemPath := ElementPath{
		Authority: menuAuthority(bundleID),
		Segments: []Segment{
			{Role: RoleMenuBar, Index: NoIndex},
			itemSegment(RoleMenuBarItem, menuTitle),
		},
	}

	var (
		st        = navIdle
		item      *Element
		submenu   *Element
		activated bool
		failure   error
		items     []*MenuItemDescriptor
	)

	for {
		switch st {
		case navIdle:
			st = navCheckingCached

		case navCheckingCached:
			root, err := n.port.RootForScope(ctx, scope)
			if err != nil {
				failure = translateScopeError(scope, err)
				st = navFailed
				continue
			}
			bar := root.firstChildWithRole(RoleMenuBar)
			if bar == nil {
				failure = &MenuBarNotFoundError{BundleID: bundleID}
				st = navFailed
				continue
			}
			item = menuBarItemByTitle(bar, menuTitle)
			if item == nil {
				failure = &MenuItemNotFoundError{Title: menuTitle, Available: menuBarTitles(bar)}
				st = navFailed
				continue
			}
			submenu = item.firstChildWithRole(RoleMenu)
			if submenu != nil && len(submenu.Children) > 0 {
				// Some hosts pre-populate closed menus; reading the
				// cached children avoids a visible open/close flicker.
				st = navReadingItems
			} else {
				st = navActivating
			}

		case navActivating:
			if err := n.dispatch.Perform(ctx, item, ActionPress); err != nil {
				failure = err
				st = navFailed
				continue
			}
			activated = true
			st = navWaitingForOpen

		case navWaitingForOpen:
			timer := time.NewTimer(n.settle)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				failure = ctx.Err()
				st = navFailed
				continue
			}
			// Activation may have replaced node identities wholesale;
			// re-locate the menu bar and the item from a fresh root.
			root, err := n.port.RootForScope(ctx, scope)
			if err != nil {
				failure = translateScopeError(scope, err)
				st = navFailed
				continue
			}
			bar := root.firstChildWithRole(RoleMenuBar)
			if bar == nil {
				failure = &MenuBarNotFoundError{BundleID: bundleID}
				st = navFailed
				continue
			}
			relocated := menuBarItemByTitle(bar, menuTitle)
			if relocated == nil {
				failure = &MenuItemNotFoundError{Title: menuTitle, Available: menuBarTitles(bar)}
				st = navFailed
				continue
			}
			item = relocated
			submenu = item.firstChildWithRole(RoleMenu)
			st = navReadingItems

		case navReadingItems:
			if submenu == nil || len(submenu.Children) == 0 {
				failure = &MenuItemsNotFoundError{Title: menuTitle}
				st = navFailed
				continue
			}
			items = describeChildren(submenu, itemPath.Child(menuSegment()), includeSubmenus)
			st = navDismissing

		case navDismissing:
			if activated {
				n.dismiss(ctx, item, menuTitle)
			}
			st = navDone

		case navDone:
			return items, nil

		case navFailed:
			if activated {
				n.dismiss(ctx, item, menuTitle)
			}
			return nil, failure
		}
	}
}

// dismiss closes a menu that this navigator opened. It runs even when the
// caller's context is already canceled, bounded by dismissGrace, so an
// aborted read does not leave a menu open on screen.
func (n *MenuNavigator) dismiss(ctx context.Context, item *Element, menuTitle string) {
	if item == nil {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dismissGrace)
	defer cancel()
	if err := n.dispatch.Perform(cleanupCtx, item, ActionCancel); err != nil {
		n.logger.Warn("menu dismiss failed",
			"menu", menuTitle,
			"error", err)
	}
}

func menuBarItemByTitle(bar *Element, title string) *Element {
	for _, item := range bar.childrenWithRole(RoleMenuBarItem) {
		if item.Title() == title {
			return item
		}
	}
	return nil
}

func menuBarTitles(bar *Element) []string {
	items := bar.childrenWithRole(RoleMenuBarItem)
	titles := make([]string, 0, len(items))
	for _, item := range items {
		titles = append(titles, item.Title())
	}
	return titles
}
