// Package listctl implements the entity list controller shared by every
// CRM collection: a filtered, multi-selectable view over one collection
// plus single and bulk mutations with a consistent post-mutation
// refresh. The remote store is always the source of truth; the local
// item slice is a best-effort cache rebuilt by Load.
package listctl

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"

	"go.uber.org/zap"
)

// SearchKey is the filter key for free-text search. Its predicate is a
// case-insensitive substring match ORed across the controller's text
// fields; every other key matches by exact equality.
const SearchKey = "search"

// Item is anything with a stable id.
type Item interface {
	ItemID() string
}

// Backend is the remote store surface a controller mutates through.
type Backend[T Item] interface {
	List(ctx context.Context) ([]T, error)
	Insert(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id string, patch map[string]any) error
	Delete(ctx context.Context, id string) error
	UpdateWhere(ctx context.Context, ids []string, patch map[string]any) error
	DeleteWhere(ctx context.Context, ids []string) error
}

// ConfirmFunc is the interactive confirm gate for destructive
// operations. Returning false aborts with no side effect.
type ConfirmFunc func(prompt string) bool

// MatcherFunc decides whether an item matches one categorical filter value.
type MatcherFunc[T Item] func(item T, value string) bool

// Options configures a controller for one collection.
type Options[T Item] struct {
	// Name is the user-facing singular noun, e.g. "contacto".
	Name string

	Caps domain.Capabilities

	// Confirm gates Remove and BulkRemove. Nil auto-confirms, which is
	// what headless callers (HTTP handlers that confirmed client-side)
	// want.
	Confirm ConfirmFunc

	// TextFields returns the values searched by the SearchKey filter.
	TextFields func(item T) []string

	// Matchers maps categorical filter keys to their predicates.
	Matchers map[string]MatcherFunc[T]

	// Validate runs client-side before Insert. Nil skips validation.
	Validate func(item T) error

	// Apply merges a patch into an in-memory item. Required only for
	// UpdateOptimistic.
	Apply func(item T, patch map[string]any) T

	Logger *zap.Logger
}

// Controller owns the in-memory collection between fetches.
type Controller[T Item] struct {
	backend Backend[T]
	opts    Options[T]

	mu       sync.Mutex
	items    []T
	filters  map[string]string
	selected map[string]struct{}
	loading  bool
}

// New creates a controller. It performs no I/O; call Load to populate.
func New[T Item](backend Backend[T], opts Options[T]) *Controller[T] {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Controller[T]{
		backend:  backend,
		opts:     opts,
		filters:  make(map[string]string),
		selected: make(map[string]struct{}),
	}
}

// Load replaces the item cache wholesale with the remote collection.
// On failure the previous items are kept untouched.
func (c *Controller[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	items, err := c.backend.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.opts.Logger.Warn("list load failed",
			zap.String("collection", c.opts.Name),
			zap.Error(err),
		)
		return err
	}
	c.items = items
	return nil
}

// ListWith reloads the collection and returns the view for the given
// filters in one step. The filters replace the active set, and the
// returned view is derived under the same lock that installed them, so
// concurrent callers on a shared controller never see each other's
// predicates. Empty filter values are dropped. On load failure the
// previous items and filters are kept untouched.
func (c *Controller[T]) ListWith(ctx context.Context, filters map[string]string) ([]T, error) {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	items, err := c.backend.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.opts.Logger.Warn("list load failed",
			zap.String("collection", c.opts.Name),
			zap.Error(err),
		)
		return nil, err
	}
	c.items = items
	c.filters = make(map[string]string, len(filters))
	for k, v := range filters {
		if v == "" {
			continue
		}
		c.filters[k] = v
	}
	return c.viewLocked(), nil
}

// Loading reports whether a Load is outstanding. Advisory only.
func (c *Controller[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Items returns a copy of the full unfiltered collection.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// SetFilter sets one filter axis. Empty value clears the axis
// (absent filter matches everything). Pure state change, no I/O.
func (c *Controller[T]) SetFilter(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value == "" {
		delete(c.filters, key)
		return
	}
	c.filters[key] = value
}

// ClearFilters drops every active filter.
func (c *Controller[T]) ClearFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = make(map[string]string)
}

// View returns the derived filtered view: items where every active
// filter predicate matches (AND across keys).
func (c *Controller[T]) View() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller[T]) viewLocked() []T {
	out := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if c.matchesLocked(item) {
			out = append(out, item)
		}
	}
	return out
}

func (c *Controller[T]) matchesLocked(item T) bool {
	for key, value := range c.filters {
		if key == SearchKey {
			if !c.matchesSearch(item, value) {
				return false
			}
			continue
		}
		m, ok := c.opts.Matchers[key]
		if !ok {
			// Unknown filter key matches nothing rather than silently
			// passing everything through.
			return false
		}
		if !m(item, value) {
			return false
		}
	}
	return true
}

func (c *Controller[T]) matchesSearch(item T, needle string) bool {
	if c.opts.TextFields == nil {
		return false
	}
	needle = strings.ToLower(needle)
	for _, f := range c.opts.TextFields(item) {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// ToggleSelect adds or removes one id from the selection.
func (c *Controller[T]) ToggleSelect(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
		return
	}
	c.selected[id] = struct{}{}
}

// SelectAllVisible toggles selection over the current derived view
// only: if the view's full id set is already selected the selection is
// cleared, otherwise the selection becomes exactly the view's ids.
// Items outside the view are never selected.
func (c *Controller[T]) SelectAllVisible() {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := c.viewLocked()
	all := true
	for _, item := range view {
		if _, ok := c.selected[item.ItemID()]; !ok {
			all = false
			break
		}
	}
	if all && len(view) > 0 && len(c.selected) == len(view) {
		c.selected = make(map[string]struct{})
		return
	}
	c.selected = make(map[string]struct{}, len(view))
	for _, item := range view {
		c.selected[item.ItemID()] = struct{}{}
	}
}

// ClearSelection empties the selection.
func (c *Controller[T]) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = make(map[string]struct{})
}

// Selected returns the selected ids in stable (sorted) order.
func (c *Controller[T]) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.selected))
	for id := range c.selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Create validates the item client-side, inserts it remotely and
// reloads. No optimistic local insert: the collection is always
// refetched after a mutation.
func (c *Controller[T]) Create(ctx context.Context, item T) error {
	if !c.opts.Caps.CanCreate {
		return &domain.ErrForbidden{Action: fmt.Sprintf("crear %s", c.opts.Name)}
	}
	if c.opts.Validate != nil {
		if err := c.opts.Validate(item); err != nil {
			return err
		}
	}
	if _, err := c.backend.Insert(ctx, item); err != nil {
		return err
	}
	return c.Load(ctx)
}

// Update patches one item remotely and reloads.
func (c *Controller[T]) Update(ctx context.Context, id string, patch map[string]any) error {
	if !c.opts.Caps.CanEdit {
		return &domain.ErrForbidden{Action: fmt.Sprintf("editar %s", c.opts.Name)}
	}
	if err := c.backend.Update(ctx, id, patch); err != nil {
		return err
	}
	return c.Load(ctx)
}

// UpdateOptimistic patches one item remotely, then merges the patch
// into the local cache without a reload. This is the named variant for
// status/visibility toggles where round-trip latency would be felt.
// On remote failure the local cache is left unchanged.
func (c *Controller[T]) UpdateOptimistic(ctx context.Context, id string, patch map[string]any) error {
	if !c.opts.Caps.CanEdit {
		return &domain.ErrForbidden{Action: fmt.Sprintf("editar %s", c.opts.Name)}
	}
	if c.opts.Apply == nil {
		return c.Update(ctx, id, patch)
	}
	if err := c.backend.Update(ctx, id, patch); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, item := range c.items {
		if item.ItemID() == id {
			c.items[i] = c.opts.Apply(item, patch)
			break
		}
	}
	return nil
}

// Remove deletes one item after the confirm gate, then reloads.
func (c *Controller[T]) Remove(ctx context.Context, id string) error {
	if !c.opts.Caps.CanDelete {
		return &domain.ErrForbidden{Action: fmt.Sprintf("eliminar %s", c.opts.Name)}
	}
	if !c.confirm(fmt.Sprintf("¿Eliminar %s %s?", c.opts.Name, id)) {
		return &domain.ErrConfirmationDenied{Operation: "eliminar " + c.opts.Name}
	}
	if err := c.backend.Delete(ctx, id); err != nil {
		return err
	}
	return c.Load(ctx)
}

// BulkRemove deletes all ids in one delete-where-in call, clears the
// selection and reloads. The confirm prompt names the count.
func (c *Controller[T]) BulkRemove(ctx context.Context, ids []string) error {
	if !c.opts.Caps.CanDelete {
		return &domain.ErrForbidden{Action: fmt.Sprintf("eliminar %s", c.opts.Name)}
	}
	if len(ids) == 0 {
		return &domain.ErrValidation{Field: "ids", Message: "ningún elemento seleccionado"}
	}
	if !c.confirm(fmt.Sprintf("¿Eliminar %d elementos?", len(ids))) {
		return &domain.ErrConfirmationDenied{Operation: "eliminación masiva"}
	}
	if err := c.backend.DeleteWhere(ctx, ids); err != nil {
		return err
	}
	c.ClearSelection()
	return c.Load(ctx)
}

// BulkUpdate applies one patch to all ids in a single update-where-in
// call, clears the selection and reloads.
func (c *Controller[T]) BulkUpdate(ctx context.Context, ids []string, patch map[string]any) error {
	if !c.opts.Caps.CanEdit {
		return &domain.ErrForbidden{Action: fmt.Sprintf("editar %s", c.opts.Name)}
	}
	if len(ids) == 0 {
		return &domain.ErrValidation{Field: "ids", Message: "ningún elemento seleccionado"}
	}
	if err := c.backend.UpdateWhere(ctx, ids, patch); err != nil {
		return err
	}
	c.ClearSelection()
	return c.Load(ctx)
}

func (c *Controller[T]) confirm(prompt string) bool {
	if c.opts.Confirm == nil {
		return true
	}
	return c.opts.Confirm(prompt)
}
