// Package todo is the state controller of the daily to-do widget.
//
// The controller owns the visible list. Mutations are applied locally
// first and reconciled with the knowledge base afterwards; a failed remote
// call rolls the local change back.
package todo

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pagewidgets/pagewidgets-server/internal/id"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/markers"
	"github.com/pagewidgets/pagewidgets-server/internal/widget"
)

const (
	// MaxItems is the most items a list may hold.
	MaxItems = 10

	RefreshInterval   = 10 * time.Minute
	DateCheckInterval = time.Minute

	dateLayout = "2006-01-02"
)

var (
	ErrLimitReached = errors.New("to-do list is full")
	ErrUnknownItem  = errors.New("no such to-do item")
)

// Backend performs remote to-do operations for one knowledge base.
type Backend interface {
	GetTodosForDate(ctx context.Context, date string) (kb.TodoPage, error)
	AddTodo(ctx context.Context, date, text string) (kb.TodoItem, error)
	ToggleTodoCompleted(ctx context.Context, id string, completed bool) error
	ToggleTodoImportant(ctx context.Context, id string, important bool) error
	DeleteTodo(ctx context.Context, id string) error
}

// Config configures a Controller. Backend is required.
type Config struct {
	Backend Backend

	// Markers and DatabaseID enable recurring injection. Without either,
	// Recurring is ignored.
	Markers    markers.Store
	DatabaseID string
	Recurring  []string

	// Date pins the list to one date. Empty follows the clock.
	Date     string
	Location *time.Location

	Clock  widget.Clock
	NewID  func() string
	Logger *slog.Logger
}

// Controller holds the state of one to-do widget.
type Controller struct {
	backend   Backend
	markers   markers.Store
	markerKey string
	recurring []string
	fixedDate string
	loc       *time.Location
	clock     widget.Clock
	newID     func() string
	logger    *slog.Logger

	widget.Notifier

	mu      sync.Mutex
	date    string
	page    kb.TodoPage
	items   []kb.TodoItem
	loaded  bool
	lastErr error
}

// New creates a controller. Nothing is fetched until Load or Run.
func New(cfg Config) *Controller {
	c := &Controller{
		backend:   cfg.Backend,
		markers:   cfg.Markers,
		fixedDate: cfg.Date,
		loc:       cfg.Location,
		clock:     cfg.Clock,
		newID:     cfg.NewID,
		logger:    cfg.Logger,
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.clock == nil {
		c.clock = widget.SystemClock{}
	}
	if c.newID == nil {
		c.newID = id.Temp
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Markers != nil && cfg.DatabaseID != "" {
		c.markerKey = markers.RecurringKey(cfg.DatabaseID)
		for _, r := range cfg.Recurring {
			if r = strings.TrimSpace(r); r != "" {
				c.recurring = append(c.recurring, r)
			}
		}
	}
	return c
}

// Today is the date the list follows when no date is pinned.
func (c *Controller) Today() string {
	if c.fixedDate != "" {
		return c.fixedDate
	}
	return c.clock.Now().In(c.loc).Format(dateLayout)
}

// Date is the date of the loaded list.
func (c *Controller) Date() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date
}

// Page returns the loaded page without its items.
func (c *Controller) Page() kb.TodoPage {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.page
	p.Todos = nil
	return p
}

// Loaded reports whether a list has been fetched.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Err returns the error of the last fetch, if it failed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Items returns the list in stored order.
func (c *Controller) Items() []kb.TodoItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Sorted returns the list in display order.
func (c *Controller) Sorted() []kb.TodoItem {
	return Sort(c.Items())
}

// Sort orders items for display: incomplete important items, then other
// incomplete items, then completed items. Relative order within each band
// is preserved.
func Sort(items []kb.TodoItem) []kb.TodoItem {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b kb.TodoItem) int {
		return band(a) - band(b)
	})
	return out
}

func band(t kb.TodoItem) int {
	switch {
	case t.Completed:
		return 2
	case t.IsImportant:
		return 0
	default:
		return 1
	}
}

// Load fetches the list for Today and injects recurring items once per
// date.
func (c *Controller) Load(ctx context.Context) error {
	date := c.Today()

	page, err := c.backend.GetTodosForDate(ctx, date)
	if err != nil {
		c.fail(err)
		return err
	}

	if c.injectionDue(ctx, date) {
		if c.injectRecurring(ctx, date, page.Todos) {
			if again, err := c.backend.GetTodosForDate(ctx, date); err == nil {
				page = again
			} else {
				c.logger.Warn("refetch after recurring injection failed", "date", date, "error", err)
			}
		}
		if err := c.markers.Set(ctx, c.markerKey, date); err != nil {
			c.logger.Warn("failed to store recurring marker", "date", date, "error", err)
		}
	}

	c.replace(date, page)
	return nil
}

// Refresh refetches the loaded date and replaces the list.
func (c *Controller) Refresh(ctx context.Context) error {
	date := c.Date()
	if date == "" {
		date = c.Today()
	}
	page, err := c.backend.GetTodosForDate(ctx, date)
	if err != nil {
		c.fail(err)
		return err
	}
	c.replace(date, page)
	return nil
}

// Run loads the list and keeps it current until ctx is done: a refresh
// every RefreshInterval and a reload when the date rolls over.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Load(ctx); err != nil {
		c.logger.Warn("initial load failed", "error", err)
	}

	refresh, stopRefresh := c.clock.Tick(RefreshInterval)
	defer stopRefresh()
	dateCheck, stopDateCheck := c.clock.Tick(DateCheckInterval)
	defer stopDateCheck()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-refresh:
			if err := c.Refresh(ctx); err != nil {
				c.logger.Warn("refresh failed", "error", err)
			}
		case <-dateCheck:
			if today := c.Today(); today != c.Date() {
				c.logger.Info("date changed", "from", c.Date(), "to", today)
				if err := c.Load(ctx); err != nil {
					c.logger.Warn("reload after date change failed", "error", err)
				}
			}
		}
	}
}

func (c *Controller) injectionDue(ctx context.Context, date string) bool {
	if len(c.recurring) == 0 {
		return false
	}
	last, _, err := c.markers.Get(ctx, c.markerKey)
	if err != nil {
		c.logger.Warn("failed to read recurring marker", "error", err)
	}
	return last != date
}

// injectRecurring adds missing recurring items one at a time and reports
// whether any was added.
func (c *Controller) injectRecurring(ctx context.Context, date string, existing []kb.TodoItem) bool {
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t.Text] = true
	}

	added := false
	for _, text := range c.recurring {
		if seen[text] {
			continue
		}
		if _, err := c.backend.AddTodo(ctx, date, text); err != nil {
			c.logger.Warn("failed to add recurring item", "text", text, "error", err)
			continue
		}
		seen[text] = true
		added = true
	}
	return added
}

func (c *Controller) replace(date string, page kb.TodoPage) {
	c.mu.Lock()
	c.date = date
	c.items = slices.Clone(page.Todos)
	if c.items == nil {
		c.items = []kb.TodoItem{}
	}
	page.Todos = nil
	c.page = page
	c.loaded = true
	c.lastErr = nil
	c.mu.Unlock()
	c.Notify()
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.loaded = true
	c.mu.Unlock()
	c.Notify()
}

// Add appends a pending item and confirms it remotely. Blank text is
// ignored.
func (c *Controller) Add(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if len(c.items) >= MaxItems {
		c.mu.Unlock()
		return ErrLimitReached
	}
	date := c.date
	c.mu.Unlock()
	if date == "" {
		date = c.Today()
	}

	now := c.clock.Now().UTC().Format(time.RFC3339)
	pending := kb.TodoItem{
		ID:        c.newID(),
		Text:      text,
		Priority:  "medium",
		CreatedAt: now,
		UpdatedAt: now,
	}

	return widget.Optimistic(ctx, widget.Mutation[kb.TodoItem]{
		Apply: func() {
			c.update(func() { c.items = append(c.items, pending) })
		},
		Remote: func(ctx context.Context) (kb.TodoItem, error) {
			return c.backend.AddTodo(ctx, date, text)
		},
		Revert: func() {
			c.update(func() { c.items = without(c.items, pending.ID) })
		},
		Reconcile: func(confirmed kb.TodoItem) {
			c.update(func() {
				if i := c.index(pending.ID); i >= 0 {
					c.items[i] = confirmed
				}
			})
		},
	})
}

// ToggleCompleted flips the completed flag of an item.
func (c *Controller) ToggleCompleted(ctx context.Context, itemID string) error {
	return c.toggle(ctx, itemID,
		func(t *kb.TodoItem) *bool { return &t.Completed },
		c.backend.ToggleTodoCompleted)
}

// ToggleImportant flips the important flag of an item.
func (c *Controller) ToggleImportant(ctx context.Context, itemID string) error {
	return c.toggle(ctx, itemID,
		func(t *kb.TodoItem) *bool { return &t.IsImportant },
		c.backend.ToggleTodoImportant)
}

func (c *Controller) toggle(ctx context.Context, itemID string, field func(*kb.TodoItem) *bool, remote func(context.Context, string, bool) error) error {
	c.mu.Lock()
	i := c.index(itemID)
	if i < 0 {
		c.mu.Unlock()
		return ErrUnknownItem
	}
	old := *field(&c.items[i])
	c.mu.Unlock()

	set := func(v bool) func() {
		return func() {
			c.update(func() {
				if i := c.index(itemID); i >= 0 {
					*field(&c.items[i]) = v
					c.items[i].UpdatedAt = c.clock.Now().UTC().Format(time.RFC3339)
				}
			})
		}
	}

	m := widget.Mutation[struct{}]{Apply: set(!old)}
	if !id.IsTemp(itemID) {
		m.Remote = func(ctx context.Context) (struct{}, error) {
			return struct{}{}, remote(ctx, itemID, !old)
		}
		m.Revert = set(old)
	}
	return widget.Optimistic(ctx, m)
}

// Delete removes an item. Pending items are removed locally only. A failed
// remote delete puts the item back at the end of the list.
func (c *Controller) Delete(ctx context.Context, itemID string) error {
	c.mu.Lock()
	i := c.index(itemID)
	if i < 0 {
		c.mu.Unlock()
		return ErrUnknownItem
	}
	removed := c.items[i]
	c.mu.Unlock()

	m := widget.Mutation[struct{}]{
		Apply: func() {
			c.update(func() { c.items = without(c.items, itemID) })
		},
	}
	if !id.IsTemp(itemID) {
		m.Remote = func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.backend.DeleteTodo(ctx, itemID)
		}
		m.Revert = func() {
			c.update(func() { c.items = append(c.items, removed) })
		}
	}
	return widget.Optimistic(ctx, m)
}

func (c *Controller) update(f func()) {
	c.mu.Lock()
	f()
	c.mu.Unlock()
	c.Notify()
}

// index must be called with mu held.
func (c *Controller) index(itemID string) int {
	return slices.IndexFunc(c.items, func(t kb.TodoItem) bool { return t.ID == itemID })
}

func without(items []kb.TodoItem, itemID string) []kb.TodoItem {
	return slices.DeleteFunc(items, func(t kb.TodoItem) bool { return t.ID == itemID })
}
