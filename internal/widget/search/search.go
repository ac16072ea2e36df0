// Package search is the state controller of the book search widget.
package search

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pagewidgets/pagewidgets-server/internal/booksearch"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/widget"
)

// View is the visible screen.
type View int

const (
	ViewMain View = iota
	ViewSearch
)

func (v View) String() string {
	if v == ViewSearch {
		return "search"
	}
	return "main"
}

// SelectionDisplay is how long a selection and its message stay visible.
const SelectionDisplay = 1500 * time.Millisecond

const (
	MessageSaved      = "노션에 저장되었습니다."
	MessageSaveFailed = "저장에 실패했습니다."
)

var ErrNoSuchResult = errors.New("no such search result")

// Saver stores a chosen book.
type Saver interface {
	SaveBook(ctx context.Context, book booksearch.BookResult) (string, error)
}

// GatewaySaver saves through the knowledge-base gateway.
type GatewaySaver struct {
	Gateway *kb.Gateway
	Target  kb.BookTarget
}

func (s GatewaySaver) SaveBook(ctx context.Context, book booksearch.BookResult) (string, error) {
	return s.Gateway.CreateBookEntry(ctx, s.Target, book)
}

// Config configures a Controller. Searcher is required. Without a Saver
// the widget runs in preview mode and selections are not stored.
type Config struct {
	Searcher   booksearch.Searcher
	Saver      Saver
	MaxResults int
	// Fallback is shown when a search fails. Defaults to the demo list.
	Fallback []booksearch.BookResult
	Clock    widget.Clock
	Logger   *slog.Logger
}

// State is a snapshot of the controller.
type State struct {
	View       View
	Query      string
	Results    []booksearch.BookResult
	Total      int
	Loading    bool
	FellBack   bool
	SelectedID string
	Message    string
	SaveFailed bool
}

// Controller holds the state of one search widget.
type Controller struct {
	searcher   booksearch.Searcher
	saver      Saver
	maxResults int
	fallback   []booksearch.BookResult
	clock      widget.Clock
	logger     *slog.Logger

	widget.Notifier

	mu        sync.Mutex
	state     State
	stopClear func() bool
}

// New creates a controller showing the main view.
func New(cfg Config) *Controller {
	c := &Controller{
		searcher:   cfg.Searcher,
		saver:      cfg.Saver,
		maxResults: cfg.MaxResults,
		fallback:   cfg.Fallback,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
	if c.maxResults <= 0 {
		c.maxResults = booksearch.DefaultMaxResults
	}
	if c.fallback == nil {
		c.fallback = booksearch.DemoBooks()
	}
	if c.clock == nil {
		c.clock = widget.SystemClock{}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Preview reports whether selections are only shown, not saved.
func (c *Controller) Preview() bool {
	return c.saver == nil
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Results = slices.Clone(s.Results)
	return s
}

func (c *Controller) update(f func(*State)) {
	c.mu.Lock()
	f(&c.state)
	c.mu.Unlock()
	c.Notify()
}

// EnterSearch switches to the search view.
func (c *Controller) EnterSearch() {
	c.update(func(s *State) { s.View = ViewSearch })
}

// Back returns to the main view and forgets the query and results.
func (c *Controller) Back() {
	c.update(func(s *State) {
		s.View = ViewMain
		s.Query = ""
		s.Results = nil
		s.Total = 0
		s.FellBack = false
	})
}

// SetQuery replaces the query text.
func (c *Controller) SetQuery(q string) {
	c.update(func(s *State) { s.Query = q })
}

// Submit searches for the current query. Results are cleared first. A
// failed search shows the fallback list and returns the error.
//
// Concurrent submits are not ordered: the last response to arrive wins.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	q := strings.TrimSpace(c.state.Query)
	c.mu.Unlock()
	if q == "" {
		return nil
	}

	c.update(func(s *State) {
		s.Results = nil
		s.Total = 0
		s.Loading = true
		s.FellBack = false
	})

	res, err := c.searcher.Search(ctx, q, c.maxResults)
	if err != nil {
		c.logger.Warn("book search failed, showing fallback", "query", q, "error", err)
		c.update(func(s *State) {
			s.Results = slices.Clone(c.fallback)
			s.Total = len(c.fallback)
			s.Loading = false
			s.FellBack = true
		})
		return err
	}

	c.update(func(s *State) {
		s.Results = res.Books
		s.Total = res.Total
		s.Loading = false
	})
	return nil
}

// Select marks result i as chosen and saves it unless in preview mode. The
// selection and its message clear after SelectionDisplay.
func (c *Controller) Select(ctx context.Context, i int) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.state.Results) {
		c.mu.Unlock()
		return ErrNoSuchResult
	}
	book := c.state.Results[i]
	c.mu.Unlock()

	c.update(func(s *State) {
		s.SelectedID = book.ID
		s.Message = ""
		s.SaveFailed = false
	})

	var err error
	if c.saver != nil {
		_, err = c.saver.SaveBook(ctx, book)
		if err != nil {
			c.logger.Warn("failed to save book", "title", book.Title, "error", err)
		}
	}

	c.update(func(s *State) {
		if err != nil {
			s.Message = MessageSaveFailed
			s.SaveFailed = true
		} else {
			s.Message = MessageSaved
		}
	})
	c.scheduleClear(book.ID)
	return err
}

func (c *Controller) scheduleClear(bookID string) {
	c.mu.Lock()
	if c.stopClear != nil {
		c.stopClear()
	}
	c.stopClear = c.clock.AfterFunc(SelectionDisplay, func() {
		c.update(func(s *State) {
			if s.SelectedID == bookID {
				s.SelectedID = ""
				s.Message = ""
				s.SaveFailed = false
			}
		})
	})
	c.mu.Unlock()
}
