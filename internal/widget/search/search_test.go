package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewidgets/pagewidgets-server/internal/booksearch"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/logger"
	"github.com/pagewidgets/pagewidgets-server/internal/notion/notiontest"
	"github.com/pagewidgets/pagewidgets-server/internal/schema"
	"github.com/pagewidgets/pagewidgets-server/internal/widget"
)

type stubSearcher struct {
	mu      sync.Mutex
	queries []string
	limits  []int
	results booksearch.Results
	err     error
	during  func()
}

func (s *stubSearcher) Search(_ context.Context, q string, n int) (booksearch.Results, error) {
	if s.during != nil {
		s.during()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	s.limits = append(s.limits, n)
	return s.results, s.err
}

type stubSaver struct {
	saved []booksearch.BookResult
	err   error
}

func (s *stubSaver) SaveBook(_ context.Context, b booksearch.BookResult) (string, error) {
	s.saved = append(s.saved, b)
	return "page-1", s.err
}

func books(titles ...string) []booksearch.BookResult {
	out := make([]booksearch.BookResult, len(titles))
	for i, t := range titles {
		out[i] = booksearch.BookResult{ID: t, Title: t, Color: booksearch.ColorAt(i)}
	}
	return out
}

func newController(searcher booksearch.Searcher, saver Saver) (*Controller, *widget.ManualClock) {
	clock := widget.NewManualClock(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	return New(Config{Searcher: searcher, Saver: saver, MaxResults: 5, Clock: clock, Logger: logger.Discard().Logger}), clock
}

func TestViews(t *testing.T) {
	s := &stubSearcher{results: booksearch.Results{Books: books("a"), Total: 1}}
	c, _ := newController(s, nil)
	assert.Equal(t, ViewMain, c.State().View)

	c.EnterSearch()
	c.SetQuery("물고기")
	require.NoError(t, c.Submit(context.Background()))
	st := c.State()
	assert.Equal(t, ViewSearch, st.View)
	assert.Len(t, st.Results, 1)

	c.Back()
	st = c.State()
	assert.Equal(t, ViewMain, st.View)
	assert.Empty(t, st.Query)
	assert.Empty(t, st.Results)
	assert.Equal(t, "main", st.View.String())
}

func TestSubmit(t *testing.T) {
	s := &stubSearcher{results: booksearch.Results{Books: books("a", "b"), Total: 42}}
	c, _ := newController(s, nil)

	c.SetQuery("  물고기 ")
	require.NoError(t, c.Submit(context.Background()))

	st := c.State()
	assert.Equal(t, 42, st.Total)
	assert.False(t, st.Loading)
	assert.False(t, st.FellBack)
	assert.Equal(t, []string{"물고기"}, s.queries)
	assert.Equal(t, []int{5}, s.limits)
}

func TestSubmit_ClearsPreviousResults(t *testing.T) {
	s := &stubSearcher{results: booksearch.Results{Books: books("a", "b")}}
	c, _ := newController(s, nil)
	c.SetQuery("x")
	require.NoError(t, c.Submit(context.Background()))

	var during State
	s.during = func() { during = c.State() }
	require.NoError(t, c.Submit(context.Background()))

	assert.Empty(t, during.Results)
	assert.True(t, during.Loading)
}

func TestSubmit_EmptyQuery(t *testing.T) {
	s := &stubSearcher{}
	c, _ := newController(s, nil)
	c.SetQuery("   ")
	require.NoError(t, c.Submit(context.Background()))
	assert.Empty(t, s.queries)
}

func TestSubmit_FailureShowsFallback(t *testing.T) {
	boom := errors.New("provider down")
	c, _ := newController(&stubSearcher{err: boom}, nil)
	c.SetQuery("x")

	assert.ErrorIs(t, c.Submit(context.Background()), boom)
	st := c.State()
	assert.True(t, st.FellBack)
	assert.Equal(t, booksearch.DemoBooks(), st.Results)
}

func TestSelect_PreviewDoesNotSave(t *testing.T) {
	c, clock := newController(&stubSearcher{results: booksearch.Results{Books: books("a")}}, nil)
	assert.True(t, c.Preview())
	c.SetQuery("x")
	require.NoError(t, c.Submit(context.Background()))

	require.NoError(t, c.Select(context.Background(), 0))
	st := c.State()
	assert.Equal(t, "a", st.SelectedID)
	assert.Equal(t, MessageSaved, st.Message)

	clock.Advance(SelectionDisplay - time.Millisecond)
	assert.Equal(t, "a", c.State().SelectedID)
	clock.Advance(time.Millisecond)
	assert.Empty(t, c.State().SelectedID)
	assert.Empty(t, c.State().Message)
}

func TestSelect_Saves(t *testing.T) {
	saver := &stubSaver{}
	c, _ := newController(&stubSearcher{results: booksearch.Results{Books: books("a", "b")}}, saver)
	c.SetQuery("x")
	require.NoError(t, c.Submit(context.Background()))

	require.NoError(t, c.Select(context.Background(), 1))
	require.Len(t, saver.saved, 1)
	assert.Equal(t, "b", saver.saved[0].Title)
}

func TestSelect_SaveFailure(t *testing.T) {
	boom := errors.New("conflict")
	c, clock := newController(&stubSearcher{results: booksearch.Results{Books: books("a")}}, &stubSaver{err: boom})
	c.SetQuery("x")
	require.NoError(t, c.Submit(context.Background()))

	assert.ErrorIs(t, c.Select(context.Background(), 0), boom)
	st := c.State()
	assert.True(t, st.SaveFailed)
	assert.Equal(t, MessageSaveFailed, st.Message)

	clock.Advance(SelectionDisplay)
	assert.False(t, c.State().SaveFailed)
}

func TestSelect_NewerSelectionKeepsItsOwnTimer(t *testing.T) {
	c, clock := newController(&stubSearcher{results: booksearch.Results{Books: books("a", "b")}}, nil)
	c.SetQuery("x")
	require.NoError(t, c.Submit(context.Background()))

	require.NoError(t, c.Select(context.Background(), 0))
	clock.Advance(time.Second)
	require.NoError(t, c.Select(context.Background(), 1))
	clock.Advance(time.Second)
	assert.Equal(t, "b", c.State().SelectedID)
	clock.Advance(time.Second)
	assert.Empty(t, c.State().SelectedID)
}

func TestSelect_OutOfRange(t *testing.T) {
	c, _ := newController(&stubSearcher{}, nil)
	assert.ErrorIs(t, c.Select(context.Background(), 0), ErrNoSuchResult)
}

func TestGatewaySaver(t *testing.T) {
	const dbID = "0123456789abcdef0123456789abcdef"
	srv := notiontest.NewServer(t)
	srv.AddDatabase(dbID, "책", notiontest.Col("이름", schema.TypeTitle))

	saver := GatewaySaver{
		Gateway: kb.New(srv.Client(t), logger.Discard().Logger),
		Target:  kb.BookTarget{APIKey: notiontest.Token, DatabaseID: dbID, BookMap: schema.BookMap{TitleProperty: "이름"}},
	}
	c, _ := newController(&stubSearcher{results: booksearch.Results{Books: books("모순")}}, saver)
	c.SetQuery("모순")
	require.NoError(t, c.Submit(context.Background()))
	require.NoError(t, c.Select(context.Background(), 0))

	assert.Len(t, srv.Pages(dbID), 1)
}
