package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewidgets/pagewidgets-server/internal/booksearch"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/widget"
	"github.com/pagewidgets/pagewidgets-server/internal/widget/search"
	"github.com/pagewidgets/pagewidgets-server/internal/widget/todo"
	"github.com/pagewidgets/pagewidgets-server/internal/widgetcfg"
)

const testDate = "2026-10-17"

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press delivers msg and feeds back the result of an operation command,
// the way the bubbletea runtime would.
func press(m tea.Model, msgs ...tea.Msg) tea.Model {
	for _, msg := range msgs {
		var cmd tea.Cmd
		m, cmd = m.Update(msg)
		if cmd == nil {
			continue
		}
		switch out := cmd().(type) {
		case todoOpDoneMsg, searchOpDoneMsg:
			m, _ = m.Update(out)
		}
	}
	return m
}

func loadedTodo(t *testing.T, backend todo.Backend) (*todo.Controller, todoModel) {
	t.Helper()
	ctx := context.Background()
	ctrl := todo.New(todo.Config{Backend: backend, Date: testDate})
	require.NoError(t, ctrl.Load(ctx))
	return ctrl, newTodoModel(ctx, ctrl, newStyles(widgetcfg.TodoTheme()))
}

func itemByText(items []kb.TodoItem, text string) (kb.TodoItem, bool) {
	for _, it := range items {
		if it.Text == text {
			return it, true
		}
	}
	return kb.TodoItem{}, false
}

func TestTodoModel_View(t *testing.T) {
	_, m := loadedTodo(t, todo.NewPreview())

	view := m.View()
	assert.Contains(t, view, kb.DefaultTodoTitle(testDate))
	assert.Contains(t, view, "밥 먹기")
	assert.Contains(t, view, "약속가기")
	assert.Contains(t, view, kb.ImportantMarker)
	assert.Contains(t, view, "○")
	assert.Contains(t, view, "●")
}

func TestTodoModel_NotLoaded(t *testing.T) {
	ctrl := todo.New(todo.Config{Backend: todo.NewPreview(), Date: testDate})
	m := newTodoModel(context.Background(), ctrl, newStyles(widgetcfg.TodoTheme()))

	assert.Contains(t, m.View(), "불러오는 중...")
}

type failingBackend struct{ *todo.Preview }

func (failingBackend) GetTodosForDate(context.Context, string) (kb.TodoPage, error) {
	return kb.TodoPage{}, errors.New("API token is invalid.")
}

func TestTodoModel_LoadError(t *testing.T) {
	ctrl := todo.New(todo.Config{Backend: failingBackend{todo.NewPreview()}, Date: testDate})
	require.Error(t, ctrl.Load(context.Background()))
	m := newTodoModel(context.Background(), ctrl, newStyles(widgetcfg.TodoTheme()))

	assert.Contains(t, m.View(), "할 일을 불러오지 못했습니다: API token is invalid.")
}

func TestTodoModel_ToggleCompleted(t *testing.T) {
	ctrl, m := loadedTodo(t, todo.NewPreview())

	press(m, key("down"), key("space"))

	item, ok := itemByText(ctrl.Items(), "약속가기")
	require.True(t, ok)
	assert.True(t, item.Completed)
}

func TestTodoModel_ToggleImportantAndDelete(t *testing.T) {
	ctrl, m := loadedTodo(t, todo.NewPreview())

	m2 := press(m, key("down"), key("i"))
	item, _ := itemByText(ctrl.Items(), "약속가기")
	assert.True(t, item.IsImportant)

	press(m2, key("up"), key("d"))
	_, ok := itemByText(ctrl.Items(), "밥 먹기")
	assert.False(t, ok)
	assert.Len(t, ctrl.Items(), 2)
}

func TestTodoModel_Add(t *testing.T) {
	ctrl, m := loadedTodo(t, todo.NewPreview())

	m2 := press(m, key("a"), key("장"), key("보기"), key("space"), key("x"), key("backspace"), key("backspace"))
	assert.Contains(t, m2.View(), "+ 장보기")

	press(m2, key("enter"))
	item, ok := itemByText(ctrl.Items(), "장보기")
	require.True(t, ok)
	assert.False(t, item.Completed)
}

func TestTodoModel_AddCancelled(t *testing.T) {
	ctrl, m := loadedTodo(t, todo.NewPreview())

	m2 := press(m, key("a"), key("장보기"), key("esc"))
	assert.Len(t, ctrl.Items(), 3)
	assert.False(t, m2.(todoModel).adding)
}

func TestTodoModel_AddAtLimit(t *testing.T) {
	ctrl, m := loadedTodo(t, todo.NewPreview())
	for i := len(ctrl.Items()); i < todo.MaxItems; i++ {
		require.NoError(t, ctrl.Add(context.Background(), fmt.Sprintf("item %d", i)))
	}

	m2 := press(m, key("a")).(todoModel)
	assert.False(t, m2.adding)
	assert.Contains(t, m2.View(), "최대 10개")
}

func TestTodoModel_CursorFollowsList(t *testing.T) {
	ctrl, m := loadedTodo(t, todo.NewPreview())

	m2 := press(m, key("down"), key("down"), key("down")).(todoModel)
	assert.Equal(t, 2, m2.cursor)

	require.NoError(t, ctrl.Delete(context.Background(), "3"))
	m3, _ := m2.Update(todoChangedMsg{})
	assert.Equal(t, 1, m3.(todoModel).cursor)
}

func TestNewStyles_Checkbox(t *testing.T) {
	theme := widgetcfg.TodoTheme()
	assert.Equal(t, "○", newStyles(theme).Box)

	theme.CheckboxStyle = "heart"
	s := newStyles(theme)
	assert.Equal(t, "♡", s.Box)
	assert.Equal(t, "♥", s.Checked)
}

type stubSearcher struct {
	err error
}

func (s stubSearcher) Search(context.Context, string, int) (booksearch.Results, error) {
	if s.err != nil {
		return booksearch.Results{}, s.err
	}
	return booksearch.Results{Books: booksearch.DemoBooks()[:2], Total: 2}, nil
}

type recordingSaver struct {
	mu    sync.Mutex
	saved []booksearch.BookResult
}

func (s *recordingSaver) SaveBook(_ context.Context, book booksearch.BookResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, book)
	return "page-1", nil
}

func newTestSearch(searcher booksearch.Searcher, saver search.Saver) (*search.Controller, searchModel) {
	conf := search.Config{Searcher: searcher, Clock: widget.NewManualClock(time.Now())}
	if saver != nil {
		conf.Saver = saver
	}
	ctrl := search.New(conf)
	return ctrl, newSearchModel(context.Background(), ctrl, newStyles(widgetcfg.BookTheme()))
}

func TestSearchModel_SearchAndSave(t *testing.T) {
	saver := &recordingSaver{}
	ctrl, m := newTestSearch(stubSearcher{}, saver)
	assert.Contains(t, m.View(), "읽은 책을 검색해")
	assert.NotContains(t, m.View(), "미리보기")

	m2 := press(m, key("enter"), key("물고기"))
	assert.Equal(t, search.ViewSearch, ctrl.State().View)
	assert.Equal(t, "물고기", ctrl.State().Query)

	m3 := press(m2, key("enter")).(searchModel)
	assert.True(t, m3.onResults)
	assert.Len(t, ctrl.State().Results, 2)
	assert.Contains(t, m3.View(), "검색 결과 2건")

	m4 := press(m3, key("down"), key("enter"))
	require.Len(t, saver.saved, 1)
	assert.Equal(t, booksearch.DemoBooks()[1].Title, saver.saved[0].Title)
	assert.Contains(t, m4.View(), search.MessageSaved)

	press(m4, key("esc"))
	assert.Equal(t, search.ViewMain, ctrl.State().View)
	assert.Empty(t, ctrl.State().Results)
}

func TestSearchModel_PreviewAndFallback(t *testing.T) {
	ctrl, m := newTestSearch(stubSearcher{err: errors.New("알라딘 API 키가 유효하지 않습니다.")}, nil)
	assert.Contains(t, m.View(), "(미리보기)")

	m2 := press(m, key("/"), key("책"), key("enter"))
	assert.True(t, ctrl.State().FellBack)
	assert.Contains(t, m2.View(), "예시 도서")
	assert.Len(t, ctrl.State().Results, len(booksearch.DemoBooks()))
}

func TestSearchModel_TabSwitchesFocus(t *testing.T) {
	_, m := newTestSearch(stubSearcher{}, nil)

	m2 := press(m, key("enter"), key("tab")).(searchModel)
	assert.False(t, m2.onResults)

	m3 := press(m2, key("a"), key("enter"), key("tab")).(searchModel)
	assert.False(t, m3.onResults)

	m4 := press(m3, key("b")).(searchModel)
	assert.Equal(t, "ab", string(m4.query))

	m5 := press(m4, key("tab"), key("c")).(searchModel)
	assert.True(t, m5.onResults)
	assert.Equal(t, "ab", string(m5.query))
}
