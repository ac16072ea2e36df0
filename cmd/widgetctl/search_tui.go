package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pagewidgets/pagewidgets-server/internal/widget/search"
)

type searchChangedMsg struct{}

type searchOpDoneMsg struct{ err error }

// searchModel is the terminal rendering of a book search widget. In the
// search view keys edit the query until results arrive; tab moves focus
// between the query and the result list.
type searchModel struct {
	ctx    context.Context
	ctrl   *search.Controller
	styles styles

	query     []rune
	onResults bool
	cursor    int
}

func newSearchModel(ctx context.Context, ctrl *search.Controller, s styles) searchModel {
	return searchModel{ctx: ctx, ctrl: ctrl, styles: s}
}

func (m searchModel) Init() tea.Cmd {
	return waitForChange(m.ctrl.Changes(), searchChangedMsg{})
}

func (m searchModel) run(op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return searchOpDoneMsg{err: op(ctx)}
	}
}

func (m searchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.ctrl.State().View == search.ViewMain {
			return m.handleMainKey(msg)
		}
		if m.onResults {
			return m.handleResultKey(msg)
		}
		return m.handleQueryKey(msg)

	case searchChangedMsg:
		return m, waitForChange(m.ctrl.Changes(), searchChangedMsg{})

	case searchOpDoneMsg:
		// Errors surface through the controller state: the fallback list
		// or the save message.
		if len(m.ctrl.State().Results) > 0 && !m.onResults {
			m.onResults = true
			m.cursor = 0
		}
		return m, nil
	}
	return m, nil
}

func (m searchModel) handleMainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "enter", "/", "s":
		m.ctrl.EnterSearch()
		m.query = nil
		m.onResults = false
	}
	return m, nil
}

func (m searchModel) handleQueryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.ctrl.Back()
		m.query = nil
		return m, nil
	case tea.KeyEnter:
		m.ctrl.SetQuery(string(m.query))
		return m, m.run(m.ctrl.Submit)
	case tea.KeyTab:
		if len(m.ctrl.State().Results) > 0 {
			m.onResults = true
		}
		return m, nil
	case tea.KeyBackspace:
		if len(m.query) > 0 {
			m.query = m.query[:len(m.query)-1]
		}
	case tea.KeySpace:
		m.query = append(m.query, ' ')
	case tea.KeyRunes:
		m.query = append(m.query, msg.Runes...)
	default:
		return m, nil
	}
	m.ctrl.SetQuery(string(m.query))
	return m, nil
}

func (m searchModel) handleResultKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.ctrl.State().Results)
	switch msg.String() {
	case "esc":
		m.ctrl.Back()
		m.query = nil
		m.onResults = false
	case "tab", "/":
		m.onResults = false
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}
	case "enter", " ":
		i := m.cursor
		return m, m.run(func(ctx context.Context) error { return m.ctrl.Select(ctx, i) })
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m searchModel) View() string {
	s := m.styles
	st := m.ctrl.State()
	var b strings.Builder

	b.WriteString(s.Title.Render("책 검색"))
	if m.ctrl.Preview() {
		b.WriteString(" " + s.Dim.Render("(미리보기)"))
	}
	b.WriteString("\n\n")

	if st.View == search.ViewMain {
		b.WriteString(s.Item.Render("읽은 책을 검색해 노션에 기록하세요."))
		b.WriteString("\n\n")
		b.WriteString(s.footer("enter", "검색", "q", "종료"))
		return s.Frame.Render(b.String())
	}

	prompt := s.Cursor.Render("? ")
	query := s.Item.Render(string(m.query))
	if !m.onResults {
		query += s.Cursor.Render("▏")
	}
	b.WriteString(prompt + query + "\n\n")

	switch {
	case st.Loading:
		b.WriteString(s.Dim.Render("검색 중..."))
		b.WriteString("\n")
	case st.FellBack:
		b.WriteString(s.Error.Render("검색에 실패해 예시 도서를 보여줍니다."))
		b.WriteString("\n")
	case len(st.Results) > 0:
		b.WriteString(s.Dim.Render(fmt.Sprintf("검색 결과 %d건", st.Total)))
		b.WriteString("\n")
	}

	for i, book := range st.Results {
		cursor := "  "
		if m.onResults && i == m.cursor {
			cursor = s.Cursor.Render("› ")
		}
		line := s.Item.Render(book.Title)
		if book.Author != "" {
			line += s.Dim.Render(" · " + book.Author)
		}
		if book.ID == st.SelectedID {
			line = s.Important.Render(book.Title)
		}
		b.WriteString(cursor + line + "\n")
	}

	if st.Message != "" {
		b.WriteString("\n")
		if st.SaveFailed {
			b.WriteString(s.Error.Render(st.Message))
		} else {
			b.WriteString(s.Success.Render(st.Message))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.onResults {
		b.WriteString(s.footer("enter", "선택", "tab", "검색어", "esc", "뒤로"))
	} else {
		b.WriteString(s.footer("enter", "검색", "tab", "결과", "esc", "뒤로"))
	}
	return s.Frame.Render(b.String())
}
