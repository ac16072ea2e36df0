package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/widget/todo"
)

type todoChangedMsg struct{}

type todoOpDoneMsg struct{ err error }

// todoModel is the terminal rendering of a to-do widget.
type todoModel struct {
	ctx    context.Context
	ctrl   *todo.Controller
	styles styles

	cursor int
	adding bool
	input  []rune
	status string
}

func newTodoModel(ctx context.Context, ctrl *todo.Controller, s styles) todoModel {
	return todoModel{ctx: ctx, ctrl: ctrl, styles: s}
}

func (m todoModel) Init() tea.Cmd {
	return waitForChange(m.ctrl.Changes(), todoChangedMsg{})
}

// waitForChange delivers msg on the next signal of ch.
func waitForChange(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return msg
	}
}

func (m todoModel) run(op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return todoOpDoneMsg{err: op(ctx)}
	}
}

func (m todoModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.adding {
			return m.handleInput(msg)
		}
		return m.handleKey(msg)

	case todoChangedMsg:
		m.clampCursor()
		return m, waitForChange(m.ctrl.Changes(), todoChangedMsg{})

	case todoOpDoneMsg:
		m.status = ""
		if msg.err != nil {
			m.status = todoErrorText(msg.err)
		}
		m.clampCursor()
		return m, nil
	}
	return m, nil
}

func (m todoModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.ctrl.Sorted()
	current := func() (kb.TodoItem, bool) {
		if m.cursor < 0 || m.cursor >= len(items) {
			return kb.TodoItem{}, false
		}
		return items[m.cursor], true
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case " ", "enter", "x":
		if item, ok := current(); ok {
			return m, m.run(func(ctx context.Context) error { return m.ctrl.ToggleCompleted(ctx, item.ID) })
		}
	case "i", "*":
		if item, ok := current(); ok {
			return m, m.run(func(ctx context.Context) error { return m.ctrl.ToggleImportant(ctx, item.ID) })
		}
	case "d", "delete":
		if item, ok := current(); ok {
			return m, m.run(func(ctx context.Context) error { return m.ctrl.Delete(ctx, item.ID) })
		}
	case "a", "n":
		if len(items) >= todo.MaxItems {
			m.status = todoErrorText(todo.ErrLimitReached)
			return m, nil
		}
		m.adding = true
		m.input = nil
		m.status = ""
	case "r":
		return m, m.run(m.ctrl.Refresh)
	}
	return m, nil
}

func (m todoModel) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.adding = false
		m.input = nil
	case tea.KeyEnter:
		text := string(m.input)
		m.adding = false
		m.input = nil
		return m, m.run(func(ctx context.Context) error { return m.ctrl.Add(ctx, text) })
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
	}
	return m, nil
}

func (m *todoModel) clampCursor() {
	n := len(m.ctrl.Items())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func todoErrorText(err error) string {
	switch {
	case errors.Is(err, todo.ErrLimitReached):
		return fmt.Sprintf("할 일은 최대 %d개까지 추가할 수 있습니다.", todo.MaxItems)
	case errors.Is(err, todo.ErrUnknownItem):
		return "할 일을 찾을 수 없습니다."
	default:
		return err.Error()
	}
}

func (m todoModel) View() string {
	s := m.styles
	var b strings.Builder

	title := m.ctrl.Page().Title
	if title == "" {
		title = kb.DefaultTodoTitle(m.ctrl.Today())
	}
	b.WriteString(s.Title.Render(title))
	b.WriteString("\n\n")

	switch {
	case !m.ctrl.Loaded():
		b.WriteString(s.Dim.Render("불러오는 중..."))
		b.WriteString("\n")
	case m.ctrl.Err() != nil && len(m.ctrl.Items()) == 0:
		b.WriteString(s.Error.Render("할 일을 불러오지 못했습니다: " + m.ctrl.Err().Error()))
		b.WriteString("\n")
	default:
		items := m.ctrl.Sorted()
		if len(items) == 0 {
			b.WriteString(s.Dim.Render("오늘의 할 일을 추가해보세요."))
			b.WriteString("\n")
		}
		for i, item := range items {
			b.WriteString(m.renderItem(item, i == m.cursor && !m.adding))
			b.WriteString("\n")
		}
	}

	if m.adding {
		b.WriteString("\n")
		b.WriteString(s.Cursor.Render("+ ") + s.Item.Render(string(m.input)) + s.Cursor.Render("▏"))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(s.Error.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.adding {
		b.WriteString(s.footer("enter", "추가", "esc", "취소"))
	} else {
		b.WriteString(s.footer("a", "추가", "space", "완료", "i", "중요", "d", "삭제", "r", "새로고침", "q", "종료"))
	}
	return s.Frame.Render(b.String())
}

func (m todoModel) renderItem(item kb.TodoItem, selected bool) string {
	s := m.styles

	cursor := "  "
	if selected {
		cursor = s.Cursor.Render("› ")
	}
	box := s.Item.Render(s.Box)
	if item.Completed {
		box = s.Important.Render(s.Checked)
	}

	text := s.Item.Render(item.Text)
	if item.Completed {
		text = s.Done.Render(item.Text)
	}
	if item.IsImportant {
		text = s.Important.Render(kb.ImportantMarker) + " " + text
	}
	return cursor + box + " " + text
}
