package client

import (
	"context"

	"github.com/pagewidgets/pagewidgets-server/internal/api"
	"github.com/pagewidgets/pagewidgets-server/internal/booksearch"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/widgetcfg"
)

// TodoBackend drives a to-do widget controller through the API.
type TodoBackend struct {
	Client *Client
	Target kb.TodoTarget
}

// NewTodoBackend builds a backend from a decoded to-do widget config.
func NewTodoBackend(c *Client, cfg widgetcfg.Todo) TodoBackend {
	return TodoBackend{Client: c, Target: kb.TodoTargetFrom(cfg)}
}

func (b TodoBackend) request(action string) api.UpdateTodosRequest {
	return api.UpdateTodosRequest{
		Token:     b.Target.APIKey,
		DBID:      b.Target.DatabaseID,
		Action:    action,
		DateProp:  b.Target.DateProperty,
		TitleProp: b.Target.TitleProperty,
	}
}

func (b TodoBackend) GetTodosForDate(ctx context.Context, date string) (kb.TodoPage, error) {
	return b.Client.GetTodos(ctx, b.Target, date)
}

func (b TodoBackend) AddTodo(ctx context.Context, date, text string) (kb.TodoItem, error) {
	req := b.request(api.ActionAdd)
	req.Date = date
	req.Text = text

	change, err := b.Client.UpdateTodos(ctx, req)
	if err != nil {
		return kb.TodoItem{}, err
	}
	if change.Todo == nil {
		return kb.TodoItem{Text: text, Priority: "medium"}, nil
	}
	return *change.Todo, nil
}

// Item changes do not depend on the date, but the route requires one.
const anyDate = "1970-01-01"

func (b TodoBackend) ToggleTodoCompleted(ctx context.Context, id string, completed bool) error {
	req := b.request(api.ActionToggle)
	req.Date = anyDate
	req.TodoID = id
	req.Completed = completed
	_, err := b.Client.UpdateTodos(ctx, req)
	return err
}

func (b TodoBackend) ToggleTodoImportant(ctx context.Context, id string, important bool) error {
	req := b.request(api.ActionToggleImportant)
	req.Date = anyDate
	req.TodoID = id
	req.IsImportant = important
	_, err := b.Client.UpdateTodos(ctx, req)
	return err
}

func (b TodoBackend) DeleteTodo(ctx context.Context, id string) error {
	req := b.request(api.ActionDelete)
	req.Date = anyDate
	req.TodoID = id
	_, err := b.Client.UpdateTodos(ctx, req)
	return err
}

// BookSaver saves search selections through the API.
type BookSaver struct {
	Client *Client
	Config widgetcfg.Book
}

func (s BookSaver) SaveBook(ctx context.Context, book booksearch.BookResult) (string, error) {
	return s.Client.SaveBook(ctx, api.SaveBookRequest{
		Token:             s.Config.APIKey,
		DatabaseID:        s.Config.DatabaseID,
		TitleProperty:     s.Config.TitleProp,
		AuthorProperty:    s.Config.AuthorProp,
		CoverProperty:     s.Config.CoverProp,
		CoverPropertyType: s.Config.CoverPropType,
		StatusProperty:    s.Config.StatusProp,
		Book: &api.BookInput{
			Title:  book.Title,
			Author: book.Author,
			Cover:  book.Cover,
		},
	})
}
