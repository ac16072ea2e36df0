package todo

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/pagewidgets/pagewidgets-server/internal/id"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
)

// GatewayBackend talks to the knowledge base directly.
type GatewayBackend struct {
	Gateway *kb.Gateway
	Target  kb.TodoTarget
}

func (b GatewayBackend) GetTodosForDate(ctx context.Context, date string) (kb.TodoPage, error) {
	return b.Gateway.GetTodosForDate(ctx, b.Target, date)
}

func (b GatewayBackend) AddTodo(ctx context.Context, date, text string) (kb.TodoItem, error) {
	return b.Gateway.AddTodo(ctx, b.Target, date, text)
}

func (b GatewayBackend) ToggleTodoCompleted(ctx context.Context, itemID string, completed bool) error {
	return b.Gateway.ToggleTodoCompleted(ctx, b.Target.APIKey, itemID, completed)
}

func (b GatewayBackend) ToggleTodoImportant(ctx context.Context, itemID string, important bool) error {
	return b.Gateway.ToggleTodoImportant(ctx, b.Target.APIKey, itemID, important)
}

func (b GatewayBackend) DeleteTodo(ctx context.Context, itemID string) error {
	return b.Gateway.DeleteTodo(ctx, b.Target.APIKey, itemID)
}

// Preview is an in-memory backend seeded with sample items, used when a
// widget is shown without a knowledge base.
type Preview struct {
	mu    sync.Mutex
	items []kb.TodoItem
}

// NewPreview returns a preview backend holding the sample list.
func NewPreview() *Preview {
	now := time.Now().UTC().Format(time.RFC3339)
	return &Preview{items: []kb.TodoItem{
		{ID: "1", Text: "밥 먹기", IsImportant: true, Priority: "high", CreatedAt: now, UpdatedAt: now},
		{ID: "2", Text: "약속가기", Priority: "medium", CreatedAt: now, UpdatedAt: now},
		{ID: "3", Text: "공부", Completed: true, IsImportant: true, Priority: "high", CreatedAt: now, UpdatedAt: now},
	}}
}

func (p *Preview) GetTodosForDate(_ context.Context, date string) (kb.TodoPage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return kb.TodoPage{
		ID:    "preview",
		Date:  date,
		Title: kb.DefaultTodoTitle(date),
		Todos: slices.Clone(p.items),
	}, nil
}

func (p *Preview) AddTodo(_ context.Context, _ string, text string) (kb.TodoItem, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	item := kb.TodoItem{ID: id.MustGenerate("preview"), Text: text, Priority: "medium", CreatedAt: now, UpdatedAt: now}
	p.mu.Lock()
	p.items = append(p.items, item)
	p.mu.Unlock()
	return item, nil
}

func (p *Preview) ToggleTodoCompleted(_ context.Context, itemID string, completed bool) error {
	p.set(itemID, func(t *kb.TodoItem) { t.Completed = completed })
	return nil
}

func (p *Preview) ToggleTodoImportant(_ context.Context, itemID string, important bool) error {
	p.set(itemID, func(t *kb.TodoItem) { t.IsImportant = important })
	return nil
}

func (p *Preview) DeleteTodo(_ context.Context, itemID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = slices.DeleteFunc(p.items, func(t kb.TodoItem) bool { return t.ID == itemID })
	return nil
}

func (p *Preview) set(itemID string, f func(*kb.TodoItem)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.items {
		if p.items[i].ID == itemID {
			f(&p.items[i])
		}
	}
}
