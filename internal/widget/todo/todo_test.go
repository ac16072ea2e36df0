package todo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewidgets/pagewidgets-server/internal/id"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/logger"
	"github.com/pagewidgets/pagewidgets-server/internal/markers"
	"github.com/pagewidgets/pagewidgets-server/internal/notion/notiontest"
	"github.com/pagewidgets/pagewidgets-server/internal/schema"
	"github.com/pagewidgets/pagewidgets-server/internal/widget"
)

var errRemote = errors.New("remote failed")

type fakeBackend struct {
	mu    sync.Mutex
	pages map[string][]kb.TodoItem
	seq   int
	gets  int
	adds  []string
	calls []string

	failAdd    error
	failToggle error
	failDelete error
	onAdd      func()
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{pages: map[string][]kb.TodoItem{}}
}

func (f *fakeBackend) seed(date string, items ...kb.TodoItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[date] = append(f.pages[date], items...)
}

func (f *fakeBackend) GetTodosForDate(_ context.Context, date string) (kb.TodoPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	return kb.TodoPage{ID: "page-" + date, Date: date, Title: kb.DefaultTodoTitle(date), Todos: append([]kb.TodoItem(nil), f.pages[date]...)}, nil
}

func (f *fakeBackend) AddTodo(_ context.Context, date, text string) (kb.TodoItem, error) {
	if f.onAdd != nil {
		f.onAdd()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, text)
	if f.failAdd != nil {
		return kb.TodoItem{}, f.failAdd
	}
	f.seq++
	item := kb.TodoItem{ID: fmt.Sprintf("block-%d", f.seq), Text: text, Priority: "medium"}
	f.pages[date] = append(f.pages[date], item)
	return item, nil
}

func (f *fakeBackend) ToggleTodoCompleted(_ context.Context, itemID string, completed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("completed %s %v", itemID, completed))
	return f.failToggle
}

func (f *fakeBackend) ToggleTodoImportant(_ context.Context, itemID string, important bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("important %s %v", itemID, important))
	return f.failToggle
}

func (f *fakeBackend) DeleteTodo(_ context.Context, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete "+itemID)
	return f.failDelete
}

func (f *fakeBackend) recorded() (gets int, adds, calls []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets, append([]string(nil), f.adds...), append([]string(nil), f.calls...)
}

var day1 = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func newController(t *testing.T, backend Backend, opts ...func(*Config)) (*Controller, *widget.ManualClock) {
	t.Helper()
	clock := widget.NewManualClock(day1)
	cfg := Config{
		Backend:  backend,
		Location: time.UTC,
		Clock:    clock,
		Logger:   logger.Discard().Logger,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return New(cfg), clock
}

func withRecurring(store markers.Store, items ...string) func(*Config) {
	return func(c *Config) {
		c.Markers = store
		c.DatabaseID = "db1"
		c.Recurring = items
	}
}

func texts(items []kb.TodoItem) []string {
	out := make([]string, len(items))
	for i, t := range items {
		out[i] = t.Text
	}
	return out
}

func TestSort(t *testing.T) {
	items := []kb.TodoItem{
		{ID: "a", IsImportant: true},
		{ID: "b"},
		{ID: "c", IsImportant: true, Completed: true},
	}
	sorted := Sort(items)
	assert.Equal(t, []string{"a", "b", "c"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})

	items = []kb.TodoItem{
		{ID: "done1", Completed: true},
		{ID: "plain1"},
		{ID: "imp1", IsImportant: true},
		{ID: "done2", Completed: true, IsImportant: true},
		{ID: "plain2"},
		{ID: "imp2", IsImportant: true},
	}
	var ids []string
	for _, it := range Sort(items) {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"imp1", "imp2", "plain1", "plain2", "done1", "done2"}, ids)
	assert.Equal(t, "done1", items[0].ID, "input must not be reordered")
}

func TestLoad(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("2025-05-01", kb.TodoItem{ID: "x", Text: "산책"})
	c, _ := newController(t, backend)

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, "2025-05-01", c.Date())
	assert.Equal(t, []string{"산책"}, texts(c.Items()))
	assert.Equal(t, "page-2025-05-01", c.Page().ID)
	assert.True(t, c.Loaded())
}

func TestLoad_FollowsLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	c, _ := newController(t, newFakeBackend(), func(cfg *Config) { cfg.Location = seoul })
	c.clock = widget.NewManualClock(time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC))

	assert.Equal(t, "2025-05-02", c.Today())
}

func TestLoad_PinnedDate(t *testing.T) {
	c, _ := newController(t, newFakeBackend(), func(cfg *Config) { cfg.Date = "2024-12-25" })
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, "2024-12-25", c.Date())
}

func TestLoad_RecurringIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("2025-05-01", kb.TodoItem{ID: "x", Text: "물 마시기"})
	store := markers.NewMemory()
	c, _ := newController(t, backend, withRecurring(store, " 물 마시기 ", "스트레칭", "", "일기 쓰기"))
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.Load(ctx))

	assert.Equal(t, []string{"물 마시기", "스트레칭", "일기 쓰기"}, texts(c.Items()))

	gets, adds, _ := backend.recorded()
	assert.Equal(t, []string{"스트레칭", "일기 쓰기"}, adds)
	assert.Equal(t, 3, gets, "fetch, refetch after injection, then one plain fetch")

	marker, ok, err := store.Get(ctx, markers.RecurringKey("db1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2025-05-01", marker)
}

func TestLoad_NothingMissingSkipsRefetch(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("2025-05-01", kb.TodoItem{ID: "x", Text: "운동"})
	store := markers.NewMemory()
	c, _ := newController(t, backend, withRecurring(store, "운동"))

	require.NoError(t, c.Load(context.Background()))

	gets, adds, _ := backend.recorded()
	assert.Empty(t, adds)
	assert.Equal(t, 1, gets)
	marker, _, _ := store.Get(context.Background(), markers.RecurringKey("db1"))
	assert.Equal(t, "2025-05-01", marker)
}

func TestLoad_MarkerSuppressesInjection(t *testing.T) {
	backend := newFakeBackend()
	store := markers.NewMemory()
	require.NoError(t, store.Set(context.Background(), markers.RecurringKey("db1"), "2025-05-01"))
	c, _ := newController(t, backend, withRecurring(store, "운동"))

	require.NoError(t, c.Load(context.Background()))
	_, adds, _ := backend.recorded()
	assert.Empty(t, adds, "user deleted the item today; it must not come back")
}

func TestLoad_FailedRecurringAddStillSetsMarker(t *testing.T) {
	backend := newFakeBackend()
	backend.failAdd = errRemote
	store := markers.NewMemory()
	c, _ := newController(t, backend, withRecurring(store, "운동"))

	require.NoError(t, c.Load(context.Background()))
	gets, _, _ := backend.recorded()
	assert.Equal(t, 1, gets)
	marker, _, _ := store.Get(context.Background(), markers.RecurringKey("db1"))
	assert.Equal(t, "2025-05-01", marker)
}

func TestRefresh_DoesNotInject(t *testing.T) {
	backend := newFakeBackend()
	c, _ := newController(t, backend, withRecurring(markers.NewMemory(), "운동"))

	require.NoError(t, c.Refresh(context.Background()))
	_, adds, _ := backend.recorded()
	assert.Empty(t, adds)
}

func TestAdd(t *testing.T) {
	backend := newFakeBackend()
	c, _ := newController(t, backend)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	var duringRemote []kb.TodoItem
	backend.onAdd = func() { duringRemote = c.Items() }

	require.NoError(t, c.Add(ctx, "  장보기 "))

	require.Len(t, duringRemote, 1)
	assert.True(t, id.IsTemp(duringRemote[0].ID), "pending item carries a temp id")
	assert.Equal(t, "장보기", duringRemote[0].Text)

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "block-1", items[0].ID)
}

func TestAdd_FailureDropsPending(t *testing.T) {
	backend := newFakeBackend()
	backend.failAdd = errRemote
	c, _ := newController(t, backend)

	err := c.Add(context.Background(), "장보기")
	assert.ErrorIs(t, err, errRemote)
	assert.Empty(t, c.Items())
}

func TestAdd_BlankIsNoop(t *testing.T) {
	backend := newFakeBackend()
	c, _ := newController(t, backend)

	require.NoError(t, c.Add(context.Background(), "   "))
	_, adds, _ := backend.recorded()
	assert.Empty(t, adds)
}

func TestAdd_Limit(t *testing.T) {
	backend := newFakeBackend()
	for i := range MaxItems {
		backend.seed("2025-05-01", kb.TodoItem{ID: fmt.Sprint(i), Text: fmt.Sprint(i)})
	}
	c, _ := newController(t, backend)
	require.NoError(t, c.Load(context.Background()))

	assert.ErrorIs(t, c.Add(context.Background(), "one more"), ErrLimitReached)
	assert.Len(t, c.Items(), MaxItems)
}

func TestToggle(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("2025-05-01", kb.TodoItem{ID: "b1", Text: "a"})
	c, _ := newController(t, backend)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	require.NoError(t, c.ToggleCompleted(ctx, "b1"))
	require.NoError(t, c.ToggleImportant(ctx, "b1"))

	item := c.Items()[0]
	assert.True(t, item.Completed)
	assert.True(t, item.IsImportant)
	_, _, calls := backend.recorded()
	assert.Equal(t, []string{"completed b1 true", "important b1 true"}, calls)
}

func TestToggle_FailureRevertsOnlyThatField(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("2025-05-01", kb.TodoItem{ID: "b1", Text: "a", IsImportant: true})
	c, _ := newController(t, backend)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))
	backend.failToggle = errRemote

	assert.ErrorIs(t, c.ToggleCompleted(ctx, "b1"), errRemote)

	item := c.Items()[0]
	assert.False(t, item.Completed)
	assert.True(t, item.IsImportant)
}

func TestToggle_PendingStaysLocal(t *testing.T) {
	backend := newFakeBackend()
	c, _ := newController(t, backend)
	tmp := id.Temp()
	c.items = []kb.TodoItem{{ID: tmp, Text: "pending"}}

	require.NoError(t, c.ToggleCompleted(context.Background(), tmp))
	assert.True(t, c.Items()[0].Completed)
	_, _, calls := backend.recorded()
	assert.Empty(t, calls)
}

func TestToggle_Unknown(t *testing.T) {
	c, _ := newController(t, newFakeBackend())
	assert.ErrorIs(t, c.ToggleImportant(context.Background(), "nope"), ErrUnknownItem)
}

func TestDelete(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("2025-05-01", kb.TodoItem{ID: "b1", Text: "a"}, kb.TodoItem{ID: "b2", Text: "b"})
	c, _ := newController(t, backend)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	require.NoError(t, c.Delete(ctx, "b1"))
	assert.Equal(t, []string{"b"}, texts(c.Items()))
	_, _, calls := backend.recorded()
	assert.Equal(t, []string{"delete b1"}, calls)
}

func TestDelete_FailureReappends(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("2025-05-01", kb.TodoItem{ID: "b1", Text: "a"}, kb.TodoItem{ID: "b2", Text: "b"})
	c, _ := newController(t, backend)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))
	backend.failDelete = errRemote

	assert.ErrorIs(t, c.Delete(ctx, "b1"), errRemote)
	assert.Equal(t, []string{"b", "a"}, texts(c.Items()))
}

func TestDelete_PendingStaysLocal(t *testing.T) {
	backend := newFakeBackend()
	c, _ := newController(t, backend)
	tmp := id.Temp()
	c.items = []kb.TodoItem{{ID: tmp}}

	require.NoError(t, c.Delete(context.Background(), tmp))
	assert.Empty(t, c.Items())
	_, _, calls := backend.recorded()
	assert.Empty(t, calls)
}

func TestRun(t *testing.T) {
	backend := newFakeBackend()
	store := markers.NewMemory()
	c, clock := newController(t, backend, withRecurring(store, "운동"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return clock.Tickers() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"운동"}, texts(c.Items()))

	backend.seed("2025-05-01", kb.TodoItem{ID: "ext", Text: "from another device"})
	clock.Advance(RefreshInterval)
	require.Eventually(t, func() bool { return len(c.Items()) == 2 }, time.Second, time.Millisecond)

	clock.Advance(15 * time.Hour)
	require.Eventually(t, func() bool { return c.Date() == "2025-05-02" }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		items := c.Items()
		return len(items) == 1 && items[0].Text == "운동"
	}, time.Second, time.Millisecond, "recurring item injected for the new day")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 0, clock.Tickers())
}

func TestPreviewBackend(t *testing.T) {
	c, _ := newController(t, NewPreview())
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	assert.Equal(t, []string{"밥 먹기", "약속가기", "공부"}, texts(c.Sorted()))

	require.NoError(t, c.Add(ctx, "산책"))
	require.NoError(t, c.ToggleCompleted(ctx, "2"))
	require.NoError(t, c.Refresh(ctx))

	assert.Equal(t, []string{"밥 먹기", "산책", "약속가기", "공부"}, texts(c.Sorted()))
}

func TestGatewayBackend_RecurringIsIdempotent(t *testing.T) {
	const dbID = "fedcba9876543210fedcba9876543210"
	srv := notiontest.NewServer(t)
	srv.AddDatabase(dbID, "할 일", notiontest.Col("제목", schema.TypeTitle), notiontest.Col("날짜", schema.TypeDate))

	backend := GatewayBackend{
		Gateway: kb.New(srv.Client(t), logger.Discard().Logger),
		Target:  kb.TodoTarget{APIKey: notiontest.Token, DatabaseID: dbID, DateProperty: "날짜", TitleProperty: "제목"},
	}
	store := markers.NewMemory()
	ctx := context.Background()

	c, _ := newController(t, backend, func(cfg *Config) {
		cfg.Markers = store
		cfg.DatabaseID = dbID
		cfg.Recurring = []string{"물 마시기", "스트레칭"}
	})
	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.Load(ctx))

	assert.Equal(t, []string{"물 마시기", "스트레칭"}, texts(c.Items()))
	pages := srv.Pages(dbID)
	require.Len(t, pages, 1)
	assert.Len(t, srv.ToDos(pages[0]), 2)
}
