// Package kb is the knowledge-base gateway: the book and to-do operations
// the widgets perform, expressed over the Notion client.
//
// Every call is stateless and independent. Nothing is cached or retried,
// and remote error messages are passed through unchanged.
package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pagewidgets/pagewidgets-server/internal/booksearch"
	"github.com/pagewidgets/pagewidgets-server/internal/notion"
	"github.com/pagewidgets/pagewidgets-server/internal/schema"
	"github.com/pagewidgets/pagewidgets-server/internal/widgetcfg"
)

const (
	// UntitledDatabase is shown for databases without a title.
	UntitledDatabase = "제목 없음"
	// InitialBookStatus is the select value every saved book starts with.
	InitialBookStatus = "읽고 싶은 책"
	// ImportantMarker prefixes the text of important to-do items.
	ImportantMarker = "♥︎"

	// DefaultDateProperty and DefaultTitleProperty are used when a request
	// names no to-do columns.
	DefaultDateProperty  = "날짜"
	DefaultTitleProperty = "제목"

	coverFileName = "cover.jpg"
)

var (
	// Whitespace after the marker includes Unicode spaces such as U+3000.
	importantPrefix = regexp.MustCompile(`^` + regexp.QuoteMeta(ImportantMarker) + `[\s\p{Zs}\x{FEFF}\x{2028}\x{2029}]*`)

	authorRoleSuffixes = []*regexp.Regexp{
		regexp.MustCompile(`\s*\([^)]*이\)`),
		regexp.MustCompile(`\s*\(글\)`),
		regexp.MustCompile(`\s*\(그림\)`),
	}
)

// ErrEmptyText is returned when adding a to-do without text.
var ErrEmptyText = errors.New("to-do text is empty")

// Database is a database visible to the integration.
type Database struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// BookTarget says where and how a book entry is written.
type BookTarget struct {
	APIKey     string
	DatabaseID string
	schema.BookMap
}

// BookTargetFrom builds a target from a decoded book widget config.
func BookTargetFrom(cfg widgetcfg.Book) BookTarget {
	return BookTarget{
		APIKey:     cfg.APIKey,
		DatabaseID: cfg.DatabaseID,
		BookMap: schema.BookMap{
			TitleProperty:     cfg.TitleProp,
			AuthorProperty:    cfg.AuthorProp,
			CoverProperty:     cfg.CoverProp,
			CoverPropertyType: cfg.CoverPropType,
			StatusProperty:    cfg.StatusProp,
		},
	}
}

// TodoTarget says where to-do pages live.
type TodoTarget struct {
	APIKey        string
	DatabaseID    string
	DateProperty  string
	TitleProperty string
}

// TodoTargetFrom builds a target from a decoded to-do widget config.
func TodoTargetFrom(cfg widgetcfg.Todo) TodoTarget {
	return TodoTarget{
		APIKey:        cfg.APIKey,
		DatabaseID:    cfg.DatabaseID,
		DateProperty:  cfg.DateProp,
		TitleProperty: cfg.TitleProp,
	}
}

func (t TodoTarget) dateProp() string {
	if t.DateProperty == "" {
		return DefaultDateProperty
	}
	return t.DateProperty
}

func (t TodoTarget) titleProp() string {
	if t.TitleProperty == "" {
		return DefaultTitleProperty
	}
	return t.TitleProperty
}

// TodoItem is one checklist entry.
type TodoItem struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Completed   bool   `json:"completed"`
	IsImportant bool   `json:"isImportant"`
	Priority    string `json:"priority"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// TodoPage is the to-do list for one date. A page with an empty ID has not
// been created remotely yet.
type TodoPage struct {
	ID      string     `json:"id"`
	Date    string     `json:"date"`
	Title   string     `json:"title"`
	Todos   []TodoItem `json:"todos"`
	PageURL string     `json:"pageUrl"`
}

// DefaultTodoTitle is the title given to a new date page.
func DefaultTodoTitle(date string) string {
	return date + " 할 일"
}

// Gateway performs knowledge-base operations. The zero value is not usable;
// create one with New.
type Gateway struct {
	client *notion.Client
	logger *slog.Logger
}

// New creates a gateway over client. The client's own token is ignored;
// every call authenticates with the key it is given.
func New(client *notion.Client, logger *slog.Logger) *Gateway {
	return &Gateway{client: client, logger: logger}
}

func (g *Gateway) as(apiKey string) *notion.Client {
	return g.client.WithToken(apiKey)
}

// ListDatabases returns every database shared with the integration.
func (g *Gateway) ListDatabases(ctx context.Context, apiKey string) ([]Database, error) {
	c := g.as(apiKey)

	dbs := []Database{}
	req := notion.SearchRequest{Filter: &notion.SearchFilter{Property: "object", Value: "database"}}
	for {
		res, err := c.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		for _, d := range res.Results {
			title := firstPlainText(d.Title)
			if title == "" {
				title = UntitledDatabase
			}
			dbs = append(dbs, Database{ID: d.ID, Title: title})
		}
		if !res.HasMore || res.NextCursor == "" {
			return dbs, nil
		}
		req.StartCursor = res.NextCursor
	}
}

// Columns returns a database schema in declared order.
func (g *Gateway) Columns(ctx context.Context, apiKey, databaseID string) ([]schema.Column, error) {
	db, err := g.as(apiKey).RetrieveDatabase(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	cols := make([]schema.Column, 0, len(db.Properties))
	for _, p := range db.Properties {
		cols = append(cols, schema.Column{Name: p.Name, Type: p.Type})
	}
	return cols, nil
}

// AnalyzeBookDatabase detects the book roles of a database.
func (g *Gateway) AnalyzeBookDatabase(ctx context.Context, apiKey, databaseID string) (schema.BookMap, error) {
	cols, err := g.Columns(ctx, apiKey, databaseID)
	if err != nil {
		return schema.BookMap{}, err
	}
	return schema.DetectBook(cols)
}

// AnalyzeTodoDatabase detects the to-do roles of a database.
func (g *Gateway) AnalyzeTodoDatabase(ctx context.Context, apiKey, databaseID string) (schema.TodoMap, error) {
	cols, err := g.Columns(ctx, apiKey, databaseID)
	if err != nil {
		return schema.TodoMap{}, err
	}
	return schema.DetectTodo(cols)
}

// CleanAuthor removes role annotations such as "(지은이)" or "(그림)".
func CleanAuthor(author string) string {
	for _, re := range authorRoleSuffixes {
		author = re.ReplaceAllString(author, "")
	}
	return strings.TrimSpace(author)
}

// BookProperties builds the property set for a book entry. Roles mapped to
// an empty column name are skipped, as is the cover when the book has none.
func BookProperties(m schema.BookMap, book booksearch.BookResult) map[string]any {
	props := map[string]any{}
	if m.TitleProperty != "" {
		props[m.TitleProperty] = notion.TitleValue(book.Title)
	}
	if m.AuthorProperty != "" {
		props[m.AuthorProperty] = notion.RichTextValue(CleanAuthor(book.Author))
	}
	if m.CoverProperty != "" && book.Cover != "" {
		if m.CoverPropertyType == schema.TypeURL {
			props[m.CoverProperty] = notion.URLValue(book.Cover)
		} else {
			props[m.CoverProperty] = notion.ExternalFileValue(coverFileName, book.Cover)
		}
	}
	if m.StatusProperty != "" {
		props[m.StatusProperty] = notion.SelectValue(InitialBookStatus)
	}
	return props
}

// CreateBookEntry saves book into the target database and returns the new
// page id.
func (g *Gateway) CreateBookEntry(ctx context.Context, target BookTarget, book booksearch.BookResult) (string, error) {
	page, err := g.as(target.APIKey).CreatePage(ctx, notion.CreatePageRequest{
		Parent:     notion.Parent{DatabaseID: target.DatabaseID},
		Properties: BookProperties(target.BookMap, book),
	})
	if err != nil {
		return "", err
	}
	g.logger.Info("book saved", "pageId", page.ID, "title", book.Title)
	return page.ID, nil
}

// findPage returns the authoritative page for date, or nil when none
// exists. With duplicates, the first result of the descending sort wins.
func (g *Gateway) findPage(ctx context.Context, c *notion.Client, target TodoTarget, date string) (*notion.Page, error) {
	prop := target.dateProp()
	res, err := c.QueryDatabase(ctx, target.DatabaseID, notion.QueryRequest{
		Filter: &notion.Filter{Property: prop, Date: &notion.DateCondition{Equals: date}},
		Sorts:  []notion.Sort{{Property: prop, Direction: notion.Descending}},
	})
	if err != nil {
		return nil, err
	}
	if len(res.Results) == 0 {
		return nil, nil
	}
	if len(res.Results) > 1 {
		g.logger.Debug("multiple to-do pages for date", "date", date, "count", len(res.Results))
	}
	return &res.Results[0], nil
}

// GetTodosForDate returns the to-do page for date. When no page exists a
// synthetic empty page with an empty ID is returned and nothing is created.
func (g *Gateway) GetTodosForDate(ctx context.Context, target TodoTarget, date string) (TodoPage, error) {
	c := g.as(target.APIKey)

	page, err := g.findPage(ctx, c, target, date)
	if err != nil {
		return TodoPage{}, err
	}
	if page == nil {
		return TodoPage{Date: date, Title: DefaultTodoTitle(date), Todos: []TodoItem{}}, nil
	}

	todos := []TodoItem{}
	cursor := ""
	for {
		blocks, err := c.ListBlockChildren(ctx, page.ID, cursor)
		if err != nil {
			return TodoPage{}, err
		}
		for _, b := range blocks.Results {
			if b.Type == notion.BlockTypeToDo && b.ToDo != nil {
				todos = append(todos, itemFromBlock(b))
			}
		}
		if !blocks.HasMore || blocks.NextCursor == "" {
			break
		}
		cursor = blocks.NextCursor
	}

	title := firstPlainText(page.Properties[target.titleProp()].Title)
	if title == "" {
		title = DefaultTodoTitle(date)
	}

	return TodoPage{
		ID:      page.ID,
		Date:    date,
		Title:   title,
		Todos:   todos,
		PageURL: page.URL,
	}, nil
}

// AddTodo appends an unchecked item to the page for date, creating the page
// first when none exists. It returns the created item.
func (g *Gateway) AddTodo(ctx context.Context, target TodoTarget, date, text string) (TodoItem, error) {
	if strings.TrimSpace(text) == "" {
		return TodoItem{}, ErrEmptyText
	}
	c := g.as(target.APIKey)

	page, err := g.findPage(ctx, c, target, date)
	if err != nil {
		return TodoItem{}, err
	}

	pageID := ""
	if page != nil {
		pageID = page.ID
	} else {
		created, err := c.CreatePage(ctx, notion.CreatePageRequest{
			Parent: notion.Parent{DatabaseID: target.DatabaseID},
			Properties: map[string]any{
				target.dateProp():  notion.DateValue(date),
				target.titleProp(): notion.TitleValue(DefaultTodoTitle(date)),
			},
		})
		if err != nil {
			return TodoItem{}, err
		}
		pageID = created.ID
		g.logger.Info("to-do page created", "pageId", pageID, "date", date)
	}

	res, err := c.AppendBlockChildren(ctx, pageID, []notion.Block{notion.NewToDo(text)})
	if err != nil {
		return TodoItem{}, err
	}
	for _, b := range res.Results {
		if b.Type == notion.BlockTypeToDo && b.ToDo != nil {
			return itemFromBlock(b), nil
		}
	}
	return TodoItem{}, fmt.Errorf("append to page %s returned no to-do block", pageID)
}

func (g *Gateway) retrieveToDo(ctx context.Context, c *notion.Client, id string) (*notion.ToDo, error) {
	b, err := c.RetrieveBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.ToDo == nil {
		return nil, fmt.Errorf("block %s is a %s block, not a to-do", id, b.Type)
	}
	return b.ToDo, nil
}

// ToggleTodoCompleted sets the checked flag, keeping the rich text exactly.
func (g *Gateway) ToggleTodoCompleted(ctx context.Context, apiKey, id string, completed bool) error {
	c := g.as(apiKey)
	todo, err := g.retrieveToDo(ctx, c, id)
	if err != nil {
		return err
	}
	_, err = c.UpdateToDo(ctx, id, notion.ToDo{RichText: todo.RichText, Checked: completed})
	return err
}

// ToggleTodoImportant adds or removes the important marker, keeping the
// checked flag.
func (g *Gateway) ToggleTodoImportant(ctx context.Context, apiKey, id string, important bool) error {
	c := g.as(apiKey)
	todo, err := g.retrieveToDo(ctx, c, id)
	if err != nil {
		return err
	}
	text := MarkImportant(notion.PlainText(todo.RichText), important)
	_, err = c.UpdateToDo(ctx, id, notion.ToDo{RichText: []notion.RichText{notion.Text(text)}, Checked: todo.Checked})
	return err
}

// DeleteTodo removes an item. This cannot be undone remotely.
func (g *Gateway) DeleteTodo(ctx context.Context, apiKey, id string) error {
	return g.as(apiKey).DeleteBlock(ctx, id)
}

// SplitImportant reports whether text carries the important marker and
// returns it without the marker and the whitespace after it.
func SplitImportant(text string) (string, bool) {
	if !strings.HasPrefix(text, ImportantMarker) {
		return text, false
	}
	return importantPrefix.ReplaceAllString(text, ""), true
}

// MarkImportant strips any existing marker, then prefixes one when important.
func MarkImportant(text string, important bool) string {
	clean := importantPrefix.ReplaceAllString(text, "")
	if important {
		return ImportantMarker + " " + clean
	}
	return clean
}

func itemFromBlock(b notion.Block) TodoItem {
	text, important := SplitImportant(notion.PlainText(b.ToDo.RichText))
	return TodoItem{
		ID:          b.ID,
		Text:        text,
		Completed:   b.ToDo.Checked,
		IsImportant: important,
		Priority:    "medium",
		CreatedAt:   b.CreatedTime,
		UpdatedAt:   b.LastEditedTime,
	}
}

func firstPlainText(spans []notion.RichText) string {
	if len(spans) == 0 {
		return ""
	}
	return notion.PlainText(spans[:1])
}
