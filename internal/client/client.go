// Package client is a typed HTTP client for the widget API.
//
// Every route answers with the shared envelope; a response with
// success=false becomes an *Error carrying the envelope's code, whatever the
// HTTP status was.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pagewidgets/pagewidgets-server/internal/api"
	"github.com/pagewidgets/pagewidgets-server/internal/booksearch"
	domainerrors "github.com/pagewidgets/pagewidgets-server/internal/errors"
	"github.com/pagewidgets/pagewidgets-server/internal/http/response"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/schema"
)

// DefaultBaseURL is the address of a locally running server.
const DefaultBaseURL = "http://localhost:3000"

// Error is a failure envelope returned by the server.
type Error struct {
	Status  int
	Code    domainerrors.Code
	Message string
	Details any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client calls the widget API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the server at baseURL.
func New(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type envelope[T any] struct {
	Success      bool                `json:"success"`
	Data         T                   `json:"data"`
	TotalResults *int                `json:"totalResults"`
	Error        *response.ErrorBody `json:"error"`
}

func call[T any](ctx context.Context, c *Client, method, path string, in any) (envelope[T], error) {
	var env envelope[T]

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return env, fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return env, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-Id", reqID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return env, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return env, fmt.Errorf("%s %s: status %d: decode response: %w", method, path, resp.StatusCode, err)
	}

	if !env.Success || env.Error != nil {
		apiErr := &Error{Status: resp.StatusCode, Code: domainerrors.CodeInternal, Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		c.logger.Debug("API call failed",
			"method", method,
			"path", path,
			"request_id", reqID,
			"status", resp.StatusCode,
			"code", apiErr.Code,
		)
		return env, apiErr
	}
	return env, nil
}

// Health returns the server health report.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	env, err := call[api.HealthResponse](ctx, c, http.MethodGet, "/health", nil)
	return env.Data, err
}

// Search implements booksearch.Searcher over the search route.
func (c *Client) Search(ctx context.Context, query string, maxResults int) (booksearch.Results, error) {
	q := url.Values{}
	q.Set("query", query)
	if maxResults > 0 {
		q.Set("maxResults", strconv.Itoa(maxResults))
	}

	env, err := call[[]booksearch.BookResult](ctx, c, http.MethodGet, "/api/books/search?"+q.Encode(), nil)
	if err != nil {
		return booksearch.Results{}, err
	}
	res := booksearch.Results{Books: env.Data, Total: len(env.Data)}
	if env.TotalResults != nil {
		res.Total = *env.TotalResults
	}
	return res, nil
}

// ListDatabases lists the databases shared with an integration.
func (c *Client) ListDatabases(ctx context.Context, apiKey string) ([]kb.Database, error) {
	env, err := call[[]kb.Database](ctx, c, http.MethodPost, "/api/databases", api.ListDatabasesRequest{APIKey: apiKey})
	return env.Data, err
}

// AnalyzeBookDatabase detects the book column roles of a database.
func (c *Client) AnalyzeBookDatabase(ctx context.Context, apiKey, databaseID string) (schema.BookMap, error) {
	env, err := call[schema.BookMap](ctx, c, http.MethodPost, "/api/analyze-book-database",
		api.AnalyzeDatabaseRequest{APIKey: apiKey, DatabaseID: databaseID})
	return env.Data, err
}

// AnalyzeTodoDatabase detects the to-do column roles of a database.
func (c *Client) AnalyzeTodoDatabase(ctx context.Context, apiKey, databaseID string) (schema.TodoMap, error) {
	env, err := call[schema.TodoMap](ctx, c, http.MethodPost, "/api/analyze-todo-database",
		api.AnalyzeDatabaseRequest{APIKey: apiKey, DatabaseID: databaseID})
	return env.Data, err
}

// SaveBook creates a book entry and returns its page id.
func (c *Client) SaveBook(ctx context.Context, req api.SaveBookRequest) (string, error) {
	env, err := call[api.SavedBook](ctx, c, http.MethodPost, "/api/books/save", req)
	return env.Data.PageID, err
}

// SetupBookWidget encodes a book widget and returns its embed link.
func (c *Client) SetupBookWidget(ctx context.Context, req api.SetupBookRequest) (api.BookWidgetSetup, error) {
	env, err := call[api.BookWidgetSetup](ctx, c, http.MethodPost, "/api/setup-book-widget", req)
	return env.Data, err
}

// SetupTodoWidget encodes a to-do widget and returns its embed link.
func (c *Client) SetupTodoWidget(ctx context.Context, req api.SetupTodoRequest) (api.TodoWidgetSetup, error) {
	env, err := call[api.TodoWidgetSetup](ctx, c, http.MethodPost, "/api/setup-todo", req)
	return env.Data, err
}

// GetTodos returns the to-do page for date.
func (c *Client) GetTodos(ctx context.Context, target kb.TodoTarget, date string) (kb.TodoPage, error) {
	q := url.Values{}
	q.Set("token", target.APIKey)
	q.Set("dbId", target.DatabaseID)
	q.Set("date", date)
	if target.DateProperty != "" {
		q.Set("dateProp", target.DateProperty)
	}
	if target.TitleProperty != "" {
		q.Set("titleProp", target.TitleProperty)
	}

	env, err := call[kb.TodoPage](ctx, c, http.MethodGet, "/api/todos?"+q.Encode(), nil)
	return env.Data, err
}

// UpdateTodos applies one to-do change.
func (c *Client) UpdateTodos(ctx context.Context, req api.UpdateTodosRequest) (api.TodoChange, error) {
	env, err := call[api.TodoChange](ctx, c, http.MethodPost, "/api/todos", req)
	return env.Data, err
}

// BookWidget decodes a book widget token on the server.
func (c *Client) BookWidget(ctx context.Context, token string) (api.BookWidget, error) {
	env, err := call[api.BookWidget](ctx, c, http.MethodGet, "/api/widgets/book/"+url.PathEscape(token), nil)
	return env.Data, err
}

// TodoWidget decodes a to-do widget token on the server.
func (c *Client) TodoWidget(ctx context.Context, token string) (api.TodoWidget, error) {
	env, err := call[api.TodoWidget](ctx, c, http.MethodGet, "/api/widgets/todo/"+url.PathEscape(token), nil)
	return env.Data, err
}
