// Package notion is a small client for the subset of the Notion REST API the
// widgets use: database search and schema, page queries and creation, and
// to-do block CRUD.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pagewidgets/pagewidgets-server/internal/ratelimit"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://api.notion.com/v1"
	// DefaultVersion is the API version header value.
	DefaultVersion = "2022-06-28"

	// Notion allows an average of three requests per second per integration.
	defaultRPS     = 3.0
	defaultBurst   = 3
	defaultTimeout = 30 * time.Second

	maxErrorBody = 64 << 10
)

// Client issues authenticated requests. The zero token is invalid; derive a
// per-integration client with WithToken.
type Client struct {
	http    *http.Client
	baseURL string
	version string
	token   string
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithVersion overrides the Notion-Version header.
func WithVersion(v string) Option {
	return func(c *Client) { c.version = v }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client without credentials.
func New(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		baseURL: DefaultBaseURL,
		version: DefaultVersion,
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of c that authenticates as token. The copy
// shares the HTTP client and rate limiter.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Close releases resources held by the client and all of its copies.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Search lists objects shared with the integration.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var out SearchResponse
	if err := c.do(ctx, http.MethodPost, "/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetrieveDatabase fetches a database with its properties in declared order.
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var out Database
	if err := c.do(ctx, http.MethodGet, "/databases/"+url.PathEscape(databaseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryDatabase returns pages of a database matching req.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) (*PageList, error) {
	var out PageList
	if err := c.do(ctx, http.MethodPost, "/databases/"+url.PathEscape(databaseID)+"/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePage creates a page.
func (c *Client) CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error) {
	var out Page
	if err := c.do(ctx, http.MethodPost, "/pages", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBlockChildren returns one page of a block's children. An empty cursor
// starts at the beginning.
func (c *Client) ListBlockChildren(ctx context.Context, blockID, cursor string) (*BlockList, error) {
	path := "/blocks/" + url.PathEscape(blockID) + "/children?page_size=100"
	if cursor != "" {
		path += "&start_cursor=" + url.QueryEscape(cursor)
	}
	var out BlockList
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AppendBlockChildren appends children to a block and returns the created blocks.
func (c *Client) AppendBlockChildren(ctx context.Context, blockID string, children []Block) (*BlockList, error) {
	body := struct {
		Children []Block `json:"children"`
	}{children}
	var out BlockList
	if err := c.do(ctx, http.MethodPatch, "/blocks/"+url.PathEscape(blockID)+"/children", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetrieveBlock fetches a single block.
func (c *Client) RetrieveBlock(ctx context.Context, blockID string) (*Block, error) {
	var out Block
	if err := c.do(ctx, http.MethodGet, "/blocks/"+url.PathEscape(blockID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateToDo replaces a to-do block's content.
func (c *Client) UpdateToDo(ctx context.Context, blockID string, todo ToDo) (*Block, error) {
	body := struct {
		ToDo ToDo `json:"to_do"`
	}{todo}
	var out Block
	if err := c.do(ctx, http.MethodPatch, "/blocks/"+url.PathEscape(blockID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBlock archives a block.
func (c *Client) DeleteBlock(ctx context.Context, blockID string) error {
	return c.do(ctx, http.MethodDelete, "/blocks/"+url.PathEscape(blockID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.token == "" {
		return ErrNoToken
	}

	if err := c.limiter.Wait(ctx, c.token); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("notion request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notion %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{Status: resp.StatusCode}
	if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	apiErr.Status = resp.StatusCode
	return apiErr
}
