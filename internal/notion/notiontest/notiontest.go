// Package notiontest provides an in-memory knowledge-base server for tests.
//
// It implements the subset of the Notion REST API used by this module:
// database search, retrieval and query, page creation, and to-do block
// children. State lives in memory and every request is recorded.
package notiontest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pagewidgets/pagewidgets-server/internal/logger"
	"github.com/pagewidgets/pagewidgets-server/internal/notion"
)

// Token is the only credential the server accepts.
const Token = "secret_test"

// Request is a recorded call.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

type database struct {
	id    string
	title string
	props notion.Properties
}

type page struct {
	id      string
	dbID    string
	created string
	props   map[string]map[string]any
}

type failure struct {
	method  string
	status  int
	code    string
	message string
}

// Server is a fake knowledge base.
type Server struct {
	*httptest.Server

	// PageSize bounds search and block listing pages.
	PageSize int

	mu        sync.Mutex
	databases []*database
	pages     []*page
	blocks    map[string]*notion.Block
	children  map[string][]string
	requests  []Request
	failures  []failure
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		PageSize: 100,
		blocks:   make(map[string]*notion.Block),
		children: make(map[string][]string),
	}

	r := chi.NewRouter()
	r.Use(s.record, s.authenticate, s.injectFailures)
	r.Post("/v1/search", s.search)
	r.Get("/v1/databases/{id}", s.retrieveDatabase)
	r.Post("/v1/databases/{id}/query", s.queryDatabase)
	r.Post("/v1/pages", s.createPage)
	r.Get("/v1/blocks/{id}/children", s.listChildren)
	r.Patch("/v1/blocks/{id}/children", s.appendChildren)
	r.Get("/v1/blocks/{id}", s.retrieveBlock)
	r.Patch("/v1/blocks/{id}", s.updateBlock)
	r.Delete("/v1/blocks/{id}", s.deleteBlock)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Client returns a client authenticated with Token and pointed at s.
func (s *Server) Client(t testing.TB) *notion.Client {
	t.Helper()
	c := notion.New(logger.Discard().Logger,
		notion.WithBaseURL(s.URL+"/v1"),
		notion.WithHTTPClient(s.Server.Client()),
	)
	t.Cleanup(c.Close)
	return c.WithToken(Token)
}

// AddDatabase registers a database with columns given as name/type pairs.
func (s *Server) AddDatabase(id, title string, columns ...notion.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	props := make(notion.Properties, len(columns))
	for i, c := range columns {
		if c.ID == "" {
			c.ID = strconv.Itoa(i)
		}
		props[i] = c
	}
	s.databases = append(s.databases, &database{id: id, title: title, props: props})
}

// Col is shorthand for a column definition.
func Col(name, typ string) notion.Property {
	return notion.Property{Name: name, Type: typ}
}

// AddPage creates a page in a database with a date and a title.
func (s *Server) AddPage(dbID, dateProp, date, titleProp, title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	props := map[string]map[string]any{}
	if dateProp != "" {
		props[dateProp] = map[string]any{"type": "date", "date": map[string]any{"start": date}}
	}
	if titleProp != "" {
		props[titleProp] = map[string]any{"type": "title", "title": []any{span(title)}}
	}
	return s.insertPage(dbID, props)
}

// AddToDo appends a to-do block to a page.
func (s *Server) AddToDo(pageID, text string, checked bool) string {
	return s.AddToDoRaw(pageID, fmt.Sprintf(`[%s]`, mustJSON(span(text))), checked)
}

// AddToDoRaw appends a to-do block whose rich text is the given JSON array.
func (s *Server) AddToDoRaw(pageID, richText string, checked bool) string {
	var spans []notion.RichText
	if err := json.Unmarshal([]byte(richText), &spans); err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertBlock(pageID, notion.Block{Type: notion.BlockTypeToDo, ToDo: &notion.ToDo{RichText: spans, Checked: checked}})
}

// AddParagraph appends a non to-do block to a page.
func (s *Server) AddParagraph(pageID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertBlock(pageID, notion.Block{Type: "paragraph"})
}

// Pages returns the ids of pages in a database, oldest first.
func (s *Server) Pages(dbID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, p := range s.pages {
		if p.dbID == dbID {
			ids = append(ids, p.id)
		}
	}
	return ids
}

// PageProperties returns the stored property values of a page.
func (s *Server) PageProperties(pageID string) map[string]map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pages {
		if p.id == pageID {
			return p.props
		}
	}
	return nil
}

// ToDos returns the to-do blocks of a page in order.
func (s *Server) ToDos(pageID string) []notion.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notion.Block
	for _, id := range s.children[pageID] {
		if b := s.blocks[id]; b.Type == notion.BlockTypeToDo {
			out = append(out, *b)
		}
	}
	return out
}

// Requests returns a copy of the recorded calls.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests counts recorded calls with method whose path has prefix.
func (s *Server) CountRequests(method, prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

// FailNext makes the next request with method fail with an API error.
func (s *Server) FailNext(method string, status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, status: status, code: code, message: message})
}

func (s *Server) insertPage(dbID string, props map[string]map[string]any) string {
	p := &page{
		id:      uuid.NewString(),
		dbID:    dbID,
		created: time.Now().UTC().Format(time.RFC3339),
		props:   props,
	}
	s.pages = append(s.pages, p)
	return p.id
}

func (s *Server) insertBlock(parent string, b notion.Block) string {
	now := time.Now().UTC().Format(time.RFC3339)
	b.Object = "block"
	b.ID = uuid.NewString()
	b.CreatedTime = now
	b.LastEditedTime = now
	s.blocks[b.ID] = &b
	s.children[parent] = append(s.children[parent], b.ID)
	return b.ID
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeError(w, http.StatusUnauthorized, "unauthorized", "API token is invalid.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var f *failure
		for i := range s.failures {
			if s.failures[i].method == r.Method {
				fail := s.failures[i]
				f = &fail
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		if f != nil {
			writeError(w, f.status, f.code, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req notion.SearchRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	start, _ := strconv.Atoi(req.StartCursor)
	end := min(start+s.PageSize, len(s.databases))

	results := []map[string]any{}
	for _, d := range s.databases[start:end] {
		title := []any{}
		if d.title != "" {
			title = append(title, span(d.title))
		}
		results = append(results, map[string]any{"object": "database", "id": d.id, "title": title})
	}
	writeJSON(w, http.StatusOK, listBody(results, end, len(s.databases)))
}

func (s *Server) retrieveDatabase(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.findDatabase(chi.URLParam(r, "id"))
	if d == nil {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find database with ID: "+chi.URLParam(r, "id")+".")
		return
	}

	// Property order is significant, so the object is written by hand.
	var props strings.Builder
	props.WriteByte('{')
	for i, p := range d.props {
		if i > 0 {
			props.WriteByte(',')
		}
		props.Write(mustJSON(p.Name))
		props.WriteByte(':')
		props.Write(mustJSON(p))
	}
	props.WriteByte('}')

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"object":"database","id":%s,"title":[%s],"properties":%s}`,
		mustJSON(d.id), mustJSON(span(d.title)), props.String())
}

func (s *Server) queryDatabase(w http.ResponseWriter, r *http.Request) {
	var req notion.QueryRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	dbID := chi.URLParam(r, "id")
	if s.findDatabase(dbID) == nil {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find database with ID: "+dbID+".")
		return
	}

	results := []map[string]any{}
	for i := len(s.pages) - 1; i >= 0; i-- {
		p := s.pages[i]
		if p.dbID != dbID {
			continue
		}
		if req.Filter != nil && req.Filter.Date != nil && dateOf(p, req.Filter.Property) != req.Filter.Date.Equals {
			continue
		}
		results = append(results, pageBody(p))
	}
	writeJSON(w, http.StatusOK, listBody(results, 0, 0))
}

func (s *Server) createPage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Parent     notion.Parent             `json:"parent"`
		Properties map[string]map[string]any `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findDatabase(req.Parent.DatabaseID) == nil {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find database with ID: "+req.Parent.DatabaseID+".")
		return
	}
	for _, v := range req.Properties {
		for _, key := range []string{"title", "rich_text"} {
			if spans, ok := v[key].([]any); ok {
				for _, sp := range spans {
					if m, ok := sp.(map[string]any); ok {
						if text, ok := m["text"].(map[string]any); ok {
							m["plain_text"] = text["content"]
						}
					}
				}
			}
		}
	}
	s.insertPage(req.Parent.DatabaseID, req.Properties)
	writeJSON(w, http.StatusOK, pageBody(s.pages[len(s.pages)-1]))
}

func (s *Server) listChildren(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.children[chi.URLParam(r, "id")]
	start, _ := strconv.Atoi(r.URL.Query().Get("start_cursor"))
	end := min(start+s.PageSize, len(ids))

	results := []*notion.Block{}
	for _, id := range ids[start:end] {
		results = append(results, s.blocks[id])
	}
	writeJSON(w, http.StatusOK, listBody(results, end, len(ids)))
}

func (s *Server) appendChildren(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Children []notion.Block `json:"children"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	parent := chi.URLParam(r, "id")
	if !s.pageExists(parent) {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find block with ID: "+parent+".")
		return
	}
	results := []*notion.Block{}
	for _, b := range req.Children {
		if b.ToDo != nil {
			b.ToDo.RichText = withPlainText(b.ToDo.RichText)
		}
		id := s.insertBlock(parent, b)
		results = append(results, s.blocks[id])
	}
	writeJSON(w, http.StatusOK, listBody(results, 0, 0))
}

func (s *Server) retrieveBlock(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find block with ID: "+chi.URLParam(r, "id")+".")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) updateBlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ToDo *notion.ToDo `json:"to_do"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find block with ID: "+chi.URLParam(r, "id")+".")
		return
	}
	if req.ToDo != nil {
		b.ToDo = &notion.ToDo{RichText: withPlainText(req.ToDo.RichText), Checked: req.ToDo.Checked}
	}
	b.LastEditedTime = time.Now().UTC().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) deleteBlock(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	b, ok := s.blocks[id]
	if !ok {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find block with ID: "+id+".")
		return
	}
	delete(s.blocks, id)
	for parent, kids := range s.children {
		for i, k := range kids {
			if k == id {
				s.children[parent] = append(kids[:i:i], kids[i+1:]...)
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) findDatabase(id string) *database {
	for _, d := range s.databases {
		if d.id == id {
			return d
		}
	}
	return nil
}

func (s *Server) pageExists(id string) bool {
	for _, p := range s.pages {
		if p.id == id {
			return true
		}
	}
	return false
}

func dateOf(p *page, prop string) string {
	v, ok := p.props[prop]["date"].(map[string]any)
	if !ok {
		return ""
	}
	start, _ := v["start"].(string)
	return start
}

func pageBody(p *page) map[string]any {
	return map[string]any{
		"object":       "page",
		"id":           p.id,
		"created_time": p.created,
		"url":          "https://www.notion.so/" + strings.ReplaceAll(p.id, "-", ""),
		"properties":   p.props,
	}
}

func listBody(results any, next, total int) map[string]any {
	body := map[string]any{"object": "list", "results": results, "has_more": false, "next_cursor": nil}
	if next < total {
		body["has_more"] = true
		body["next_cursor"] = strconv.Itoa(next)
	}
	return body
}

func span(text string) map[string]any {
	return map[string]any{
		"type":        "text",
		"text":        map[string]any{"content": text, "link": nil},
		"annotations": map[string]any{"bold": false, "color": "default"},
		"plain_text":  text,
	}
}

func withPlainText(spans []notion.RichText) []notion.RichText {
	out := make([]notion.RichText, 0, len(spans))
	for _, sp := range spans {
		content := sp.PlainText
		if sp.Text != nil {
			content = sp.Text.Content
		}
		var raw map[string]any
		_ = json.Unmarshal(mustJSON(sp), &raw)
		if raw == nil {
			raw = map[string]any{}
		}
		raw["plain_text"] = content
		var rt notion.RichText
		_ = json.Unmarshal(mustJSON(raw), &rt)
		out = append(out, rt)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"object": "error", "status": status, "code": code, "message": message})
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
