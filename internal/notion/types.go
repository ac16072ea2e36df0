package notion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// RichText is one rich text span. Spans read from the API keep their raw
// JSON so they can be written back unchanged.
type RichText struct {
	Type      string       `json:"type,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`

	raw json.RawMessage
}

// TextContent is the payload of a text span.
type TextContent struct {
	Content string `json:"content"`
}

// Text builds a plain text span for writing.
func Text(content string) RichText {
	return RichText{Type: "text", Text: &TextContent{Content: content}}
}

// UnmarshalJSON keeps the original bytes alongside the decoded fields.
func (r *RichText) UnmarshalJSON(b []byte) error {
	type plain RichText
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = RichText(p)
	r.raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON writes the original bytes when the span came from the API.
func (r RichText) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	type plain RichText
	return json.Marshal(plain(r))
}

// PlainText joins the plain text of spans.
func PlainText(spans []RichText) string {
	var b strings.Builder
	for _, s := range spans {
		if s.PlainText != "" {
			b.WriteString(s.PlainText)
		} else if s.Text != nil {
			b.WriteString(s.Text.Content)
		}
	}
	return b.String()
}

// Property is one column of a database schema.
type Property struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Properties is a database schema in declared order.
type Properties []Property

// UnmarshalJSON decodes the properties object, keeping key order.
func (p *Properties) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("properties: expected object")
	}

	var out Properties
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("properties: unexpected key %v", keyTok)
		}
		var prop Property
		if err := dec.Decode(&prop); err != nil {
			return fmt.Errorf("properties[%q]: %w", key, err)
		}
		if prop.Name == "" {
			prop.Name = key
		}
		out = append(out, prop)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*p = out
	return nil
}

// Database is a database object.
type Database struct {
	Object     string     `json:"object"`
	ID         string     `json:"id"`
	Title      []RichText `json:"title"`
	URL        string     `json:"url"`
	Properties Properties `json:"properties"`
}

// PropertyValue is a page property value. Only title values are decoded.
type PropertyValue struct {
	ID    string     `json:"id,omitempty"`
	Type  string     `json:"type,omitempty"`
	Title []RichText `json:"title,omitempty"`
}

// Page is a page object.
type Page struct {
	Object      string                   `json:"object"`
	ID          string                   `json:"id"`
	URL         string                   `json:"url"`
	CreatedTime string                   `json:"created_time"`
	Properties  map[string]PropertyValue `json:"properties"`
}

// TitleOf returns the plain text of the named title property.
func (p *Page) TitleOf(prop string) string {
	v, ok := p.Properties[prop]
	if !ok {
		return ""
	}
	return PlainText(v.Title)
}

// ToDo is the payload of a to_do block.
type ToDo struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
}

// Block is a block object. Only to_do payloads are decoded.
type Block struct {
	Object         string `json:"object,omitempty"`
	ID             string `json:"id,omitempty"`
	Type           string `json:"type"`
	CreatedTime    string `json:"created_time,omitempty"`
	LastEditedTime string `json:"last_edited_time,omitempty"`
	HasChildren    bool   `json:"has_children,omitempty"`
	ToDo           *ToDo  `json:"to_do,omitempty"`
}

// BlockTypeToDo is the to_do block type.
const BlockTypeToDo = "to_do"

// NewToDo builds an unchecked to-do block holding text.
func NewToDo(text string) Block {
	return Block{
		Object: "block",
		Type:   BlockTypeToDo,
		ToDo:   &ToDo{RichText: []RichText{Text(text)}},
	}
}

// SearchFilter restricts search results by object type.
type SearchFilter struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// SearchRequest is the body of a search call.
type SearchRequest struct {
	Query       string        `json:"query,omitempty"`
	Filter      *SearchFilter `json:"filter,omitempty"`
	StartCursor string        `json:"start_cursor,omitempty"`
	PageSize    int           `json:"page_size,omitempty"`
}

// SearchResponse holds databases returned by a database-filtered search.
type SearchResponse struct {
	Results    []Database `json:"results"`
	HasMore    bool       `json:"has_more"`
	NextCursor string     `json:"next_cursor"`
}

// DateCondition filters a date property.
type DateCondition struct {
	Equals string `json:"equals,omitempty"`
}

// Filter is a single property filter.
type Filter struct {
	Property string         `json:"property"`
	Date     *DateCondition `json:"date,omitempty"`
}

// Sort orders query results.
type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Direction string `json:"direction"`
}

// Sort directions.
const (
	Ascending  = "ascending"
	Descending = "descending"
)

// QueryRequest is the body of a database query.
type QueryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	Sorts       []Sort  `json:"sorts,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
}

// PageList is a page of query results.
type PageList struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// BlockList is a page of blocks.
type BlockList struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}

// Parent identifies where a page is created.
type Parent struct {
	DatabaseID string `json:"database_id"`
}

// CreatePageRequest is the body of a page creation. Property values are
// built by the caller in the API's write shape.
type CreatePageRequest struct {
	Parent     Parent         `json:"parent"`
	Properties map[string]any `json:"properties"`
}

// Property value builders in write shape.

// TitleValue builds a title property value.
func TitleValue(s string) map[string]any {
	return map[string]any{"title": []RichText{Text(s)}}
}

// RichTextValue builds a rich_text property value.
func RichTextValue(s string) map[string]any {
	return map[string]any{"rich_text": []RichText{Text(s)}}
}

// URLValue builds a url property value.
func URLValue(u string) map[string]any {
	return map[string]any{"url": u}
}

// ExternalFileValue builds a files property value with one external file.
func ExternalFileValue(name, u string) map[string]any {
	return map[string]any{"files": []map[string]any{{
		"type":     "external",
		"name":     name,
		"external": map[string]string{"url": u},
	}}}
}

// SelectValue builds a select property value.
func SelectValue(name string) map[string]any {
	return map[string]any{"select": map[string]string{"name": name}}
}

// DateValue builds a date property value.
func DateValue(start string) map[string]any {
	return map[string]any{"date": map[string]string{"start": start}}
}
