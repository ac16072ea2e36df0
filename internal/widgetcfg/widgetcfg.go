// Package widgetcfg encodes widget configuration into the URL-safe token
// carried by embed links, and decodes it back with defaults filled in.
//
// A token is Base64 (URL alphabet, no padding) over a flat JSON object with
// short keys. Nothing is stored server side; the token is the configuration.
package widgetcfg

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Embed routes, one per widget kind.
const (
	BookRoute = "book-widget"
	TodoRoute = "todo-widget"
)

// Cover column types echoed by the schema detector.
const (
	CoverFiles = "files"
	CoverURL   = "url"
)

// MaxRecurring is the most recurring items a to-do widget may carry.
const MaxRecurring = 5

// ErrInvalidToken is returned when a to-do token cannot be decoded.
var ErrInvalidToken = errors.New("invalid widget config token")

// Theme is the presentation part of a widget config.
type Theme struct {
	PrimaryColor      string `json:"primaryColor,omitempty"`
	AccentColor       string `json:"accentColor,omitempty"`
	BackgroundColor   string `json:"backgroundColor,omitempty"`
	BackgroundOpacity int    `json:"backgroundOpacity,omitempty"`
	FontColor         string `json:"fontColor,omitempty"`
	FontFamily        string `json:"fontFamily,omitempty"`
	CheckboxStyle     string `json:"checkboxStyle,omitempty"`
}

// BookTheme returns the book widget defaults.
func BookTheme() Theme {
	return Theme{
		PrimaryColor:      "#6C9AC4",
		AccentColor:       "#B4D4EC",
		BackgroundColor:   "#FFFFFF",
		BackgroundOpacity: 95,
		FontColor:         "#555555",
		FontFamily:        "Corbel",
	}
}

// TodoTheme returns the to-do widget defaults.
func TodoTheme() Theme {
	return Theme{
		PrimaryColor:      "#E8A8C0",
		AccentColor:       "#E8A8C0",
		BackgroundColor:   "#FFFFFF",
		BackgroundOpacity: 100,
		FontColor:         "#666666",
		FontFamily:        "Galmuri11",
		CheckboxStyle:     "circle",
	}
}

// fill replaces zero fields of t with the matching field of def.
func (t Theme) fill(def Theme) Theme {
	t.PrimaryColor = or(t.PrimaryColor, def.PrimaryColor)
	t.AccentColor = or(t.AccentColor, def.AccentColor)
	t.BackgroundColor = or(t.BackgroundColor, def.BackgroundColor)
	if t.BackgroundOpacity == 0 {
		t.BackgroundOpacity = def.BackgroundOpacity
	}
	t.FontColor = or(t.FontColor, def.FontColor)
	t.FontFamily = or(t.FontFamily, def.FontFamily)
	t.CheckboxStyle = or(t.CheckboxStyle, def.CheckboxStyle)
	return t
}

// Book is the book search widget config.
type Book struct {
	APIKey        string `json:"token,omitempty"`
	DatabaseID    string `json:"dbId,omitempty"`
	TitleProp     string `json:"titleProp,omitempty"`
	AuthorProp    string `json:"authorProp,omitempty"`
	CoverProp     string `json:"coverProp,omitempty"`
	CoverPropType string `json:"coverPropType,omitempty"`
	StatusProp    string `json:"statusProp,omitempty"`
	Theme
}

// HasKnowledgeBase reports whether saving is possible. A book widget
// without one runs search-only.
func (b Book) HasKnowledgeBase() bool {
	return b.APIKey != "" && b.DatabaseID != ""
}

// WithDefaults fills absent optional fields.
func (b Book) WithDefaults() Book {
	b.CoverPropType = or(b.CoverPropType, CoverFiles)
	b.Theme = b.Theme.fill(BookTheme())
	return b
}

// Todo is the daily to-do widget config.
type Todo struct {
	APIKey     string   `json:"token,omitempty"`
	DatabaseID string   `json:"dbId,omitempty"`
	DateProp   string   `json:"dateProp,omitempty"`
	TitleProp  string   `json:"titleProp,omitempty"`
	Recurring  []string `json:"recurring,omitempty"`
	Theme
}

// WithDefaults fills absent optional fields.
func (t Todo) WithDefaults() Todo {
	t.Theme = t.Theme.fill(TodoTheme())
	return t
}

// RecurringItems returns the trimmed, non-empty recurring texts in order.
func (t Todo) RecurringItems() []string {
	out := make([]string, 0, len(t.Recurring))
	for _, r := range t.Recurring {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Encode serialises v to a URL-safe token.
func Encode(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal widget config: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeBook decodes a book token. It never fails: an unreadable token
// yields a search-only config with the default theme.
func DecodeBook(token string) Book {
	var b Book
	if err := decode(token, &b); err != nil {
		return Book{}.WithDefaults()
	}
	return b.WithDefaults()
}

// DecodeTodo decodes a to-do token. The to-do widget has no degraded mode,
// so any decode failure is ErrInvalidToken.
func DecodeTodo(token string) (Todo, error) {
	var t Todo
	if err := decode(token, &t); err != nil {
		return Todo{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return t.WithDefaults(), nil
}

// EmbedURL joins base, route and token into an embed link.
func EmbedURL(base, route, token string) string {
	return strings.TrimRight(base, "/") + "/" + route + "/" + token
}

func decode(token string, dst any) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}

	std := strings.NewReplacer("-", "+", "_", "/").Replace(strings.TrimRight(token, "="))
	if pad := len(std) % 4; pad != 0 {
		std += strings.Repeat("=", 4-pad)
	}

	raw, err := base64.StdEncoding.DecodeString(std)
	if err != nil {
		return fmt.Errorf("base64: %w", err)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return errors.New("config is not a JSON object")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("json: %w", err)
	}
	return nil
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
