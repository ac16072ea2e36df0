package booksearch

import (
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// Palette is the fallback swatch cycled over result positions.
var Palette = [10]string{
	"#CDE4F5", "#D8EBF7", "#E0F0FA", "#D1E6F3", "#DBEEF9",
	"#E8F4FC", "#C5DFF8", "#D4E6F1", "#E1F0F5", "#CCE5FF",
}

// ColorAt returns the swatch for the i-th result.
func ColorAt(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// ExtractISBN13 picks the first 13-character token of a whitespace-joined
// ISBN list, falling back to the first token, then "".
func ExtractISBN13(isbns string) string {
	fields := strings.Fields(isbns)
	if len(fields) == 0 {
		return ""
	}
	for _, f := range fields {
		if len(f) == 13 {
			return f
		}
	}
	return fields[0]
}

// NormalizeDate truncates a provider timestamp to YYYY-MM-DD. Unparseable
// input yields "".
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000-07:00", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	return ""
}

var markupPattern = regexp.MustCompile(`<[a-zA-Z/][^>]*>|&[a-zA-Z#0-9]+;`)

// CleanDescription converts HTML fragments in a provider description to
// Markdown text. Entities the converter re-escapes are decoded, so the
// result is display text. Plain text is returned trimmed.
func CleanDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !markupPattern.MatchString(s) {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(md))
}
