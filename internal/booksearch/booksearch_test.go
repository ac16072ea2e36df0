package booksearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorAt_Cycles(t *testing.T) {
	for i := range 35 {
		assert.Equal(t, Palette[i%10], ColorAt(i), "index %d", i)
	}
}

func TestExtractISBN13(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"893543219X 9788935432190", "9788935432190"},
		{"9788935432190 893543219X", "9788935432190"},
		{"", ""},
		{"   ", ""},
		{"12345", "12345"},
		{" 893543219X  ", "893543219X"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractISBN13(tt.in))
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2019-12-20T00:00:00.000+09:00", "2019-12-20"},
		{"2021-03-01T10:11:12Z", "2021-03-01"},
		{"2021-03-01", "2021-03-01"},
		{"yesterday", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.in))
		})
	}
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "plain text", CleanDescription("  plain text "))
	assert.Equal(t, "", CleanDescription(""))

	got := CleanDescription("<p>첫 문단 <b>강조</b></p>")
	assert.Contains(t, got, "첫 문단")
	assert.Contains(t, got, "**강조**")
	assert.NotContains(t, got, "<p>")

	entity := CleanDescription("&lt;소설&gt; 한 권")
	assert.Equal(t, "<소설> 한 권", entity)

	mixed := CleanDescription("<p>&lt;뉴욕타임스&gt; &amp; 서평</p>")
	assert.Contains(t, mixed, "<뉴욕타임스>")
	assert.NotContains(t, mixed, "&amp;")
}

func TestClampMaxResults(t *testing.T) {
	assert.Equal(t, DefaultMaxResults, ClampMaxResults(0, 50))
	assert.Equal(t, 5, ClampMaxResults(5, 50))
	assert.Equal(t, 50, ClampMaxResults(500, 50))
}

func TestProviderError(t *testing.T) {
	err := &ProviderError{Provider: "kakao", Status: 401, Message: "wrong key"}
	assert.Equal(t, "kakao: status 401: wrong key", err.Error())

	err = &ProviderError{Provider: "aladin", Code: "2", Message: "bad ttbkey"}
	assert.Equal(t, "aladin: bad ttbkey", err.Error())
}

func TestDemoBooks(t *testing.T) {
	books := DemoBooks()
	assert.Len(t, books, 5)
	for i, b := range books {
		assert.NotEmpty(t, b.ID)
		assert.Equal(t, ColorAt(i), b.Color)
	}
}

func TestEnvKey(t *testing.T) {
	t.Setenv("PW_TEST_SEARCH_KEY", " abc ")
	key := EnvKey("PW_TEST_SEARCH_KEY")
	assert.Equal(t, "abc", key())

	t.Setenv("PW_TEST_SEARCH_KEY", "rotated")
	assert.Equal(t, "rotated", key())
}
