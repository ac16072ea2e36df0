package widgetcfg

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullBook() Book {
	return Book{
		APIKey:        "secret_abc",
		DatabaseID:    "db-1",
		TitleProp:     "이름",
		AuthorProp:    "저자",
		CoverProp:     "표지",
		CoverPropType: CoverURL,
		StatusProp:    "상태",
		Theme: Theme{
			PrimaryColor:      "#112233",
			AccentColor:       "#445566",
			BackgroundColor:   "#000000",
			BackgroundOpacity: 40,
			FontColor:         "#FFFFFF",
			FontFamily:        "Pretendard",
		},
	}
}

func fullTodo() Todo {
	return Todo{
		APIKey:     "secret_abc",
		DatabaseID: "db-2",
		DateProp:   "날짜",
		TitleProp:  "제목",
		Recurring:  []string{"물 마시기", "스트레칭"},
		Theme: Theme{
			PrimaryColor:      "#E8A8C0",
			AccentColor:       "#AABBCC",
			BackgroundColor:   "#FAFAFA",
			BackgroundOpacity: 80,
			FontColor:         "#333333",
			FontFamily:        "Corbel",
			CheckboxStyle:     "heart",
		},
	}
}

func TestEncode_IsURLSafe(t *testing.T) {
	// Long enough, and with enough high bytes, to hit + and / in std Base64.
	b := fullBook()
	b.TitleProp = strings.Repeat("?>~", 40)

	token, err := Encode(b)
	require.NoError(t, err)
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")
}

func TestRoundTrip_Book(t *testing.T) {
	want := fullBook()
	token, err := Encode(want)
	require.NoError(t, err)

	got := DecodeBook(token)
	assert.Equal(t, want, got)
	assert.True(t, got.HasKnowledgeBase())
}

func TestRoundTrip_Todo(t *testing.T) {
	want := fullTodo()
	token, err := Encode(want)
	require.NoError(t, err)

	got, err := DecodeTodo(token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecode_ShortKeys(t *testing.T) {
	raw := `{"token":"secret_x","dbId":"db-9","dateProp":"Date","titleProp":"Name","recurring":["a"]}`
	token := base64.RawURLEncoding.EncodeToString([]byte(raw))

	got, err := DecodeTodo(token)
	require.NoError(t, err)
	assert.Equal(t, "secret_x", got.APIKey)
	assert.Equal(t, "db-9", got.DatabaseID)
	assert.Equal(t, "Date", got.DateProp)
	assert.Equal(t, "Name", got.TitleProp)
	assert.Equal(t, []string{"a"}, got.Recurring)
}

func TestDecode_AcceptsPaddedStandardAlphabet(t *testing.T) {
	raw := `{"token":"t","dbId":"d","titleProp":"Name"}`
	token := base64.StdEncoding.EncodeToString([]byte(raw))

	got := DecodeBook(token)
	assert.Equal(t, "Name", got.TitleProp)
}

func TestDecodeBook_FillsDefaults(t *testing.T) {
	token, err := Encode(Book{APIKey: "t", DatabaseID: "d", TitleProp: "Name"})
	require.NoError(t, err)

	got := DecodeBook(token)
	assert.Equal(t, CoverFiles, got.CoverPropType)
	assert.Equal(t, BookTheme(), got.Theme)
}

func TestDecodeBook_MalformedDegrades(t *testing.T) {
	for _, token := range []string{"", "%%%not-base64%%%", base64.RawURLEncoding.EncodeToString([]byte("not json")), base64.RawURLEncoding.EncodeToString([]byte(`["x"]`))} {
		got := DecodeBook(token)
		assert.False(t, got.HasKnowledgeBase())
		assert.Equal(t, BookTheme(), got.Theme)
		assert.Equal(t, CoverFiles, got.CoverPropType)
	}
}

func TestDecodeTodo_MalformedFails(t *testing.T) {
	for _, token := range []string{"", "!!!", base64.RawURLEncoding.EncodeToString([]byte("{broken"))} {
		_, err := DecodeTodo(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestDecodeTodo_FillsDefaults(t *testing.T) {
	token, err := Encode(Todo{APIKey: "t", DatabaseID: "d", DateProp: "날짜", TitleProp: "제목"})
	require.NoError(t, err)

	got, err := DecodeTodo(token)
	require.NoError(t, err)
	assert.Equal(t, TodoTheme(), got.Theme)
	assert.Empty(t, got.Recurring)
}

func TestDecode_DoesNotValidateSemantics(t *testing.T) {
	token, err := Encode(Todo{APIKey: "t", DatabaseID: "not a real id"})
	require.NoError(t, err)

	got, err := DecodeTodo(token)
	require.NoError(t, err)
	assert.Equal(t, "not a real id", got.DatabaseID)
}

func TestRecurringItems(t *testing.T) {
	cfg := Todo{Recurring: []string{"  물 마시기 ", "", "   ", "산책"}}
	assert.Equal(t, []string{"물 마시기", "산책"}, cfg.RecurringItems())
}

func TestEmbedURL(t *testing.T) {
	assert.Equal(t, "https://w.example.com/todo-widget/abc", EmbedURL("https://w.example.com/", TodoRoute, "abc"))
	assert.Equal(t, "http://localhost:3000/book-widget/xyz", EmbedURL("http://localhost:3000", BookRoute, "xyz"))
}
