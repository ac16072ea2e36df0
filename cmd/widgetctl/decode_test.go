package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewidgets/pagewidgets-server/internal/widgetcfg"
)

func TestParseWidgetArg(t *testing.T) {
	tests := []struct {
		name      string
		arg, kind string
		route     string
		token     string
	}{
		{"bare token", "abc", "", widgetcfg.BookRoute, "abc"},
		{"bare token as todo", "abc", "todo", widgetcfg.TodoRoute, "abc"},
		{"todo embed url", "http://localhost:3000/todo-widget/xyz", "", widgetcfg.TodoRoute, "xyz"},
		{"book embed url", "https://widgets.example.org/book-widget/abc/", "", widgetcfg.BookRoute, "abc"},
		{"kind wins over url", "http://localhost:3000/book-widget/abc", "todo", widgetcfg.TodoRoute, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, token := parseWidgetArg(tt.arg, tt.kind)
			assert.Equal(t, tt.route, route)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "*****", maskSecret("short"))
	assert.Equal(t, "secr******_xyz", maskSecret("secret_abc_xyz"))
}

func runDecode(t *testing.T, kind string, reveal bool, arg string) map[string]any {
	t.Helper()
	flagDecodeKind, flagDecodeReveal = kind, reveal
	t.Cleanup(func() { flagDecodeKind, flagDecodeReveal = "", false })

	var out bytes.Buffer
	decodeCmd.SetOut(&out)
	t.Cleanup(func() { decodeCmd.SetOut(nil) })
	require.NoError(t, decodeCmd.RunE(decodeCmd, []string{arg}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	return got
}

func TestDecodeCommand_Todo(t *testing.T) {
	token, err := widgetcfg.Encode(widgetcfg.Todo{
		APIKey:     "secret_abcdefgh",
		DatabaseID: "db-todos",
		DateProp:   "날짜",
		TitleProp:  "제목",
	})
	require.NoError(t, err)

	got := runDecode(t, "", false, "http://localhost:3000/todo-widget/"+token)
	assert.Equal(t, "db-todos", got["dbId"])
	assert.Equal(t, "secr*******efgh", got["token"])
	assert.Equal(t, "Galmuri11", got["fontFamily"])

	got = runDecode(t, "todo", true, token)
	assert.Equal(t, "secret_abcdefgh", got["token"])
}

func TestDecodeCommand_TodoInvalid(t *testing.T) {
	flagDecodeKind = "todo"
	t.Cleanup(func() { flagDecodeKind = "" })

	err := decodeCmd.RunE(decodeCmd, []string{"garbage"})
	assert.ErrorIs(t, err, widgetcfg.ErrInvalidToken)
}

func TestDecodeCommand_BookDegrades(t *testing.T) {
	got := runDecode(t, "book", false, "garbage")
	assert.Equal(t, "#6C9AC4", got["primaryColor"])
	assert.Equal(t, widgetcfg.CoverFiles, got["coverPropType"])
	assert.NotContains(t, got, "dbId")
}
