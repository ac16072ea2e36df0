package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewidgets/pagewidgets-server/internal/api"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/onboarding"
	"github.com/pagewidgets/pagewidgets-server/internal/schema"
)

type stubAPI struct {
	setupFailures int

	bookSetup api.SetupBookRequest
	todoSetup api.SetupTodoRequest
}

func (s *stubAPI) ListDatabases(_ context.Context, apiKey string) ([]kb.Database, error) {
	if apiKey != "secret_abc" {
		return nil, errors.New("API token is invalid.")
	}
	return []kb.Database{{ID: "db-books", Title: "독서 기록"}, {ID: "db-todos", Title: "할 일"}}, nil
}

func (s *stubAPI) AnalyzeBookDatabase(context.Context, string, string) (schema.BookMap, error) {
	return schema.BookMap{TitleProperty: "이름", AuthorProperty: "저자", CoverProperty: "표지", CoverPropertyType: schema.TypeFiles}, nil
}

func (s *stubAPI) AnalyzeTodoDatabase(context.Context, string, string) (schema.TodoMap, error) {
	return schema.TodoMap{DateProperty: "날짜", TitleProperty: "제목"}, nil
}

func (s *stubAPI) SetupBookWidget(_ context.Context, req api.SetupBookRequest) (api.BookWidgetSetup, error) {
	s.bookSetup = req
	if s.setupFailures > 0 {
		s.setupFailures--
		return api.BookWidgetSetup{}, errors.New("위젯 설정 중 오류가 발생했습니다.")
	}
	return api.BookWidgetSetup{EmbedURL: "http://localhost:3000/book-widget/abc"}, nil
}

func (s *stubAPI) SetupTodoWidget(_ context.Context, req api.SetupTodoRequest) (api.TodoWidgetSetup, error) {
	s.todoSetup = req
	return api.TodoWidgetSetup{EmbedURL: "http://localhost:3000/todo-widget/xyz"}, nil
}

func answers(lines ...string) io.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func TestRunOnboarding_Book(t *testing.T) {
	stub := &stubAPI{}
	var out bytes.Buffer
	p := newPrompter(answers(
		"nope",           // rejected token
		"secret_abc",     // token
		"1",              // database
		"", "작가", "", "", // columns: keep title, rename author, keep cover and status
		"다크", // preset
		"2",  // font
		"80", // opacity
	), &out)

	embed, err := runOnboarding(context.Background(), onboarding.NewBook(stub), p)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/book-widget/abc", embed)

	assert.Contains(t, out.String(), "API token is invalid.")
	assert.Contains(t, out.String(), "1) 독서 기록")

	req := stub.bookSetup
	assert.Equal(t, "db-books", req.DatabaseID)
	assert.Equal(t, "이름", req.TitleProperty)
	assert.Equal(t, "작가", req.AuthorProperty)
	assert.Equal(t, schema.TypeFiles, req.CoverPropertyType)
	require.NotNil(t, req.Theme)
	assert.Equal(t, "#2D2D2D", req.Theme.BackgroundColor)
	assert.Equal(t, "Pretendard", req.Theme.FontFamily)
	assert.Equal(t, 80, req.Theme.BackgroundOpacity)
}

func TestRunOnboarding_Todo(t *testing.T) {
	stub := &stubAPI{}
	p := newPrompter(answers(
		"secret_abc",
		"할 일",
		"", "", // columns
		"", "", "", // preset, font, opacity
		"물 마시기",
		"스트레칭",
		"",
	), io.Discard)

	embed, err := runOnboarding(context.Background(), onboarding.NewTodo(stub), p)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/todo-widget/xyz", embed)

	req := stub.todoSetup
	assert.Equal(t, "db-todos", req.DatabaseID)
	assert.Equal(t, "날짜", req.DateProperty)
	assert.Equal(t, []string{"물 마시기", "스트레칭"}, req.RecurringTodos)
	require.NotNil(t, req.Theme)
	assert.Equal(t, "#FFF0F5", req.Theme.BackgroundColor)
	assert.Equal(t, "Galmuri11", req.Theme.FontFamily)
}

func TestRunOnboarding_RetriesFailedCreate(t *testing.T) {
	stub := &stubAPI{setupFailures: 1}
	var out bytes.Buffer
	p := newPrompter(answers(
		"secret_abc", "1",
		"", "", "", "", "", "", "", // first design pass
		"", "", "", "", "", "", "", // second design pass
	), &out)

	embed, err := runOnboarding(context.Background(), onboarding.NewBook(stub), p)
	require.NoError(t, err)
	assert.NotEmpty(t, embed)
	assert.Contains(t, out.String(), "위젯 설정 중 오류가 발생했습니다.")
	assert.Equal(t, 2, strings.Count(out.String(), "[03 디자인]"))
}

func TestRunOnboarding_EndOfInput(t *testing.T) {
	_, err := runOnboarding(context.Background(), onboarding.NewBook(&stubAPI{}), newPrompter(strings.NewReader(""), io.Discard))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestPrompter_Choose(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(answers("9", "보라", ""), &out)

	got, err := p.choose("테마", []string{"스카이", "보라"}, "스카이")
	require.NoError(t, err)
	assert.Equal(t, "보라", got)
	assert.Contains(t, out.String(), "목록에서 선택해주세요.")

	got, err = p.choose("테마", []string{"스카이", "보라"}, "스카이")
	require.NoError(t, err)
	assert.Equal(t, "스카이", got)
}
