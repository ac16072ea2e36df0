// Package onboarding is the step machine behind widget creation: connect a
// token, pick a database, review detected columns and theme, then create
// the embed link.
//
// A Flow is driven by one user and is not safe for concurrent use.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pagewidgets/pagewidgets-server/internal/api"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/schema"
	"github.com/pagewidgets/pagewidgets-server/internal/widgetcfg"
)

// Kind is the widget being created.
type Kind int

const (
	KindBook Kind = iota
	KindTodo
)

func (k Kind) String() string {
	if k == KindTodo {
		return "todo"
	}
	return "book"
}

// Step is a stage of the flow.
type Step int

const (
	StepConnect Step = iota + 1
	StepSelect
	StepDesign
	StepCreating
	StepDone
)

var stepNames = map[Step]string{
	StepConnect:  "01 연결",
	StepSelect:   "02 선택",
	StepDesign:   "03 디자인",
	StepCreating: "04 완료",
	StepDone:     "04 완료",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "step " + strconv.Itoa(int(s))
}

var (
	ErrTokenRequired    = errors.New("⚠ Notion API 토큰을 입력해주세요.")
	ErrUnknownDatabase  = errors.New("선택한 데이터베이스를 찾을 수 없습니다.")
	ErrTooManyRecurring = fmt.Errorf("반복 할 일은 최대 %d개까지 등록할 수 있습니다.", widgetcfg.MaxRecurring)
	ErrUnknownPreset    = errors.New("unknown theme preset")
)

// WrongStepError is returned when an action does not belong to the
// current step.
type WrongStepError struct {
	Want, Got Step
}

func (e *WrongStepError) Error() string {
	return fmt.Sprintf("onboarding is at %s, not %s", e.Got, e.Want)
}

// API is the server surface the flow needs.
type API interface {
	ListDatabases(ctx context.Context, apiKey string) ([]kb.Database, error)
	AnalyzeBookDatabase(ctx context.Context, apiKey, databaseID string) (schema.BookMap, error)
	AnalyzeTodoDatabase(ctx context.Context, apiKey, databaseID string) (schema.TodoMap, error)
	SetupBookWidget(ctx context.Context, req api.SetupBookRequest) (api.BookWidgetSetup, error)
	SetupTodoWidget(ctx context.Context, req api.SetupTodoRequest) (api.TodoWidgetSetup, error)
}

// Flow holds the state of one onboarding session.
type Flow struct {
	kind Kind
	api  API

	step       Step
	token      string
	databases  []kb.Database
	databaseID string
	bookMap    schema.BookMap
	todoMap    schema.TodoMap
	theme      widgetcfg.Theme
	preset     string
	recurring  []string
	embedURL   string
}

// NewBook starts a book widget flow with the sky preset.
func NewBook(a API) *Flow {
	return &Flow{kind: KindBook, api: a, step: StepConnect, theme: widgetcfg.BookTheme(), preset: "스카이"}
}

// NewTodo starts a to-do widget flow with the pink preset.
func NewTodo(a API) *Flow {
	theme := widgetcfg.TodoTheme()
	theme.AccentColor = "#FFB8CC"
	theme.BackgroundColor = "#FFF0F5"
	return &Flow{kind: KindTodo, api: a, step: StepConnect, theme: theme, preset: "핑크"}
}

func (f *Flow) Kind() Kind                   { return f.kind }
func (f *Flow) Step() Step                   { return f.step }
func (f *Flow) Databases() []kb.Database     { return f.databases }
func (f *Flow) DatabaseID() string           { return f.databaseID }
func (f *Flow) BookMap() schema.BookMap      { return f.bookMap }
func (f *Flow) TodoMap() schema.TodoMap      { return f.todoMap }
func (f *Flow) Theme() widgetcfg.Theme       { return f.theme }
func (f *Flow) Preset() string               { return f.preset }
func (f *Flow) Recurring() []string          { return f.recurring }
func (f *Flow) EmbedURL() string             { return f.embedURL }
func (f *Flow) SetBookMap(m schema.BookMap)  { f.bookMap = m }
func (f *Flow) SetTodoMap(m schema.TodoMap)  { f.todoMap = m }
func (f *Flow) SetTheme(t widgetcfg.Theme)   { f.theme = t; f.preset = "" }
func (f *Flow) SetFontFamily(family string)  { f.theme.FontFamily = family }
func (f *Flow) SetBackgroundOpacity(pct int) { f.theme.BackgroundOpacity = min(max(pct, 0), 100) }

func (f *Flow) expect(s Step) error {
	if f.step != s {
		return &WrongStepError{Want: s, Got: f.step}
	}
	return nil
}

// Connect lists the databases the token can see and moves to selection.
func (f *Flow) Connect(ctx context.Context, token string) error {
	if f.step != StepConnect && f.step != StepSelect {
		return &WrongStepError{Want: StepConnect, Got: f.step}
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenRequired
	}

	dbs, err := f.api.ListDatabases(ctx, token)
	if err != nil {
		return err
	}
	f.token = token
	f.databases = dbs
	f.step = StepSelect
	return nil
}

// SelectDatabase analyzes a listed database and moves to design.
func (f *Flow) SelectDatabase(ctx context.Context, databaseID string) error {
	if err := f.expect(StepSelect); err != nil {
		return err
	}
	known := false
	for _, db := range f.databases {
		if db.ID == databaseID {
			known = true
			break
		}
	}
	if !known {
		return ErrUnknownDatabase
	}

	switch f.kind {
	case KindTodo:
		m, err := f.api.AnalyzeTodoDatabase(ctx, f.token, databaseID)
		if err != nil {
			return err
		}
		f.todoMap = m
	default:
		m, err := f.api.AnalyzeBookDatabase(ctx, f.token, databaseID)
		if err != nil {
			return err
		}
		f.bookMap = m
	}

	f.databaseID = databaseID
	f.step = StepDesign
	return nil
}

// ApplyPreset sets the colours of a named preset and a readable font
// colour for its background.
func (f *Flow) ApplyPreset(name string) error {
	for _, p := range Presets(f.kind) {
		if p.Name == name {
			f.theme.BackgroundColor = p.Background
			f.theme.PrimaryColor = p.Primary
			f.theme.AccentColor = p.Accent
			f.theme.FontColor = ContrastColor(p.Background)
			f.preset = p.Name
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// AddRecurring appends a recurring item to a to-do widget.
func (f *Flow) AddRecurring(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(f.recurring) >= widgetcfg.MaxRecurring {
		return ErrTooManyRecurring
	}
	f.recurring = append(f.recurring, text)
	return nil
}

// RemoveRecurring drops the item at i.
func (f *Flow) RemoveRecurring(i int) {
	if i >= 0 && i < len(f.recurring) {
		f.recurring = append(f.recurring[:i:i], f.recurring[i+1:]...)
	}
}

// Back returns to the previous step. From the finished step it returns to
// design so the widget can be edited and created again.
func (f *Flow) Back() {
	switch f.step {
	case StepSelect:
		f.step = StepConnect
	case StepDesign:
		f.step = StepSelect
	case StepDone:
		f.step = StepDesign
	}
}

// Create submits the widget and returns its embed link.
func (f *Flow) Create(ctx context.Context) (string, error) {
	if err := f.expect(StepDesign); err != nil {
		return "", err
	}
	f.step = StepCreating

	var (
		embed string
		err   error
	)
	theme := &api.ThemeInput{
		PrimaryColor:      f.theme.PrimaryColor,
		AccentColor:       f.theme.AccentColor,
		BackgroundColor:   f.theme.BackgroundColor,
		BackgroundOpacity: f.theme.BackgroundOpacity,
		FontColor:         f.theme.FontColor,
		FontFamily:        f.theme.FontFamily,
		CheckboxStyle:     f.theme.CheckboxStyle,
	}
	switch f.kind {
	case KindTodo:
		var res api.TodoWidgetSetup
		res, err = f.api.SetupTodoWidget(ctx, api.SetupTodoRequest{
			Token:          f.token,
			DatabaseID:     f.databaseID,
			DateProperty:   f.todoMap.DateProperty,
			TitleProperty:  f.todoMap.TitleProperty,
			Theme:          theme,
			RecurringTodos: f.recurring,
		})
		embed = res.EmbedURL
	default:
		var res api.BookWidgetSetup
		res, err = f.api.SetupBookWidget(ctx, api.SetupBookRequest{
			Token:             f.token,
			DatabaseID:        f.databaseID,
			TitleProperty:     f.bookMap.TitleProperty,
			AuthorProperty:    f.bookMap.AuthorProperty,
			CoverProperty:     f.bookMap.CoverProperty,
			CoverPropertyType: f.bookMap.CoverPropertyType,
			StatusProperty:    f.bookMap.StatusProperty,
			Theme:             theme,
		})
		embed = res.EmbedURL
	}
	if err != nil {
		f.step = StepDesign
		return "", err
	}

	f.embedURL = embed
	f.step = StepDone
	return embed, nil
}
