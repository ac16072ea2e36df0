package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/pagewidgets/pagewidgets-server/internal/errors"
	"github.com/pagewidgets/pagewidgets-server/internal/widgetcfg"
)

func (s *Server) registerSetupRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "setupBookWidget",
		Method:      http.MethodPost,
		Path:        "/api/setup-book-widget",
		Summary:     "Create book widget",
		Description: "Encodes a book widget config and returns its embed link",
		Tags:        []string{"Onboarding"},
	}, s.handleSetupBookWidget)

	huma.Register(s.api, huma.Operation{
		OperationID: "setupTodoWidget",
		Method:      http.MethodPost,
		Path:        "/api/setup-todo",
		Summary:     "Create to-do widget",
		Description: "Encodes a to-do widget config and returns its embed link",
		Tags:        []string{"Onboarding"},
	}, s.handleSetupTodoWidget)
}

var errSetup = domainerrors.New(domainerrors.CodeSetupError, "위젯 설정 중 오류가 발생했습니다.")

// ThemeInput is the optional theme part of a setup request.
type ThemeInput struct {
	_                 struct{} `json:"-" additionalProperties:"true"`
	PrimaryColor      string   `json:"primaryColor,omitempty" validate:"omitempty,hexcolor"`
	AccentColor       string   `json:"accentColor,omitempty" validate:"omitempty,hexcolor"`
	BackgroundColor   string   `json:"backgroundColor,omitempty" validate:"omitempty,hexcolor"`
	BackgroundOpacity int      `json:"backgroundOpacity,omitempty" validate:"gte=0,lte=100"`
	FontColor         string   `json:"fontColor,omitempty" validate:"omitempty,hexcolor"`
	FontFamily        string   `json:"fontFamily,omitempty"`
	CheckboxStyle     string   `json:"checkboxStyle,omitempty"`
}

func (t *ThemeInput) theme() widgetcfg.Theme {
	if t == nil {
		return widgetcfg.Theme{}
	}
	return widgetcfg.Theme{
		PrimaryColor:      t.PrimaryColor,
		AccentColor:       t.AccentColor,
		BackgroundColor:   t.BackgroundColor,
		BackgroundOpacity: t.BackgroundOpacity,
		FontColor:         t.FontColor,
		FontFamily:        t.FontFamily,
		CheckboxStyle:     t.CheckboxStyle,
	}
}

// SetupBookRequest is the request body for creating a book widget.
type SetupBookRequest struct {
	_                 struct{}    `json:"-" additionalProperties:"true"`
	Token             string      `json:"token,omitempty" validate:"required"`
	DatabaseID        string      `json:"databaseId,omitempty" validate:"required"`
	TitleProperty     string      `json:"titleProperty,omitempty"`
	AuthorProperty    string      `json:"authorProperty,omitempty"`
	CoverProperty     string      `json:"coverProperty,omitempty"`
	CoverPropertyType string      `json:"coverPropertyType,omitempty" validate:"omitempty,oneof=files url"`
	StatusProperty    string      `json:"statusProperty,omitempty"`
	Theme             *ThemeInput `json:"theme,omitempty"`
}

// SetupBookInput wraps the book setup request for Huma.
type SetupBookInput struct {
	Body SetupBookRequest
}

// BookWidgetSetup is the created book widget.
type BookWidgetSetup struct {
	EmbedURL string         `json:"embedUrl"`
	Config   widgetcfg.Book `json:"config"`
}

// SetupBookOutput wraps the book setup response for Huma.
type SetupBookOutput struct {
	Body BookWidgetSetup
}

func (s *Server) handleSetupBookWidget(ctx context.Context, input *SetupBookInput) (*SetupBookOutput, error) {
	req := input.Body
	if err := s.validateInBand(req); err != nil {
		return nil, err
	}

	cfg := widgetcfg.Book{
		APIKey:        req.Token,
		DatabaseID:    req.DatabaseID,
		TitleProp:     req.TitleProperty,
		AuthorProp:    req.AuthorProperty,
		CoverProp:     req.CoverProperty,
		CoverPropType: req.CoverPropertyType,
		StatusProp:    req.StatusProperty,
		Theme:         req.Theme.theme(),
	}.WithDefaults()

	token, err := widgetcfg.Encode(cfg)
	if err != nil {
		s.logger.Error("Failed to encode book widget config", "error", err)
		return nil, inBand(errSetup.WithCause(err))
	}

	return &SetupBookOutput{Body: BookWidgetSetup{
		EmbedURL: widgetcfg.EmbedURL(getBaseURL(ctx), widgetcfg.BookRoute, token),
		Config:   cfg,
	}}, nil
}

// SetupTodoRequest is the request body for creating a to-do widget.
type SetupTodoRequest struct {
	_              struct{}    `json:"-" additionalProperties:"true"`
	Token          string      `json:"token,omitempty" validate:"required"`
	DatabaseID     string      `json:"databaseId,omitempty" validate:"required"`
	DateProperty   string      `json:"dateProperty,omitempty" validate:"required"`
	TitleProperty  string      `json:"titleProperty,omitempty" validate:"required"`
	Theme          *ThemeInput `json:"theme,omitempty"`
	RecurringTodos []string    `json:"recurringTodos,omitempty" doc:"Items added to every new day, at most 5"`
}

// SetupTodoInput wraps the to-do setup request for Huma.
type SetupTodoInput struct {
	Body SetupTodoRequest
}

// TodoWidgetSetup is the created to-do widget.
type TodoWidgetSetup struct {
	EmbedURL string         `json:"embedUrl"`
	Config   widgetcfg.Todo `json:"config"`
}

// SetupTodoOutput wraps the to-do setup response for Huma.
type SetupTodoOutput struct {
	Body TodoWidgetSetup
}

func (s *Server) handleSetupTodoWidget(ctx context.Context, input *SetupTodoInput) (*SetupTodoOutput, error) {
	req := input.Body
	if err := s.validateInBand(req); err != nil {
		return nil, err
	}

	cfg := widgetcfg.Todo{
		APIKey:     req.Token,
		DatabaseID: req.DatabaseID,
		DateProp:   req.DateProperty,
		TitleProp:  req.TitleProperty,
		Recurring:  req.RecurringTodos,
		Theme:      req.Theme.theme(),
	}
	cfg.Recurring = cfg.RecurringItems()
	if len(cfg.Recurring) > widgetcfg.MaxRecurring {
		return nil, inBand(domainerrors.ValidationWithDetails(
			"반복 할 일은 최대 5개까지 등록할 수 있습니다.",
			map[string]string{"recurringTodos": "must not exceed 5"},
		))
	}
	cfg = cfg.WithDefaults()

	token, err := widgetcfg.Encode(cfg)
	if err != nil {
		s.logger.Error("Failed to encode to-do widget config", "error", err)
		return nil, inBand(errSetup.WithCause(err))
	}

	return &SetupTodoOutput{Body: TodoWidgetSetup{
		EmbedURL: widgetcfg.EmbedURL(getBaseURL(ctx), widgetcfg.TodoRoute, token),
		Config:   cfg,
	}}, nil
}
