package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/pagewidgets/pagewidgets-server/internal/errors"
	"github.com/pagewidgets/pagewidgets-server/internal/widgetcfg"
)

func (s *Server) registerWidgetRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getBookWidget",
		Method:      http.MethodGet,
		Path:        "/api/widgets/book/{config}",
		Summary:     "Decode book widget",
		Description: "Decodes a book widget token. Unreadable tokens give a search-only widget.",
		Tags:        []string{"Widgets"},
	}, s.handleGetBookWidget)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTodoWidget",
		Method:      http.MethodGet,
		Path:        "/api/widgets/todo/{config}",
		Summary:     "Decode to-do widget",
		Description: "Decodes a to-do widget token",
		Tags:        []string{"Widgets"},
	}, s.handleGetTodoWidget)

	// Embed links built by the setup routes resolve here.
	huma.Register(s.api, huma.Operation{
		OperationID: "getBookWidgetEmbed",
		Method:      http.MethodGet,
		Path:        "/" + widgetcfg.BookRoute + "/{config}",
		Summary:     "Book widget embed",
		Description: "Same as getBookWidget, served at the embed link path",
		Tags:        []string{"Widgets"},
	}, s.handleGetBookWidget)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTodoWidgetEmbed",
		Method:      http.MethodGet,
		Path:        "/" + widgetcfg.TodoRoute + "/{config}",
		Summary:     "To-do widget embed",
		Description: "Same as getTodoWidget, served at the embed link path",
		Tags:        []string{"Widgets"},
	}, s.handleGetTodoWidget)
}

// WidgetTokenInput carries an embed token.
type WidgetTokenInput struct {
	Config string `path:"config" doc:"Widget config token"`
}

// BookWidget is a decoded book widget.
type BookWidget struct {
	Config     widgetcfg.Book `json:"config"`
	SearchOnly bool           `json:"searchOnly" doc:"True when saving is unavailable"`
}

// BookWidgetOutput wraps the decoded book widget for Huma.
type BookWidgetOutput struct {
	Body BookWidget
}

func (s *Server) handleGetBookWidget(_ context.Context, input *WidgetTokenInput) (*BookWidgetOutput, error) {
	cfg := widgetcfg.DecodeBook(input.Config)
	return &BookWidgetOutput{Body: BookWidget{Config: cfg, SearchOnly: !cfg.HasKnowledgeBase()}}, nil
}

// TodoWidget is a decoded to-do widget.
type TodoWidget struct {
	Config    widgetcfg.Todo `json:"config"`
	Recurring []string       `json:"recurring" doc:"Cleaned recurring items"`
}

// TodoWidgetOutput wraps the decoded to-do widget for Huma.
type TodoWidgetOutput struct {
	Body TodoWidget
}

func (s *Server) handleGetTodoWidget(_ context.Context, input *WidgetTokenInput) (*TodoWidgetOutput, error) {
	cfg, err := widgetcfg.DecodeTodo(input.Config)
	if err != nil {
		s.logger.Debug("Rejected to-do widget token", "error", err)
		return nil, domainerrors.Wrap(err, domainerrors.CodeInvalidConfig, "위젯 설정이 올바르지 않습니다.")
	}
	return &TodoWidgetOutput{Body: TodoWidget{Config: cfg, Recurring: cfg.RecurringItems()}}, nil
}
