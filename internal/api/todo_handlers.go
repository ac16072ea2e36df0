package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/pagewidgets/pagewidgets-server/internal/errors"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
)

func (s *Server) registerTodoRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getTodos",
		Method:      http.MethodGet,
		Path:        "/api/todos",
		Summary:     "Get to-dos for a date",
		Description: "Returns the to-do page for a date, or an empty page if none exists yet",
		Tags:        []string{"Todos"},
	}, s.handleGetTodos)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTodos",
		Method:      http.MethodPost,
		Path:        "/api/todos",
		Summary:     "Change a to-do",
		Description: "Adds, toggles, marks important or deletes a to-do item",
		Tags:        []string{"Todos"},
	}, s.handleUpdateTodos)
}

// To-do actions.
const (
	ActionAdd             = "add"
	ActionToggle          = "toggle"
	ActionToggleImportant = "toggle-important"
	ActionDelete          = "delete"
)

// GetTodosInput contains parameters for fetching a day's to-dos.
type GetTodosInput struct {
	Token     string `query:"token" json:"token" validate:"required" doc:"Notion integration token"`
	DBID      string `query:"dbId" json:"dbId" validate:"required" doc:"To-do database"`
	Date      string `query:"date" json:"date" validate:"required,datetime=2006-01-02" doc:"Day as YYYY-MM-DD"`
	DateProp  string `query:"dateProp" json:"dateProp" doc:"Date column, default 날짜"`
	TitleProp string `query:"titleProp" json:"titleProp" doc:"Title column, default 제목"`
}

// GetTodosOutput wraps the to-do page for Huma.
type GetTodosOutput struct {
	Body kb.TodoPage
}

func (s *Server) handleGetTodos(ctx context.Context, input *GetTodosInput) (*GetTodosOutput, error) {
	if err := s.validateInBand(input); err != nil {
		return nil, err
	}

	target := kb.TodoTarget{
		APIKey:        input.Token,
		DatabaseID:    input.DBID,
		DateProperty:  input.DateProp,
		TitleProperty: input.TitleProp,
	}
	page, err := s.services.KB.GetTodosForDate(ctx, target, input.Date)
	if err != nil {
		s.logger.Error("Failed to fetch to-dos", "database_id", input.DBID, "date", input.Date, "error", err)
		return nil, inBand(domainerrors.Wrap(err, domainerrors.CodeFetchError, "투두리스트를 가져오는 중 오류가 발생했습니다."))
	}

	return &GetTodosOutput{Body: page}, nil
}

// UpdateTodosRequest is the request body for changing a to-do.
type UpdateTodosRequest struct {
	_           struct{} `json:"-" additionalProperties:"true"`
	Token       string   `json:"token,omitempty" validate:"required"`
	DBID        string   `json:"dbId,omitempty" validate:"required"`
	Date        string   `json:"date,omitempty" validate:"required"`
	Action      string   `json:"action,omitempty" doc:"add, toggle, toggle-important or delete"`
	TodoID      string   `json:"todoId,omitempty" doc:"Item to change; not used by add"`
	Text        string   `json:"text,omitempty" doc:"Text of the new item"`
	Completed   bool     `json:"completed,omitempty" doc:"New completed state for toggle"`
	IsImportant bool     `json:"isImportant,omitempty" doc:"New important state for toggle-important"`
	DateProp    string   `json:"dateProp,omitempty"`
	TitleProp   string   `json:"titleProp,omitempty"`
}

// UpdateTodosInput wraps the change request for Huma.
type UpdateTodosInput struct {
	Body UpdateTodosRequest
}

// TodoChange reports a completed change. Todo is set for add.
type TodoChange struct {
	Message string       `json:"message"`
	Todo    *kb.TodoItem `json:"todo,omitempty"`
}

// UpdateTodosOutput wraps the change result for Huma.
type UpdateTodosOutput struct {
	Body TodoChange
}

func (s *Server) handleUpdateTodos(ctx context.Context, input *UpdateTodosInput) (*UpdateTodosOutput, error) {
	req := input.Body
	if err := s.validateInBand(req); err != nil {
		return nil, err
	}

	change, err := s.applyTodoChange(ctx, req)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrInvalidAction) {
			return nil, err
		}
		s.logger.Error("Failed to update to-do", "action", req.Action, "todo_id", req.TodoID, "error", err)
		return nil, inBand(domainerrors.Newf(domainerrors.CodeUpdateError,
			"투두리스트를 업데이트하는 중 오류가 발생했습니다: %s", remoteMessage(err)).WithCause(err))
	}

	return &UpdateTodosOutput{Body: change}, nil
}

func (s *Server) applyTodoChange(ctx context.Context, req UpdateTodosRequest) (TodoChange, error) {
	gw := s.services.KB

	switch {
	case req.Action == ActionAdd:
		target := kb.TodoTarget{
			APIKey:        req.Token,
			DatabaseID:    req.DBID,
			DateProperty:  req.DateProp,
			TitleProperty: req.TitleProp,
		}
		item, err := gw.AddTodo(ctx, target, req.Date, req.Text)
		if err != nil {
			return TodoChange{}, err
		}
		return TodoChange{Message: "할 일이 추가되었습니다.", Todo: &item}, nil

	case req.Action == ActionToggle && req.TodoID != "":
		if err := gw.ToggleTodoCompleted(ctx, req.Token, req.TodoID, req.Completed); err != nil {
			return TodoChange{}, err
		}
		return TodoChange{Message: "할 일 상태가 업데이트되었습니다."}, nil

	case req.Action == ActionDelete && req.TodoID != "":
		if err := gw.DeleteTodo(ctx, req.Token, req.TodoID); err != nil {
			return TodoChange{}, err
		}
		return TodoChange{Message: "할 일이 삭제되었습니다."}, nil

	case req.Action == ActionToggleImportant && req.TodoID != "":
		if err := gw.ToggleTodoImportant(ctx, req.Token, req.TodoID, req.IsImportant); err != nil {
			return TodoChange{}, err
		}
		return TodoChange{Message: "할 일 중요 상태가 업데이트되었습니다."}, nil
	}

	return TodoChange{}, domainerrors.ErrInvalidAction
}
