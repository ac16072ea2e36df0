package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/pagewidgets/pagewidgets-server/internal/errors"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/schema"
)

func (s *Server) registerDatabaseRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listDatabases",
		Method:      http.MethodPost,
		Path:        "/api/databases",
		Summary:     "List databases",
		Description: "Lists the databases shared with a Notion integration",
		Tags:        []string{"Onboarding"},
	}, s.handleListDatabases)

	huma.Register(s.api, huma.Operation{
		OperationID: "analyzeBookDatabase",
		Method:      http.MethodPost,
		Path:        "/api/analyze-book-database",
		Summary:     "Analyze book database",
		Description: "Detects the title, author, cover and status columns of a database",
		Tags:        []string{"Onboarding"},
	}, s.handleAnalyzeBookDatabase)

	huma.Register(s.api, huma.Operation{
		OperationID: "analyzeTodoDatabase",
		Method:      http.MethodPost,
		Path:        "/api/analyze-todo-database",
		Summary:     "Analyze to-do database",
		Description: "Detects the date and title columns of a database",
		Tags:        []string{"Onboarding"},
	}, s.handleAnalyzeTodoDatabase)
}

// ListDatabasesRequest is the request body for listing databases.
type ListDatabasesRequest struct {
	APIKey string `json:"apiKey,omitempty" doc:"Notion integration token"`
}

// ListDatabasesInput wraps the list request for Huma.
type ListDatabasesInput struct {
	Body ListDatabasesRequest
}

// ListDatabasesOutput wraps the list response for Huma.
type ListDatabasesOutput struct {
	Body []kb.Database
}

func (s *Server) handleListDatabases(ctx context.Context, input *ListDatabasesInput) (*ListDatabasesOutput, error) {
	apiKey := strings.TrimSpace(input.Body.APIKey)
	if apiKey == "" {
		return nil, errMissingAPIKey
	}

	dbs, err := s.services.KB.ListDatabases(ctx, apiKey)
	if err != nil {
		s.logger.Warn("Failed to fetch databases", "error", err)
		return nil, domainerrors.New(domainerrors.CodeDatabaseFetchFailed, "Failed to fetch databases").
			WithDetails(remoteMessage(err)).WithCause(err)
	}

	return &ListDatabasesOutput{Body: dbs}, nil
}

var (
	errMissingAPIKey     = domainerrors.New(domainerrors.CodeInvalidAPIKey, "API key is required")
	errMissingDatabaseID = domainerrors.New(domainerrors.CodeInvalidDatabaseID, "Database ID is required")
)

// AnalyzeDatabaseRequest is the request body for both analysis routes.
type AnalyzeDatabaseRequest struct {
	APIKey     string `json:"apiKey,omitempty" doc:"Notion integration token"`
	DatabaseID string `json:"databaseId,omitempty" doc:"Database to analyze"`
}

func (r AnalyzeDatabaseRequest) check() error {
	if strings.TrimSpace(r.APIKey) == "" {
		return errMissingAPIKey
	}
	if strings.TrimSpace(r.DatabaseID) == "" {
		return errMissingDatabaseID
	}
	return nil
}

// AnalyzeDatabaseInput wraps the analysis request for Huma.
type AnalyzeDatabaseInput struct {
	Body AnalyzeDatabaseRequest
}

// AnalyzeBookDatabaseOutput wraps the detected book columns for Huma.
type AnalyzeBookDatabaseOutput struct {
	Body schema.BookMap
}

// AnalyzeTodoDatabaseOutput wraps the detected to-do columns for Huma.
type AnalyzeTodoDatabaseOutput struct {
	Body schema.TodoMap
}

func (s *Server) handleAnalyzeBookDatabase(ctx context.Context, input *AnalyzeDatabaseInput) (*AnalyzeBookDatabaseOutput, error) {
	req := input.Body
	if err := req.check(); err != nil {
		return nil, err
	}

	m, err := s.services.KB.AnalyzeBookDatabase(ctx, req.APIKey, req.DatabaseID)
	if err != nil {
		s.logger.Warn("Book database analysis failed", "database_id", req.DatabaseID, "error", err)
		return nil, analysisError(err)
	}

	return &AnalyzeBookDatabaseOutput{Body: m}, nil
}

func (s *Server) handleAnalyzeTodoDatabase(ctx context.Context, input *AnalyzeDatabaseInput) (*AnalyzeTodoDatabaseOutput, error) {
	req := input.Body
	if err := req.check(); err != nil {
		return nil, err
	}

	m, err := s.services.KB.AnalyzeTodoDatabase(ctx, req.APIKey, req.DatabaseID)
	if err != nil {
		s.logger.Warn("To-do database analysis failed", "database_id", req.DatabaseID, "error", err)
		return nil, analysisError(err)
	}

	return &AnalyzeTodoDatabaseOutput{Body: m}, nil
}

func analysisError(err error) error {
	return domainerrors.New(domainerrors.CodeAnalysisFailed, "Failed to analyze database schema").
		WithDetails(remoteMessage(err)).WithCause(err)
}
