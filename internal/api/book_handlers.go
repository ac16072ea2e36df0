package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagewidgets/pagewidgets-server/internal/booksearch"
	"github.com/pagewidgets/pagewidgets-server/internal/config"
	domainerrors "github.com/pagewidgets/pagewidgets-server/internal/errors"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/schema"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/books/search",
		Summary:     "Search books",
		Description: "Searches the configured book provider and returns normalised results",
		Tags:        []string{"Books"},
	}, s.handleSearchBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveBook",
		Method:      http.MethodPost,
		Path:        "/api/books/save",
		Summary:     "Save book",
		Description: "Creates a knowledge-base entry for a book search result",
		Tags:        []string{"Books"},
	}, s.handleSaveBook)
}

// SearchBooksInput contains parameters for searching books.
type SearchBooksInput struct {
	Query      string `query:"query" doc:"Search keywords"`
	MaxResults int    `query:"maxResults" default:"10" doc:"Maximum number of results"`
}

// BookPage is one page of search results. Its items become the envelope's
// data and its total becomes totalResults.
type BookPage struct {
	Books        []booksearch.BookResult `json:"books"`
	TotalResults int                     `json:"totalResults"`
}

// Items implements response.Counted.
func (p BookPage) Items() any { return p.Books }

// Total implements response.Counted.
func (p BookPage) Total() int { return p.TotalResults }

// SearchBooksOutput wraps the search response for Huma.
type SearchBooksOutput struct {
	Body BookPage
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*SearchBooksOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, domainerrors.New(domainerrors.CodeMissingQuery, "검색어를 입력해주세요.")
	}

	res, err := s.services.Search.Search(ctx, query, input.MaxResults)
	if err != nil {
		s.logger.Error("Book search failed", "query", query, "error", err)
		return nil, searchError(err)
	}

	books := res.Books
	if books == nil {
		books = []booksearch.BookResult{}
	}
	return &SearchBooksOutput{Body: BookPage{Books: books, TotalResults: res.Total}}, nil
}

// searchError maps a provider failure onto the envelope codes. Errors the
// provider reports about the request itself are the caller's problem; its
// own outages are ours.
func searchError(err error) error {
	if errors.Is(err, booksearch.ErrMissingCredential) {
		return domainerrors.ErrAPIKeyMissing
	}

	var provErr *booksearch.ProviderError
	if errors.As(err, &provErr) && provErr.Status < http.StatusInternalServerError {
		msg := provErr.Message
		if msg == "" {
			msg = "도서 검색 제공자 오류가 발생했습니다."
		}
		return domainerrors.New(providerCode(provErr.Provider), msg).WithCause(err)
	}

	return domainerrors.Wrap(err, domainerrors.CodeSearchError, "도서 검색 중 오류가 발생했습니다.").
		WithDetails(err.Error())
}

// providerCode names the rejecting provider in the error code.
func providerCode(provider string) domainerrors.Code {
	switch provider {
	case config.ProviderAladin:
		return domainerrors.CodeAladinAPIError
	case config.ProviderKakao:
		return domainerrors.CodeKakaoAPIError
	default:
		return domainerrors.CodeProviderError
	}
}

// SaveBookRequest is the request body for saving a book.
type SaveBookRequest struct {
	_                 struct{}   `json:"-" additionalProperties:"true"`
	Token             string     `json:"token,omitempty" validate:"required" doc:"Notion integration token"`
	DatabaseID        string     `json:"databaseId,omitempty" validate:"required" doc:"Target database"`
	TitleProperty     string     `json:"titleProperty,omitempty" doc:"Title column"`
	AuthorProperty    string     `json:"authorProperty,omitempty" doc:"Author column"`
	CoverProperty     string     `json:"coverProperty,omitempty" doc:"Cover column"`
	CoverPropertyType string     `json:"coverPropertyType,omitempty" doc:"Cover column type: files or url"`
	StatusProperty    string     `json:"statusProperty,omitempty" doc:"Reading status column"`
	Book              *BookInput `json:"book,omitempty" validate:"required" doc:"Search result to save"`
}

// BookInput is the part of a search result written to the knowledge base.
// Result ids differ in type between providers, so unknown fields pass.
type BookInput struct {
	_      struct{} `json:"-" additionalProperties:"true"`
	Title  string   `json:"title,omitempty"`
	Author string   `json:"author,omitempty"`
	Cover  string   `json:"cover,omitempty"`
}

// SaveBookInput wraps the save request for Huma.
type SaveBookInput struct {
	Body SaveBookRequest
}

// SavedBook identifies the created entry.
type SavedBook struct {
	PageID string `json:"pageId"`
}

// SaveBookOutput wraps the save response for Huma.
type SaveBookOutput struct {
	Body SavedBook
}

func (s *Server) handleSaveBook(ctx context.Context, input *SaveBookInput) (*SaveBookOutput, error) {
	req := input.Body
	if err := s.validate(req); err != nil {
		return nil, err
	}

	coverType := req.CoverPropertyType
	if coverType == "" {
		coverType = schema.TypeURL
	}

	target := kb.BookTarget{
		APIKey:     req.Token,
		DatabaseID: req.DatabaseID,
		BookMap: schema.BookMap{
			TitleProperty:     req.TitleProperty,
			AuthorProperty:    req.AuthorProperty,
			CoverProperty:     req.CoverProperty,
			CoverPropertyType: coverType,
			StatusProperty:    req.StatusProperty,
		},
	}
	book := booksearch.BookResult{Title: req.Book.Title, Author: req.Book.Author, Cover: req.Book.Cover}

	pageID, err := s.services.KB.CreateBookEntry(ctx, target, book)
	if err != nil {
		s.logger.Error("Failed to save book", "database_id", req.DatabaseID, "error", err)
		return nil, domainerrors.Newf(domainerrors.CodeSaveError,
			"도서 저장 중 오류가 발생했습니다: %s", remoteMessage(err)).WithCause(err)
	}

	return &SaveBookOutput{Body: SavedBook{PageID: pageID}}, nil
}
