package api

import (
	"errors"
	"net/http"

	domainerrors "github.com/pagewidgets/pagewidgets-server/internal/errors"
	"github.com/pagewidgets/pagewidgets-server/internal/notion"
)

// validate runs struct validation on a request body or input.
func (s *Server) validate(v any) error {
	return s.validator.Validate(v)
}

// validateInBand is validate for routes whose widgets read failures from the
// envelope and expect a 200 status.
func (s *Server) validateInBand(v any) error {
	err := s.validate(v)
	if err == nil {
		return nil
	}
	return inBand(err)
}

// inBand rewrites a coded error to report 200.
func inBand(err error) error {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.WithStatus(http.StatusOK)
	}
	return err
}

// remoteMessage returns the message the knowledge base gave for err, or the
// error text when it did not come from the knowledge base.
func remoteMessage(err error) string {
	var apiErr *notion.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
