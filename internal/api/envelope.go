package api

import (
	"errors"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/pagewidgets/pagewidgets-server/internal/errors"
	"github.com/pagewidgets/pagewidgets-server/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in the widget envelope.
// Success bodies become data; errors become the error member.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case response.Envelope:
		return body, nil
	case *APIError:
		return response.Failure(body.domain()), nil
	case *domainerrors.Error:
		return response.Failure(body), nil
	case error:
		var domainErr *domainerrors.Error
		if errors.As(body, &domainErr) {
			return response.Failure(domainErr), nil
		}
		code, _ := strconv.Atoi(status)
		return response.Failure(domainerrors.New(statusToCode(code), body.Error())), nil
	}
	return response.Wrap(v), nil
}
