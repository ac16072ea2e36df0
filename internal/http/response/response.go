// Package response writes the JSON envelope shared by every widget API route.
//
//	{ "success": true,  "data": ..., "totalResults": 12 }
//	{ "success": false, "error": { "code": "...", "message": "...", "details": ... } }
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "github.com/pagewidgets/pagewidgets-server/internal/errors"
)

// ErrorBody is the error member of the envelope.
type ErrorBody struct {
	Code    apierrors.Code `json:"code"`
	Message string         `json:"message"`
	Details any            `json:"details,omitempty"`
}

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	Success      bool       `json:"success"`
	Data         any        `json:"data,omitempty"`
	TotalResults *int       `json:"totalResults,omitempty"`
	Error        *ErrorBody `json:"error,omitempty"`
}

// Counted is implemented by list payloads that report a total result count
// next to their items, such as book search. The items become data and the
// total is lifted to the top level.
type Counted interface {
	Items() any
	Total() int
}

// Wrap builds a success envelope.
func Wrap(data any) Envelope {
	if c, ok := data.(Counted); ok {
		total := c.Total()
		return Envelope{Success: true, Data: c.Items(), TotalResults: &total}
	}
	return Envelope{Success: true, Data: data}
}

// Failure builds an error envelope from a coded error.
func Failure(e *apierrors.Error) Envelope {
	return Envelope{
		Success: false,
		Error:   &ErrorBody{Code: e.Code, Message: e.Message, Details: e.Details},
	}
}

// JSON writes env with the given status.
func JSON(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(env); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// Success writes a 200 success envelope.
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, Wrap(data), logger)
}

// Error writes an error envelope. Coded errors keep their code and status;
// anything else becomes INTERNAL_SERVER_ERROR with a generic message.
func Error(w http.ResponseWriter, err error, logger *slog.Logger) {
	var apiErr *apierrors.Error
	if !apierrors.As(err, &apiErr) {
		if logger != nil {
			logger.Error("Unhandled error", "error", err)
		}
		apiErr = apierrors.ErrInternal
	}
	JSON(w, apiErr.HTTPStatus(), Failure(apiErr), logger)
}
