package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeMissingParameters, http.StatusBadRequest},
		{CodeMissingQuery, http.StatusBadRequest},
		{CodeProviderError, http.StatusBadRequest},
		{CodeAladinAPIError, http.StatusBadRequest},
		{CodeKakaoAPIError, http.StatusBadRequest},
		{CodeAnalysisFailed, http.StatusBadRequest},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeFetchError, http.StatusOK},
		{CodeInvalidAction, http.StatusOK},
		{CodeSaveError, http.StatusInternalServerError},
		{CodeAPIKeyMissing, http.StatusInternalServerError},
		{Code("SOMETHING_NEW"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("handler: %w", ErrMissingParameters.WithDetails(map[string]string{"apiKey": "is required"}))

	assert.True(t, Is(err, ErrMissingParameters))
	assert.False(t, Is(err, ErrInvalidAction))
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(cause, CodeSaveError, "save failed")

	assert.Equal(t, "save failed: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
}

func TestError_CopiesDoNotMutateSentinels(t *testing.T) {
	_ = ErrForbidden.WithStatus(http.StatusTooManyRequests).WithDetails("x")

	assert.Equal(t, http.StatusForbidden, ErrForbidden.HTTPStatus())
	assert.Nil(t, ErrForbidden.Details)
}

func TestNewf(t *testing.T) {
	err := Newf(CodeInvalidConfig, "bad %s", "token")
	assert.Equal(t, "bad token", err.Message)
	assert.Equal(t, CodeInvalidConfig, err.Code)
}
