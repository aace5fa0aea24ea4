package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/flashstack/internal/ai"
	"github.com/example/flashstack/internal/apierr"
	"github.com/example/flashstack/internal/database"
	"github.com/example/flashstack/internal/masterytest"
	"github.com/example/flashstack/internal/spaced_repetition"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError renders err, resolving its status through toAPIError
func RespondError(c *gin.Context, err error) {
	apiErr := toAPIError(err)
	c.AbortWithStatusJSON(apiErr.Status, ErrorEnvelope{
		Error: APIError{
			Message: apiErr.Error(),
			Code:    apiErr.Code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func toAPIError(err error) *apierr.Error {
	var apiErr *apierr.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, database.ErrNotFound):
		return apierr.NotFound(err)
	case errors.Is(err, masterytest.ErrTestClosed):
		return apierr.New(http.StatusConflict, "test_closed", err)
	case errors.Is(err, masterytest.ErrNoAnswers):
		return apierr.BadRequest("no_answers", err)
	case errors.Is(err, spaced_repetition.ErrInvalidQuality):
		return apierr.BadRequest("invalid_quality", err)
	case errors.Is(err, ai.ErrGraderUnavailable):
		return apierr.New(http.StatusServiceUnavailable, "grader_unavailable", err)
	default:
		return apierr.Internal(err)
	}
}
