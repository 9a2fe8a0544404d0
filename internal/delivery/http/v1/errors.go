package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avdeyev/go-task-tracker/internal/services"
)

var errInvalidRequestBody = errors.New("invalid request body")

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newUnauthorizedError(message string) apiError {
	return newAPIError(http.StatusUnauthorized, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

func newConflictError(message string) apiError {
	return newAPIError(http.StatusConflict, message)
}

// abortTaskError maps a task service error onto its HTTP status. Anything
// unrecognized surfaces as a plain 500.
func abortTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
	case errors.Is(err, services.ErrParentNotFound):
		abort(c, newNotFoundError(services.ErrParentNotFound.Error()))
	case errors.Is(err, services.ErrCircularParent):
		abort(c, newConflictError(services.ErrCircularParent.Error()))
	case errors.Is(err, services.ErrTaskHasChildren):
		abort(c, newConflictError(services.ErrTaskHasChildren.Error()))
	case errors.Is(err, services.ErrEmptyUpdate):
		abort(c, newBadRequestError(services.ErrEmptyUpdate.Error()))
	case errors.Is(err, services.ErrValidation):
		abort(c, newBadRequestError(err.Error()))
	default:
		abort(c, newStatusTextError(http.StatusInternalServerError))
	}
}
