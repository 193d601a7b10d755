package utils

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ApiResponse is the success envelope every endpoint returns.
type ApiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ApiError is the failure envelope and doubles as the error type handlers
// return. Success is always false when serialized.
type ApiError struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors,omitempty"`
}

func (e *ApiError) Error() string { return e.Message }

func NewApiError(statusCode int, message string, errs ...string) *ApiError {
	return &ApiError{StatusCode: statusCode, Message: message, Errors: errs}
}

func Conflict(message string) *ApiError     { return NewApiError(http.StatusConflict, message) }
func NotFound(message string) *ApiError     { return NewApiError(http.StatusNotFound, message) }
func BadRequest(message string) *ApiError   { return NewApiError(http.StatusBadRequest, message) }
func Unauthorized(message string) *ApiError { return NewApiError(http.StatusUnauthorized, message) }
func Forbidden(message string) *ApiError    { return NewApiError(http.StatusForbidden, message) }

func RespondOK(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{StatusCode: http.StatusOK, Data: data, Message: message, Success: true})
}

func RespondCreated(c *gin.Context, data any, message string) {
	c.JSON(http.StatusCreated, ApiResponse{StatusCode: http.StatusCreated, Data: data, Message: message, Success: true})
}

// RespondError maps an *ApiError to its status code; anything else is logged
// and surfaced as a generic 500 without internal detail.
func RespondError(c *gin.Context, err error) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.StatusCode, apiErr)
		return
	}
	slog.Error("unexpected error", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, NewApiError(http.StatusInternalServerError, "Internal server error"))
}

func AbortError(c *gin.Context, apiErr *ApiError) {
	c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
}

// BindingError turns a ShouldBindJSON failure into a 400 with the individual
// field failures collected as a list.
func BindingError(err error) *ApiError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldErrorMessage(fe))
		}
		return NewApiError(http.StatusBadRequest, "Invalid request body", msgs...)
	}
	return BadRequest("Invalid request body")
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s is invalid", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
