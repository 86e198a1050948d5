package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Response is the uniform envelope every endpoint answers with.
type Response struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SuccessResponse sends a success envelope
func SuccessResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// ErrorResponse sends an error envelope with the given status code
func ErrorResponse(c echo.Context, statusCode int, message string) error {
	return c.JSON(statusCode, Response{
		Success:   false,
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}

// OperationFailedResponse reports a domain-level failure. The transport
// succeeded, so the status stays 200 and the envelope carries the error.
func OperationFailedResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusOK, message)
}

// BadRequestResponse sends a 400 Bad Request envelope
func BadRequestResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusBadRequest, message)
}

// NotFoundResponse sends a 404 Not Found envelope
func NotFoundResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusNotFound, message)
}

// InternalServerErrorResponse sends a 500 envelope
func InternalServerErrorResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusInternalServerError, message)
}
