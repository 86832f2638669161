// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"net/http"

	"crm_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

const msgInternalError = "internal server error"

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// DataResponse is the success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// JSON sends a JSON response with the given status code, without envelope.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK sends a 200 response wrapped in the data envelope.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, DataResponse{Data: payload})
}

// Created sends a 201 response wrapped in the data envelope.
func Created(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, DataResponse{Data: payload})
}

// HandleError maps domain errors to HTTP responses.
// A typed *apperr.Error anywhere in the chain decides the status code and
// message. Any other error is an internal failure and its text is not exposed.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	_ = c.Error(err)

	if domainErr, ok := apperr.As(err); ok {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   domainErr.Message,
			Details: domainErr.Details,
		})
		return true
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternalError})
	return true
}
