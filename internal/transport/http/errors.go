package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/balloonhub/marketplace-server/internal/store"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// bindJSON decodes the request body and writes a 400 or 413 response on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return false
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// validationMessage returns the client-facing text of a validation failure.
func validationMessage(err error) (string, bool) {
	var vErr *store.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Error(), true
	}
	return "", false
}
