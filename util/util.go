package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/realtoken-app/go-realtoken/service/logger"
)

// ErrorResponse is a generic error response for handlers
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is a generic success response for handlers
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrResponse logs the error and sends an ErrorResponse with the given status
func ErrResponse(c *gin.Context, code int, err error) {
	logger.For(c).Errorf("HTTP ERROR -> %d | %s", code, err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// HealthCheckHandler returns a handler signalling the service is alive
func HealthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, SuccessResponse{Success: true})
	}
}

// Contains checks whether an item exists in a slice
func Contains[T comparable](s []T, str T) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}
	return false
}

// MapWithoutError applies a function to each element of a slice when the mapping cannot fail
func MapWithoutError[T, U any](xs []T, f func(T) U) []U {
	result := make([]U, len(xs))
	for i, x := range xs {
		result[i] = f(x)
	}
	return result
}

