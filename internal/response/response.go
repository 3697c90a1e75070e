// Package response implements the uniform JSON envelope shared by every API
// endpoint: a millisecond timestamp plus either a data or an error field.
package response

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Body is the wire shape of every API response.
type Body struct {
	Timestamp int64      `json:"timestamp"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
}

// ErrorBody carries a machine-readable message and optional per-field detail
// for validation failures.
type ErrorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func now() int64 {
	return time.Now().UnixMilli()
}

// Data sends a success envelope with the given payload.
func Data(c *gin.Context, status int, data any) {
	c.JSON(status, Body{Timestamp: now(), Data: data})
}

// NoData sends an envelope carrying only the timestamp.
func NoData(c *gin.Context, status int) {
	c.JSON(status, Body{Timestamp: now()})
}

// Error sends an error envelope.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, Body{Timestamp: now(), Error: &ErrorBody{Message: message}})
}

// FieldErrors sends an error envelope with per-field validation messages.
func FieldErrors(c *gin.Context, status int, message string, fields map[string]string) {
	c.JSON(status, Body{Timestamp: now(), Error: &ErrorBody{Message: message, Fields: fields}})
}

// AbortError sends an error envelope and aborts the handler chain. Intended
// for middleware rejections.
func AbortError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Body{Timestamp: now(), Error: &ErrorBody{Message: message}})
}
