package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Message string              `json:"message"`
	Data    interface{}         `json:"data,omitempty"`
	Total   *int                `json:"total,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func NewSuccessResponse(message string, data interface{}) *Response {
	return &Response{
		Message: message,
		Data:    data,
	}
}

// NewListResponse also reports how many items data holds.
func NewListResponse(message string, data interface{}, total int) *Response {
	return &Response{
		Message: message,
		Data:    data,
		Total:   &total,
	}
}

func NewErrorResponse(message string, fields map[string][]string) *Response {
	return &Response{
		Message: message,
		Errors:  fields,
	}
}

func OK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, NewSuccessResponse(message, data))
}
