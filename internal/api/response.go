package api

import "github.com/gin-gonic/gin"

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error codes returned by the API.
const (
	CodeLeadNotFound  = "LEAD_NOT_FOUND"
	CodeInvalidJSON   = "INVALID_JSON"
	CodeInvalidStatus = "INVALID_STATUS"
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnavailable   = "UNAVAILABLE"
	CodeInternal      = "INTERNAL_ERROR"
)

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, Envelope{Error: &ErrorBody{Code: code, Message: message}})
}

func failWithDetails(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, Envelope{Error: &ErrorBody{Code: code, Message: message, Details: details}})
}
