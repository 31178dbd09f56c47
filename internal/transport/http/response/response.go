package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Business codes carried in the envelope. The first three digits mirror the
// HTTP status they are usually sent with.
const (
	CodeOK                 = 0
	CodeBadRequest         = 40000
	CodeUsernameExists     = 40001
	CodeEmailExists        = 40002
	CodeUnauthorized       = 40100
	CodeInvalidCredentials = 40101
	CodeDocumentAccess     = 40300
	CodeFileNotFound       = 40401
	CodeFileTooLarge       = 41300
	CodeInternalServer     = 50000
	CodeLLMUnavailable     = 50200
)

type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Code: CodeOK, Message: "ok", Data: data})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{Code: code, Message: message})
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIResponse{Code: code, Message: message})
}
