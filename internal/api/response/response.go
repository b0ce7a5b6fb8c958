package response

import (
	"net/http"

	"recipe-rag/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// 回應中的 error_code
const (
	CodeOK                 = 0
	CodeIngredientRequired = 7
	CodeGenerationFailed   = 8
	CodeServerError        = 9
	CodeBadRequest         = 400
	CodeUnauthorized       = 401
	CodeNotFound           = 404
	CodeBodyTooLarge       = 413
	CodeTooManyRequests    = 429
	CodeNotReady           = 503
	CodeTimeout            = 504
)

// Envelope 統一回應格式
type Envelope struct {
	ErrorCode int         `json:"error_code"`
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
}

// OK 成功回應
func OK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		ErrorCode: CodeOK,
		Success:   true,
		Message:   message,
		Data:      data,
	})
}

// Error 失敗回應並中止後續處理
func Error(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		ErrorCode: code,
		Success:   false,
		Message:   message,
	})
}

// Fail 以預定義錯誤的狀態碼與訊息回應
func Fail(c *gin.Context, code int, err *common.CustomError) {
	Error(c, err.Status, code, err.Message)
}

// FailWithMessage 以預定義錯誤的狀態碼回應，訊息另外指定
func FailWithMessage(c *gin.Context, code int, err *common.CustomError, message string) {
	Error(c, err.Status, code, message)
}
