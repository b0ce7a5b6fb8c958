package middleware

import (
	"crypto/subtle"

	"recipe-rag/internal/api/response"
	"recipe-rag/internal/infrastructure/config"
	"recipe-rag/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIKeyHeader 用戶端傳送 API Key 的標頭
const APIKeyHeader = "X-API-Key"

// APIKey 驗證 X-API-Key。伺服器未設定 key 時一律回 500，除非 auth.enabled=false。
func APIKey(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		if cfg.APIKey == "" {
			common.LogError("API key not configured", zap.String("path", c.Request.URL.Path))
			response.FailWithMessage(c, response.CodeServerError, common.ErrInternalError, "API key not configured on server.")
			return
		}

		key := c.GetHeader(APIKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) != 1 {
			common.LogWarn("Unauthorized request",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			response.Fail(c, response.CodeUnauthorized, common.ErrUnauthorized)
			return
		}

		c.Next()
	}
}
