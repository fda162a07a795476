package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"supporting-smart-system/pkg/response"
)

// StorageKeyHeader 存储接口鉴权头，与远程存储后端客户端保持一致
const StorageKeyHeader = "X-Storage-Key"

// DataAuth 存储接口（/data, /init）鉴权
// key 为空时拒绝所有请求；失败时以存储接口的 {error} 信封返回 401
func DataAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(StorageKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			response.Fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Next()
	}
}
