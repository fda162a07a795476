package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// 浏览器可读取的响应头：导出文件名与请求追踪 ID
const corsExposeHeaders = "Content-Disposition, " + RequestIDHeader

// CORS 跨域中间件
// allowOrigins 含 "*" 时回显任意来源（仅用于本地开发）
func CORS(allowOrigins []string) gin.HandlerFunc {
	allowAll := false
	origins := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		if o == "*" {
			allowAll = true
			continue
		}
		origins[strings.TrimRight(o, "/")] = true
	}
	allowHeaders := strings.Join([]string{
		"Content-Type", "Authorization", "X-Requested-With", RequestIDHeader, StorageKeyHeader,
	}, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if origin != "" && (allowAll || origins[origin]) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
