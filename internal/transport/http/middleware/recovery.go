package middleware

import (
	"fmt"
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "nexbid/internal/transport/http/response"
)

// Recovery panic -> zap 日志 + 统一 JSON 错误；expose 时带上 panic 内容
func Recovery(l *zap.Logger, expose bool) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(l, true, func(c *gin.Context, rec any) {
		body := resp.ErrorBody{Error: resp.MsgInternal}
		if expose {
			body.Stack = fmt.Sprint(rec)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}
