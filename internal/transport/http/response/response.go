package response

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"nexbid/internal/domain"
)

// ErrorBody 统一错误响应
type ErrorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
	Stack   string            `json:"stack,omitempty"`
}

type Message struct {
	Message string `json:"message"`
}

// Abort 中间件用：直接按状态码终止
func Abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: msg})
}

// Body 把 error 转成响应体；expose=false 时 500 只给通用消息且不带 stack
func Body(err error, expose bool) (int, ErrorBody) {
	kind := domain.KindOf(err)
	status := StatusOf(kind)
	body := ErrorBody{Error: domain.MessageOf(err), Details: domain.DetailsOf(err)}
	if kind == domain.KindInternal || kind == domain.KindUnavailable {
		if expose {
			body.Stack = fmt.Sprintf("%v\n%s", err, debug.Stack())
		} else if kind == domain.KindInternal {
			body.Error = MsgInternal
		}
	}
	return status, body
}

// Fail 写出错误并终止后续 handler
func Fail(c *gin.Context, err error, expose bool) {
	status, body := Body(err, expose)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}
