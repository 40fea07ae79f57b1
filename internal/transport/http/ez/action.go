package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nexbid/internal/domain"
	mdw "nexbid/internal/transport/http/middleware"
	resp "nexbid/internal/transport/http/response"
	"nexbid/internal/validation"
)

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param / c.FormFile 取
)

type Options struct {
	// Auth 需要登录的动作前置的中间件
	Auth gin.HandlerFunc
	// Expose 非生产环境返回 stack
	Expose bool
	Log    *zap.Logger
}

type EZ struct {
	g   *gin.RouterGroup
	opt Options
}

func New(g *gin.RouterGroup, opt Options) EZ {
	if opt.Log == nil {
		opt.Log = zap.NewNop()
	}
	return EZ{g: g, opt: opt}
}

func (e EZ) Group(path string, hs ...gin.HandlerFunc) EZ {
	return EZ{g: e.g.Group(path, hs...), opt: e.opt}
}

// Fail 统一错误出口：5xx 记日志，其余只写响应
func (e EZ) Fail(c *gin.Context, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		_ = c.Error(err)
		resp.Abort(c, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	status, _ := resp.Body(err, e.opt.Expose)
	if status >= http.StatusInternalServerError {
		e.opt.Log.Error("request failed",
			zap.String("rid", c.GetString(mdw.KeyRequestID)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	resp.Fail(c, err, e.opt.Expose)
}

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string        // "GET" | "POST" | "PATCH" | ...
	Path    string        // 例："/projects/:id/accept"
	Binder  Binder        // 绑定方式
	Auth    bool          // 是否要求登录
	Roles   []domain.Role // 限定角色（可选，隐含 Auth）
	Status  int           // 成功状态码，默认 200
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}

	h := func(c *gin.Context) {
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			var mbe *http.MaxBytesError
			if errors.As(bindErr, &mbe) {
				e.Fail(c, bindErr)
				return
			}
			e.Fail(c, validation.Translate(bindErr))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			e.Fail(c, err)
			return
		}
		if c.Writer.Written() {
			return
		}
		c.JSON(status, out)
	}

	var chain []gin.HandlerFunc
	if (a.Auth || len(a.Roles) > 0) && e.opt.Auth != nil {
		chain = append(chain, e.opt.Auth)
	}
	if len(a.Roles) > 0 {
		chain = append(chain, mdw.RequireRole(a.Roles...))
	}
	chain = append(chain, h)

	e.g.Handle(strings.ToUpper(a.Method), a.Path, chain...)
}
