package router

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"nexbid/internal/core/server"
	"nexbid/internal/transport/http/ez"
	mdw "nexbid/internal/transport/http/middleware"
	resp "nexbid/internal/transport/http/response"
)

type Limits struct {
	RPS           float64
	Burst         int
	PerIPRPS      float64
	PerIPBurst    int
	MaxConcurrent int
	QueueWait     time.Duration
	MaxBodyBytes  int64
	Timeout       time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.RPS <= 0 {
		l.RPS, l.Burst = 200, 400
	}
	if l.PerIPRPS <= 0 {
		l.PerIPRPS, l.PerIPBurst = 20, 40
	}
	if l.MaxConcurrent <= 0 {
		l.MaxConcurrent = 300
	}
	if l.QueueWait <= 0 {
		l.QueueWait = 2 * time.Second
	}
	if l.MaxBodyBytes <= 0 {
		l.MaxBodyBytes = 16 << 20
	}
	if l.Timeout <= 0 {
		l.Timeout = 10 * time.Second
	}
	return l
}

type Options struct {
	Mode        string
	CorsOrigins []string
	// Expose 非生产环境在错误响应里带 stack
	Expose    bool
	Limits    Limits
	UploadDir string
	// Web 前端静态资源，nil 时不挂
	Web fs.FS
}

func NewAPIEngine(l *zap.Logger, auth mdw.Authenticator, cookie string, reg *Registry, o Options) *gin.Engine {
	o.Limits = o.Limits.withDefaults()
	r := server.NewRouter(server.Options{Mode: o.Mode, CorsOrigins: o.CorsOrigins})

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.Recovery(l, o.Expose),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if o.UploadDir != "" {
		r.Static("/uploads", o.UploadDir)
	}

	// 只有 API 走限流/超时
	api := r.Group("/api",
		mdw.RateLimit(rate.Limit(o.Limits.RPS), o.Limits.Burst),
		mdw.RateLimitPerIP(mdw.NewIPLimiter(rate.Limit(o.Limits.PerIPRPS), o.Limits.PerIPBurst)),
		mdw.ConcurrencyLimit(int64(o.Limits.MaxConcurrent), o.Limits.QueueWait),
		mdw.MaxBodyBytes(o.Limits.MaxBodyBytes),
		mdw.Timeout(o.Limits.Timeout),
	)
	reg.MountAll(ez.New(api, ez.Options{
		Auth:   mdw.AuthJWT(auth, cookie),
		Expose: o.Expose,
		Log:    l,
	}))

	r.NoRoute(noRoute(o.Web))
	return r
}

// noRoute /api 下返回 JSON 404；其余交给前端（history 路由回落到 index.html）
func noRoute(web fs.FS) gin.HandlerFunc {
	var files http.Handler
	if web != nil {
		files = http.FileServer(http.FS(web))
	}
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if files == nil || p == "/api" || strings.HasPrefix(p, "/api/") ||
			(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			resp.Abort(c, http.StatusNotFound, "Route not found")
			return
		}
		name := strings.TrimPrefix(path.Clean(p), "/")
		if name == "" {
			name = "index.html"
		}
		if _, err := fs.Stat(web, name); err != nil {
			c.Request.URL.Path = "/"
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}
