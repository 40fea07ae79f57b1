package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "nexbid/internal/transport/http/response"
)

// ConcurrencyLimit 同时处理的请求数上限；排队超过 wait 返回 503
func ConcurrencyLimit(n int64, wait time.Duration) gin.HandlerFunc {
	sem := semaphore.NewWeighted(n)
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
		err := sem.Acquire(ctx, 1)
		cancel()
		if err != nil {
			resp.Abort(c, http.StatusServiceUnavailable, "Server busy")
			return
		}
		defer sem.Release(1)
		httpInflight.Inc()
		defer httpInflight.Dec()
		c.Next()
	}
}

// Timeout 给下游（数据库）调用加 deadline；handler 没写响应时补 504
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}
		httpTimeouts.Inc()
		if !c.Writer.Written() {
			resp.Abort(c, http.StatusGatewayTimeout, "Request timed out")
		}
	}
}

// MaxBodyBytes 限制请求体大小；ez 层已处理的情况这里不会再写
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
		if c.Writer.Written() {
			return
		}
		for _, e := range c.Errors {
			var mbe *http.MaxBytesError
			if errors.As(e.Err, &mbe) {
				resp.Abort(c, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
		}
	}
}
