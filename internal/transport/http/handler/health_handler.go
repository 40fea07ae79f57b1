package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nexbid/internal/domain"
	"nexbid/internal/transport/http/ez"
)

// Pinger 就绪检查依赖（数据库、缓存）
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	service string
	checks  map[string]Pinger
	now     func() time.Time
}

func NewHealthHandler(service string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{service: service, checks: checks, now: time.Now}
}

func (h *HealthHandler) Priority() int { return 0 }

type healthOut struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

type readyOut struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *HealthHandler) Mount(e ez.EZ) {
	// 不依赖数据库
	ez.RegisterAction(e, ez.Action[struct{}, healthOut]{
		Method: http.MethodGet,
		Path:   "/health",
		Binder: ez.BindNone,
		Handler: func(_ *gin.Context, _ *struct{}) (healthOut, error) {
			return healthOut{
				Status:    "ok",
				Timestamp: h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
				Service:   h.service,
			}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, readyOut]{
		Method: http.MethodGet,
		Path:   "/ready",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (readyOut, error) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			out := readyOut{Status: "ok", Checks: make(map[string]string, len(h.checks))}
			for name, p := range h.checks {
				if err := p.Ping(ctx); err != nil {
					return readyOut{}, domain.Unavailable(name+" unavailable", err)
				}
				out.Checks[name] = "ok"
			}
			return out, nil
		},
	})
}
