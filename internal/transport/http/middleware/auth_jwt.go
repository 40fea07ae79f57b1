package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nexbid/internal/core/auth"
	"nexbid/internal/domain"
	resp "nexbid/internal/transport/http/response"
)

const KeyClaims = "claims"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// TokenFrom 优先 cookie，其次 Authorization: Bearer
func TokenFrom(c *gin.Context, cookie string) string {
	if v, err := c.Cookie(cookie); err == nil && v != "" {
		return v
	}
	ah := c.GetHeader("Authorization")
	if strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
	}
	return ""
}

func AuthJWT(a Authenticator, cookie string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := TokenFrom(c, cookie)
		if tok == "" {
			resp.Abort(c, http.StatusUnauthorized, "Access token required")
			return
		}
		claims, err := a.Authenticate(c.Request.Context(), tok)
		if err != nil {
			switch domain.KindOf(err) {
			case domain.KindUnauthorized:
				resp.Abort(c, http.StatusUnauthorized, domain.MessageOf(err))
			case domain.KindUnavailable:
				_ = c.Error(err)
				resp.Abort(c, http.StatusServiceUnavailable, domain.MessageOf(err))
			default:
				_ = c.Error(err)
				resp.Abort(c, http.StatusUnauthorized, "Invalid or expired token")
			}
			return
		}
		c.Set(KeyClaims, claims)
		c.Next()
	}
}

// RequireRole 必须挂在 AuthJWT 之后
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsOf(c)
		if !ok {
			resp.Abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		resp.Abort(c, http.StatusForbidden, string(roles[0])+" role required")
	}
}

func ClaimsOf(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(KeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}

// ActorOf 未登录时返回零值
func ActorOf(c *gin.Context) domain.Actor {
	if claims, ok := ClaimsOf(c); ok {
		return claims.Actor()
	}
	return domain.Actor{}
}
