package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nexbid/internal/domain"
	"nexbid/internal/service"
	"nexbid/internal/transport/http/ez"
	mdw "nexbid/internal/transport/http/middleware"
	resp "nexbid/internal/transport/http/response"
	"nexbid/internal/validation"
)

type CookieOptions struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	svc    *service.AuthService
	cookie CookieOptions
}

func NewAuthHandler(svc *service.AuthService, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie}
}

func (h *AuthHandler) Priority() int { return 10 }

type sessionOut struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

func (h *AuthHandler) setCookie(c *gin.Context, s *service.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, s.Token, int(h.svc.TTL().Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) Mount(e ez.EZ) {
	g := e.Group("/auth")

	ez.RegisterAction(g, ez.Action[validation.SignupRequest, sessionOut]{
		Method: http.MethodPost,
		Path:   "/signup",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *validation.SignupRequest) (sessionOut, error) {
			in.Normalize()
			s, err := h.svc.Signup(c.Request.Context(), service.SignupInput{
				Name: in.Name, Email: in.Email, Password: in.Password, Role: in.Role,
			})
			if err != nil {
				return sessionOut{}, err
			}
			h.setCookie(c, s)
			return sessionOut{User: s.User, Token: s.Token}, nil
		},
	})

	ez.RegisterAction(g, ez.Action[validation.LoginRequest, sessionOut]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *validation.LoginRequest) (sessionOut, error) {
			s, err := h.svc.Login(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return sessionOut{}, err
			}
			h.setCookie(c, s)
			return sessionOut{User: s.User, Token: s.Token}, nil
		},
	})

	ez.RegisterAction(g, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return h.svc.Me(c.Request.Context(), mdw.ActorOf(c).ID)
		},
	})

	// 无效 token 也照样清 cookie
	ez.RegisterAction(g, ez.Action[struct{}, resp.Message]{
		Method: http.MethodPost,
		Path:   "/logout",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Message, error) {
			if tok := mdw.TokenFrom(c, h.cookie.Name); tok != "" {
				claims, err := h.svc.Authenticate(c.Request.Context(), tok)
				switch {
				case err == nil:
					if err := h.svc.Logout(c.Request.Context(), claims); err != nil {
						return resp.Message{}, err
					}
				case domain.IsKind(err, domain.KindUnavailable):
					return resp.Message{}, err
				}
			}
			h.clearCookie(c)
			return resp.Message{Message: "Logged out successfully"}, nil
		},
	})
}
