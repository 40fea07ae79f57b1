package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"nexbid/internal/core/auth"
	"nexbid/internal/core/cache"
	"nexbid/internal/domain"
	"nexbid/pkg/utils"
)

const profileKeyPrefix = "nexbid:user:"

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type Session struct {
	User   *domain.User `json:"user"`
	Token  string       `json:"token"`
	Claims *auth.Claims `json:"-"`
}

type AuthService struct {
	users     domain.UserRepository
	jwt       *auth.JWTer
	deny      auth.Denylist
	profiles  *cache.Typed[domain.User]
	cost      int
	dummyHash string
	log       *zap.Logger
}

func NewAuthService(users domain.UserRepository, j *auth.JWTer, deny auth.Denylist, c *cache.Cache,
	profileTTL time.Duration, bcryptCost int, log *zap.Logger) *AuthService {
	// 用户不存在时也做一次比对，避免时间差泄露邮箱是否注册
	dummy, _ := utils.HashPassword("nexbid-timing-guard", bcryptCost)
	return &AuthService{
		users:     users,
		jwt:       j,
		deny:      deny,
		profiles:  cache.NewTyped[domain.User](c, profileKeyPrefix, profileTTL),
		cost:      bcryptCost,
		dummyHash: dummy,
		log:       log.Named("auth"),
	}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	role, ok := domain.ParseRole(in.Role)
	if !ok {
		return nil, domain.InvalidFields("Validation failed", map[string]string{"role": "must be one of: BUYER, SELLER"})
	}
	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Conflict("User with this email already exists")
	}
	hash, err := utils.HashPassword(in.Password, s.cost)
	if err != nil {
		if utils.IsTooLong(err) {
			return nil, domain.InvalidFields("Validation failed", map[string]string{"password": "must be at most 72 bytes"})
		}
		return nil, domain.Internal("hash password", err)
	}
	u := &domain.User{
		ID:           utils.NewID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if domain.IsKind(err, domain.KindConflict) {
			return nil, domain.Conflict("User with this email already exists")
		}
		return nil, err
	}
	s.log.Info("user signed up", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return s.issue(u)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		utils.CheckPassword(password, s.dummyHash)
		return nil, domain.Unauthorized("Invalid email or password")
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return nil, domain.Unauthorized("Invalid email or password")
	}
	return s.issue(u)
}

// Me 带 redis 缓存的当前用户资料
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.profiles.Get(ctx, userID,
		func(ctx context.Context) (*domain.User, error) { return s.users.FindByID(ctx, userID) })
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.NotFound("User not found")
	}
	return u, nil
}

// Logout 吊销 jti 直到 token 过期
func (s *AuthService) Logout(ctx context.Context, c *auth.Claims) error {
	if c == nil || c.ID == "" {
		return nil
	}
	if err := s.deny.Revoke(ctx, c.ID, c.Expiry()); err != nil {
		return domain.Unavailable("token store unavailable", err)
	}
	if err := s.profiles.Forget(ctx, c.UID); err != nil {
		s.log.Warn("evict profile cache failed", zap.String("user_id", c.UID), zap.Error(err))
	}
	return nil
}

// Authenticate 校验签名/过期并检查吊销列表
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	c, err := s.jwt.Parse(token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return nil, domain.Unauthorized("Invalid or expired token")
		}
		return nil, err
	}
	revoked, err := s.deny.Revoked(ctx, c.ID)
	if err != nil {
		return nil, domain.Unavailable("token store unavailable", err)
	}
	if revoked {
		return nil, domain.Unauthorized("Token has been revoked")
	}
	return c, nil
}

func (s *AuthService) TTL() time.Duration { return s.jwt.TTL }

func (s *AuthService) issue(u *domain.User) (*Session, error) {
	tok, claims, err := s.jwt.Issue(u)
	if err != nil {
		return nil, domain.Internal("issue token", err)
	}
	return &Session{User: u, Token: tok, Claims: claims}, nil
}
