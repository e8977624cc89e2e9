package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/model"
	"carecircle/internal/repository"
	"carecircle/pkg/rbac"
	"carecircle/pkg/util"
)

type profileStore interface {
	Create(ctx context.Context, p *model.Profile) error
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
}

// Revoker 记录已登出的 token
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Service struct {
	profiles  profileStore
	revoker   Revoker
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewService(profiles profileStore, revoker Revoker, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		profiles:  profiles,
		revoker:   revoker,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

type SignUpInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// Session 登录结果
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Profile   *model.Profile `json:"profile"`
}

var errBadCredentials = apperr.Unauthorized("invalid email or password")

// SignUp 注册，角色缺省为 user
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*model.Profile, error) {
	role := in.Role
	if role == "" {
		role = rbac.RoleUser
	}
	if !rbac.ValidRole(role) {
		return nil, apperr.Validation("role must be user or caregiver")
	}

	hash, err := util.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	p := &model.Profile{
		Email:        strings.TrimSpace(in.Email),
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.Internal("failed to create profile", err)
	}

	s.logger.Info("Profile registered",
		zap.String("user_id", p.ID.String()),
		zap.String("role", p.Role),
	)
	return p, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	p, err := s.profiles.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, apperr.Internal("failed to load profile", err)
	}
	if !util.CheckPassword(password, p.PasswordHash) {
		return nil, errBadCredentials
	}

	token, claims, err := util.GenerateJWT(p.ID, p.Role, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, apperr.Internal("failed to issue token", err)
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, Profile: p}, nil
}

// SignOut 吊销 token 直到它自然过期
func (s *Service) SignOut(ctx context.Context, claims *util.Claims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return apperr.Internal("failed to sign out", err)
	}
	return nil
}

// Authenticate 校验 token 并检查是否已登出
func (s *Service) Authenticate(ctx context.Context, token string) (*util.Claims, error) {
	if token == "" {
		return nil, apperr.Unauthorized("missing token")
	}
	claims, err := util.ParseJWT(token, s.jwtSecret)
	if err != nil {
		return nil, apperr.Unauthorized("invalid token")
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Redis 不可用时按未吊销处理，签名和过期时间仍然有效
		s.logger.Warn("Revocation check failed", zap.Error(err))
	}
	if revoked {
		return nil, apperr.Unauthorized("session has been signed out")
	}
	return claims, nil
}

// Profile 当前会话对应的资料
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	p, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthorized("profile no longer exists")
		}
		return nil, apperr.Internal("failed to load profile", err)
	}
	return p, nil
}
