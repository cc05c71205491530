package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/config"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/db"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/repository"
)

// ============================================
// Auth Service
// ============================================

// SessionStore persists sessions and refresh tokens. *db.RedisDB implements it.
type SessionStore interface {
	SetSession(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetSession(ctx context.Context, key string, dest interface{}) error
	DeleteSession(ctx context.Context, key string) error
	SetRefreshToken(ctx context.Context, token, sessionID string, expiration time.Duration) error
	GetRefreshToken(ctx context.Context, token string) (string, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

// Claims are carried in every access token.
type Claims struct {
	SessionID      string `json:"sid"`
	OrganizationID string `json:"org,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string {
	return c.Subject
}

type AuthService interface {
	SessionIssuer
	Login(ctx context.Context, email, password, ipAddress, userAgent string) (*repository.User, *Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context, sessionID string) error
	// ValidateToken checks the signature and that the session is still live.
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

type sessionRecord struct {
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	RefreshToken   string    `json:"refresh_token"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type authService struct {
	cfg      *config.Config
	userRepo repository.UserRepository
	store    SessionStore
	logger   logrus.FieldLogger
	now      func() time.Time
}

func NewAuthService(cfg *config.Config, userRepo repository.UserRepository, store SessionStore, logger logrus.FieldLogger, now func() time.Time) AuthService {
	return &authService{cfg: cfg, userRepo: userRepo, store: store, logger: logger, now: now}
}

func (s *authService) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	duration := req.Duration
	if duration <= 0 {
		duration = s.cfg.SessionDuration
	}

	now := s.now()
	rec := &sessionRecord{
		UserID:         req.UserID,
		OrganizationID: req.OrganizationID,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		RefreshToken:   uuid.NewString(),
		CreatedAt:      now,
		ExpiresAt:      now.Add(duration),
	}
	sessionID := uuid.NewString()

	if err := s.store.SetSession(ctx, sessionID, rec, duration); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	if err := s.store.SetRefreshToken(ctx, rec.RefreshToken, sessionID, duration); err != nil {
		_ = s.store.DeleteSession(ctx, sessionID)
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return s.issue(sessionID, rec, now)
}

func (s *authService) issue(sessionID string, rec *sessionRecord, now time.Time) (*Session, error) {
	expiresAt := now.Add(s.cfg.AccessTTL())
	if expiresAt.After(rec.ExpiresAt) {
		expiresAt = rec.ExpiresAt
	}

	claims := Claims{
		SessionID:      sessionID,
		OrganizationID: rec.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rec.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "ora-kanban",
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	return &Session{
		SessionID:    sessionID,
		AccessToken:  accessToken,
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *authService) RevokeSession(ctx context.Context, sessionID string) error {
	var rec sessionRecord
	err := s.store.GetSession(ctx, sessionID, &rec)
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := s.store.DeleteRefreshToken(ctx, rec.RefreshToken); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return s.store.DeleteSession(ctx, sessionID)
}

func (s *authService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*repository.User, *Session, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.CreateSession(ctx, SessionRequest{
		UserID:    user.ID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("user logged in")
	return user, session, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	sessionID, err := s.store.GetRefreshToken(ctx, refreshToken)
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}

	var rec sessionRecord
	err = s.store.GetSession(ctx, sessionID, &rec)
	if errors.Is(err, db.ErrKeyNotFound) {
		_ = s.store.DeleteRefreshToken(ctx, refreshToken)
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	now := s.now()
	remaining := rec.ExpiresAt.Sub(now)
	if remaining <= 0 || rec.RefreshToken != refreshToken {
		return nil, ErrInvalidToken
	}

	if err := s.store.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	rec.RefreshToken = uuid.NewString()
	if err := s.store.SetSession(ctx, sessionID, &rec, remaining); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	if err := s.store.SetRefreshToken(ctx, rec.RefreshToken, sessionID, remaining); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return s.issue(sessionID, &rec, now)
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	return s.RevokeSession(ctx, sessionID)
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	var rec sessionRecord
	err = s.store.GetSession(ctx, claims.SessionID, &rec)
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if rec.UserID != claims.Subject {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
