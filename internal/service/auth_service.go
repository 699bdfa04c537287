package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/observability"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const bcryptCost = 12

// Claims are the access-token claims.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles login, token rotation and the authenticated
// profile lookup used by the request middleware.
type AuthService struct {
	users      port.UserStore
	store      port.AuthStore
	cache      port.Cache[*domain.UserProfile]
	metrics    *observability.Metrics
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(users port.UserStore, store port.AuthStore, cache port.Cache[*domain.UserProfile], metrics *observability.Metrics, jwtSecret string, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		store:      store,
		cache:      cache,
		metrics:    metrics,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// Login verifies credentials and returns a fresh token pair.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	span.SetAttributes(attribute.String("email", email))

	profile, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if profile == nil {
		return nil, &domain.ErrUnauthorized{Message: "Credenciales inválidas"}
	}
	if !profile.IsActive {
		s.logger.Warn("login: inactive account", zap.String("user_id", profile.ID))
		return nil, &domain.ErrUnauthorized{Message: "Cuenta desactivada"}
	}

	cred, err := s.store.GetCredential(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	if cred == nil {
		// Profile exists but no password was ever set (stale invite).
		// Report invalid credentials to avoid leaking internal state.
		s.logger.Warn("login: no credential for profile", zap.String("user_id", profile.ID))
		return nil, &domain.ErrUnauthorized{Message: "Credenciales inválidas"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login: failed password attempt", zap.String("user_id", profile.ID))
		return nil, &domain.ErrUnauthorized{Message: "Credenciales inválidas"}
	}

	return s.issueTokens(ctx, profile)
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair is issued.
func (s *AuthService) Refresh(ctx context.Context, req *domain.RefreshRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	hash := hashToken(req.RefreshToken)
	stored, err := s.store.GetRefreshToken(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	if stored == nil || stored.ExpiresAt.Before(time.Now()) {
		return nil, &domain.ErrUnauthorized{Message: "Sesión expirada, inicia sesión de nuevo"}
	}

	profile, err := s.users.GetUserByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !profile.IsActive {
		return nil, &domain.ErrUnauthorized{Message: "Cuenta desactivada"}
	}

	if err := s.store.RevokeRefreshToken(ctx, hash); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	return s.issueTokens(ctx, profile)
}

// Logout revokes the presented refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	return s.store.RevokeRefreshToken(ctx, hashToken(refreshToken))
}

// LogoutAll revokes every session of one user. Admin path for
// deactivated accounts.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.LogoutAll")
	defer span.End()

	s.cache.Delete(userID)
	return s.store.RevokeAllRefreshTokens(ctx, userID)
}

// SetPassword stores a new bcrypt hash for the user.
func (s *AuthService) SetPassword(ctx context.Context, userID, password string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.SetPassword")
	defer span.End()

	if len(password) < 8 {
		return &domain.ErrValidation{Field: "password", Message: "la contraseña debe tener al menos 8 caracteres"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpsertCredential(ctx, userID, string(hash))
}

// ValidateAccessToken parses and verifies an access token.
func (s *AuthService) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido o expirado"}
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido o expirado"}
	}
	return claims, nil
}

// CurrentUser resolves a profile by id through the TTL cache. A role
// change takes effect once the cache entry expires or is invalidated.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.UserProfile, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.CurrentUser")
	defer span.End()

	if p, ok := s.cache.Get(userID); ok {
		s.metrics.IncrCacheHit("profile")
		return p, nil
	}
	s.metrics.IncrCacheMiss("profile")

	p, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(userID, p)
	return p, nil
}

// InvalidateProfile drops one cached profile, forcing a refetch on the
// next request. Called after admin edits.
func (s *AuthService) InvalidateProfile(userID string) {
	s.cache.Delete(userID)
}

func (s *AuthService) issueTokens(ctx context.Context, profile *domain.UserProfile) (*domain.LoginResponse, error) {
	access, err := s.signAccessToken(profile)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	expiresAt := time.Now().Add(s.refreshTTL)
	if err := s.store.StoreRefreshToken(ctx, profile.ID, hashToken(refresh), expiresAt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.logger.Info("session issued", zap.String("user_id", profile.ID), zap.String("role", profile.Role))
	return &domain.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		User:         profile,
		Capabilities: domain.CapabilitiesForRole(profile.Role),
	}, nil
}

func (s *AuthService) signAccessToken(profile *domain.UserProfile) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: profile.Email,
		Role:  profile.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// randomToken returns 32 bytes of entropy, hex encoded.
func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashToken stores refresh tokens hashed so a leaked table cannot be
// replayed.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
