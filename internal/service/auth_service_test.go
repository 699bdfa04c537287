package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/cache"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/observability"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// --- Mocks ---

type mockUserStore struct {
	users map[string]*domain.UserProfile
}

func newMockUserStore(users ...*domain.UserProfile) *mockUserStore {
	m := &mockUserStore{users: make(map[string]*domain.UserProfile)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserStore) ListUsers(_ context.Context) ([]domain.UserProfile, error) {
	var out []domain.UserProfile
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (*domain.UserProfile, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserStore) GetUserByID(_ context.Context, id string) (*domain.UserProfile, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: id}
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserStore) InsertUser(_ context.Context, u *domain.UserProfile) (*domain.UserProfile, error) {
	cp := *u
	if cp.ID == "" {
		cp.ID = "usr-new"
	}
	m.users[cp.ID] = &cp
	return &cp, nil
}

func (m *mockUserStore) UpdateUser(_ context.Context, id string, patch map[string]any) error {
	u, ok := m.users[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "user", ID: id}
	}
	if active, ok := patch["is_active"].(bool); ok {
		u.IsActive = active
	}
	if role, ok := patch["role"].(string); ok {
		u.Role = role
	}
	return nil
}

func (m *mockUserStore) DeleteUser(_ context.Context, id string) error {
	delete(m.users, id)
	return nil
}

type mockAuthStore struct {
	creds   map[string]string
	tokens  map[string]*domain.RefreshToken
	revoked []string
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		creds:  make(map[string]string),
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockAuthStore) GetCredential(_ context.Context, userID string) (*domain.Credential, error) {
	hash, ok := m.creds[userID]
	if !ok {
		return nil, nil
	}
	return &domain.Credential{UserID: userID, PasswordHash: hash}, nil
}

func (m *mockAuthStore) UpsertCredential(_ context.Context, userID, passwordHash string) error {
	m.creds[userID] = passwordHash
	return nil
}

func (m *mockAuthStore) StoreRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	m.tokens[tokenHash] = &domain.RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	return nil
}

func (m *mockAuthStore) GetRefreshToken(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	t, ok := m.tokens[tokenHash]
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (m *mockAuthStore) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	m.revoked = append(m.revoked, tokenHash)
	delete(m.tokens, tokenHash)
	return nil
}

func (m *mockAuthStore) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	for hash, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, hash)
			m.revoked = append(m.revoked, hash)
		}
	}
	return nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func newAuthService(users *mockUserStore, store *mockAuthStore) *service.AuthService {
	return service.NewAuthService(
		users, store,
		cache.New[*domain.UserProfile](5*time.Minute),
		observability.NewMetrics(),
		"test-secret",
		15*time.Minute, 7*24*time.Hour,
		zap.NewNop(),
	)
}

// --- Tests ---

func TestLoginSuccess(t *testing.T) {
	profile := &domain.UserProfile{ID: "usr-1", Email: "ana@crm.ve", Role: domain.RoleManager, IsActive: true}
	users := newMockUserStore(profile)
	store := newMockAuthStore()
	store.creds["usr-1"] = hashPassword(t, "secreto123")
	svc := newAuthService(users, store)

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{Email: "  Ana@CRM.ve ", Password: "secreto123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected both tokens issued")
	}
	if !resp.Capabilities.CanDelete || resp.Capabilities.IsAdmin {
		t.Errorf("unexpected manager capabilities: %+v", resp.Capabilities)
	}

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "usr-1" || claims.Role != domain.RoleManager {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	profile := &domain.UserProfile{ID: "usr-1", Email: "ana@crm.ve", Role: domain.RoleUser, IsActive: true}
	store := newMockAuthStore()
	store.creds["usr-1"] = hashPassword(t, "secreto123")
	svc := newAuthService(newMockUserStore(profile), store)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{Email: "ana@crm.ve", Password: "equivocada"})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLoginUnknownEmailAndMissingCredentialLookAlike(t *testing.T) {
	profile := &domain.UserProfile{ID: "usr-1", Email: "sin-clave@crm.ve", Role: domain.RoleUser, IsActive: true}
	svc := newAuthService(newMockUserStore(profile), newMockAuthStore())

	_, errUnknown := svc.Login(context.Background(), &domain.LoginRequest{Email: "nadie@crm.ve", Password: "x"})
	_, errNoCred := svc.Login(context.Background(), &domain.LoginRequest{Email: "sin-clave@crm.ve", Password: "x"})

	var u1, u2 *domain.ErrUnauthorized
	if !errors.As(errUnknown, &u1) || !errors.As(errNoCred, &u2) {
		t.Fatalf("expected ErrUnauthorized for both, got %v / %v", errUnknown, errNoCred)
	}
	if u1.Message != u2.Message {
		t.Errorf("expected indistinguishable messages, got %q vs %q", u1.Message, u2.Message)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	profile := &domain.UserProfile{ID: "usr-1", Email: "ana@crm.ve", Role: domain.RoleUser, IsActive: false}
	store := newMockAuthStore()
	store.creds["usr-1"] = hashPassword(t, "secreto123")
	svc := newAuthService(newMockUserStore(profile), store)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{Email: "ana@crm.ve", Password: "secreto123"})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	profile := &domain.UserProfile{ID: "usr-1", Email: "ana@crm.ve", Role: domain.RoleUser, IsActive: true}
	users := newMockUserStore(profile)
	store := newMockAuthStore()
	store.creds["usr-1"] = hashPassword(t, "secreto123")
	svc := newAuthService(users, store)
	ctx := context.Background()

	first, err := svc.Login(ctx, &domain.LoginRequest{Email: "ana@crm.ve", Password: "secreto123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := svc.Refresh(ctx, &domain.RefreshRequest{RefreshToken: first.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("expected a new refresh token after rotation")
	}

	// The rotated-out token must be dead.
	_, err = svc.Refresh(ctx, &domain.RefreshRequest{RefreshToken: first.RefreshToken})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized replaying old token, got %v", err)
	}
}

func TestRefreshExpiredToken(t *testing.T) {
	profile := &domain.UserProfile{ID: "usr-1", Email: "ana@crm.ve", Role: domain.RoleUser, IsActive: true}
	store := newMockAuthStore()
	svc := service.NewAuthService(
		newMockUserStore(profile), store,
		cache.New[*domain.UserProfile](5*time.Minute),
		observability.NewMetrics(),
		"test-secret",
		15*time.Minute, -time.Hour,
		zap.NewNop(),
	)
	ctx := context.Background()

	store.creds["usr-1"] = hashPassword(t, "secreto123")
	resp, err := svc.Login(ctx, &domain.LoginRequest{Email: "ana@crm.ve", Password: "secreto123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err = svc.Refresh(ctx, &domain.RefreshRequest{RefreshToken: resp.RefreshToken})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestValidateAccessTokenRejectsForeignSecret(t *testing.T) {
	profile := &domain.UserProfile{ID: "usr-1", Email: "ana@crm.ve", Role: domain.RoleUser, IsActive: true}
	users := newMockUserStore(profile)
	store := newMockAuthStore()
	store.creds["usr-1"] = hashPassword(t, "secreto123")

	issuer := newAuthService(users, store)
	resp, err := issuer.Login(context.Background(), &domain.LoginRequest{Email: "ana@crm.ve", Password: "secreto123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	verifier := service.NewAuthService(
		users, store,
		cache.New[*domain.UserProfile](5*time.Minute),
		observability.NewMetrics(),
		"otro-secreto",
		15*time.Minute, time.Hour,
		zap.NewNop(),
	)
	if _, err := verifier.ValidateAccessToken(resp.AccessToken); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}
}

func TestSetPasswordRejectsShortPassword(t *testing.T) {
	svc := newAuthService(newMockUserStore(), newMockAuthStore())

	err := svc.SetPassword(context.Background(), "usr-1", "corta")
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	profile := &domain.UserProfile{ID: "usr-1", Email: "ana@crm.ve", Role: domain.RoleUser, IsActive: true}
	users := newMockUserStore(profile)
	store := newMockAuthStore()
	store.creds["usr-1"] = hashPassword(t, "secreto123")
	svc := newAuthService(users, store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Login(ctx, &domain.LoginRequest{Email: "ana@crm.ve", Password: "secreto123"}); err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
	}
	if err := svc.LogoutAll(ctx, "usr-1"); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if len(store.tokens) != 0 {
		t.Errorf("expected all refresh tokens revoked, %d remain", len(store.tokens))
	}
}

func TestCurrentUserCachesProfile(t *testing.T) {
	profile := &domain.UserProfile{ID: "usr-1", Email: "ana@crm.ve", Role: domain.RoleUser, IsActive: true}
	users := newMockUserStore(profile)
	svc := newAuthService(users, newMockAuthStore())
	ctx := context.Background()

	if _, err := svc.CurrentUser(ctx, "usr-1"); err != nil {
		t.Fatalf("first lookup: %v", err)
	}

	// Remove the backing row; the cached copy must still serve.
	delete(users.users, "usr-1")
	got, err := svc.CurrentUser(ctx, "usr-1")
	if err != nil {
		t.Fatalf("cached lookup: %v", err)
	}
	if got.ID != "usr-1" {
		t.Errorf("unexpected cached profile: %+v", got)
	}

	svc.InvalidateProfile("usr-1")
	if _, err := svc.CurrentUser(ctx, "usr-1"); err == nil {
		t.Error("expected miss after invalidation with backing row gone")
	}
}
