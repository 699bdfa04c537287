package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockInvitationStore struct {
	invitations []domain.Invitation
	nextID      int
}

func (m *mockInvitationStore) ListInvitations(_ context.Context) ([]domain.Invitation, error) {
	out := make([]domain.Invitation, len(m.invitations))
	copy(out, m.invitations)
	return out, nil
}

func (m *mockInvitationStore) GetInvitationByToken(_ context.Context, token string) (*domain.Invitation, error) {
	for _, inv := range m.invitations {
		if inv.Token == token && !inv.Accepted {
			cp := inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockInvitationStore) InsertInvitation(_ context.Context, inv *domain.Invitation) (*domain.Invitation, error) {
	m.nextID++
	cp := *inv
	cp.ID = "inv-1"
	m.invitations = append(m.invitations, cp)
	return &cp, nil
}

func (m *mockInvitationStore) MarkInvitationAccepted(_ context.Context, id string) error {
	for i := range m.invitations {
		if m.invitations[i].ID == id {
			m.invitations[i].Accepted = true
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "invitation", ID: id}
}

func (m *mockInvitationStore) DeleteInvitation(_ context.Context, id string) error {
	kept := m.invitations[:0]
	for _, inv := range m.invitations {
		if inv.ID != id {
			kept = append(kept, inv)
		}
	}
	m.invitations = kept
	return nil
}

func newUsersService(users *mockUserStore, invites *mockInvitationStore, auth *service.AuthService) *service.UsersService {
	return service.NewUsersService(users, invites, auth, zap.NewNop())
}

// --- Tests ---

func TestInviteRejectsExistingAccount(t *testing.T) {
	users := newMockUserStore(&domain.UserProfile{ID: "usr-1", Email: "ana@crm.ve", IsActive: true})
	auth := newAuthService(users, newMockAuthStore())
	svc := newUsersService(users, &mockInvitationStore{}, auth)

	_, err := svc.Invite(context.Background(), domain.AdminCapabilities(), "usr-admin", "ana@crm.ve", domain.RoleUser)
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestInviteRejectsUnknownRole(t *testing.T) {
	users := newMockUserStore()
	auth := newAuthService(users, newMockAuthStore())
	svc := newUsersService(users, &mockInvitationStore{}, auth)

	_, err := svc.Invite(context.Background(), domain.AdminCapabilities(), "usr-admin", "nueva@crm.ve", "superuser")
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAcceptInvitationCreatesWorkingAccount(t *testing.T) {
	users := newMockUserStore()
	store := newMockAuthStore()
	auth := newAuthService(users, store)
	invites := &mockInvitationStore{}
	svc := newUsersService(users, invites, auth)
	ctx := context.Background()

	inv, err := svc.Invite(ctx, domain.AdminCapabilities(), "usr-admin", "nueva@crm.ve", domain.RoleManager)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if inv.Token == "" {
		t.Fatal("expected plaintext token in invite response")
	}

	profile, err := svc.AcceptInvitation(ctx, &domain.AcceptInvitationRequest{
		Token:    inv.Token,
		FullName: "Nueva Operadora",
		Password: "clave-segura",
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if profile.Role != domain.RoleManager || !profile.IsActive {
		t.Errorf("unexpected profile: %+v", profile)
	}
	if !invites.invitations[0].Accepted {
		t.Error("expected invitation marked accepted")
	}

	// The new account can log in with the chosen password.
	if _, err := auth.Login(ctx, &domain.LoginRequest{Email: "nueva@crm.ve", Password: "clave-segura"}); err != nil {
		t.Errorf("login after accept: %v", err)
	}

	// The token is single-use.
	_, err = svc.AcceptInvitation(ctx, &domain.AcceptInvitationRequest{
		Token:    inv.Token,
		FullName: "Otra Persona",
		Password: "otra-clave-123",
	})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Errorf("expected ErrUnauthorized reusing token, got %v", err)
	}
}

func TestAcceptInvitationRejectsExpiredToken(t *testing.T) {
	users := newMockUserStore()
	auth := newAuthService(users, newMockAuthStore())
	invites := &mockInvitationStore{invitations: []domain.Invitation{
		{ID: "inv-old", Email: "tarde@crm.ve", Role: domain.RoleUser, Token: "tok-viejo", ExpiresAt: time.Now().Add(-time.Hour)},
	}}
	svc := newUsersService(users, invites, auth)

	_, err := svc.AcceptInvitation(context.Background(), &domain.AcceptInvitationRequest{
		Token:    "tok-viejo",
		FullName: "Tarde",
		Password: "clave-segura",
	})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAcceptInvitationRejectsShortPasswordBeforeInsert(t *testing.T) {
	users := newMockUserStore()
	auth := newAuthService(users, newMockAuthStore())
	invites := &mockInvitationStore{invitations: []domain.Invitation{
		{ID: "inv-1", Email: "nueva@crm.ve", Role: domain.RoleUser, Token: "tok-1", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := newUsersService(users, invites, auth)

	_, err := svc.AcceptInvitation(context.Background(), &domain.AcceptInvitationRequest{
		Token:    "tok-1",
		FullName: "Nueva",
		Password: "corta",
	})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(users.users) != 0 {
		t.Error("expected no profile created for rejected password")
	}
}

func TestDeleteRefusesOwnAccount(t *testing.T) {
	users := newMockUserStore(&domain.UserProfile{ID: "usr-1", Email: "admin@crm.ve", Role: domain.RoleAdmin, IsActive: true})
	auth := newAuthService(users, newMockAuthStore())
	svc := newUsersService(users, &mockInvitationStore{}, auth)

	err := svc.Delete(context.Background(), domain.AdminCapabilities(), "usr-1", "usr-1")
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(users.users) != 1 {
		t.Error("expected account untouched")
	}
}

func TestDeactivationRevokesSessions(t *testing.T) {
	profile := &domain.UserProfile{ID: "usr-1", Email: "ana@crm.ve", Role: domain.RoleUser, IsActive: true}
	users := newMockUserStore(profile)
	store := newMockAuthStore()
	store.creds["usr-1"] = hashPassword(t, "secreto123")
	auth := newAuthService(users, store)
	svc := newUsersService(users, &mockInvitationStore{}, auth)
	ctx := context.Background()

	if _, err := auth.Login(ctx, &domain.LoginRequest{Email: "ana@crm.ve", Password: "secreto123"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Update(ctx, domain.AdminCapabilities(), "usr-1", map[string]any{"is_active": false}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(store.tokens) != 0 {
		t.Errorf("expected sessions revoked on deactivation, %d remain", len(store.tokens))
	}
}

func TestListUsersRequiresAdmin(t *testing.T) {
	users := newMockUserStore()
	auth := newAuthService(users, newMockAuthStore())
	svc := newUsersService(users, &mockInvitationStore{}, auth)

	_, err := svc.List(context.Background(), domain.CapabilitiesForRole(domain.RoleManager))
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
