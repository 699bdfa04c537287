package supabase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"

	"github.com/google/uuid"
)

// ============================================================
// User profiles, invitations, credentials, refresh tokens
// ============================================================

func (c *Client) ListUsers(ctx context.Context) ([]domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListUsers")
	defer span.End()

	var rows []domain.UserProfile
	if err := c.selectRows(ctx, "user_profiles?order=created_at.desc", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUserByEmail")
	defer span.End()

	path := fmt.Sprintf("user_profiles?email=eq.%s&limit=1", email)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, nil
	}
	return decodeOne[domain.UserProfile](body, "user_profiles")
}

func (c *Client) GetUserByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUserByID")
	defer span.End()

	path := fmt.Sprintf("user_profiles?id=eq.%s&limit=1", id)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "user_profile", ID: id}
	}
	return decodeOne[domain.UserProfile](body, "user_profiles")
}

func (c *Client) InsertUser(ctx context.Context, u *domain.UserProfile) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertUser")
	defer span.End()

	id := u.ID
	if id == "" {
		id = uuid.New().String()
	}
	row := map[string]any{
		"id":         id,
		"email":      u.Email,
		"full_name":  u.FullName,
		"role":       u.Role,
		"is_active":  u.IsActive,
		"created_at": time.Now().Format(time.RFC3339),
	}
	if u.Department != "" {
		row["department"] = u.Department
	}
	if u.Position != "" {
		row["position"] = u.Position
	}

	body, err := c.doPost(ctx, "user_profiles", row)
	if err != nil {
		return nil, err
	}
	return decodeOne[domain.UserProfile](body, "user_profiles")
}

func (c *Client) UpdateUser(ctx context.Context, id string, patch map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateUser")
	defer span.End()

	return c.doPatch(ctx, fmt.Sprintf("user_profiles?id=eq.%s", id), patch)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteUser")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("user_profiles?id=eq.%s", id))
}

// --- Invitations ---

func (c *Client) ListInvitations(ctx context.Context) ([]domain.Invitation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListInvitations")
	defer span.End()

	var rows []domain.Invitation
	if err := c.selectRows(ctx, "user_invitations?order=created_at.desc", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) GetInvitationByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetInvitationByToken")
	defer span.End()

	path := fmt.Sprintf("user_invitations?token=eq.%s&accepted=eq.false&limit=1", token)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, nil
	}
	return decodeOne[domain.Invitation](body, "user_invitations")
}

func (c *Client) InsertInvitation(ctx context.Context, inv *domain.Invitation) (*domain.Invitation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertInvitation")
	defer span.End()

	row := map[string]any{
		"id":         uuid.New().String(),
		"email":      inv.Email,
		"role":       inv.Role,
		"token":      inv.Token,
		"invited_by": inv.InvitedBy,
		"expires_at": inv.ExpiresAt.Format(time.RFC3339),
		"accepted":   false,
		"created_at": time.Now().Format(time.RFC3339),
	}
	body, err := c.doPost(ctx, "user_invitations", row)
	if err != nil {
		return nil, err
	}
	return decodeOne[domain.Invitation](body, "user_invitations")
}

func (c *Client) MarkInvitationAccepted(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.MarkInvitationAccepted")
	defer span.End()

	return c.doPatch(ctx, fmt.Sprintf("user_invitations?id=eq.%s", id), map[string]any{"accepted": true})
}

func (c *Client) DeleteInvitation(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteInvitation")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("user_invitations?id=eq.%s", id))
}

// --- Credentials ---

func (c *Client) GetCredential(ctx context.Context, userID string) (*domain.Credential, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCredential")
	defer span.End()

	path := fmt.Sprintf("user_credentials?user_id=eq.%s&limit=1", userID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, nil
	}
	return decodeOne[domain.Credential](body, "user_credentials")
}

func (c *Client) UpsertCredential(ctx context.Context, userID, passwordHash string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertCredential")
	defer span.End()

	existing, err := c.GetCredential(ctx, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return c.doPatch(ctx, fmt.Sprintf("user_credentials?user_id=eq.%s", userID), map[string]any{
			"password_hash": passwordHash,
		})
	}
	_, err = c.doPost(ctx, "user_credentials", map[string]any{
		"user_id":       userID,
		"password_hash": passwordHash,
	})
	return err
}

// --- Refresh tokens ---

func (c *Client) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	ctx, span := tracer.Start(ctx, "Supabase.StoreRefreshToken")
	defer span.End()

	_, err := c.doPost(ctx, "auth_refresh_tokens", map[string]any{
		"id":         uuid.New().String(),
		"user_id":    userID,
		"token_hash": tokenHash,
		"expires_at": expiresAt.Format(time.RFC3339),
		"revoked":    false,
	})
	return err
}

func (c *Client) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRefreshToken")
	defer span.End()

	path := fmt.Sprintf("auth_refresh_tokens?token_hash=eq.%s&revoked=eq.false&limit=1", tokenHash)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, nil
	}
	return decodeOne[domain.RefreshToken](body, "auth_refresh_tokens")
}

func (c *Client) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeRefreshToken")
	defer span.End()

	return c.doPatch(ctx, fmt.Sprintf("auth_refresh_tokens?token_hash=eq.%s", tokenHash), map[string]any{"revoked": true})
}

func (c *Client) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeAllRefreshTokens")
	defer span.End()

	return c.doPatch(ctx, fmt.Sprintf("auth_refresh_tokens?user_id=eq.%s", userID), map[string]any{"revoked": true})
}
