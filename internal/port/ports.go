// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// ConfigStore is durable key-value persistence for UI configuration
// that lives outside the entity database (kanban stage layout).
// Implemented by the BadgerDB adapter; a memory double exists for tests.
type ConfigStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Close() error
}

// ContactStore defines all contact data operations.
// Implemented by the Supabase adapter (or any other persistence layer).
type ContactStore interface {
	ListContacts(ctx context.Context) ([]domain.Contact, error)
	InsertContact(ctx context.Context, c *domain.Contact) (*domain.Contact, error)
	UpdateContact(ctx context.Context, id string, patch map[string]any) error
	DeleteContact(ctx context.Context, id string) error
	UpdateContactsIn(ctx context.Context, ids []string, patch map[string]any) error
	DeleteContactsIn(ctx context.Context, ids []string) error
}

// LeadStore defines all lead data operations.
type LeadStore interface {
	ListLeads(ctx context.Context) ([]domain.Lead, error)
	InsertLead(ctx context.Context, l *domain.Lead) (*domain.Lead, error)
	UpdateLead(ctx context.Context, id string, patch map[string]any) error
	DeleteLead(ctx context.Context, id string) error
	UpdateLeadsIn(ctx context.Context, ids []string, patch map[string]any) error
	DeleteLeadsIn(ctx context.Context, ids []string) error

	// UpdateLeadStage sets the stage and updated_at fields only.
	// This is the single optimistic-update path in the system.
	UpdateLeadStage(ctx context.Context, leadID, stageID string) error
}

// GroupStore defines group and membership operations. Member counts
// are derived from the join table by the adapter.
type GroupStore interface {
	ListGroups(ctx context.Context) ([]domain.Group, error)
	InsertGroup(ctx context.Context, g *domain.Group) (*domain.Group, error)
	UpdateGroup(ctx context.Context, id string, patch map[string]any) error
	DeleteGroup(ctx context.Context, id string) error

	ListGroupMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error)
	AddGroupMember(ctx context.Context, groupID, contactID string) error
	RemoveGroupMember(ctx context.Context, groupID, contactID string) error
}

// TagStore defines tag operations.
type TagStore interface {
	ListTags(ctx context.Context) ([]domain.Tag, error)
	InsertTag(ctx context.Context, t *domain.Tag) (*domain.Tag, error)
	UpdateTag(ctx context.Context, id string, patch map[string]any) error
	DeleteTag(ctx context.Context, id string) error
}

// FieldStore defines custom field definition operations.
type FieldStore interface {
	ListFields(ctx context.Context) ([]domain.CustomField, error)
	ListFieldsFor(ctx context.Context, entityType string) ([]domain.CustomField, error)
	InsertField(ctx context.Context, f *domain.CustomField) (*domain.CustomField, error)
	UpdateField(ctx context.Context, id string, patch map[string]any) error
	DeleteField(ctx context.Context, id string) error
}

// ScoringStore defines scoring rule and score history operations.
// History is read-only: rows are written by the rule evaluator, which
// is outside this service.
type ScoringStore interface {
	ListRules(ctx context.Context) ([]domain.ScoringRule, error)
	InsertRule(ctx context.Context, r *domain.ScoringRule) (*domain.ScoringRule, error)
	UpdateRule(ctx context.Context, id string, patch map[string]any) error
	DeleteRule(ctx context.Context, id string) error

	ListScoreHistory(ctx context.Context, leadID string) ([]domain.ScoreEntry, error)
}

// UserStore defines user profile administration operations.
type UserStore interface {
	ListUsers(ctx context.Context) ([]domain.UserProfile, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	GetUserByID(ctx context.Context, id string) (*domain.UserProfile, error)
	InsertUser(ctx context.Context, u *domain.UserProfile) (*domain.UserProfile, error)
	UpdateUser(ctx context.Context, id string, patch map[string]any) error
	DeleteUser(ctx context.Context, id string) error
}

// InvitationStore defines invitation operations.
type InvitationStore interface {
	ListInvitations(ctx context.Context) ([]domain.Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (*domain.Invitation, error)
	InsertInvitation(ctx context.Context, inv *domain.Invitation) (*domain.Invitation, error)
	MarkInvitationAccepted(ctx context.Context, id string) error
	DeleteInvitation(ctx context.Context, id string) error
}

// ActivityStore defines the append-only interaction log.
type ActivityStore interface {
	ListActivities(ctx context.Context, entityType, entityID string) ([]domain.Activity, error)
	AppendActivity(ctx context.Context, a *domain.Activity) (*domain.Activity, error)
}

// AuthStore defines credential and refresh-token persistence.
type AuthStore interface {
	GetCredential(ctx context.Context, userID string) (*domain.Credential, error)
	UpsertCredential(ctx context.Context, userID, passwordHash string) error

	StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}
