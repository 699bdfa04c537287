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
// Contacts — CRUD via PostgREST
// ============================================================

func (c *Client) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListContacts")
	defer span.End()

	var rows []domain.Contact
	if err := c.selectRows(ctx, "contacts?order=created_at.desc", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) InsertContact(ctx context.Context, contact *domain.Contact) (*domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertContact")
	defer span.End()

	now := time.Now().Format(time.RFC3339)
	row := map[string]any{
		"id":         uuid.New().String(),
		"name":       contact.Name,
		"email":      contact.Email,
		"phone":      contact.Phone,
		"tags":       contact.Tags,
		"segment":    contact.Segment,
		"status":     contact.Status,
		"created_at": now,
		"updated_at": now,
	}
	if len(contact.CustomFields) > 0 {
		row["custom_fields"] = contact.CustomFields
	}

	body, err := c.doPost(ctx, "contacts", row)
	if err != nil {
		return nil, err
	}
	return decodeOne[domain.Contact](body, "contacts")
}

func (c *Client) UpdateContact(ctx context.Context, id string, patch map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateContact")
	defer span.End()

	patch["updated_at"] = time.Now().Format(time.RFC3339)
	return c.doPatch(ctx, fmt.Sprintf("contacts?id=eq.%s", id), patch)
}

func (c *Client) DeleteContact(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteContact")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("contacts?id=eq.%s", id))
}

func (c *Client) UpdateContactsIn(ctx context.Context, ids []string, patch map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateContactsIn")
	defer span.End()

	patch["updated_at"] = time.Now().Format(time.RFC3339)
	return c.doPatch(ctx, fmt.Sprintf("contacts?id=%s", inList(ids)), patch)
}

func (c *Client) DeleteContactsIn(ctx context.Context, ids []string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteContactsIn")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("contacts?id=%s", inList(ids)))
}

// GetContact fetches a single contact by id.
func (c *Client) GetContact(ctx context.Context, id string) (*domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetContact")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("contacts?id=eq.%s&limit=1", id))
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "contact", ID: id}
	}
	return decodeOne[domain.Contact](body, "contacts")
}
