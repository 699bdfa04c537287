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
// Leads — CRUD via PostgREST
// ============================================================

func (c *Client) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListLeads")
	defer span.End()

	var rows []domain.Lead
	if err := c.selectRows(ctx, "leads?order=created_at.desc", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) InsertLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertLead")
	defer span.End()

	now := time.Now().Format(time.RFC3339)
	row := map[string]any{
		"id":         uuid.New().String(),
		"name":       lead.Name,
		"email":      lead.Email,
		"phone":      lead.Phone,
		"company":    lead.Company,
		"value":      lead.Value,
		"stage":      lead.Stage,
		"priority":   lead.Priority,
		"created_at": now,
		"updated_at": now,
	}
	if lead.AssignedTo != "" {
		row["assigned_to"] = lead.AssignedTo
	}
	if len(lead.CustomFields) > 0 {
		row["custom_fields"] = lead.CustomFields
	}

	body, err := c.doPost(ctx, "leads", row)
	if err != nil {
		return nil, err
	}
	return decodeOne[domain.Lead](body, "leads")
}

func (c *Client) UpdateLead(ctx context.Context, id string, patch map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateLead")
	defer span.End()

	patch["updated_at"] = time.Now().Format(time.RFC3339)
	return c.doPatch(ctx, fmt.Sprintf("leads?id=eq.%s", id), patch)
}

func (c *Client) DeleteLead(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteLead")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("leads?id=eq.%s", id))
}

func (c *Client) UpdateLeadsIn(ctx context.Context, ids []string, patch map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateLeadsIn")
	defer span.End()

	patch["updated_at"] = time.Now().Format(time.RFC3339)
	return c.doPatch(ctx, fmt.Sprintf("leads?id=%s", inList(ids)), patch)
}

func (c *Client) DeleteLeadsIn(ctx context.Context, ids []string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteLeadsIn")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("leads?id=%s", inList(ids)))
}

// UpdateLeadStage sets only the stage and last-modified timestamp.
// Used by the kanban move path.
func (c *Client) UpdateLeadStage(ctx context.Context, leadID, stageID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateLeadStage")
	defer span.End()

	return c.doPatch(ctx, fmt.Sprintf("leads?id=eq.%s", leadID), map[string]any{
		"stage":      stageID,
		"updated_at": time.Now().Format(time.RFC3339),
	})
}

// GetLead fetches a single lead by id.
func (c *Client) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetLead")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("leads?id=eq.%s&limit=1", id))
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	return decodeOne[domain.Lead](body, "leads")
}
