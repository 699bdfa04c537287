package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"

	"github.com/google/uuid"
)

// ============================================================
// Custom field definitions
// ============================================================

func (c *Client) ListFields(ctx context.Context) ([]domain.CustomField, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListFields")
	defer span.End()

	var rows []domain.CustomField
	if err := c.selectRows(ctx, "custom_field_definitions?order=display_order.asc,created_at.desc", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) ListFieldsFor(ctx context.Context, entityType string) ([]domain.CustomField, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListFieldsFor")
	defer span.End()

	var rows []domain.CustomField
	path := fmt.Sprintf("custom_field_definitions?entity_type=eq.%s&order=display_order.asc", entityType)
	if err := c.selectRows(ctx, path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) InsertField(ctx context.Context, f *domain.CustomField) (*domain.CustomField, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertField")
	defer span.End()

	row := map[string]any{
		"id":            uuid.New().String(),
		"name":          f.Name,
		"label":         f.Label,
		"field_type":    f.FieldType,
		"entity_type":   f.EntityType,
		"is_required":   f.IsRequired,
		"is_visible":    f.IsVisible,
		"display_order": f.DisplayOrder,
		"created_at":    time.Now().Format(time.RFC3339),
	}
	if len(f.Options) > 0 {
		row["options"] = f.Options
	}

	body, err := c.doPost(ctx, "custom_field_definitions", row)
	if err != nil {
		return nil, err
	}
	return decodeOne[domain.CustomField](body, "custom_field_definitions")
}

func (c *Client) UpdateField(ctx context.Context, id string, patch map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateField")
	defer span.End()

	return c.doPatch(ctx, fmt.Sprintf("custom_field_definitions?id=eq.%s", id), patch)
}

func (c *Client) DeleteField(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteField")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("custom_field_definitions?id=eq.%s", id))
}
