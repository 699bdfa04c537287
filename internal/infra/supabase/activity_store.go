package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
)

// ============================================================
// Activity log (append-only interaction records)
// ============================================================

func (c *Client) ListActivities(ctx context.Context, entityType, entityID string) ([]domain.Activity, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListActivities")
	defer span.End()

	var rows []domain.Activity
	path := fmt.Sprintf("interactions?entity_type=eq.%s&entity_id=eq.%s&order=id.desc", entityType, entityID)
	if err := c.selectRows(ctx, path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// AppendActivity inserts one interaction record. The caller assigns the
// ULID id so ordering by id is ordering by time.
func (c *Client) AppendActivity(ctx context.Context, a *domain.Activity) (*domain.Activity, error) {
	ctx, span := tracer.Start(ctx, "Supabase.AppendActivity")
	defer span.End()

	row := map[string]any{
		"id":          a.ID,
		"entity_type": a.EntityType,
		"entity_id":   a.EntityID,
		"type":        a.Type,
		"notes":       a.Notes,
		"created_by":  a.CreatedBy,
		"created_at":  time.Now().Format(time.RFC3339),
	}
	body, err := c.doPost(ctx, "interactions", row)
	if err != nil {
		return nil, err
	}
	return decodeOne[domain.Activity](body, "interactions")
}
