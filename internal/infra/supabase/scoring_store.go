package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"

	"github.com/google/uuid"
)

// ============================================================
// Scoring rules and score history
// ============================================================

func (c *Client) ListRules(ctx context.Context) ([]domain.ScoringRule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRules")
	defer span.End()

	var rows []domain.ScoringRule
	if err := c.selectRows(ctx, "scoring_rules?order=created_at.desc", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) InsertRule(ctx context.Context, r *domain.ScoringRule) (*domain.ScoringRule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertRule")
	defer span.End()

	row := map[string]any{
		"id":                 uuid.New().String(),
		"name":               r.Name,
		"entity_type":        r.EntityType,
		"condition_field":    r.ConditionField,
		"condition_operator": r.ConditionOperator,
		"points":             r.Points,
		"is_active":          r.IsActive,
		"created_at":         time.Now().Format(time.RFC3339),
	}
	if r.ConditionValue != "" {
		row["condition_value"] = r.ConditionValue
	}

	body, err := c.doPost(ctx, "scoring_rules", row)
	if err != nil {
		return nil, err
	}
	return decodeOne[domain.ScoringRule](body, "scoring_rules")
}

func (c *Client) UpdateRule(ctx context.Context, id string, patch map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateRule")
	defer span.End()

	return c.doPatch(ctx, fmt.Sprintf("scoring_rules?id=eq.%s", id), patch)
}

func (c *Client) DeleteRule(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteRule")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("scoring_rules?id=eq.%s", id))
}

// ListScoreHistory returns the score rows written for one lead, newest
// first. This service never writes them.
func (c *Client) ListScoreHistory(ctx context.Context, leadID string) ([]domain.ScoreEntry, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListScoreHistory")
	defer span.End()

	var rows []domain.ScoreEntry
	path := fmt.Sprintf("scoring_history?lead_id=eq.%s&order=created_at.desc", leadID)
	if err := c.selectRows(ctx, path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
