package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/listctl"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var scoringTracer = otel.Tracer("service/scoring")

// ScoringService manages scoring rule definitions. Rules are stored and
// toggled here; evaluating them against entities happens elsewhere.
type ScoringService struct {
	store  port.ScoringStore
	ctl    *listctl.Controller[domain.ScoringRule]
	logger *zap.Logger
}

// NewScoringService creates a scoring service.
func NewScoringService(store port.ScoringStore, logger *zap.Logger) *ScoringService {
	ctl := listctl.New[domain.ScoringRule](ruleBackend{store: store}, listctl.Options[domain.ScoringRule]{
		Name: "regla",
		Caps: domain.AdminCapabilities(),
		TextFields: func(r domain.ScoringRule) []string {
			return []string{r.Name, r.ConditionField}
		},
		Matchers: map[string]listctl.MatcherFunc[domain.ScoringRule]{
			"entity_type": func(r domain.ScoringRule, v string) bool { return r.EntityType == v },
			"active":      func(r domain.ScoringRule, v string) bool { return fmt.Sprintf("%t", r.IsActive) == v },
		},
		Apply: func(r domain.ScoringRule, patch map[string]any) domain.ScoringRule {
			if v, ok := patch["is_active"].(bool); ok {
				r.IsActive = v
			}
			return r
		},
		Logger: logger,
	})
	return &ScoringService{store: store, ctl: ctl, logger: logger}
}

// List reloads and returns rules under the given filters.
func (s *ScoringService) List(ctx context.Context, filters map[string]string) ([]domain.ScoringRule, error) {
	ctx, span := scoringTracer.Start(ctx, "ScoringService.List")
	defer span.End()

	return s.ctl.ListWith(ctx, filters)
}

// Create validates and stores a rule.
func (s *ScoringService) Create(ctx context.Context, caps domain.Capabilities, r *domain.ScoringRule) (*domain.ScoringRule, error) {
	ctx, span := scoringTracer.Start(ctx, "ScoringService.Create")
	defer span.End()

	if !caps.IsAdmin {
		return nil, &domain.ErrForbidden{Action: "administrar reglas de puntuación"}
	}
	if err := validateRule(r); err != nil {
		return nil, err
	}

	out, err := s.store.InsertRule(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("insert rule: %w", err)
	}
	s.logger.Info("scoring rule created",
		zap.String("rule_id", out.ID),
		zap.String("name", out.Name),
	)
	return out, nil
}

// Update patches one rule.
func (s *ScoringService) Update(ctx context.Context, caps domain.Capabilities, id string, patch map[string]any) error {
	ctx, span := scoringTracer.Start(ctx, "ScoringService.Update")
	defer span.End()

	if !caps.IsAdmin {
		return &domain.ErrForbidden{Action: "administrar reglas de puntuación"}
	}
	if v, ok := patch["condition_operator"].(string); ok && !domain.ValidOperator(v) {
		return &domain.ErrValidation{Field: "condition_operator", Message: fmt.Sprintf("operador desconocido %q", v)}
	}
	return s.ctl.Update(ctx, id, patch)
}

// SetActive toggles a rule without a reload.
func (s *ScoringService) SetActive(ctx context.Context, caps domain.Capabilities, id string, active bool) error {
	ctx, span := scoringTracer.Start(ctx, "ScoringService.SetActive")
	defer span.End()

	if !caps.IsAdmin {
		return &domain.ErrForbidden{Action: "administrar reglas de puntuación"}
	}
	return s.ctl.UpdateOptimistic(ctx, id, map[string]any{"is_active": active})
}

// Delete removes one rule.
func (s *ScoringService) Delete(ctx context.Context, caps domain.Capabilities, id string) error {
	ctx, span := scoringTracer.Start(ctx, "ScoringService.Delete")
	defer span.End()

	if !caps.IsAdmin {
		return &domain.ErrForbidden{Action: "administrar reglas de puntuación"}
	}
	return s.ctl.Remove(ctx, id)
}

func validateRule(r *domain.ScoringRule) error {
	if strings.TrimSpace(r.Name) == "" {
		return &domain.ErrValidation{Field: "name", Message: "el nombre es obligatorio"}
	}
	if r.EntityType != domain.EntityContact && r.EntityType != domain.EntityLead {
		return &domain.ErrValidation{Field: "entity_type", Message: fmt.Sprintf("entidad desconocida %q", r.EntityType)}
	}
	if strings.TrimSpace(r.ConditionField) == "" {
		return &domain.ErrValidation{Field: "condition_field", Message: "el campo de condición es obligatorio"}
	}
	if !domain.ValidOperator(r.ConditionOperator) {
		return &domain.ErrValidation{Field: "condition_operator", Message: fmt.Sprintf("operador desconocido %q", r.ConditionOperator)}
	}
	if r.NeedsConditionValue() && strings.TrimSpace(r.ConditionValue) == "" {
		return &domain.ErrValidation{Field: "condition_value", Message: "el operador requiere un valor de condición"}
	}
	if !r.NeedsConditionValue() && r.ConditionValue != "" {
		return &domain.ErrValidation{Field: "condition_value", Message: "el operador no lleva valor de condición"}
	}
	if r.Points == 0 {
		return &domain.ErrValidation{Field: "points", Message: "los puntos no pueden ser cero"}
	}
	return nil
}
