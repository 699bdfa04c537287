package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/port"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var activityTracer = otel.Tracer("service/activity")

// ActivityService is the append-only interaction log for contacts and
// leads. Ids are ULIDs assigned here, so listing by id is listing by
// time without a separate sort column.
type ActivityService struct {
	store   port.ActivityStore
	entropy *ulid.MonotonicEntropy
	logger  *zap.Logger
}

// NewActivityService creates an activity service.
func NewActivityService(store port.ActivityStore, logger *zap.Logger) *ActivityService {
	return &ActivityService{
		store:   store,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		logger:  logger,
	}
}

// List returns the log for one entity, newest first.
func (s *ActivityService) List(ctx context.Context, entityType, entityID string) ([]domain.Activity, error) {
	ctx, span := activityTracer.Start(ctx, "ActivityService.List")
	defer span.End()
	span.SetAttributes(
		attribute.String("entity.type", entityType),
		attribute.String("entity.id", entityID),
	)

	if entityType != domain.EntityContact && entityType != domain.EntityLead {
		return nil, &domain.ErrValidation{Field: "entity_type", Message: fmt.Sprintf("entidad desconocida %q", entityType)}
	}
	return s.store.ListActivities(ctx, entityType, entityID)
}

// Append records one interaction. The entry is immutable once written.
func (s *ActivityService) Append(ctx context.Context, caps domain.Capabilities, a *domain.Activity) (*domain.Activity, error) {
	ctx, span := activityTracer.Start(ctx, "ActivityService.Append")
	defer span.End()

	if !caps.CanEdit {
		return nil, &domain.ErrForbidden{Action: "registrar interacciones"}
	}
	if a.EntityType != domain.EntityContact && a.EntityType != domain.EntityLead {
		return nil, &domain.ErrValidation{Field: "entity_type", Message: fmt.Sprintf("entidad desconocida %q", a.EntityType)}
	}
	if a.EntityID == "" {
		return nil, &domain.ErrValidation{Field: "entity_id", Message: "la entidad es obligatoria"}
	}
	switch a.Type {
	case domain.ActivityNote, domain.ActivityCall, domain.ActivityEmail, domain.ActivityMeeting:
	default:
		return nil, &domain.ErrValidation{Field: "type", Message: fmt.Sprintf("tipo desconocido %q", a.Type)}
	}
	if strings.TrimSpace(a.Notes) == "" {
		return nil, &domain.ErrValidation{Field: "notes", Message: "la nota es obligatoria"}
	}

	now := time.Now()
	a.ID = ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
	a.CreatedAt = now

	out, err := s.store.AppendActivity(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("append activity: %w", err)
	}
	s.logger.Info("activity recorded",
		zap.String("activity_id", out.ID),
		zap.String("entity_type", out.EntityType),
		zap.String("entity_id", out.EntityID),
	)
	return out, nil
}
