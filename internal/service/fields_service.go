package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/listctl"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var fieldTracer = otel.Tracer("service/fields")

// FieldsService manages the custom field registry. All mutations are
// admin-only; definitions are validated fully before any remote call.
type FieldsService struct {
	store  port.FieldStore
	ctl    *listctl.Controller[domain.CustomField]
	logger *zap.Logger
}

// NewFieldsService creates a fields service.
func NewFieldsService(store port.FieldStore, logger *zap.Logger) *FieldsService {
	ctl := listctl.New[domain.CustomField](fieldBackend{store: store}, listctl.Options[domain.CustomField]{
		Name: "campo",
		Caps: domain.AdminCapabilities(),
		TextFields: func(f domain.CustomField) []string {
			return []string{f.Name, f.Label}
		},
		Matchers: map[string]listctl.MatcherFunc[domain.CustomField]{
			"entity_type": func(f domain.CustomField, v string) bool { return f.EntityType == v },
			"field_type":  func(f domain.CustomField, v string) bool { return f.FieldType == v },
		},
		Logger: logger,
	})
	return &FieldsService{store: store, ctl: ctl, logger: logger}
}

// List reloads and returns definitions under the given filters, in
// display order.
func (s *FieldsService) List(ctx context.Context, filters map[string]string) ([]domain.CustomField, error) {
	ctx, span := fieldTracer.Start(ctx, "FieldsService.List")
	defer span.End()

	return s.ctl.ListWith(ctx, filters)
}

// Create validates and registers a new definition. The name is
// normalized to slug form; select types must declare options up front.
func (s *FieldsService) Create(ctx context.Context, caps domain.Capabilities, f *domain.CustomField) (*domain.CustomField, error) {
	ctx, span := fieldTracer.Start(ctx, "FieldsService.Create")
	defer span.End()

	if !caps.IsAdmin {
		return nil, &domain.ErrForbidden{Action: "administrar campos personalizados"}
	}
	if err := validateFieldDef(f); err != nil {
		return nil, err
	}

	existing, err := s.store.ListFieldsFor(ctx, f.EntityType)
	if err != nil {
		return nil, fmt.Errorf("check existing fields: %w", err)
	}
	for _, e := range existing {
		if e.Name == f.Name {
			return nil, &domain.ErrConflict{Message: fmt.Sprintf("el campo '%s' ya existe para %s", f.Name, f.EntityType)}
		}
	}
	if f.DisplayOrder == 0 {
		f.DisplayOrder = len(existing) + 1
	}

	out, err := s.store.InsertField(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("insert field: %w", err)
	}
	s.logger.Info("custom field created",
		zap.String("field_id", out.ID),
		zap.String("name", out.Name),
		zap.String("entity_type", out.EntityType),
	)
	return out, nil
}

// Update patches one definition. Type and entity changes are refused;
// they would orphan stored values.
func (s *FieldsService) Update(ctx context.Context, caps domain.Capabilities, id string, patch map[string]any) error {
	ctx, span := fieldTracer.Start(ctx, "FieldsService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("field.id", id))

	if !caps.IsAdmin {
		return &domain.ErrForbidden{Action: "administrar campos personalizados"}
	}
	if _, ok := patch["field_type"]; ok {
		return &domain.ErrValidation{Field: "field_type", Message: "el tipo de un campo no se puede cambiar"}
	}
	if _, ok := patch["entity_type"]; ok {
		return &domain.ErrValidation{Field: "entity_type", Message: "la entidad de un campo no se puede cambiar"}
	}
	return s.ctl.Update(ctx, id, patch)
}

// Delete removes one definition.
func (s *FieldsService) Delete(ctx context.Context, caps domain.Capabilities, id string) error {
	ctx, span := fieldTracer.Start(ctx, "FieldsService.Delete")
	defer span.End()

	if !caps.IsAdmin {
		return &domain.ErrForbidden{Action: "administrar campos personalizados"}
	}
	return s.ctl.Remove(ctx, id)
}

// validateFieldDef checks a full definition client-side. It runs before
// any store call, so a bad definition costs zero round trips.
func validateFieldDef(f *domain.CustomField) error {
	if strings.TrimSpace(f.Label) == "" {
		return &domain.ErrValidation{Field: "label", Message: "la etiqueta es obligatoria"}
	}
	if f.Name == "" {
		f.Name = domain.SlugifyFieldName(f.Label)
	} else if !domain.ValidSlug(f.Name) {
		f.Name = domain.SlugifyFieldName(f.Name)
	}
	if f.Name == "" {
		return &domain.ErrValidation{Field: "name", Message: "el nombre es obligatorio"}
	}
	if !domain.ValidFieldType(f.FieldType) {
		return &domain.ErrValidation{Field: "field_type", Message: fmt.Sprintf("tipo desconocido %q", f.FieldType)}
	}
	if f.EntityType != domain.EntityContact && f.EntityType != domain.EntityLead {
		return &domain.ErrValidation{Field: "entity_type", Message: fmt.Sprintf("entidad desconocida %q", f.EntityType)}
	}
	if f.NeedsOptions() && len(f.Options) == 0 {
		return &domain.ErrValidation{Field: "options", Message: "los campos de selección requieren opciones"}
	}
	if !f.NeedsOptions() && len(f.Options) > 0 {
		return &domain.ErrValidation{Field: "options", Message: "solo los campos de selección llevan opciones"}
	}
	return nil
}
