package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockFieldStore struct {
	fields []domain.CustomField
	calls  int
}

func (m *mockFieldStore) ListFields(_ context.Context) ([]domain.CustomField, error) {
	m.calls++
	out := make([]domain.CustomField, len(m.fields))
	copy(out, m.fields)
	return out, nil
}

func (m *mockFieldStore) ListFieldsFor(_ context.Context, entityType string) ([]domain.CustomField, error) {
	m.calls++
	var out []domain.CustomField
	for _, f := range m.fields {
		if f.EntityType == entityType {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFieldStore) InsertField(_ context.Context, f *domain.CustomField) (*domain.CustomField, error) {
	m.calls++
	cp := *f
	cp.ID = "fld-new"
	m.fields = append(m.fields, cp)
	return &cp, nil
}

func (m *mockFieldStore) UpdateField(_ context.Context, _ string, _ map[string]any) error {
	m.calls++
	return nil
}

func (m *mockFieldStore) DeleteField(_ context.Context, _ string) error {
	m.calls++
	return nil
}

// --- Tests ---

func TestCreateFieldNormalizesName(t *testing.T) {
	store := &mockFieldStore{}
	svc := service.NewFieldsService(store, zap.NewNop())

	out, err := svc.Create(context.Background(), domain.AdminCapabilities(), &domain.CustomField{
		Label:      "Campo Cliente!",
		FieldType:  domain.FieldText,
		EntityType: domain.EntityContact,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.Name != "campo_cliente_" {
		t.Errorf("expected slugified name, got %q", out.Name)
	}
	if out.DisplayOrder != 1 {
		t.Errorf("expected display order 1, got %d", out.DisplayOrder)
	}
}

func TestCreateFieldSelectWithoutOptionsCostsNoRoundTrip(t *testing.T) {
	store := &mockFieldStore{}
	svc := service.NewFieldsService(store, zap.NewNop())

	_, err := svc.Create(context.Background(), domain.AdminCapabilities(), &domain.CustomField{
		Label:      "Zona",
		FieldType:  domain.FieldSelect,
		EntityType: domain.EntityContact,
	})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if store.calls != 0 {
		t.Errorf("expected zero store calls for invalid definition, got %d", store.calls)
	}
}

func TestCreateFieldRejectsOptionsOnNonSelect(t *testing.T) {
	store := &mockFieldStore{}
	svc := service.NewFieldsService(store, zap.NewNop())

	_, err := svc.Create(context.Background(), domain.AdminCapabilities(), &domain.CustomField{
		Label:      "Notas",
		FieldType:  domain.FieldText,
		EntityType: domain.EntityLead,
		Options:    []string{"a"},
	})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if store.calls != 0 {
		t.Errorf("expected zero store calls, got %d", store.calls)
	}
}

func TestCreateFieldRejectsDuplicateSlugPerEntity(t *testing.T) {
	store := &mockFieldStore{fields: []domain.CustomField{
		{ID: "fld-1", Name: "rif", FieldType: domain.FieldText, EntityType: domain.EntityContact},
	}}
	svc := service.NewFieldsService(store, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.AdminCapabilities(), &domain.CustomField{
		Label:      "RIF",
		FieldType:  domain.FieldText,
		EntityType: domain.EntityContact,
	})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// Same slug on the other entity type is fine.
	if _, err := svc.Create(ctx, domain.AdminCapabilities(), &domain.CustomField{
		Label:      "RIF",
		FieldType:  domain.FieldText,
		EntityType: domain.EntityLead,
	}); err != nil {
		t.Errorf("expected same slug on another entity to be allowed, got %v", err)
	}
}

func TestCreateFieldRequiresAdmin(t *testing.T) {
	store := &mockFieldStore{}
	svc := service.NewFieldsService(store, zap.NewNop())

	_, err := svc.Create(context.Background(), domain.CapabilitiesForRole(domain.RoleManager), &domain.CustomField{
		Label:      "RIF",
		FieldType:  domain.FieldText,
		EntityType: domain.EntityContact,
	})
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if store.calls != 0 {
		t.Errorf("expected zero store calls, got %d", store.calls)
	}
}

func TestUpdateFieldRefusesTypeChange(t *testing.T) {
	store := &mockFieldStore{}
	svc := service.NewFieldsService(store, zap.NewNop())

	err := svc.Update(context.Background(), domain.AdminCapabilities(), "fld-1", map[string]any{"field_type": "number"})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if store.calls != 0 {
		t.Errorf("expected zero store calls, got %d", store.calls)
	}
}

func TestListFieldsFiltersByEntity(t *testing.T) {
	store := &mockFieldStore{fields: []domain.CustomField{
		{ID: "fld-1", Name: "rif", Label: "RIF", FieldType: domain.FieldText, EntityType: domain.EntityContact},
		{ID: "fld-2", Name: "origen", Label: "Origen", FieldType: domain.FieldText, EntityType: domain.EntityLead},
	}}
	svc := service.NewFieldsService(store, zap.NewNop())

	got, err := svc.List(context.Background(), map[string]string{"entity_type": domain.EntityLead})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "fld-2" {
		t.Errorf("expected only lead fields, got %v", got)
	}
}
