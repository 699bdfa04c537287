package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/observability"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/resilience"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockContactStore struct {
	mu       sync.Mutex
	contacts []domain.Contact
	nextID   int

	insertErrFor string
}

func (m *mockContactStore) ListContacts(_ context.Context) ([]domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Contact, len(m.contacts))
	copy(out, m.contacts)
	return out, nil
}

func (m *mockContactStore) InsertContact(_ context.Context, c *domain.Contact) (*domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErrFor != "" && c.Name == m.insertErrFor {
		return nil, errors.New("duplicate email")
	}
	m.nextID++
	cp := *c
	if cp.ID == "" {
		cp.ID = "c-new"
	}
	m.contacts = append(m.contacts, cp)
	return &cp, nil
}

func (m *mockContactStore) UpdateContact(_ context.Context, id string, patch map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.contacts {
		if m.contacts[i].ID == id {
			if s, ok := patch["status"].(string); ok {
				m.contacts[i].Status = s
			}
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "contact", ID: id}
}

func (m *mockContactStore) DeleteContact(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.contacts[:0]
	for _, c := range m.contacts {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	m.contacts = kept
	return nil
}

func (m *mockContactStore) UpdateContactsIn(ctx context.Context, ids []string, patch map[string]any) error {
	for _, id := range ids {
		if err := m.UpdateContact(ctx, id, patch); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockContactStore) DeleteContactsIn(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := m.DeleteContact(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func newContactsService(store *mockContactStore, fields *mockFieldStore) *service.ContactsService {
	return service.NewContactsService(
		store, fields,
		resilience.NewBulkhead(4),
		observability.NewMetrics(),
		100,
		zap.NewNop(),
	)
}

// --- Tests ---

func TestContactCreateRequiresCapabilityBeforeValidation(t *testing.T) {
	store := &mockContactStore{}
	svc := newContactsService(store, &mockFieldStore{})

	// The record is invalid too; the capability failure must win.
	_, err := svc.Create(context.Background(), domain.Capabilities{}, &domain.Contact{})
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestContactCreateDefaultsStatus(t *testing.T) {
	store := &mockContactStore{}
	svc := newContactsService(store, &mockFieldStore{})

	out, err := svc.Create(context.Background(), domain.AdminCapabilities(), &domain.Contact{Name: "Ana"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.Status != domain.ContactActive {
		t.Errorf("expected default status active, got %q", out.Status)
	}
}

func TestContactCreateValidatesCustomFields(t *testing.T) {
	fields := &mockFieldStore{fields: []domain.CustomField{
		{Name: "rif", FieldType: domain.FieldText, EntityType: domain.EntityContact},
	}}
	svc := newContactsService(&mockContactStore{}, fields)

	_, err := svc.Create(context.Background(), domain.AdminCapabilities(), &domain.Contact{
		Name:         "Ana",
		CustomFields: map[string]domain.FieldValue{"rif": domain.NumberValue(5)},
	})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation for type mismatch, got %v", err)
	}
}

func TestContactSetStatusRejectsUnknownStatus(t *testing.T) {
	svc := newContactsService(&mockContactStore{}, &mockFieldStore{})

	err := svc.SetStatus(context.Background(), domain.AdminCapabilities(), "c-1", "suspendido")
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestContactListAppliesFilters(t *testing.T) {
	store := &mockContactStore{contacts: []domain.Contact{
		{ID: "c-1", Name: "Ana", Status: "active", Segment: "taller"},
		{ID: "c-2", Name: "Bruno", Status: "inactive", Segment: "taller"},
		{ID: "c-3", Name: "Carla", Status: "active", Segment: "minorista"},
	}}
	svc := newContactsService(store, &mockFieldStore{})
	ctx := context.Background()

	got, err := svc.List(ctx, map[string]string{"status": "active", "segment": "taller"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c-1" {
		t.Errorf("expected only c-1, got %v", got)
	}

	// A later call with different filters replaces the set wholesale.
	got, err = svc.List(ctx, map[string]string{"segment": "minorista"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c-3" {
		t.Errorf("expected only c-3, got %v", got)
	}
}

func TestContactImportTalliesPerRow(t *testing.T) {
	store := &mockContactStore{insertErrFor: "Duplicada"}
	svc := newContactsService(store, &mockFieldStore{})

	csv := strings.Join([]string{
		"name,email",
		"Ana,ana@x.ve",
		",sin-nombre@x.ve",
		"Duplicada,dup@x.ve",
		"Bruno,bruno@x.ve",
		"",
	}, "\n")

	summary, err := svc.Import(context.Background(), domain.AdminCapabilities(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Total != 4 {
		t.Errorf("expected total 4, got %d", summary.Total)
	}
	if summary.Imported != 2 {
		t.Errorf("expected 2 imported, got %d", summary.Imported)
	}
	if summary.Rejected != 2 {
		t.Errorf("expected 2 rejected, got %d", summary.Rejected)
	}
	if len(summary.Errors) != 2 {
		t.Fatalf("expected 2 row errors, got %v", summary.Errors)
	}
	rows := map[int]bool{}
	for _, e := range summary.Errors {
		rows[e.Row] = true
	}
	// The insert failure is data row 3 in the file; the parse rejection
	// on row 2 must not shift its number.
	if !rows[2] || !rows[3] {
		t.Errorf("expected errors on file rows 2 and 3, got %v", summary.Errors)
	}
}

func TestContactImportRejectsOversizedFile(t *testing.T) {
	store := &mockContactStore{}
	svc := newContactsService(store, &mockFieldStore{})

	var sb strings.Builder
	sb.WriteString("name\n")
	for i := 0; i < 101; i++ {
		fmt.Fprintf(&sb, "Contacto %d\n", i)
	}

	_, err := svc.Import(context.Background(), domain.AdminCapabilities(), strings.NewReader(sb.String()))
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(store.contacts) != 0 {
		t.Errorf("expected no inserts for an oversized file, got %d", len(store.contacts))
	}
}

func TestContactImportRequiresCreateCapability(t *testing.T) {
	svc := newContactsService(&mockContactStore{}, &mockFieldStore{})

	_, err := svc.Import(context.Background(), domain.Capabilities{}, strings.NewReader("name\nAna\n"))
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestContactExportThenImportRoundTrip(t *testing.T) {
	store := &mockContactStore{contacts: []domain.Contact{
		{ID: "c-1", Name: "Repuestos, C.A.", Email: "v@x.ve", Status: "active"},
	}}
	svc := newContactsService(store, &mockFieldStore{})
	ctx := context.Background()

	var buf bytes.Buffer
	if err := svc.Export(ctx, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	summary, err := svc.Import(ctx, domain.AdminCapabilities(), &buf)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Imported != 1 || summary.Rejected != 0 {
		t.Errorf("expected clean round trip, got %+v", summary)
	}
}

func TestContactBulkDeleteClearsSelection(t *testing.T) {
	store := &mockContactStore{contacts: []domain.Contact{
		{ID: "c-1", Name: "Ana", Status: "active"},
		{ID: "c-2", Name: "Bruno", Status: "active"},
	}}
	svc := newContactsService(store, &mockFieldStore{})
	ctx := context.Background()

	if _, err := svc.List(ctx, nil); err != nil {
		t.Fatalf("list: %v", err)
	}
	svc.ToggleSelect("c-1")
	svc.ToggleSelect("c-2")

	if err := svc.BulkDelete(ctx, domain.AdminCapabilities(), svc.Selected()); err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if got := svc.Selected(); len(got) != 0 {
		t.Errorf("expected selection cleared, got %v", got)
	}
	if got, _ := store.ListContacts(ctx); len(got) != 0 {
		t.Errorf("expected store emptied, got %v", got)
	}
}
