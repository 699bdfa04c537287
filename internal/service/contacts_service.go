package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/csvio"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/observability"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/resilience"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/listctl"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var contactTracer = otel.Tracer("service/contacts")

// importWorkers bounds concurrent row inserts during CSV import.
const importWorkers = 8

// ContactsService orchestrates the contact collection: listing with
// filters, single and bulk mutations, CSV import/export.
type ContactsService struct {
	store         port.ContactStore
	fields        port.FieldStore
	ctl           *listctl.Controller[domain.Contact]
	bulkhead      *resilience.Bulkhead
	metrics       *observability.Metrics
	maxImportRows int
	logger        *zap.Logger
}

// NewContactsService creates a contacts service. Capability checks run
// here per caller, so the inner controller is built unrestricted.
// maxImportRows caps the CSV import size; zero means no cap.
func NewContactsService(store port.ContactStore, fields port.FieldStore, bulkhead *resilience.Bulkhead, metrics *observability.Metrics, maxImportRows int, logger *zap.Logger) *ContactsService {
	ctl := listctl.New[domain.Contact](contactBackend{store: store}, listctl.Options[domain.Contact]{
		Name: "contacto",
		Caps: domain.AdminCapabilities(),
		TextFields: func(c domain.Contact) []string {
			return []string{c.Name, c.Email, c.Phone}
		},
		Matchers: map[string]listctl.MatcherFunc[domain.Contact]{
			"status":  func(c domain.Contact, v string) bool { return c.Status == v },
			"segment": func(c domain.Contact, v string) bool { return c.Segment == v },
			"tag":     func(c domain.Contact, v string) bool { return c.HasTag(v) },
		},
		Apply: func(c domain.Contact, patch map[string]any) domain.Contact {
			if v, ok := patch["status"].(string); ok {
				c.Status = v
			}
			if v, ok := patch["segment"].(string); ok {
				c.Segment = v
			}
			return c
		},
		Logger: logger,
	})
	return &ContactsService{
		store:         store,
		fields:        fields,
		ctl:           ctl,
		bulkhead:      bulkhead,
		metrics:       metrics,
		maxImportRows: maxImportRows,
		logger:        logger,
	}
}

// List reloads the collection and returns the view under the given
// filters. Filters replace any previously active set.
func (s *ContactsService) List(ctx context.Context, filters map[string]string) ([]domain.Contact, error) {
	ctx, span := contactTracer.Start(ctx, "ContactsService.List")
	defer span.End()
	start := time.Now()

	view, err := s.ctl.ListWith(ctx, filters)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRequestDuration("contacts.list", time.Since(start))
	return view, nil
}

// Create validates and inserts one contact, then refetches.
func (s *ContactsService) Create(ctx context.Context, caps domain.Capabilities, c *domain.Contact) (*domain.Contact, error) {
	ctx, span := contactTracer.Start(ctx, "ContactsService.Create")
	defer span.End()

	if !caps.CanCreate {
		return nil, &domain.ErrForbidden{Action: "crear contactos"}
	}
	if err := s.validate(ctx, c); err != nil {
		return nil, err
	}

	out, err := s.store.InsertContact(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	s.logger.Info("contact created", zap.String("contact_id", out.ID))
	if err := s.ctl.Load(ctx); err != nil {
		s.logger.Warn("reload after create failed", zap.Error(err))
	}
	return out, nil
}

// Update patches one contact and refetches the collection.
func (s *ContactsService) Update(ctx context.Context, caps domain.Capabilities, id string, patch map[string]any) error {
	ctx, span := contactTracer.Start(ctx, "ContactsService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("contact.id", id))

	if !caps.CanEdit {
		return &domain.ErrForbidden{Action: "editar contactos"}
	}
	if err := s.validatePatch(ctx, patch); err != nil {
		return err
	}
	return s.ctl.Update(ctx, id, patch)
}

// SetStatus toggles active/inactive. This is the optimistic path: the
// remote patch lands first, then the cached item is updated in place
// with no refetch.
func (s *ContactsService) SetStatus(ctx context.Context, caps domain.Capabilities, id, status string) error {
	ctx, span := contactTracer.Start(ctx, "ContactsService.SetStatus")
	defer span.End()

	if !caps.CanEdit {
		return &domain.ErrForbidden{Action: "editar contactos"}
	}
	if status != domain.ContactActive && status != domain.ContactInactive {
		return &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("estado inválido %q", status)}
	}
	return s.ctl.UpdateOptimistic(ctx, id, map[string]any{"status": status})
}

// Delete removes one contact and refetches.
func (s *ContactsService) Delete(ctx context.Context, caps domain.Capabilities, id string) error {
	ctx, span := contactTracer.Start(ctx, "ContactsService.Delete")
	defer span.End()

	if !caps.CanDelete {
		return &domain.ErrForbidden{Action: "eliminar contactos"}
	}
	return s.ctl.Remove(ctx, id)
}

// BulkDelete removes all ids in one call and refetches.
func (s *ContactsService) BulkDelete(ctx context.Context, caps domain.Capabilities, ids []string) error {
	ctx, span := contactTracer.Start(ctx, "ContactsService.BulkDelete")
	defer span.End()
	span.SetAttributes(attribute.Int("count", len(ids)))

	if !caps.CanDelete {
		return &domain.ErrForbidden{Action: "eliminar contactos"}
	}
	return s.ctl.BulkRemove(ctx, ids)
}

// BulkUpdate applies one patch to all ids in one call and refetches.
func (s *ContactsService) BulkUpdate(ctx context.Context, caps domain.Capabilities, ids []string, patch map[string]any) error {
	ctx, span := contactTracer.Start(ctx, "ContactsService.BulkUpdate")
	defer span.End()
	span.SetAttributes(attribute.Int("count", len(ids)))

	if !caps.CanEdit {
		return &domain.ErrForbidden{Action: "editar contactos"}
	}
	if err := s.validatePatch(ctx, patch); err != nil {
		return err
	}
	return s.ctl.BulkUpdate(ctx, ids, patch)
}

// Export writes the full collection as CSV.
func (s *ContactsService) Export(ctx context.Context, w io.Writer) error {
	ctx, span := contactTracer.Start(ctx, "ContactsService.Export")
	defer span.End()

	contacts, err := s.store.ListContacts(ctx)
	if err != nil {
		return err
	}
	return csvio.Export(w, csvio.ContactColumns, csvio.ContactRows(contacts))
}

// Import reads a CSV stream, inserts valid rows concurrently and
// returns the per-row tally. One bad row never aborts the run.
func (s *ContactsService) Import(ctx context.Context, caps domain.Capabilities, r io.Reader) (*csvio.Summary, error) {
	ctx, span := contactTracer.Start(ctx, "ContactsService.Import")
	defer span.End()

	if !caps.CanCreate {
		return nil, &domain.ErrForbidden{Action: "importar contactos"}
	}

	contacts, rowErrs, err := csvio.ParseContacts(r)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "csv", Message: err.Error()}
	}

	total := len(contacts) + len(rowErrs)
	if s.maxImportRows > 0 && total > s.maxImportRows {
		return nil, &domain.ErrValidation{
			Field:   "csv",
			Message: fmt.Sprintf("el archivo tiene %d filas, el máximo es %d", total, s.maxImportRows),
		}
	}

	summary := &csvio.Summary{
		Total:  total,
		Errors: rowErrs,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importWorkers)
	for i := range contacts {
		p := contacts[i]
		g.Go(func() error {
			if err := s.bulkhead.Acquire(gctx); err != nil {
				return err
			}
			defer s.bulkhead.Release()

			_, err := s.store.InsertContact(gctx, &p.Contact)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Errors = append(summary.Errors, csvio.RowError{Row: p.Row, Err: err.Error()})
				return nil
			}
			summary.Imported++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.Rejected = summary.Total - summary.Imported
	s.metrics.RecordCSVRows(summary.Imported, summary.Rejected)
	s.logger.Info("contacts imported",
		zap.Int("total", summary.Total),
		zap.Int("imported", summary.Imported),
		zap.Int("rejected", summary.Rejected),
	)
	if err := s.ctl.Load(ctx); err != nil {
		s.logger.Warn("reload after import failed", zap.Error(err))
	}
	return summary, nil
}

// Selection passthroughs for the shared list selection.

func (s *ContactsService) ToggleSelect(id string) { s.ctl.ToggleSelect(id) }
func (s *ContactsService) SelectAllVisible()      { s.ctl.SelectAllVisible() }
func (s *ContactsService) ClearSelection()        { s.ctl.ClearSelection() }
func (s *ContactsService) Selected() []string     { return s.ctl.Selected() }

// validate checks a full contact record before insert.
func (s *ContactsService) validate(ctx context.Context, c *domain.Contact) error {
	if strings.TrimSpace(c.Name) == "" {
		return &domain.ErrValidation{Field: "name", Message: "el nombre es obligatorio"}
	}
	if c.Status == "" {
		c.Status = domain.ContactActive
	}
	if c.Status != domain.ContactActive && c.Status != domain.ContactInactive {
		return &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("estado inválido %q", c.Status)}
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return &domain.ErrValidation{Field: "email", Message: "correo inválido"}
	}
	if len(c.CustomFields) > 0 {
		defs, err := s.fields.ListFieldsFor(ctx, domain.EntityContact)
		if err != nil {
			return fmt.Errorf("load field definitions: %w", err)
		}
		if err := domain.ValidateAgainst(defs, c.CustomFields); err != nil {
			return err
		}
	}
	return nil
}

// validatePatch rejects patch values that would corrupt the record.
func (s *ContactsService) validatePatch(ctx context.Context, patch map[string]any) error {
	if v, ok := patch["status"].(string); ok {
		if v != domain.ContactActive && v != domain.ContactInactive {
			return &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("estado inválido %q", v)}
		}
	}
	if v, ok := patch["name"].(string); ok && strings.TrimSpace(v) == "" {
		return &domain.ErrValidation{Field: "name", Message: "el nombre es obligatorio"}
	}
	return nil
}
