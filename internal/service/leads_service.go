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

var leadTracer = otel.Tracer("service/leads")

// LeadsService orchestrates the lead collection. Stage moves go through
// PipelineService; everything else lives here.
type LeadsService struct {
	store         port.LeadStore
	fields        port.FieldStore
	scoring       port.ScoringStore
	pipeline      *PipelineService
	ctl           *listctl.Controller[domain.Lead]
	bulkhead      *resilience.Bulkhead
	metrics       *observability.Metrics
	maxImportRows int
	logger        *zap.Logger
}

// NewLeadsService creates a leads service. maxImportRows caps the CSV
// import size; zero means no cap.
func NewLeadsService(store port.LeadStore, fields port.FieldStore, scoring port.ScoringStore, pipeline *PipelineService, bulkhead *resilience.Bulkhead, metrics *observability.Metrics, maxImportRows int, logger *zap.Logger) *LeadsService {
	ctl := listctl.New[domain.Lead](leadBackend{store: store}, listctl.Options[domain.Lead]{
		Name: "lead",
		Caps: domain.AdminCapabilities(),
		TextFields: func(l domain.Lead) []string {
			return []string{l.Name, l.Email, l.Phone, l.Company}
		},
		Matchers: map[string]listctl.MatcherFunc[domain.Lead]{
			"stage":       func(l domain.Lead, v string) bool { return l.Stage == v },
			"priority":    func(l domain.Lead, v string) bool { return l.Priority == v },
			"assigned_to": func(l domain.Lead, v string) bool { return l.AssignedTo == v },
		},
		Apply: func(l domain.Lead, patch map[string]any) domain.Lead {
			if v, ok := patch["stage"].(string); ok {
				l.Stage = v
			}
			if v, ok := patch["priority"].(string); ok {
				l.Priority = v
			}
			return l
		},
		Logger: logger,
	})
	return &LeadsService{
		store:         store,
		fields:        fields,
		scoring:       scoring,
		pipeline:      pipeline,
		ctl:           ctl,
		bulkhead:      bulkhead,
		metrics:       metrics,
		maxImportRows: maxImportRows,
		logger:        logger,
	}
}

// List reloads and returns the filtered view.
func (s *LeadsService) List(ctx context.Context, filters map[string]string) ([]domain.Lead, error) {
	ctx, span := leadTracer.Start(ctx, "LeadsService.List")
	defer span.End()
	start := time.Now()

	view, err := s.ctl.ListWith(ctx, filters)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRequestDuration("leads.list", time.Since(start))
	return view, nil
}

// Create validates and inserts one lead, then refetches.
func (s *LeadsService) Create(ctx context.Context, caps domain.Capabilities, l *domain.Lead) (*domain.Lead, error) {
	ctx, span := leadTracer.Start(ctx, "LeadsService.Create")
	defer span.End()

	if !caps.CanCreate {
		return nil, &domain.ErrForbidden{Action: "crear leads"}
	}
	if err := s.validate(ctx, l); err != nil {
		return nil, err
	}

	out, err := s.store.InsertLead(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}
	s.logger.Info("lead created",
		zap.String("lead_id", out.ID),
		zap.String("stage", out.Stage),
	)
	if err := s.ctl.Load(ctx); err != nil {
		s.logger.Warn("reload after create failed", zap.Error(err))
	}
	return out, nil
}

// Update patches one lead and refetches.
func (s *LeadsService) Update(ctx context.Context, caps domain.Capabilities, id string, patch map[string]any) error {
	ctx, span := leadTracer.Start(ctx, "LeadsService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", id))

	if !caps.CanEdit {
		return &domain.ErrForbidden{Action: "editar leads"}
	}
	if err := s.validatePatch(patch); err != nil {
		return err
	}
	return s.ctl.Update(ctx, id, patch)
}

// SetPriority is the optimistic toggle path for leads.
func (s *LeadsService) SetPriority(ctx context.Context, caps domain.Capabilities, id, priority string) error {
	ctx, span := leadTracer.Start(ctx, "LeadsService.SetPriority")
	defer span.End()

	if !caps.CanEdit {
		return &domain.ErrForbidden{Action: "editar leads"}
	}
	if !domain.ValidPriority(priority) {
		return &domain.ErrValidation{Field: "priority", Message: fmt.Sprintf("prioridad inválida %q", priority)}
	}
	return s.ctl.UpdateOptimistic(ctx, id, map[string]any{"priority": priority})
}

// Delete removes one lead and refetches.
func (s *LeadsService) Delete(ctx context.Context, caps domain.Capabilities, id string) error {
	ctx, span := leadTracer.Start(ctx, "LeadsService.Delete")
	defer span.End()

	if !caps.CanDelete {
		return &domain.ErrForbidden{Action: "eliminar leads"}
	}
	return s.ctl.Remove(ctx, id)
}

// BulkDelete removes all ids in one call and refetches.
func (s *LeadsService) BulkDelete(ctx context.Context, caps domain.Capabilities, ids []string) error {
	ctx, span := leadTracer.Start(ctx, "LeadsService.BulkDelete")
	defer span.End()
	span.SetAttributes(attribute.Int("count", len(ids)))

	if !caps.CanDelete {
		return &domain.ErrForbidden{Action: "eliminar leads"}
	}
	return s.ctl.BulkRemove(ctx, ids)
}

// BulkUpdate applies one patch to all ids and refetches.
func (s *LeadsService) BulkUpdate(ctx context.Context, caps domain.Capabilities, ids []string, patch map[string]any) error {
	ctx, span := leadTracer.Start(ctx, "LeadsService.BulkUpdate")
	defer span.End()
	span.SetAttributes(attribute.Int("count", len(ids)))

	if !caps.CanEdit {
		return &domain.ErrForbidden{Action: "editar leads"}
	}
	if err := s.validatePatch(patch); err != nil {
		return err
	}
	return s.ctl.BulkUpdate(ctx, ids, patch)
}

// ScoreHistory returns the score trail for one lead, newest first.
func (s *LeadsService) ScoreHistory(ctx context.Context, leadID string) ([]domain.ScoreEntry, error) {
	ctx, span := leadTracer.Start(ctx, "LeadsService.ScoreHistory")
	defer span.End()

	return s.scoring.ListScoreHistory(ctx, leadID)
}

// Export writes the full collection as CSV.
func (s *LeadsService) Export(ctx context.Context, w io.Writer) error {
	ctx, span := leadTracer.Start(ctx, "LeadsService.Export")
	defer span.End()

	leads, err := s.store.ListLeads(ctx)
	if err != nil {
		return err
	}
	return csvio.Export(w, csvio.LeadColumns, csvio.LeadRows(leads))
}

// Import reads a CSV stream and inserts valid rows concurrently.
// Rows naming an unconfigured stage are rejected, not silently remapped.
func (s *LeadsService) Import(ctx context.Context, caps domain.Capabilities, r io.Reader) (*csvio.Summary, error) {
	ctx, span := leadTracer.Start(ctx, "LeadsService.Import")
	defer span.End()

	if !caps.CanCreate {
		return nil, &domain.ErrForbidden{Action: "importar leads"}
	}

	leads, rowErrs, err := csvio.ParseLeads(r)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "csv", Message: err.Error()}
	}

	total := len(leads) + len(rowErrs)
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
	for i := range leads {
		p := leads[i]
		g.Go(func() error {
			if !s.pipeline.StageExists(p.Lead.Stage) {
				mu.Lock()
				summary.Errors = append(summary.Errors, csvio.RowError{Row: p.Row, Err: fmt.Sprintf("etapa desconocida %q", p.Lead.Stage)})
				mu.Unlock()
				return nil
			}
			if err := s.bulkhead.Acquire(gctx); err != nil {
				return err
			}
			defer s.bulkhead.Release()

			_, err := s.store.InsertLead(gctx, &p.Lead)
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
	s.logger.Info("leads imported",
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

func (s *LeadsService) ToggleSelect(id string) { s.ctl.ToggleSelect(id) }
func (s *LeadsService) SelectAllVisible()      { s.ctl.SelectAllVisible() }
func (s *LeadsService) ClearSelection()        { s.ctl.ClearSelection() }
func (s *LeadsService) Selected() []string     { return s.ctl.Selected() }

func (s *LeadsService) validate(ctx context.Context, l *domain.Lead) error {
	if strings.TrimSpace(l.Name) == "" {
		return &domain.ErrValidation{Field: "name", Message: "el nombre es obligatorio"}
	}
	if l.Value < 0 {
		return &domain.ErrValidation{Field: "value", Message: "el valor no puede ser negativo"}
	}
	if l.Stage == "" {
		l.Stage = domain.StageNew
	}
	if !s.pipeline.StageExists(l.Stage) {
		return &domain.ErrValidation{Field: "stage", Message: fmt.Sprintf("etapa desconocida %q", l.Stage)}
	}
	if l.Priority == "" {
		l.Priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(l.Priority) {
		return &domain.ErrValidation{Field: "priority", Message: fmt.Sprintf("prioridad inválida %q", l.Priority)}
	}
	if len(l.CustomFields) > 0 {
		defs, err := s.fields.ListFieldsFor(ctx, domain.EntityLead)
		if err != nil {
			return fmt.Errorf("load field definitions: %w", err)
		}
		if err := domain.ValidateAgainst(defs, l.CustomFields); err != nil {
			return err
		}
	}
	return nil
}

func (s *LeadsService) validatePatch(patch map[string]any) error {
	if v, ok := patch["name"].(string); ok && strings.TrimSpace(v) == "" {
		return &domain.ErrValidation{Field: "name", Message: "el nombre es obligatorio"}
	}
	if v, ok := patch["value"].(float64); ok && v < 0 {
		return &domain.ErrValidation{Field: "value", Message: "el valor no puede ser negativo"}
	}
	if v, ok := patch["priority"].(string); ok && !domain.ValidPriority(v) {
		return &domain.ErrValidation{Field: "priority", Message: fmt.Sprintf("prioridad inválida %q", v)}
	}
	if v, ok := patch["stage"].(string); ok && !s.pipeline.StageExists(v) {
		return &domain.ErrValidation{Field: "stage", Message: fmt.Sprintf("etapa desconocida %q", v)}
	}
	return nil
}
