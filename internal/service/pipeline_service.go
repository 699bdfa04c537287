package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/observability"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var pipelineTracer = otel.Tracer("service/pipeline")

// kanbanConfigKey is the config-store key holding the stage layout.
const kanbanConfigKey = "kanban_config"

// PipelineService owns the kanban stage layout and the board view.
// The layout lives in the local config store and survives restarts;
// leads always come fresh from the remote store.
type PipelineService struct {
	leads   port.LeadStore
	cfg     port.ConfigStore
	metrics *observability.Metrics
	logger  *zap.Logger

	mu     sync.Mutex
	stages []domain.Stage
	board  *domain.Board
}

// NewPipelineService loads the persisted stage layout, seeding the
// seven defaults on first run.
func NewPipelineService(leads port.LeadStore, cfg port.ConfigStore, metrics *observability.Metrics, logger *zap.Logger) (*PipelineService, error) {
	s := &PipelineService{leads: leads, cfg: cfg, metrics: metrics, logger: logger}

	raw, ok, err := cfg.Get(kanbanConfigKey)
	if err != nil {
		return nil, fmt.Errorf("load kanban config: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &s.stages); err != nil {
			// Corrupt snapshot: fall back to defaults rather than refuse to start.
			logger.Warn("kanban config corrupt, reseeding defaults", zap.Error(err))
			ok = false
		}
	}
	if !ok || len(s.stages) == 0 {
		s.stages = domain.DefaultStages()
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		logger.Info("kanban stages seeded", zap.Int("count", len(s.stages)))
	}
	return s, nil
}

// Stages returns the layout ordered by position.
func (s *PipelineService) Stages() []domain.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Stage, len(s.stages))
	copy(out, s.stages)
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// StageExists reports whether id is a configured stage.
func (s *PipelineService) StageExists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(id) >= 0
}

func (s *PipelineService) indexLocked(id string) int {
	for i, st := range s.stages {
		if st.ID == id {
			return i
		}
	}
	return -1
}

// Board builds the kanban view: one bucket per stage in layout order,
// with per-bucket value totals and board-wide aggregates computed live.
// Leads referencing an unconfigured stage are counted as orphaned and
// left out of every bucket.
func (s *PipelineService) Board(ctx context.Context) (*domain.Board, error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.Board")
	defer span.End()

	leads, err := s.leads.ListLeads(ctx)
	if err != nil {
		return nil, err
	}

	stages := s.Stages()
	byStage := make(map[string]*domain.StageBucket, len(stages))
	board := &domain.Board{Buckets: make([]domain.StageBucket, len(stages))}
	for i, st := range stages {
		board.Buckets[i] = domain.StageBucket{Stage: st, Leads: []domain.Lead{}}
		byStage[st.ID] = &board.Buckets[i]
	}

	var won int
	for _, l := range leads {
		bucket, ok := byStage[l.Stage]
		if !ok {
			board.OrphanedLeads++
			s.logger.Warn("lead references unknown stage",
				zap.String("lead_id", l.ID),
				zap.String("stage", l.Stage),
			)
			continue
		}
		bucket.Leads = append(bucket.Leads, l)
		bucket.TotalValue += l.Value
		if l.Stage == domain.StageWon {
			won++
		}
	}

	board.TotalLeads = len(leads)
	if board.TotalLeads > 0 {
		board.ConversionRate = float64(won) / float64(board.TotalLeads)
	}
	span.SetAttributes(attribute.Int("leads", board.TotalLeads))

	s.mu.Lock()
	s.board = board
	s.mu.Unlock()
	return board, nil
}

// currentBoard returns the last built board, building one when no
// board has been served yet this process.
func (s *PipelineService) currentBoard(ctx context.Context) (*domain.Board, error) {
	s.mu.Lock()
	b := s.board
	s.mu.Unlock()
	if b != nil {
		return b, nil
	}
	return s.Board(ctx)
}

// MoveLead moves a lead to another stage and position in the board.
// Dropping a lead on its own slot is a no-op with no remote call.
// Otherwise the remote patch lands first and the board is respliced
// locally only on success, so a drag never costs a full reload.
// toIndex is the target position within the destination bucket;
// negative appends at the end.
func (s *PipelineService) MoveLead(ctx context.Context, caps domain.Capabilities, leadID, stageID string, toIndex int) (*domain.Board, error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.MoveLead")
	defer span.End()
	span.SetAttributes(
		attribute.String("lead.id", leadID),
		attribute.String("stage", stageID),
	)

	if !caps.CanEdit {
		return nil, &domain.ErrForbidden{Action: "mover leads"}
	}
	if !s.StageExists(stageID) {
		return nil, &domain.ErrValidation{Field: "stage", Message: fmt.Sprintf("etapa desconocida %q", stageID)}
	}

	board, err := s.currentBoard(ctx)
	if err != nil {
		return nil, err
	}
	from, fromIdx := locateLead(board, leadID)
	if from == nil {
		// Stale board: the lead may have been created since the last
		// build. Rebuild once before giving up.
		if board, err = s.Board(ctx); err != nil {
			return nil, err
		}
		if from, fromIdx = locateLead(board, leadID); from == nil {
			return nil, &domain.ErrNotFound{Resource: "lead", ID: leadID}
		}
	}

	if from.Stage.ID == stageID && fromIdx == resolveSlot(toIndex, len(from.Leads)-1) {
		return board, nil
	}

	if err := s.leads.UpdateLeadStage(ctx, leadID, stageID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	spliceLead(board, leadID, stageID, toIndex)
	s.mu.Unlock()

	s.metrics.IncrPipelineMove(stageID)
	s.logger.Info("lead moved",
		zap.String("lead_id", leadID),
		zap.String("stage", stageID),
		zap.Int("to_index", toIndex),
	)
	return board, nil
}

// locateLead finds a lead's bucket and position in a board.
func locateLead(b *domain.Board, leadID string) (*domain.StageBucket, int) {
	for i := range b.Buckets {
		for j := range b.Buckets[i].Leads {
			if b.Buckets[i].Leads[j].ID == leadID {
				return &b.Buckets[i], j
			}
		}
	}
	return nil, -1
}

// resolveSlot clamps a drop index into a bucket holding n leads after
// the moved lead is taken out. Negative means the end of the bucket.
func resolveSlot(toIndex, n int) int {
	if toIndex < 0 || toIndex > n {
		return n
	}
	return toIndex
}

// spliceLead removes the lead from its bucket and inserts it into the
// destination at toIndex, keeping the per-bucket value totals and the
// conversion rate in step.
func spliceLead(b *domain.Board, leadID, stageID string, toIndex int) {
	from, fromIdx := locateLead(b, leadID)
	if from == nil {
		return
	}
	lead := from.Leads[fromIdx]
	from.Leads = append(from.Leads[:fromIdx], from.Leads[fromIdx+1:]...)
	from.TotalValue -= lead.Value

	var dest *domain.StageBucket
	for i := range b.Buckets {
		if b.Buckets[i].Stage.ID == stageID {
			dest = &b.Buckets[i]
			break
		}
	}
	if dest == nil {
		return
	}
	lead.Stage = stageID
	at := resolveSlot(toIndex, len(dest.Leads))
	dest.Leads = append(dest.Leads, domain.Lead{})
	copy(dest.Leads[at+1:], dest.Leads[at:])
	dest.Leads[at] = lead
	dest.TotalValue += lead.Value

	if b.TotalLeads > 0 {
		won := 0
		for i := range b.Buckets {
			if b.Buckets[i].Stage.ID == domain.StageWon {
				won = len(b.Buckets[i].Leads)
			}
		}
		b.ConversionRate = float64(won) / float64(b.TotalLeads)
	}
}

// AddStage appends a custom stage after the existing ones. The id is
// derived from the title.
func (s *PipelineService) AddStage(ctx context.Context, caps domain.Capabilities, title, color string) (*domain.Stage, error) {
	_, span := pipelineTracer.Start(ctx, "PipelineService.AddStage")
	defer span.End()

	if !caps.IsAdmin {
		return nil, &domain.ErrForbidden{Action: "configurar el pipeline"}
	}
	if strings.TrimSpace(title) == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "el título es obligatorio"}
	}
	id := domain.SlugifyFieldName(title)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) >= 0 {
		return nil, &domain.ErrConflict{Message: fmt.Sprintf("la etapa '%s' ya existe", id)}
	}
	maxOrder := 0
	for _, st := range s.stages {
		if st.Order > maxOrder {
			maxOrder = st.Order
		}
	}
	stage := domain.Stage{ID: id, Title: title, Color: color, Order: maxOrder + 1}
	s.stages = append(s.stages, stage)
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return &stage, nil
}

// UpdateStage renames or recolors one stage. Empty fields are left as is.
func (s *PipelineService) UpdateStage(ctx context.Context, caps domain.Capabilities, id, title, color string) error {
	_, span := pipelineTracer.Start(ctx, "PipelineService.UpdateStage")
	defer span.End()

	if !caps.IsAdmin {
		return &domain.ErrForbidden{Action: "configurar el pipeline"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return &domain.ErrNotFound{Resource: "stage", ID: id}
	}
	if title != "" {
		s.stages[i].Title = title
	}
	if color != "" {
		s.stages[i].Color = color
	}
	return s.persistLocked()
}

// ReorderStages applies a new total ordering. The id list must be a
// permutation of the configured stages.
func (s *PipelineService) ReorderStages(ctx context.Context, caps domain.Capabilities, ids []string) error {
	_, span := pipelineTracer.Start(ctx, "PipelineService.ReorderStages")
	defer span.End()

	if !caps.IsAdmin {
		return &domain.ErrForbidden{Action: "configurar el pipeline"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) != len(s.stages) {
		return &domain.ErrValidation{Field: "stages", Message: "la lista debe incluir todas las etapas"}
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if s.indexLocked(id) < 0 {
			return &domain.ErrValidation{Field: "stages", Message: fmt.Sprintf("etapa desconocida %q", id)}
		}
		if _, dup := seen[id]; dup {
			return &domain.ErrValidation{Field: "stages", Message: fmt.Sprintf("etapa repetida %q", id)}
		}
		seen[id] = struct{}{}
	}
	for pos, id := range ids {
		s.stages[s.indexLocked(id)].Order = pos + 1
	}
	return s.persistLocked()
}

// RemoveStage deletes a custom stage. Default stages are protected.
// Leads sitting in the removed stage are reassigned to the first stage
// before the layout change is persisted.
func (s *PipelineService) RemoveStage(ctx context.Context, caps domain.Capabilities, id string) error {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.RemoveStage")
	defer span.End()
	span.SetAttributes(attribute.String("stage", id))

	if !caps.IsAdmin {
		return &domain.ErrForbidden{Action: "configurar el pipeline"}
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return &domain.ErrNotFound{Resource: "stage", ID: id}
	}
	if s.stages[i].IsDefault {
		s.mu.Unlock()
		return &domain.ErrProtectedStage{StageID: id}
	}
	s.mu.Unlock()

	leads, err := s.leads.ListLeads(ctx)
	if err != nil {
		return err
	}
	var stranded []string
	for _, l := range leads {
		if l.Stage == id {
			stranded = append(stranded, l.ID)
		}
	}
	if len(stranded) > 0 {
		if err := s.leads.UpdateLeadsIn(ctx, stranded, map[string]any{"stage": domain.StageNew}); err != nil {
			return fmt.Errorf("reassign leads from removed stage: %w", err)
		}
		s.logger.Info("leads reassigned from removed stage",
			zap.String("stage", id),
			zap.Int("count", len(stranded)),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i = s.indexLocked(id)
	if i < 0 {
		return nil
	}
	s.stages = append(s.stages[:i], s.stages[i+1:]...)
	return s.persistLocked()
}

// ResetStages restores the default layout, dropping custom stages.
func (s *PipelineService) ResetStages(ctx context.Context, caps domain.Capabilities) error {
	_, span := pipelineTracer.Start(ctx, "PipelineService.ResetStages")
	defer span.End()

	if !caps.IsAdmin {
		return &domain.ErrForbidden{Action: "configurar el pipeline"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = domain.DefaultStages()
	s.logger.Info("kanban stages reset to defaults")
	return s.persistLocked()
}

func (s *PipelineService) persistLocked() error {
	raw, err := json.Marshal(s.stages)
	if err != nil {
		return fmt.Errorf("encode kanban config: %w", err)
	}
	// The bucket set just changed, so the last board no longer
	// matches the layout.
	s.board = nil
	return s.cfg.Set(kanbanConfigKey, raw)
}
