package handler

import (
	"net/http"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Pipeline — /v1/pipeline
// ============================================================

func pipelineBoardHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/pipeline/board")
		defer span.End()

		board, err := svc.Board(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, board)
	}
}

func pipelineMoveHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/pipeline/move")
		defer span.End()

		var req struct {
			LeadID  string `json:"lead_id"`
			Stage   string `json:"stage"`
			ToIndex *int   `json:"to_index"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		toIndex := -1
		if req.ToIndex != nil {
			toIndex = *req.ToIndex
		}
		board, err := svc.MoveLead(ctx, CapsFromContext(ctx), req.LeadID, req.Stage, toIndex)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, board)
	}
}

func listStagesHandler(svc *service.PipelineService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Stages())
	}
}

func addStageHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/pipeline/stages")
		defer span.End()

		var req struct {
			Title string `json:"title"`
			Color string `json:"color"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		stage, err := svc.AddStage(ctx, CapsFromContext(ctx), req.Title, req.Color)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, stage)
	}
}

func updateStageHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/pipeline/stages/{stageId}")
		defer span.End()

		id := chi.URLParam(r, "stageId")
		var req struct {
			Title string `json:"title"`
			Color string `json:"color"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := svc.UpdateStage(ctx, CapsFromContext(ctx), id, req.Title, req.Color); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func reorderStagesHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/pipeline/stages/reorder")
		defer span.End()

		var req struct {
			Stages []string `json:"stages"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := svc.ReorderStages(ctx, CapsFromContext(ctx), req.Stages); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, svc.Stages())
	}
}

func removeStageHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/pipeline/stages/{stageId}")
		defer span.End()

		id := chi.URLParam(r, "stageId")
		if err := svc.RemoveStage(ctx, CapsFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func resetStagesHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/pipeline/stages/reset")
		defer span.End()

		if err := svc.ResetStages(ctx, CapsFromContext(ctx)); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, svc.Stages())
	}
}
