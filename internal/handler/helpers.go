// Package handler exposes the CRM over HTTP. Handlers stay thin:
// decode, delegate to a service, map errors.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeBody decodes a JSON request body into dst, rejecting unknown
// garbage with a 400.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// listFilterKeys are the query parameters forwarded as list filters.
var listFilterKeys = []string{"search", "status", "segment", "tag", "stage", "priority", "assigned_to", "entity_type", "field_type", "active"}

// filtersFromQuery lifts the recognized filter axes out of the query
// string. Absent parameters stay absent; empty ones clear the axis.
func filtersFromQuery(r *http.Request) map[string]string {
	q := r.URL.Query()
	filters := make(map[string]string)
	for _, k := range listFilterKeys {
		if v := q.Get(k); v != "" {
			filters[k] = v
		}
	}
	return filters
}

// idsRequest is the shared bulk-operation payload.
type idsRequest struct {
	IDs []string `json:"ids"`
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var validation *domain.ErrValidation
	var forbidden *domain.ErrForbidden
	var unauthorized *domain.ErrUnauthorized
	var conflict *domain.ErrConflict
	var confirmDenied *domain.ErrConfirmationDenied
	var protectedStage *domain.ErrProtectedStage
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &confirmDenied):
		logger.Debug("confirmation denied", zap.String("error", err.Error()))
		writeError(w, http.StatusPreconditionFailed, err.Error())
	case errors.As(err, &protectedStage):
		logger.Debug("protected stage", zap.String("error", err.Error()))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
