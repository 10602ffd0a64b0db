package httpd

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/gradekeeper/sync-service/internal/service"
)

// ImportSnapshot accepts a raw snapshot document and runs it through the
// reconciliation pipeline synchronously. The caller's identity comes from
// the X-User-Email header set by the gateway.
func (h *Handler) ImportSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap models.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userEmail := r.Header.Get("X-User-Email")

	result := h.snapshotService.ProcessSnapshot(r.Context(), &snap, userEmail)

	// A structurally broken snapshot is the caller's fault; everything else
	// is reported as a completed import, failed or not.
	status := http.StatusOK
	if !result.Success && result.Stats == (models.ImportStats{}) && len(result.Errors) == 1 && result.Errors[0].Entity == "snapshot" {
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, status, result)
}

func (h *Handler) GetImportRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.snapshotService.GetImportRun(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, run)
}

func (h *Handler) ListImportRuns(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}
	limit := getIntQueryParam(r, "limit", 20)

	runs, err := h.snapshotService.ListImportRuns(r.Context(), email, limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, runs)
}

func (h *Handler) GetArchivedSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	body, err := h.snapshotService.FetchArchivedSnapshot(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTeacherNotFound),
		errors.Is(err, service.ErrClassroomNotFound),
		errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, service.ErrImportRunNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Msg("Service error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
