package httpd

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gradekeeper/sync-service/internal/metrics"
	"github.com/gradekeeper/sync-service/internal/service"
	"github.com/gradekeeper/sync-service/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type dbPinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	snapshotService  service.SnapshotService
	classroomService service.ClassroomService
	gradeService     service.GradeService
	db               dbPinger
	workerStats      func() worker.WorkerStats
	logger           zerolog.Logger
}

// workerStats is nil when the service runs without a queue consumer.
func NewHandler(
	snapshotService service.SnapshotService,
	classroomService service.ClassroomService,
	gradeService service.GradeService,
	db dbPinger,
	workerStats func() worker.WorkerStats,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		snapshotService:  snapshotService,
		classroomService: classroomService,
		gradeService:     gradeService,
		db:               db,
		workerStats:      workerStats,
		logger:           logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)
	router.Handle("/metrics", metrics.Handler())

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/snapshots", func(r chi.Router) {
			r.Post("/import", h.ImportSnapshot)
		})

		api.Route("/imports", func(r chi.Router) {
			r.Get("/", h.ListImportRuns)
			r.Get("/{id}", h.GetImportRun)
			r.Get("/{id}/snapshot", h.GetArchivedSnapshot)
		})

		api.Route("/classrooms", func(r chi.Router) {
			r.Get("/", h.GetClassroomsByTeacher)
			r.Get("/{id}", h.GetClassroomByID)
			r.Get("/{id}/assignments", h.GetClassroomAssignments)
			r.Get("/{id}/students", h.GetClassroomStudents)
			r.Get("/{id}/submissions", h.GetClassroomSubmissions)
		})

		api.Route("/submissions", func(r chi.Router) {
			r.Get("/{id}/versions", h.GetSubmissionVersions)
			r.Get("/{id}/grades", h.GetSubmissionGrades)
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "sync-service",
		"timestamp": time.Now().UTC(),
	}

	status := http.StatusOK
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			response["status"] = "unhealthy"
			response["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			response["database"] = "ok"
		}
	}
	if h.workerStats != nil {
		response["worker"] = h.workerStats()
	}

	writeJSON(w, status, response)
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, http.StatusOK, response)
}
