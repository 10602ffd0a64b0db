package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetClassroomsByTeacher(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		email = r.Header.Get("X-User-Email")
	}
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query parameter or X-User-Email header is required")
		return
	}

	response, err := h.classroomService.GetClassroomsByTeacher(r.Context(), email)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) GetClassroomByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	classroom, err := h.classroomService.GetClassroom(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, classroom)
}

func (h *Handler) GetClassroomAssignments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	assignments, err := h.classroomService.GetAssignments(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, assignments)
}

func (h *Handler) GetClassroomStudents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	students, err := h.classroomService.GetStudents(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, students)
}

func (h *Handler) GetClassroomSubmissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	submissions, err := h.classroomService.GetSubmissions(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, submissions)
}

func (h *Handler) GetSubmissionVersions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	versions, err := h.classroomService.GetSubmissionVersions(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, versions)
}

func (h *Handler) GetSubmissionGrades(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	grades, err := h.gradeService.ListBySubmission(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, grades)
}
