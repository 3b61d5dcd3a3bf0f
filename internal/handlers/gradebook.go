package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/app"
	"github.com/shrimpsizemoose/gradebook/internal/gradebook"
	"github.com/shrimpsizemoose/gradebook/internal/metrics"
	"github.com/shrimpsizemoose/gradebook/internal/models"
)

type GradebookHandler struct {
	service *app.Service
}

func NewGradebookHandler(service *app.Service) *GradebookHandler {
	return &GradebookHandler{
		service: service,
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument records the request duration under the route pattern.
func instrument(pattern string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			metrics.APIRequestDuration.WithLabelValues(
				pattern,
				r.Method,
				strconv.Itoa(sw.status),
			).Observe(time.Since(start).Seconds())
		}()
		next(sw, r)
	}
}

// Register mounts the gradebook routes on mux.
func (h *GradebookHandler) Register(mux *http.ServeMux) {
	handle := func(pattern string, handler http.HandlerFunc) {
		mux.HandleFunc(pattern, instrument(pattern, handler))
	}

	handle("POST /api/v1/gradebook/students/{district}/{assignment}/{class}", h.HandleStudentsData)
	handle("GET /api/v1/gradebook/summary/{district}/{assignment}/{class}", h.HandleSummary)
	handle("GET /api/v1/gradebook/items/{assignment}/{class}/{item}", h.HandleItemActivities)
	handle("POST /api/v1/gradebook/events/{assignment}/{class}/{event}", h.HandlePublish)
}

// authorize checks the required headers and, when auth is enabled, the API
// token of the requesting user.
func (h *GradebookHandler) authorize(w http.ResponseWriter, r *http.Request, deny int) bool {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", deny)
		return false
	}

	auth := h.service.Auth
	if auth == nil || !auth.Enabled() {
		return true
	}
	userID := r.Header.Get(h.service.Config.API.UserIDHeader)
	token := r.Header.Get(auth.TokenHeader())
	if err := auth.ValidateToken(r.Context(), userID, token); err != nil {
		logger.Debug.Printf("Rejected %s %s for user %q: %v", r.Method, r.URL.Path, userID, err)
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return false
	}
	return true
}

func (h *GradebookHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error.Printf("Failed to encode response: %v", err)
	}
}

// HandleStudentsData serves one page of the gradebook. The requesting user
// comes from identity headers; paging fields come from the JSON body.
func (h *GradebookHandler) HandleStudentsData(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, http.StatusForbidden) {
		return
	}

	userID := r.Header.Get(h.service.Config.API.UserIDHeader)
	if userID == "" {
		http.Error(w, "Invalid user id specified", http.StatusUnauthorized)
		return
	}

	var req gradebook.StudentsDataRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	req.DistrictID = r.PathValue("district")
	req.AssignmentID = r.PathValue("assignment")
	req.ClassID = r.PathValue("class")
	req.UserID = userID
	req.TeacherID = userID
	req.UserRole = r.Header.Get(h.service.Config.API.UserRoleHeader)

	data, err := h.service.Gradebook.GetStudentsData(r.Context(), req)
	if err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Error.Printf("Failed to build gradebook for assignment %s class %s: %v", req.AssignmentID, req.ClassID, err)
		http.Error(w, "Failed to fetch gradebook", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if data.Error {
		status = data.Status.Code
	}
	h.writeJSON(w, status, data)
}

func (h *GradebookHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, http.StatusNotFound) {
		return
	}

	summary, err := h.service.Gradebook.GradebookSummary(
		r.Context(),
		r.PathValue("district"),
		r.PathValue("assignment"),
		r.PathValue("class"),
	)
	if err != nil {
		logger.Error.Printf("Failed to get gradebook summary: %v", err)
		http.Error(w, "Failed to fetch summary", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if summary.Error {
		status = summary.Status.Code
	}
	h.writeJSON(w, status, summary)
}

func (h *GradebookHandler) HandleItemActivities(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, http.StatusNotFound) {
		return
	}

	activities, err := h.service.Gradebook.QuestionActivitiesByItem(
		r.Context(),
		r.PathValue("assignment"),
		r.PathValue("class"),
		r.PathValue("item"),
	)
	if err != nil {
		logger.Error.Printf("Failed to get item activities: %v", err)
		http.Error(w, "Failed to fetch question activities", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"rows": activities,
	})
}

// HandlePublish lets grading services announce changes to live gradebooks.
func (h *GradebookHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, http.StatusForbidden) {
		return
	}

	assignmentID := r.PathValue("assignment")
	classID := r.PathValue("class")
	ctx := r.Context()

	switch event := r.PathValue("event"); event {
	case gradebook.EventAddItem:
		var activities []models.QuestionActivity
		if err := json.NewDecoder(r.Body).Decode(&activities); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		h.service.Gradebook.PublishAddItem(ctx, activities, assignmentID, classID)
	case gradebook.EventRemoveQuestions:
		var removed []string
		if err := json.NewDecoder(r.Body).Decode(&removed); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		h.service.Gradebook.PublishRemovedQuestions(ctx, removed, assignmentID, classID)
	case gradebook.EventAddQuestionsMaxScore:
		var maxScores map[string]float64
		if err := json.NewDecoder(r.Body).Decode(&maxScores); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		h.service.Gradebook.PublishAddQuestionsMaxScore(ctx, maxScores, assignmentID, classID)
	default:
		http.Error(w, "Unknown event type", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte("OK"))
}
