package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"quizzz-service/internal/app"
	"quizzz-service/internal/domain"
)

// genericGenerationError is the user-facing text for any non-validation
// generation failure; the distinct error kinds stay internal for logs and tests.
const genericGenerationError = "Failed to generate quiz"

// RestHandler exposes the quiz pipeline and CRUD over plain JSON endpoints.
type RestHandler struct {
	service   *app.QuizService
	generator app.QuizGenerator
}

func NewRestHandler(service *app.QuizService, generator app.QuizGenerator) *RestHandler {
	return &RestHandler{service: service, generator: generator}
}

// Register mounts all REST routes on the mux.
func (h *RestHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/generate-quiz", h.generateQuiz)
	mux.HandleFunc("POST /api/v1/quiz", h.createQuiz)
	mux.HandleFunc("GET /api/v1/quiz/{id}", h.getQuiz)
	mux.HandleFunc("PUT /api/v1/quiz/{id}", h.updateQuiz)
	mux.HandleFunc("DELETE /api/v1/quiz/{id}", h.deleteQuiz)
	mux.HandleFunc("GET /api/v1/quizzes", h.listQuizzes)
	mux.HandleFunc("POST /api/v1/quiz/{id}/submit", h.submit)
	mux.HandleFunc("GET /api/v1/submission/{id}", h.getSubmission)
	mux.HandleFunc("GET /api/v1/submissions", h.listSubmissions)
}

type generateRequest struct {
	Prompt  string          `json:"prompt"`
	Options json.RawMessage `json:"options,omitempty"`
}

type submitRequest struct {
	UserID  string            `json:"userId"`
	Answers map[string]string `json:"answers"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *RestHandler) generateQuiz(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Please provide a valid prompt for the quiz")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "Please provide a valid prompt for the quiz")
		return
	}

	quiz, err := h.generator.GenerateFromPrompt(r.Context(), req.Prompt)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, "Please provide a valid prompt for the quiz")
			return
		}
		// Upstream and parse failures collapse into one generic message.
		log.Printf("generate quiz: %v", err)
		writeError(w, http.StatusInternalServerError, genericGenerationError)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *RestHandler) createQuiz(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	var quiz domain.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		writeError(w, http.StatusBadRequest, "invalid quiz payload")
		return
	}
	quiz.ID = ""
	saved, err := h.service.SaveQuiz(r.Context(), userID, quiz)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *RestHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.GetQuiz(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *RestHandler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		writeError(w, http.StatusBadRequest, "invalid quiz payload")
		return
	}
	quiz.ID = r.PathValue("id")
	if err := h.service.UpdateQuiz(r.Context(), r.Header.Get("X-User-ID"), quiz); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *RestHandler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuiz(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RestHandler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId query parameter is required")
		return
	}
	quizzes, err := h.service.ListQuizzesByUser(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *RestHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid submission payload")
		return
	}
	submission, err := h.service.Submit(r.Context(), r.PathValue("id"), req.UserID, req.Answers)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, submission)
}

func (h *RestHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	submission, err := h.service.GetSubmission(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submission)
}

func (h *RestHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	quizID := r.URL.Query().Get("quizId")

	var err error
	var submissions []domain.Submission
	switch {
	case userID != "":
		submissions, err = h.service.ListSubmissionsByUser(r.Context(), userID)
	case quizID != "":
		submissions, err = h.service.ListSubmissionsByQuiz(r.Context(), quizID)
	default:
		writeError(w, http.StatusBadRequest, "userId or quizId query parameter is required")
		return
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submissions)
}

func (h *RestHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrSubmissionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrQuizNotPublic):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrUpstream):
		log.Printf("upstream error: %v", err)
		writeError(w, http.StatusBadGateway, "backend unavailable")
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
