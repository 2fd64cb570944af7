package progress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/zdi-academy/backend/internal/middleware"
	"github.com/zdi-academy/backend/internal/models"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log.Named("progress.http")}
}

func (h *Handler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	h.complete(w, r, h.service.CompleteLesson)
}

func (h *Handler) CompleteLab(w http.ResponseWriter, r *http.Request) {
	h.complete(w, r, h.service.CompleteLab)
}

type completeFunc func(ctx context.Context, userID, lessonID string) (*models.LessonCompletion, error)

func (h *Handler) complete(w http.ResponseWriter, r *http.Request, fn completeFunc) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	lessonID := mux.Vars(r)["id"]

	resp, err := fn(r.Context(), userID, lessonID)
	switch {
	case errors.Is(err, ErrLessonNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Lesson not found"})
		return
	case errors.Is(err, ErrNotLab):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Lesson is not a lab"})
		return
	case err != nil:
		h.log.Error("complete lesson failed",
			zap.String("user_id", userID),
			zap.String("lesson_id", lessonID),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to complete lesson"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
