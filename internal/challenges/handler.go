package challenges

import (
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
	return &Handler{service: service, log: log.Named("challenges.http")}
}

func (h *Handler) SubmitFlag(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	challengeID := mux.Vars(r)["id"]

	var req models.FlagSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Flag == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "flag is required"})
		return
	}

	resp, err := h.service.SubmitFlag(r.Context(), userID, challengeID, req.Flag)
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Challenge not found"})
		return
	case errors.Is(err, ErrUnpublished):
		writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: "Challenge is not available"})
		return
	case errors.Is(err, ErrAlreadySolved):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Challenge already solved"})
		return
	case err != nil:
		h.log.Error("flag submit failed",
			zap.String("user_id", userID),
			zap.String("challenge_id", challengeID),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to submit flag"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
