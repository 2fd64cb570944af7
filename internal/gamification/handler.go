package gamification

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/zdi-academy/backend/internal/middleware"
	"github.com/zdi-academy/backend/internal/models"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log.Named("gamification.http")}
}

// ── User Stats ──────────────────────────────────────────

func (h *Handler) GetMyStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.GetUserStats(r.Context(), userID)
	if err != nil {
		h.log.Error("get stats failed", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get stats"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Achievements ────────────────────────────────────────

func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	defs, err := h.service.ListAchievements(r.Context())
	if err != nil {
		h.log.Error("list achievements failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list achievements"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"achievements": defs})
}

func (h *Handler) ListMyAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	earned, err := h.service.ListUserAchievements(r.Context(), userID)
	if err != nil {
		h.log.Error("list user achievements failed", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list achievements"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"achievements": earned})
}

// ── Leaderboard ─────────────────────────────────────────

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := intQueryParam(r.URL.Query(), "limit", DefaultLeaderboardLimit)

	resp, err := h.service.GetLeaderboard(r.Context(), limit)
	if err != nil {
		h.log.Error("leaderboard failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get leaderboard"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Helpers ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
