package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Nyumat/NyumatFlix-sub000/internal/auth"
	"github.com/Nyumat/NyumatFlix-sub000/internal/database"
	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

// WatchlistRepository is implemented by database.WatchlistStore.
type WatchlistRepository interface {
	List(ctx context.Context, userID string) ([]models.WatchlistItem, error)
	Get(ctx context.Context, userID, id string) (*models.WatchlistItem, error)
	Upsert(ctx context.Context, userID string, contentID int, mediaType models.MediaType, status models.WatchStatus) (*models.WatchlistItem, error)
	UpdateStatus(ctx context.Context, userID, id string, status models.WatchStatus) (*models.WatchlistItem, error)
	UpdateProgress(ctx context.Context, userID, id string, season, episode *int, watchedAt time.Time) (*models.WatchlistItem, error)
	Delete(ctx context.Context, userID, id string) error
}

type addWatchlistRequest struct {
	ContentID int    `json:"content_id"`
	MediaType string `json:"media_type"`
	Status    string `json:"status"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type progressRequest struct {
	Season    *int       `json:"season"`
	Episode   *int       `json:"episode"`
	WatchedAt *time.Time `json:"watched_at"`
}

func currentUser(r *http.Request) string {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		return ""
	}
	return claims.UserID()
}

func (h *Handler) watchlistError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "watchlist item not found")
		return
	}
	h.logger.Error("api.watchlist.failed", "op", op, "error", err)
	respondError(w, http.StatusInternalServerError, "watchlist unavailable")
}

func parseWatchStatus(raw string) (models.WatchStatus, error) {
	status := models.WatchStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("status must be one of %s, %s, %s",
			models.WatchStatusWatching, models.WatchStatusWaiting, models.WatchStatusFinished)
	}
	return status, nil
}

// WatchlistDisabled answers every watchlist route when no store is configured.
func (h *Handler) WatchlistDisabled(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusServiceUnavailable, "watchlist is not configured")
}

// ListWatchlist handles GET /api/v1/watchlist
func (h *Handler) ListWatchlist(w http.ResponseWriter, r *http.Request) {
	items, err := h.watchlist.List(r.Context(), currentUser(r))
	if err != nil {
		h.watchlistError(w, "list", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

// AddToWatchlist handles POST /api/v1/watchlist
func (h *Handler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req addWatchlistRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ContentID <= 0 {
		respondError(w, http.StatusBadRequest, "content_id must be positive")
		return
	}
	mediaType, ok := models.ParseMediaType(req.MediaType)
	if !ok {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown media_type %q", req.MediaType))
		return
	}
	if req.Status == "" {
		req.Status = string(models.WatchStatusWatching)
	}
	status, err := parseWatchStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.watchlist.Upsert(r.Context(), currentUser(r), req.ContentID, mediaType, status)
	if err != nil {
		h.watchlistError(w, "upsert", err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// GetWatchlistItem handles GET /api/v1/watchlist/{id}
func (h *Handler) GetWatchlistItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.watchlist.Get(r.Context(), currentUser(r), mux.Vars(r)["id"])
	if err != nil {
		h.watchlistError(w, "get", err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// UpdateWatchlistStatus handles PATCH /api/v1/watchlist/{id}/status
func (h *Handler) UpdateWatchlistStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, err := parseWatchStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.watchlist.UpdateStatus(r.Context(), currentUser(r), mux.Vars(r)["id"], status)
	if err != nil {
		h.watchlistError(w, "update_status", err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// UpdateWatchlistProgress handles PATCH /api/v1/watchlist/{id}/progress
func (h *Handler) UpdateWatchlistProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if (req.Season != nil && *req.Season < 0) || (req.Episode != nil && *req.Episode < 0) {
		respondError(w, http.StatusBadRequest, "season and episode must not be negative")
		return
	}

	watchedAt := time.Now().UTC()
	if req.WatchedAt != nil {
		watchedAt = *req.WatchedAt
	}

	item, err := h.watchlist.UpdateProgress(r.Context(), currentUser(r), mux.Vars(r)["id"], req.Season, req.Episode, watchedAt)
	if err != nil {
		h.watchlistError(w, "update_progress", err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// DeleteWatchlistItem handles DELETE /api/v1/watchlist/{id}
func (h *Handler) DeleteWatchlistItem(w http.ResponseWriter, r *http.Request) {
	if err := h.watchlist.Delete(r.Context(), currentUser(r), mux.Vars(r)["id"]); err != nil {
		h.watchlistError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
