package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cast"

	"github.com/Nyumat/NyumatFlix-sub000/internal/auth"
	"github.com/Nyumat/NyumatFlix-sub000/internal/cache"
	"github.com/Nyumat/NyumatFlix-sub000/internal/catalog"
	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
	"github.com/Nyumat/NyumatFlix-sub000/internal/services"
)

const (
	maxRowSize      = 100
	maxBatchRows    = 50
	maxEnrichItems  = 100
	maxRequestBytes = 1 << 20
)

// Catalog is the row aggregation surface the handlers use.
type Catalog interface {
	AggregateRow(ctx context.Context, rowID string, minCount int, seen *catalog.SeenSet) models.RowResult
	AggregateRows(ctx context.Context, rowIDs []string, minCount int, seen *catalog.SeenSet) []models.RowResult
	EnrichItems(ctx context.Context, items []models.MediaItem, mediaType models.MediaType) []models.MediaItem
	Genres(ctx context.Context, mediaType models.MediaType) ([]models.Genre, error)
}

type Handler struct {
	catalog   Catalog
	scheduler *services.ServiceScheduler
	cache     *cache.Manager
	watchlist WatchlistRepository
	validator *auth.Validator
	logger    *slog.Logger
	startedAt time.Time
}

// Options carries the optional collaborators of a Handler. Watchlist routes
// are served only when both Watchlist and Validator are set.
type Options struct {
	Scheduler *services.ServiceScheduler
	Cache     *cache.Manager
	Watchlist WatchlistRepository
	Validator *auth.Validator
	Logger    *slog.Logger
}

func NewHandler(c Catalog, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		catalog:   c,
		scheduler: opts.Scheduler,
		cache:     opts.Cache,
		watchlist: opts.Watchlist,
		validator: opts.Validator,
		logger:    opts.Logger,
		startedAt: time.Now(),
	}
}

func (h *Handler) watchlistEnabled() bool {
	return h.watchlist != nil && h.validator != nil
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// rowResponse is a RowResult with its diagnostic error flattened to a string.
type rowResponse struct {
	models.RowResult
	Error string `json:"error,omitempty"`
}

func newRowResponse(res models.RowResult) rowResponse {
	out := rowResponse{RowResult: res}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// HealthCheck handles GET /api/v1/health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"watchlist": h.watchlistEnabled(),
	}
	if h.cache != nil {
		resp["cache"] = h.cache.Stats()
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListRows handles GET /api/v1/rows?media_type=
func (h *Handler) ListRows(w http.ResponseWriter, r *http.Request) {
	rows := catalog.ListRows()

	if raw := r.URL.Query().Get("media_type"); raw != "" {
		mediaType, ok := models.ParseMediaType(raw)
		if !ok {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown media_type %q", raw))
			return
		}
		filtered := rows[:0]
		for _, row := range rows {
			if row.MediaType == mediaType {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	respondJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

// GetRow handles GET /api/v1/rows/{rowID}?min=&enrich=
func (h *Handler) GetRow(w http.ResponseWriter, r *http.Request) {
	rowID := mux.Vars(r)["rowID"]
	row, ok := catalog.GetRowConfig(rowID)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown row %q", rowID))
		return
	}

	q := r.URL.Query()
	minCount, err := parseMinCount(q.Get("min"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	enrich := row.Enrich
	if raw := q.Get("enrich"); raw != "" {
		enrich, err = cast.ToBoolE(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "enrich must be a boolean")
			return
		}
	}

	res := h.catalog.AggregateRow(r.Context(), rowID, minCount, nil)
	if enrich {
		res.Items = h.catalog.EnrichItems(r.Context(), res.Items, res.MediaType)
	}

	respondJSON(w, http.StatusOK, newRowResponse(res))
}

type batchRequest struct {
	RowIDs   []string `json:"row_ids"`
	MinCount int      `json:"min_count"`
	Enrich   *bool    `json:"enrich"`
}

// GetRowsBatch handles POST /api/v1/rows/batch. Rows are aggregated in request
// order against one seen set.
func (h *Handler) GetRowsBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.RowIDs) == 0 {
		respondError(w, http.StatusBadRequest, "row_ids is required")
		return
	}
	if len(req.RowIDs) > maxBatchRows {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d rows per batch", maxBatchRows))
		return
	}
	if req.MinCount < 0 || req.MinCount > maxRowSize {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("min_count must be between 1 and %d; 0 or omitted uses the default of %d", maxRowSize, catalog.DefaultMinCount))
		return
	}
	if req.MinCount == 0 {
		req.MinCount = catalog.DefaultMinCount
	}

	results := h.catalog.AggregateRows(r.Context(), req.RowIDs, req.MinCount, catalog.NewSeenSet())

	out := make([]rowResponse, 0, len(results))
	for _, res := range results {
		if h.shouldEnrich(res.RowID, req.Enrich) {
			res.Items = h.catalog.EnrichItems(r.Context(), res.Items, res.MediaType)
		}
		out = append(out, newRowResponse(res))
	}

	respondJSON(w, http.StatusOK, map[string]any{"rows": out})
}

func (h *Handler) shouldEnrich(rowID string, override *bool) bool {
	if override != nil {
		return *override
	}
	row, ok := catalog.GetRowConfig(rowID)
	return ok && row.Enrich
}

type enrichRequest struct {
	MediaType string             `json:"media_type"`
	Items     []models.MediaItem `json:"items"`
}

// EnrichItems handles POST /api/v1/enrich
func (h *Handler) EnrichItems(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	mediaType, ok := models.ParseMediaType(req.MediaType)
	if !ok {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown media_type %q", req.MediaType))
		return
	}
	if len(req.Items) > maxEnrichItems {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d items per request", maxEnrichItems))
		return
	}

	for i := range req.Items {
		if req.Items[i].MediaType == "" {
			req.Items[i].MediaType = mediaType
		}
		if req.Items[i].MediaType != mediaType {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("item %d is not a %s", req.Items[i].ID, mediaType))
			return
		}
	}

	items := h.catalog.EnrichItems(r.Context(), req.Items, mediaType)
	if items == nil {
		items = []models.MediaItem{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetGenres handles GET /api/v1/genres/{mediaType}
func (h *Handler) GetGenres(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["mediaType"]
	mediaType, ok := models.ParseMediaType(raw)
	if !ok {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown media type %q", raw))
		return
	}

	genres, err := h.catalog.Genres(r.Context(), mediaType)
	if err != nil {
		h.logger.Warn("api.genres.failed", "media_type", mediaType, "error", err)
		respondError(w, http.StatusBadGateway, "failed to load genres")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"genres": genres})
}

// GetServices handles GET /api/v1/services
func (h *Handler) GetServices(w http.ResponseWriter, r *http.Request) {
	statuses := []services.ServiceStatus{}
	if h.scheduler != nil {
		statuses = h.scheduler.GetAllStatus()
	}
	respondJSON(w, http.StatusOK, map[string]any{"services": statuses})
}

// RunService handles POST /api/v1/services/{name}/run
func (h *Handler) RunService(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if h.scheduler == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown service %q", name))
		return
	}
	if _, ok := h.scheduler.GetStatus(name); !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown service %q", name))
		return
	}

	// Detached from the request so a disconnecting client does not cancel the job.
	ctx := context.WithoutCancel(r.Context())
	if err := h.scheduler.RunNow(ctx, name); err != nil {
		switch {
		case errors.Is(err, services.ErrServiceRunning), errors.Is(err, services.ErrServiceDisabled):
			respondError(w, http.StatusConflict, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	status, _ := h.scheduler.GetStatus(name)
	respondJSON(w, http.StatusOK, status)
}

func parseMinCount(raw string) (int, error) {
	if raw == "" {
		return catalog.DefaultMinCount, nil
	}
	n, err := cast.ToIntE(raw)
	if err != nil || n < 1 || n > maxRowSize {
		return 0, fmt.Errorf("min must be an integer between 1 and %d; omit it for the default of %d", maxRowSize, catalog.DefaultMinCount)
	}
	return n, nil
}
