package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) http.Handler {
	r := mux.NewRouter()

	// API v1 routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Rows
	api.HandleFunc("/rows", handler.ListRows).Methods("GET")
	api.HandleFunc("/rows/batch", handler.GetRowsBatch).Methods("POST")
	api.HandleFunc("/rows/{rowID}", handler.GetRow).Methods("GET")

	// Enrichment
	api.HandleFunc("/enrich", handler.EnrichItems).Methods("POST")
	api.HandleFunc("/genres/{mediaType}", handler.GetGenres).Methods("GET")

	// Background services
	api.HandleFunc("/services", handler.GetServices).Methods("GET")
	api.HandleFunc("/services/{name}/run", handler.RunService).Methods("POST")

	// Watchlist
	watchlist := api.PathPrefix("/watchlist").Subrouter()
	if handler.watchlistEnabled() {
		watchlist.Use(handler.validator.Middleware)
		watchlist.HandleFunc("", handler.ListWatchlist).Methods("GET")
		watchlist.HandleFunc("", handler.AddToWatchlist).Methods("POST")
		watchlist.HandleFunc("/{id}", handler.GetWatchlistItem).Methods("GET")
		watchlist.HandleFunc("/{id}", handler.DeleteWatchlistItem).Methods("DELETE")
		watchlist.HandleFunc("/{id}/status", handler.UpdateWatchlistStatus).Methods("PATCH")
		watchlist.HandleFunc("/{id}/progress", handler.UpdateWatchlistProgress).Methods("PATCH")
	} else {
		watchlist.HandleFunc("", handler.WatchlistDisabled)
		watchlist.PathPrefix("/").HandlerFunc(handler.WatchlistDisabled)
	}

	// Request IDs and logging
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(handler.logger))

	// CORS wraps the router so preflight requests are answered before route matching
	return corsMiddleware(r)
}
