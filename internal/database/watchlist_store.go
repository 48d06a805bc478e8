package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

// WatchlistStore persists watchlist entries. Every query is scoped to a user ID.
type WatchlistStore struct {
	db *sql.DB
}

func NewWatchlistStore(db *sql.DB) *WatchlistStore {
	return &WatchlistStore{db: db}
}

const watchlistColumns = `id, user_id, content_id, media_type, status,
	last_watched_season, last_watched_episode, last_watched_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWatchlistItem(row rowScanner) (*models.WatchlistItem, error) {
	var (
		item    models.WatchlistItem
		season  sql.NullInt32
		episode sql.NullInt32
		watched sql.NullTime
	)
	if err := row.Scan(&item.ID, &item.UserID, &item.ContentID, &item.MediaType, &item.Status,
		&season, &episode, &watched, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}

	if season.Valid {
		v := int(season.Int32)
		item.LastWatchedSeason = &v
	}
	if episode.Valid {
		v := int(episode.Int32)
		item.LastWatchedEpisode = &v
	}
	if watched.Valid {
		item.LastWatchedAt = &watched.Time
	}
	return &item, nil
}

// List returns a user's entries, most recently updated first
func (s *WatchlistStore) List(ctx context.Context, userID string) ([]models.WatchlistItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+watchlistColumns+`
		FROM watchlist_items
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	items := []models.WatchlistItem{}
	for rows.Next() {
		item, err := scanWatchlistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Get returns one entry owned by userID
func (s *WatchlistStore) Get(ctx context.Context, userID, id string) (*models.WatchlistItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+watchlistColumns+`
		FROM watchlist_items
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	return notFound(scanWatchlistItem(row))
}

// Upsert adds a title to the watchlist, or updates the status of an existing entry
// for the same content and media type.
func (s *WatchlistStore) Upsert(ctx context.Context, userID string, contentID int, mediaType models.MediaType, status models.WatchStatus) (*models.WatchlistItem, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO watchlist_items (id, user_id, content_id, media_type, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, content_id, media_type)
		DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
		RETURNING `+watchlistColumns,
		uuid.NewString(), userID, contentID, mediaType, status)

	item, err := scanWatchlistItem(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert watchlist item: %w", err)
	}
	return item, nil
}

// UpdateStatus changes the watch status of an entry
func (s *WatchlistStore) UpdateStatus(ctx context.Context, userID, id string, status models.WatchStatus) (*models.WatchlistItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE watchlist_items
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+watchlistColumns,
		id, userID, status)
	return notFound(scanWatchlistItem(row))
}

// UpdateProgress records the last watched season/episode
func (s *WatchlistStore) UpdateProgress(ctx context.Context, userID, id string, season, episode *int, watchedAt time.Time) (*models.WatchlistItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE watchlist_items
		SET last_watched_season = $3, last_watched_episode = $4, last_watched_at = $5, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+watchlistColumns,
		id, userID, season, episode, watchedAt)
	return notFound(scanWatchlistItem(row))
}

// Delete removes an entry
func (s *WatchlistStore) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM watchlist_items WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete watchlist item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete watchlist item: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(item *models.WatchlistItem, err error) (*models.WatchlistItem, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist item: %w", err)
	}
	return item, nil
}
