package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

type genreTable struct {
	list  []models.Genre
	names map[int]string
}

// genreCache keeps one genre table per media type. A nil lru means caching is off
// and every lookup goes upstream.
type genreCache struct {
	lru *expirable.LRU[models.MediaType, *genreTable]
}

func newGenreCache(ttl time.Duration) *genreCache {
	if ttl <= 0 {
		return &genreCache{}
	}
	return &genreCache{lru: expirable.NewLRU[models.MediaType, *genreTable](2, nil, ttl)}
}

func (g *genreCache) get(mediaType models.MediaType) (*genreTable, bool) {
	if g.lru == nil {
		return nil, false
	}
	return g.lru.Get(mediaType)
}

func (g *genreCache) add(mediaType models.MediaType, table *genreTable) {
	if g.lru != nil {
		g.lru.Add(mediaType, table)
	}
}

func (c *Catalog) loadGenres(ctx context.Context, mediaType models.MediaType) (*genreTable, error) {
	if table, ok := c.genres.get(mediaType); ok {
		return table, nil
	}
	return c.fetchGenres(ctx, mediaType)
}

func (c *Catalog) fetchGenres(ctx context.Context, mediaType models.MediaType) (*genreTable, error) {
	genres, err := c.upstream.Genres(ctx, mediaType)
	if err != nil {
		return nil, err
	}

	table := &genreTable{list: genres, names: make(map[int]string, len(genres))}
	for _, g := range genres {
		table.names[g.ID] = g.Name
	}
	c.genres.add(mediaType, table)
	return table, nil
}

// Genres returns the genre table for a media type.
func (c *Catalog) Genres(ctx context.Context, mediaType models.MediaType) ([]models.Genre, error) {
	table, err := c.loadGenres(ctx, mediaType)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s genres: %w", mediaType, err)
	}
	return append([]models.Genre(nil), table.list...), nil
}

// AttachCategories returns copies of items with Categories filled from the
// genre table, in genre_ids order. Unknown IDs are skipped. If the table
// cannot be fetched every item gets an empty Categories list.
func (c *Catalog) AttachCategories(ctx context.Context, items []models.MediaItem, mediaType models.MediaType) []models.MediaItem {
	table, err := c.loadGenres(ctx, mediaType)
	if err != nil {
		c.logger.Warn("catalog.genres.fetch_failed", "media_type", mediaType, "error", err)
		table = &genreTable{names: map[int]string{}}
	}

	out := make([]models.MediaItem, len(items))
	for i, item := range items {
		item = item.Clone()
		item.Categories = make([]string, 0, len(item.GenreIDs))
		for _, id := range item.GenreIDs {
			if name, ok := table.names[id]; ok {
				item.Categories = append(item.Categories, name)
			}
		}
		out[i] = item
	}
	return out
}

// WarmGenres refreshes the cached genre tables for both media types. A failed
// refresh leaves the previous table in place.
func (c *Catalog) WarmGenres(ctx context.Context) error {
	var errs []error
	for _, mediaType := range []models.MediaType{models.MediaTypeMovie, models.MediaTypeTV} {
		if _, err := c.fetchGenres(ctx, mediaType); err != nil {
			errs = append(errs, fmt.Errorf("%s genres: %w", mediaType, err))
		}
	}
	return errors.Join(errs...)
}
