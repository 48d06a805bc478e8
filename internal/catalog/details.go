package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

// EnrichItems attaches a logo and a content rating to each item. Items are
// enriched independently with bounded concurrency; an item whose lookups fail
// is returned exactly as it came in. The output has the input's order and length.
func (c *Catalog) EnrichItems(ctx context.Context, items []models.MediaItem, mediaType models.MediaType) []models.MediaItem {
	out := make([]models.MediaItem, len(items))

	p := pool.New().WithMaxGoroutines(c.opts.EnrichConcurrency)
	for i := range items {
		p.Go(func() {
			enriched, err := c.enrichItem(ctx, items[i].Clone(), mediaType)
			if err != nil {
				c.logger.Warn("catalog.enrich.item_failed",
					"item_id", items[i].ID, "media_type", mediaType, "error", err)
				out[i] = items[i]
				return
			}
			out[i] = enriched
		})
	}
	p.Wait()

	return out
}

// enrichItem works on a private copy and only returns it if every lookup succeeded.
func (c *Catalog) enrichItem(ctx context.Context, item models.MediaItem, mediaType models.MediaType) (models.MediaItem, error) {
	details, err := c.upstream.Details(ctx, mediaType, item.ID)
	if err != nil {
		return item, fmt.Errorf("details: %w", err)
	}

	var rating string
	switch mediaType {
	case models.MediaTypeMovie:
		country := c.opts.Region
		if len(details.ProductionCountries) > 0 {
			country = details.ProductionCountries[0]
		}
		releases, err := c.upstream.MovieReleaseDates(ctx, item.ID)
		if err != nil {
			return item, fmt.Errorf("release dates: %w", err)
		}
		rating = movieCertification(releases, country)
	case models.MediaTypeTV:
		country := c.opts.Region
		if len(details.Item.OriginCountry) > 0 {
			country = details.Item.OriginCountry[0]
		} else if len(item.OriginCountry) > 0 {
			country = item.OriginCountry[0]
		}
		ratings, err := c.upstream.TVContentRatings(ctx, item.ID)
		if err != nil {
			return item, fmt.Errorf("content ratings: %w", err)
		}
		rating = tvRating(ratings, country)
	default:
		return item, fmt.Errorf("unsupported media type %q", mediaType)
	}

	item.Logo = englishLogo(details.Logos)
	if rating != "" {
		item.ContentRating = &rating
	}
	return item, nil
}

// englishLogo returns the best-voted well-formed English logo, or nil.
func englishLogo(assets []models.ImageAsset) *models.Logo {
	var best *models.ImageAsset
	for i := range assets {
		a := &assets[i]
		if a.Language == nil || *a.Language != "en" || !validLogo(a) {
			continue
		}
		if best == nil || a.VoteAverage > best.VoteAverage {
			best = a
		}
	}
	if best == nil {
		return nil
	}

	return &models.Logo{
		FilePath:    best.FilePath,
		Width:       best.Width,
		Height:      best.Height,
		AspectRatio: best.AspectRatio,
		Language:    *best.Language,
	}
}

func validLogo(a *models.ImageAsset) bool {
	return strings.HasPrefix(a.FilePath, "/") &&
		a.Width > 0 && a.Height > 0 && a.AspectRatio > 0
}

// movieCertification prefers the theatrical certification of country, then
// any certification at all in upstream order.
func movieCertification(countries []models.CountryReleases, country string) string {
	for _, cr := range countries {
		if !strings.EqualFold(cr.Country, country) {
			continue
		}
		for _, r := range cr.Releases {
			if r.Type == models.ReleaseTypeTheatrical && r.Certification != "" {
				return r.Certification
			}
		}
	}

	for _, cr := range countries {
		for _, r := range cr.Releases {
			if r.Certification != "" {
				return r.Certification
			}
		}
	}
	return ""
}

// tvRating prefers the rating of country, then the first non-empty rating.
func tvRating(ratings []models.ContentRating, country string) string {
	for _, r := range ratings {
		if strings.EqualFold(r.Country, country) && r.Rating != "" {
			return r.Rating
		}
	}
	for _, r := range ratings {
		if r.Rating != "" {
			return r.Rating
		}
	}
	return ""
}
