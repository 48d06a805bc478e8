// Package catalog turns logical row IDs into filtered, deduplicated lists of
// movies and shows fetched from the upstream metadata API.
package catalog

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

// Upstream is the subset of the metadata API the catalog reads from.
// services.TMDBClient implements it.
type Upstream interface {
	List(ctx context.Context, mediaType models.MediaType, endpoint string, params url.Values) (*models.Page, error)
	Genres(ctx context.Context, mediaType models.MediaType) ([]models.Genre, error)
	PersonMovieCredits(ctx context.Context, personID int) (*models.PersonCredits, error)
	Collection(ctx context.Context, collectionID int) (*models.Collection, error)
	MovieReleaseDates(ctx context.Context, movieID int) ([]models.CountryReleases, error)
	TVContentRatings(ctx context.Context, seriesID int) ([]models.ContentRating, error)
	Details(ctx context.Context, mediaType models.MediaType, id int) (*models.ItemDetails, error)
}

type Options struct {
	Language          string
	Region            string
	FetchConcurrency  int
	EnrichConcurrency int
	// GenreTTL <= 0 disables the genre table cache.
	GenreTTL time.Duration
	Logger   *slog.Logger
	// Now is overridden in tests.
	Now func() time.Time
}

type Catalog struct {
	upstream Upstream
	genres   *genreCache
	opts     Options
	logger   *slog.Logger
}

func New(upstream Upstream, opts Options) *Catalog {
	if opts.Language == "" {
		opts.Language = "en-US"
	}
	if opts.Region == "" {
		opts.Region = "US"
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 4
	}
	if opts.EnrichConcurrency <= 0 {
		opts.EnrichConcurrency = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Catalog{
		upstream: upstream,
		genres:   newGenreCache(opts.GenreTTL),
		opts:     opts,
		logger:   opts.Logger,
	}
}
