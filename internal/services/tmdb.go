package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"github.com/Nyumat/NyumatFlix-sub000/internal/cache"
	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

const (
	tmdbBaseURL = "https://api.themoviedb.org/3"
)

// ErrUpstreamStatus matches every non-2xx response from the TMDB API.
var ErrUpstreamStatus = errors.New("tmdb: unexpected status")

// StatusError carries the status code of a failed TMDB call.
type StatusError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("TMDB API returned status %d for %s: %s", e.StatusCode, e.Endpoint, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUpstreamStatus
}

// TMDBOptions tunes the client. Zero values fall back to defaults.
type TMDBOptions struct {
	BaseURL   string
	Language  string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
	Retries   uint
	// RetryDelay is the base of the exponential backoff between attempts.
	RetryDelay time.Duration
	Cache      *cache.Manager
	CacheTTL   time.Duration
	GenreTTL   time.Duration
	Logger     *slog.Logger
}

type TMDBClient struct {
	apiKey     string
	baseURL    string
	language   string
	timeout    time.Duration
	retries    uint
	retryDelay time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Manager
	cacheTTL   time.Duration
	genreTTL   time.Duration
	logger     *slog.Logger
}

func NewTMDBClient(apiKey string, opts TMDBOptions) *TMDBClient {
	if opts.BaseURL == "" {
		opts.BaseURL = tmdbBaseURL
	}
	if opts.Language == "" {
		opts.Language = "en-US"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 250 * time.Millisecond
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &TMDBClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		language:   opts.Language,
		timeout:    opts.Timeout,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:  rate.NewLimiter(limit, opts.RateBurst),
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		genreTTL: opts.GenreTTL,
		logger:   opts.Logger,
	}
}

// List API responses
type tmdbListItem struct {
	ID               int      `json:"id"`
	Title            string   `json:"title"`
	OriginalTitle    string   `json:"original_title"`
	ReleaseDate      string   `json:"release_date"`
	Name             string   `json:"name"`
	OriginalName     string   `json:"original_name"`
	FirstAirDate     string   `json:"first_air_date"`
	OriginCountry    []string `json:"origin_country"`
	PosterPath       *string  `json:"poster_path"`
	BackdropPath     *string  `json:"backdrop_path"`
	GenreIDs         []int    `json:"genre_ids"`
	VoteAverage      float64  `json:"vote_average"`
	VoteCount        int      `json:"vote_count"`
	Popularity       float64  `json:"popularity"`
	OriginalLanguage string   `json:"original_language"`
	Overview         string   `json:"overview"`
	Job              string   `json:"job"`
	Department       string   `json:"department"`
}

type tmdbPage struct {
	Page         int               `json:"page"`
	Results      []json.RawMessage `json:"results"`
	TotalPages   int               `json:"total_pages"`
	TotalResults int               `json:"total_results"`
}

type tmdbCredits struct {
	Cast []json.RawMessage `json:"cast"`
	Crew []json.RawMessage `json:"crew"`
}

type tmdbCollection struct {
	ID    int               `json:"id"`
	Name  string            `json:"name"`
	Parts []json.RawMessage `json:"parts"`
}

type tmdbDetails struct {
	tmdbListItem
	Genres []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
	ProductionCountries []struct {
		ISO3166_1 string `json:"iso_3166_1"`
	} `json:"production_countries"`
	Images json.RawMessage `json:"images"`
}

type tmdbImages struct {
	Logos []json.RawMessage `json:"logos"`
}

type tmdbReleaseDates struct {
	Results []struct {
		ISO3166_1    string `json:"iso_3166_1"`
		ReleaseDates []struct {
			Certification string `json:"certification"`
			Type          int    `json:"type"`
			ReleaseDate   string `json:"release_date"`
		} `json:"release_dates"`
	} `json:"results"`
}

type tmdbContentRatings struct {
	Results []models.ContentRating `json:"results"`
}

// List fetches a paginated listing (category, trending or discover endpoint).
// Every item is tagged with mediaType.
func (c *TMDBClient) List(ctx context.Context, mediaType models.MediaType, endpoint string, params url.Values) (*models.Page, error) {
	var raw tmdbPage
	if err := c.getJSON(ctx, endpoint, params, c.cacheTTL, &raw); err != nil {
		return nil, err
	}

	return &models.Page{
		Page:         raw.Page,
		Items:        c.decodeItems(endpoint, mediaType, raw.Results),
		TotalPages:   raw.TotalPages,
		TotalResults: raw.TotalResults,
	}, nil
}

// Genres retrieves the genre table for a media type
func (c *TMDBClient) Genres(ctx context.Context, mediaType models.MediaType) ([]models.Genre, error) {
	var result struct {
		Genres []models.Genre `json:"genres"`
	}
	endpoint := fmt.Sprintf("/genre/%s/list", mediaType)
	if err := c.getJSON(ctx, endpoint, url.Values{}, c.genreTTL, &result); err != nil {
		return nil, err
	}
	return result.Genres, nil
}

// PersonMovieCredits retrieves the full movie credit list of a person
func (c *TMDBClient) PersonMovieCredits(ctx context.Context, personID int) (*models.PersonCredits, error) {
	var raw tmdbCredits
	endpoint := fmt.Sprintf("/person/%d/movie_credits", personID)
	if err := c.getJSON(ctx, endpoint, url.Values{}, c.cacheTTL, &raw); err != nil {
		return nil, err
	}

	return &models.PersonCredits{
		Cast: c.decodeCredits(endpoint, raw.Cast),
		Crew: c.decodeCredits(endpoint, raw.Crew),
	}, nil
}

// Collection retrieves full collection details from TMDB
func (c *TMDBClient) Collection(ctx context.Context, collectionID int) (*models.Collection, error) {
	var raw tmdbCollection
	endpoint := fmt.Sprintf("/collection/%d", collectionID)
	if err := c.getJSON(ctx, endpoint, url.Values{}, c.cacheTTL, &raw); err != nil {
		return nil, err
	}

	return &models.Collection{
		ID:    raw.ID,
		Name:  raw.Name,
		Parts: c.decodeItems(endpoint, models.MediaTypeMovie, raw.Parts),
	}, nil
}

// MovieReleaseDates retrieves per-country release dates and certifications
func (c *TMDBClient) MovieReleaseDates(ctx context.Context, movieID int) ([]models.CountryReleases, error) {
	var raw tmdbReleaseDates
	endpoint := fmt.Sprintf("/movie/%d/release_dates", movieID)
	if err := c.getJSON(ctx, endpoint, url.Values{}, c.cacheTTL, &raw); err != nil {
		return nil, err
	}

	countries := make([]models.CountryReleases, 0, len(raw.Results))
	for _, r := range raw.Results {
		country := models.CountryReleases{Country: r.ISO3166_1}
		for _, rd := range r.ReleaseDates {
			release := models.ReleaseDate{Certification: rd.Certification, Type: rd.Type}
			if rd.ReleaseDate != "" {
				if parsed, err := time.Parse(time.RFC3339, rd.ReleaseDate); err == nil {
					release.Date = parsed
				}
			}
			country.Releases = append(country.Releases, release)
		}
		countries = append(countries, country)
	}
	return countries, nil
}

// TVContentRatings retrieves per-country TV ratings
func (c *TMDBClient) TVContentRatings(ctx context.Context, seriesID int) ([]models.ContentRating, error) {
	var raw tmdbContentRatings
	endpoint := fmt.Sprintf("/tv/%d/content_ratings", seriesID)
	if err := c.getJSON(ctx, endpoint, url.Values{}, c.cacheTTL, &raw); err != nil {
		return nil, err
	}
	return raw.Results, nil
}

// Details retrieves a movie or series together with its production countries
// and logos. Videos are requested alongside but not decoded.
func (c *TMDBClient) Details(ctx context.Context, mediaType models.MediaType, id int) (*models.ItemDetails, error) {
	params := url.Values{}
	params.Set("append_to_response", "videos,images")
	params.Set("include_image_language", "en,null")

	var raw tmdbDetails
	endpoint := fmt.Sprintf("/%s/%d", mediaType, id)
	if err := c.getJSON(ctx, endpoint, params, c.cacheTTL, &raw); err != nil {
		return nil, err
	}

	item := convertItem(&raw.tmdbListItem, mediaType)
	if len(item.GenreIDs) == 0 {
		for _, g := range raw.Genres {
			item.GenreIDs = append(item.GenreIDs, g.ID)
		}
	}

	details := &models.ItemDetails{
		Item:  item,
		Logos: c.decodeLogos(endpoint, raw.Images),
	}
	for _, pc := range raw.ProductionCountries {
		if pc.ISO3166_1 != "" {
			details.ProductionCountries = append(details.ProductionCountries, pc.ISO3166_1)
		}
	}
	return details, nil
}

// getJSON fetches endpoint and decodes the body into out
func (c *TMDBClient) getJSON(ctx context.Context, endpoint string, params url.Values, ttl time.Duration, out any) error {
	data, err := c.makeRequest(ctx, endpoint, params, ttl)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", endpoint, err)
	}
	return nil
}

// makeRequest performs a rate-limited, retried and cached GET against the TMDB API
func (c *TMDBClient) makeRequest(ctx context.Context, endpoint string, params url.Values, ttl time.Duration) ([]byte, error) {
	query := url.Values{}
	for k, vals := range params {
		for _, v := range vals {
			query.Add(k, v)
		}
	}
	if query.Get("language") == "" {
		query.Set("language", c.language)
	}

	// The API key never becomes part of the cache key
	cacheKey := cache.Key(endpoint, query.Encode())
	if c.cache != nil && ttl > 0 {
		if data, ok := c.cache.Get(ctx, cacheKey); ok {
			return data, nil
		}
	}

	query.Set("api_key", c.apiKey)
	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TMDB endpoint %s: %w", endpoint, err)
	}
	u.RawQuery = query.Encode()

	data, err := retry.DoWithData(
		func() ([]byte, error) {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, retry.Unrecoverable(err)
			}
			return c.doRequest(ctx, endpoint, u.String())
		},
		retry.Context(ctx),
		retry.Attempts(c.retries),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("tmdb.request.retry", "endpoint", endpoint, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && ttl > 0 {
		c.cache.Set(ctx, cacheKey, data, ttl)
	}
	return data, nil
}

func (c *TMDBClient) doRequest(ctx context.Context, endpoint, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error would echo the api_key back into logs
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("failed to make request to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := string(data)
		if len(body) > 200 {
			body = body[:200]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Endpoint: endpoint, Body: body}
	}

	return data, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return true
}

// decodeItems decodes list entries one by one so a single malformed entry
// does not take the whole page down.
func (c *TMDBClient) decodeItems(endpoint string, mediaType models.MediaType, raws []json.RawMessage) []models.MediaItem {
	items := make([]models.MediaItem, 0, len(raws))
	for i, raw := range raws {
		var ti tmdbListItem
		if err := json.Unmarshal(raw, &ti); err != nil || ti.ID == 0 {
			c.logger.Warn("tmdb.payload.item_skipped", "endpoint", endpoint, "index", i, "error", err)
			continue
		}
		items = append(items, convertItem(&ti, mediaType))
	}
	return items
}

// decodeLogos keeps every logo entry that decodes and drops the rest.
func (c *TMDBClient) decodeLogos(endpoint string, raw json.RawMessage) []models.ImageAsset {
	if len(raw) == 0 {
		return nil
	}
	var images tmdbImages
	if err := json.Unmarshal(raw, &images); err != nil {
		c.logger.Warn("tmdb.payload.images_skipped", "endpoint", endpoint, "error", err)
		return nil
	}
	logos := make([]models.ImageAsset, 0, len(images.Logos))
	for i, entry := range images.Logos {
		var logo models.ImageAsset
		if err := json.Unmarshal(entry, &logo); err != nil {
			c.logger.Warn("tmdb.payload.logo_skipped", "endpoint", endpoint, "index", i, "error", err)
			continue
		}
		logos = append(logos, logo)
	}
	return logos
}

func (c *TMDBClient) decodeCredits(endpoint string, raws []json.RawMessage) []models.Credit {
	credits := make([]models.Credit, 0, len(raws))
	for i, raw := range raws {
		var ti tmdbListItem
		if err := json.Unmarshal(raw, &ti); err != nil || ti.ID == 0 {
			c.logger.Warn("tmdb.payload.credit_skipped", "endpoint", endpoint, "index", i, "error", err)
			continue
		}
		credits = append(credits, models.Credit{
			Item:       convertItem(&ti, models.MediaTypeMovie),
			Job:        ti.Job,
			Department: ti.Department,
		})
	}
	return credits
}

// convertItem converts a TMDB list entry to the internal model
func convertItem(ti *tmdbListItem, mediaType models.MediaType) models.MediaItem {
	item := models.MediaItem{
		ID:               ti.ID,
		MediaType:        mediaType,
		PosterPath:       ti.PosterPath,
		BackdropPath:     ti.BackdropPath,
		GenreIDs:         ti.GenreIDs,
		VoteAverage:      ti.VoteAverage,
		VoteCount:        ti.VoteCount,
		Popularity:       ti.Popularity,
		OriginalLanguage: ti.OriginalLanguage,
		Overview:         ti.Overview,
	}

	if mediaType == models.MediaTypeTV {
		item.Name = ti.Name
		item.OriginalName = ti.OriginalName
		item.FirstAirDate = ti.FirstAirDate
		item.OriginCountry = ti.OriginCountry
	} else {
		item.Title = ti.Title
		item.OriginalTitle = ti.OriginalTitle
		item.ReleaseDate = ti.ReleaseDate
	}
	return item
}
