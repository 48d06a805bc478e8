package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

// clientPageSize is the page size for lists paginated locally (person credits, collections).
const clientPageSize = 20

// curatedLimit caps the merged output of the curated TV fetchers.
const curatedLimit = 20

// fetchPage fetches one page of row using its configured strategy.
func (c *Catalog) fetchPage(ctx context.Context, row models.RowConfig, page int) models.PageResult {
	if row.Custom == nil {
		return c.FetchCategoryPage(ctx, row.Category, row.MediaType, page)
	}

	switch row.Custom.Kind {
	case models.FetcherPerson:
		return c.fetchPersonPage(ctx, row.Custom.ID, row.Custom.Job, page)
	case models.FetcherCompany:
		return c.fetchCompanyPage(ctx, row.Custom.ID, page)
	case models.FetcherCollection:
		return c.fetchCollectionPage(ctx, row.Custom.ID, page)
	case models.FetcherDiverseTV:
		return c.fetchCurated(ctx, diverseSample)
	case models.FetcherNetworkHits:
		return c.fetchCurated(ctx, networkHits)
	case models.FetcherSitcoms:
		return c.fetchCurated(ctx, sitcoms)
	case models.FetcherUpcoming:
		return c.fetchUpcomingPage(ctx, page)
	}

	return models.PageResult{
		Items:  []models.MediaItem{},
		Status: models.PageNotFound,
		Err:    fmt.Errorf("%w: custom fetcher %q", ErrUnknownCategory, row.Custom.Kind),
	}
}

// paginate slices an already ordered list into fixed-size pages.
// The upstream API cannot paginate these shapes, so the full list is fetched first.
func paginate(items []models.MediaItem, page, size int) ([]models.MediaItem, int) {
	totalPages := (len(items) + size - 1) / size
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []models.MediaItem{}, totalPages
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return append([]models.MediaItem(nil), items[start:end]...), totalPages
}

func sortByPopularity(items []models.MediaItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Popularity > items[j].Popularity
	})
}

func (c *Catalog) fetchPersonPage(ctx context.Context, personID int, job string, page int) models.PageResult {
	credits, err := c.upstream.PersonMovieCredits(ctx, personID)
	if err != nil {
		c.logger.Warn("catalog.person.fetch_failed", "person_id", personID, "error", err)
		return upstreamFailure(err)
	}

	seen := make(map[int]struct{})
	var movies []models.MediaItem
	for _, credit := range credits.Crew {
		if !strings.EqualFold(credit.Job, job) {
			continue
		}
		if _, dup := seen[credit.Item.ID]; dup {
			continue
		}
		seen[credit.Item.ID] = struct{}{}
		movies = append(movies, credit.Item)
	}
	sortByPopularity(movies)

	items, totalPages := paginate(movies, page, clientPageSize)
	return pageResult(items, totalPages)
}

func (c *Catalog) fetchCompanyPage(ctx context.Context, companyID, page int) models.PageResult {
	params := url.Values{}
	params.Set("with_companies", strconv.Itoa(companyID))
	params.Set("sort_by", "popularity.desc")
	params.Set("vote_count.gte", strconv.Itoa(studioMinVoteCount))
	params.Set("vote_average.gte", strconv.FormatFloat(studioMinVoteAverage, 'f', -1, 64))
	params.Set("language", c.opts.Language)
	params.Set("region", c.opts.Region)
	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")

	result, err := c.upstream.List(ctx, models.MediaTypeMovie, "/discover/movie", params)
	if err != nil {
		c.logger.Warn("catalog.company.fetch_failed", "company_id", companyID, "page", page, "error", err)
		return upstreamFailure(err)
	}

	items := make([]models.MediaItem, 0, len(result.Items))
	for i := range result.Items {
		if PassesStudioGate(&result.Items[i]) {
			items = append(items, result.Items[i])
		}
	}
	return filteredPage(items, len(result.Items), result.TotalPages)
}

func (c *Catalog) fetchCollectionPage(ctx context.Context, collectionID, page int) models.PageResult {
	collection, err := c.upstream.Collection(ctx, collectionID)
	if err != nil {
		c.logger.Warn("catalog.collection.fetch_failed", "collection_id", collectionID, "error", err)
		return upstreamFailure(err)
	}

	parts := append([]models.MediaItem(nil), collection.Parts...)
	sortByPopularity(parts)

	items, totalPages := paginate(parts, page, clientPageSize)
	return pageResult(items, totalPages)
}

// curatedSource describes one of the sampled TV rows: a fixed list of
// discover sources, each contributing at most perSource items.
type curatedSource struct {
	name          string
	sourceParam   string
	sources       []int
	extra         map[string]string
	withoutGenres []int
	minVoteCount  int
	minVoteAvg    float64
	minFirstAir   string
	perSource     int
	keywords      []string
}

var diverseSample = curatedSource{
	name:          "diverse",
	sourceParam:   "with_genres",
	sources:       []int{18, 35, 80, 10765, 9648, 10759, 16, 10751, 10768, 37},
	withoutGenres: []int{99, 10767, 10763},
	minVoteCount:  80,
	minVoteAvg:    6.5,
	minFirstAir:   "2010-01-01",
	perSource:     4,
	keywords:      []string{"talk show", "reality", "game show", "news", "interview"},
}

var networkHits = curatedSource{
	name:         "network-hits",
	sourceParam:  "with_networks",
	sources:      []int{49, 213, 1024, 2739, 2552, 174, 88, 67, 453},
	minVoteCount: 100,
	minVoteAvg:   7.0,
	minFirstAir:  "2005-01-01",
	perSource:    3,
	keywords:     []string{"talk show", "reality", "game show", "news", "late night"},
}

var sitcoms = curatedSource{
	name:          "sitcoms",
	sourceParam:   "with_networks",
	sources:       []int{6, 16, 2, 19, 71, 213},
	extra:         map[string]string{"with_genres": "35"},
	withoutGenres: []int{99, 10767, 10763, 10764},
	minVoteCount:  50,
	minVoteAvg:    6.5,
	minFirstAir:   "1990-01-01",
	perSource:     4,
	keywords:      []string{"police", "medical", "vampire", "crime", "detective", "zombie", "talk show", "reality"},
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func (s *curatedSource) params(sourceID int, language string) url.Values {
	params := url.Values{}
	for k, v := range s.extra {
		params.Set(k, v)
	}
	params.Set(s.sourceParam, strconv.Itoa(sourceID))
	if len(s.withoutGenres) > 0 {
		params.Set("without_genres", joinInts(s.withoutGenres))
	}
	params.Set("sort_by", "popularity.desc")
	params.Set("vote_count.gte", strconv.Itoa(s.minVoteCount))
	params.Set("vote_average.gte", strconv.FormatFloat(s.minVoteAvg, 'f', -1, 64))
	params.Set("first_air_date.gte", s.minFirstAir)
	params.Set("language", language)
	params.Set("page", "1")
	params.Set("include_adult", "false")
	return params
}

// accepts re-checks the upstream thresholds and applies the genre and keyword exclusions.
func (s *curatedSource) accepts(item *models.MediaItem) bool {
	if item.VoteCount < s.minVoteCount || item.VoteAverage < s.minVoteAvg {
		return false
	}
	// ISO dates compare correctly as strings
	if item.FirstAirDate == "" || item.FirstAirDate < s.minFirstAir {
		return false
	}
	if hasAnyGenre(item, s.withoutGenres) {
		return false
	}
	return !containsKeyword(item, s.keywords)
}

// fetchCurated samples every source, keeps the first perSource acceptable
// items of each, merges them in source order, drops duplicates and returns the
// most popular curatedLimit. These rows are not paginated: the result is the
// same for every page and TotalPages is always 1.
func (c *Catalog) fetchCurated(ctx context.Context, src curatedSource) models.PageResult {
	perSource := make([][]models.MediaItem, len(src.sources))
	errs := make([]error, len(src.sources))

	p := pool.New().WithMaxGoroutines(c.opts.FetchConcurrency)
	for i, sourceID := range src.sources {
		p.Go(func() {
			result, err := c.upstream.List(ctx, models.MediaTypeTV, "/discover/tv", src.params(sourceID, c.opts.Language))
			if err != nil {
				c.logger.Warn("catalog.curated.source_failed",
					"fetcher", src.name, "source_id", sourceID, "error", err)
				errs[i] = err
				return
			}

			var kept []models.MediaItem
			for j := range result.Items {
				if len(kept) == src.perSource {
					break
				}
				if src.accepts(&result.Items[j]) {
					kept = append(kept, result.Items[j])
				}
			}
			perSource[i] = kept
		})
	}
	p.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(src.sources) {
		return upstreamFailure(errors.Join(errs...))
	}

	seen := make(map[int]struct{})
	var merged []models.MediaItem
	for _, items := range perSource {
		for _, item := range items {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			merged = append(merged, item)
		}
	}
	sortByPopularity(merged)
	if len(merged) > curatedLimit {
		merged = merged[:curatedLimit]
	}

	return pageResult(merged, 1)
}

// upcomingWindowMonths bounds how far ahead the upcoming row looks.
const upcomingWindowMonths = 12

func (c *Catalog) fetchUpcomingPage(ctx context.Context, page int) models.PageResult {
	now := c.opts.Now()
	params := url.Values{}
	params.Set("primary_release_date.gte", now.Format("2006-01-02"))
	params.Set("primary_release_date.lte", now.AddDate(0, upcomingWindowMonths, 0).Format("2006-01-02"))
	params.Set("with_release_type", "2|3")
	params.Set("sort_by", "popularity.desc")
	params.Set("language", c.opts.Language)
	params.Set("region", c.opts.Region)
	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")

	result, err := c.upstream.List(ctx, models.MediaTypeMovie, "/discover/movie", params)
	if err != nil {
		c.logger.Warn("catalog.upcoming.fetch_failed", "page", page, "error", err)
		return upstreamFailure(err)
	}

	keep := make([]bool, len(result.Items))
	p := pool.New().WithMaxGoroutines(c.opts.FetchConcurrency)
	for i := range result.Items {
		p.Go(func() {
			keep[i] = c.isUpcoming(ctx, result.Items[i].ID)
		})
	}
	p.Wait()

	items := make([]models.MediaItem, 0, len(result.Items))
	for i, item := range result.Items {
		if keep[i] {
			items = append(items, item)
		}
	}
	return filteredPage(items, len(result.Items), result.TotalPages)
}

// isUpcoming reports whether any country still has a release date ahead.
// A failed lookup counts as upcoming.
func (c *Catalog) isUpcoming(ctx context.Context, movieID int) bool {
	countries, err := c.upstream.MovieReleaseDates(ctx, movieID)
	if err != nil {
		c.logger.Debug("catalog.upcoming.release_dates_failed", "movie_id", movieID, "error", err)
		return true
	}

	now := c.opts.Now()
	for _, country := range countries {
		for _, release := range country.Releases {
			if !release.Date.IsZero() && release.Date.After(now) {
				return true
			}
		}
	}
	return false
}
