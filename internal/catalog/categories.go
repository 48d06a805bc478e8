package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

// ErrUnknownCategory is recorded on a PageResult for an unregistered (category, media type) pair.
var ErrUnknownCategory = errors.New("catalog: unknown category")

type endpointKind int

const (
	endpointList endpointKind = iota
	endpointTrending
	endpointDiscover
)

type categoryDef struct {
	kind endpointKind
	// path is the list endpoint name for endpointList ("popular", "top_rated", ...)
	path     string
	params   map[string]string
	language string
	region   string
	noRegion bool
}

func list(path string) categoryDef {
	return categoryDef{kind: endpointList, path: path}
}

func discover(params map[string]string) categoryDef {
	if _, ok := params["sort_by"]; !ok {
		params["sort_by"] = "popularity.desc"
	}
	return categoryDef{kind: endpointDiscover, params: params}
}

func genre(id int) categoryDef {
	return discover(map[string]string{"with_genres": strconv.Itoa(id)})
}

func international(params map[string]string) categoryDef {
	def := discover(params)
	def.noRegion = true
	return def
}

var categories = map[models.MediaType]map[string]categoryDef{
	models.MediaTypeMovie: {
		"popular":     list("popular"),
		"top_rated":   list("top_rated"),
		"now_playing": list("now_playing"),
		"trending":    {kind: endpointTrending},
		"action":      genre(28),
		"comedy":      genre(35),
		"horror":      genre(27),
		"scifi":       genre(878),
		"thriller":    genre(53),
		"romance":     genre(10749),
		"animation":   genre(16),
		"documentary": genre(99),
		"crime":       genre(80),
		"family":      genre(10751),
		"classic": discover(map[string]string{
			"primary_release_date.lte": "1980-12-31",
			"vote_count.gte":           "500",
			"sort_by":                  "vote_average.desc",
		}),
	},
	models.MediaTypeTV: {
		"popular":          list("popular"),
		"top_rated":        list("top_rated"),
		"on_the_air":       list("on_the_air"),
		"airing_today":     list("airing_today"),
		"trending":         {kind: endpointTrending},
		"drama":            genre(18),
		"comedy":           genre(35),
		"crime":            genre(80),
		"scifi-fantasy":    genre(10765),
		"animation":        genre(16),
		"mystery":          genre(9648),
		"action-adventure": genre(10759),
		"kdrama": international(map[string]string{
			"with_origin_country":    "KR",
			"with_original_language": "ko",
			"with_genres":            "18",
		}),
		"anime": international(map[string]string{
			"with_origin_country":    "JP",
			"with_original_language": "ja",
			"with_genres":            "16",
		}),
		"british-comedy": international(map[string]string{
			"with_origin_country": "GB",
			"with_genres":         "35",
		}),
	},
}

func lookupCategory(category string, mediaType models.MediaType) (categoryDef, bool) {
	byType, ok := categories[mediaType]
	if !ok {
		return categoryDef{}, false
	}
	def, ok := byType[category]
	return def, ok
}

// categoryQuery builds the endpoint and query string for one page of a category.
func (c *Catalog) categoryQuery(def categoryDef, mediaType models.MediaType, page int) (string, url.Values) {
	var endpoint string
	switch def.kind {
	case endpointTrending:
		endpoint = fmt.Sprintf("/trending/%s/week", mediaType)
	case endpointDiscover:
		endpoint = fmt.Sprintf("/discover/%s", mediaType)
	default:
		endpoint = fmt.Sprintf("/%s/%s", mediaType, def.path)
	}

	params := url.Values{}
	for k, v := range def.params {
		params.Set(k, v)
	}

	language := c.opts.Language
	if def.language != "" {
		language = def.language
	}
	params.Set("language", language)

	if !def.noRegion {
		region := c.opts.Region
		if def.region != "" {
			region = def.region
		}
		params.Set("region", region)
	}

	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")
	return endpoint, params
}

// FetchCategoryPage fetches one page of a category listing. Upstream failures
// degrade to an empty page whose Status records why.
func (c *Catalog) FetchCategoryPage(ctx context.Context, category string, mediaType models.MediaType, page int) models.PageResult {
	def, ok := lookupCategory(category, mediaType)
	if !ok {
		return models.PageResult{
			Items:  []models.MediaItem{},
			Status: models.PageNotFound,
			Err:    fmt.Errorf("%w: %s/%s", ErrUnknownCategory, mediaType, category),
		}
	}
	if page < 1 {
		page = 1
	}

	endpoint, params := c.categoryQuery(def, mediaType, page)
	result, err := c.upstream.List(ctx, mediaType, endpoint, params)
	if err != nil {
		c.logger.Warn("catalog.category.fetch_failed",
			"category", category, "media_type", mediaType, "page", page, "error", err)
		return upstreamFailure(err)
	}

	return pageResult(result.Items, result.TotalPages)
}

func upstreamFailure(err error) models.PageResult {
	return models.PageResult{
		Items:  []models.MediaItem{},
		Status: models.PageUpstreamError,
		Err:    err,
	}
}

func pageResult(items []models.MediaItem, totalPages int) models.PageResult {
	if len(items) == 0 {
		return models.PageResult{Items: []models.MediaItem{}, TotalPages: totalPages, Status: models.PageEmpty}
	}
	return models.PageResult{Items: items, TotalPages: totalPages, Status: models.PageOK}
}

// filteredPage is pageResult for pages thinned by a client-side filter. A page
// the upstream filled stays ok even when nothing survived, so the aggregator
// moves on to the next page instead of treating the row as exhausted.
func filteredPage(kept []models.MediaItem, upstreamCount, totalPages int) models.PageResult {
	pr := pageResult(kept, totalPages)
	if upstreamCount > 0 {
		pr.Status = models.PageOK
	}
	return pr
}
