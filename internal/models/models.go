package models

import "time"

// MediaType discriminates movies from TV shows. It is set once when an item
// is decoded from an upstream payload and never inferred again downstream.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// Valid reports whether t is one of the known media types.
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeTV
}

// ParseMediaType maps user input ("movie", "movies", "tv", "series", ...) to a MediaType.
func ParseMediaType(s string) (MediaType, bool) {
	switch s {
	case "movie", "movies":
		return MediaTypeMovie, true
	case "tv", "series", "show", "shows":
		return MediaTypeTV, true
	}
	return "", false
}

// MediaItem is a movie or TV show as returned by list-style endpoints, plus
// the fields added by enrichment (Categories, Logo, ContentRating).
type MediaItem struct {
	ID        int       `json:"id"`
	MediaType MediaType `json:"media_type"`

	// Movie fields
	Title         string `json:"title,omitempty"`
	OriginalTitle string `json:"original_title,omitempty"`
	ReleaseDate   string `json:"release_date,omitempty"`

	// TV fields
	Name          string   `json:"name,omitempty"`
	OriginalName  string   `json:"original_name,omitempty"`
	FirstAirDate  string   `json:"first_air_date,omitempty"`
	OriginCountry []string `json:"origin_country,omitempty"`

	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path"`
	GenreIDs         []int   `json:"genre_ids"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	OriginalLanguage string  `json:"original_language"`
	Overview         string  `json:"overview"`

	// Derived, never persisted upstream
	Categories    []string `json:"categories"`
	Logo          *Logo    `json:"logo"`
	ContentRating *string  `json:"content_rating"`
}

// DisplayTitle returns Title for movies and Name for TV shows.
func (m *MediaItem) DisplayTitle() string {
	if m.MediaType == MediaTypeTV {
		return m.Name
	}
	return m.Title
}

// OriginalDisplayTitle returns the original-language title.
func (m *MediaItem) OriginalDisplayTitle() string {
	if m.MediaType == MediaTypeTV {
		return m.OriginalName
	}
	return m.OriginalTitle
}

// HasPoster reports whether the item carries a usable poster reference.
func (m *MediaItem) HasPoster() bool {
	return m.PosterPath != nil && *m.PosterPath != ""
}

// Clone returns a copy that shares no slices or pointers with m.
func (m MediaItem) Clone() MediaItem {
	c := m
	if m.OriginCountry != nil {
		c.OriginCountry = append([]string(nil), m.OriginCountry...)
	}
	if m.GenreIDs != nil {
		c.GenreIDs = append([]int(nil), m.GenreIDs...)
	}
	if m.Categories != nil {
		c.Categories = append([]string(nil), m.Categories...)
	}
	if m.PosterPath != nil {
		p := *m.PosterPath
		c.PosterPath = &p
	}
	if m.BackdropPath != nil {
		b := *m.BackdropPath
		c.BackdropPath = &b
	}
	if m.Logo != nil {
		l := *m.Logo
		c.Logo = &l
	}
	if m.ContentRating != nil {
		r := *m.ContentRating
		c.ContentRating = &r
	}
	return c
}

// Genre is one entry of the upstream genre table.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Logo is a validated English-language title logo.
type Logo struct {
	FilePath    string  `json:"file_path"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Language    string  `json:"iso_639_1"`
}

// ImageAsset is an unvalidated image entry from a detail payload.
type ImageAsset struct {
	FilePath    string  `json:"file_path"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Language    *string `json:"iso_639_1"`
	VoteAverage float64 `json:"vote_average"`
}

// ItemDetails is the detail payload fetched with append_to_response=videos,images.
type ItemDetails struct {
	Item                MediaItem
	ProductionCountries []string
	Logos               []ImageAsset
}

// Page is one page of a paginated upstream listing.
type Page struct {
	Page         int
	Items        []MediaItem
	TotalPages   int
	TotalResults int
}

// Credit is one entry of a person's movie credits.
type Credit struct {
	Item       MediaItem
	Job        string
	Department string
}

// PersonCredits is the payload of /person/{id}/movie_credits.
type PersonCredits struct {
	Cast []Credit
	Crew []Credit
}

// Collection is the payload of /collection/{id}.
type Collection struct {
	ID    int
	Name  string
	Parts []MediaItem
}

// ReleaseDate is one release of a movie in one country.
type ReleaseDate struct {
	Certification string    `json:"certification"`
	Type          int       `json:"type"`
	Date          time.Time `json:"release_date"`
}

// Release types as numbered by the upstream API.
const (
	ReleaseTypePremiere   = 1
	ReleaseTypeLimited    = 2
	ReleaseTypeTheatrical = 3
	ReleaseTypeDigital    = 4
	ReleaseTypePhysical   = 5
	ReleaseTypeTV         = 6
)

// CountryReleases groups the release dates of a movie for one country.
type CountryReleases struct {
	Country  string        `json:"iso_3166_1"`
	Releases []ReleaseDate `json:"release_dates"`
}

// ContentRating is a TV rating for one country.
type ContentRating struct {
	Country string `json:"iso_3166_1"`
	Rating  string `json:"rating"`
}

// FetcherKind names a custom fetch strategy.
type FetcherKind string

const (
	FetcherPerson      FetcherKind = "person"
	FetcherCompany     FetcherKind = "company"
	FetcherCollection  FetcherKind = "collection"
	FetcherDiverseTV   FetcherKind = "diverse-sample"
	FetcherNetworkHits FetcherKind = "network-hits"
	FetcherSitcoms     FetcherKind = "sitcoms"
	FetcherUpcoming    FetcherKind = "upcoming"
)

// CustomFetcher selects a custom strategy and its parameters.
type CustomFetcher struct {
	Kind FetcherKind `json:"kind"`
	ID   int         `json:"id,omitempty"`
	Job  string      `json:"job,omitempty"`
}

// RowConfig identifies a logical row.
type RowConfig struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Category  string         `json:"category"`
	MediaType MediaType      `json:"media_type"`
	Custom    *CustomFetcher `json:"custom_fetcher,omitempty"`
	Enrich    bool           `json:"enrich"`
}

// PageStatus explains why a page holds the items it does.
type PageStatus string

const (
	PageOK            PageStatus = "ok"
	PageEmpty         PageStatus = "empty"
	PageNotFound      PageStatus = "not_found"
	PageUpstreamError PageStatus = "upstream_error"
)

// PageResult is the normalized result of the category fetcher and every custom fetcher.
// Err is set only for PageUpstreamError and PageNotFound and is never returned as a Go error.
type PageResult struct {
	Items      []MediaItem `json:"items"`
	TotalPages int         `json:"total_pages"`
	Status     PageStatus  `json:"status"`
	Err        error       `json:"-"`
}

// RowStatus explains how an aggregation ended.
type RowStatus string

const (
	RowComplete      RowStatus = "complete"
	RowExhausted     RowStatus = "exhausted"
	RowPageCeiling   RowStatus = "page_ceiling"
	RowUpstreamError RowStatus = "upstream_error"
	RowUnknown       RowStatus = "unknown_row"
)

// RowResult is the output of one row aggregation.
type RowResult struct {
	RowID        string      `json:"row_id"`
	Title        string      `json:"title,omitempty"`
	MediaType    MediaType   `json:"media_type,omitempty"`
	Items        []MediaItem `json:"items"`
	Status       RowStatus   `json:"status"`
	PagesFetched int         `json:"pages_fetched"`
	Err          error       `json:"-"`
}

// WatchStatus is the progress state of a watchlist entry.
type WatchStatus string

const (
	WatchStatusWatching WatchStatus = "watching"
	WatchStatusWaiting  WatchStatus = "waiting"
	WatchStatusFinished WatchStatus = "finished"
)

// Valid reports whether s is a known watch status.
func (s WatchStatus) Valid() bool {
	switch s {
	case WatchStatusWatching, WatchStatusWaiting, WatchStatusFinished:
		return true
	}
	return false
}

// WatchlistItem is a user's saved title. The relational store owns it.
type WatchlistItem struct {
	ID                 string      `json:"id"`
	UserID             string      `json:"user_id"`
	ContentID          int         `json:"content_id"`
	MediaType          MediaType   `json:"media_type"`
	Status             WatchStatus `json:"status"`
	LastWatchedSeason  *int        `json:"last_watched_season,omitempty"`
	LastWatchedEpisode *int        `json:"last_watched_episode,omitempty"`
	LastWatchedAt      *time.Time  `json:"last_watched_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}
