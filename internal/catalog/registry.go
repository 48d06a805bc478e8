package catalog

import (
	"errors"

	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

// ErrUnknownRow is recorded on a RowResult whose row ID is not registered.
var ErrUnknownRow = errors.New("catalog: unknown row")

// Row IDs that are matched by the regional rule.
const (
	RowKDrama        = "tv-kdrama"
	RowAnime         = "tv-anime"
	RowBritishComedy = "tv-british-comedy"
)

func listRow(id, title, category string, mediaType models.MediaType) models.RowConfig {
	return models.RowConfig{ID: id, Title: title, Category: category, MediaType: mediaType}
}

func customRow(id, title, category string, mediaType models.MediaType, kind models.FetcherKind, sourceID int) models.RowConfig {
	row := listRow(id, title, category, mediaType)
	row.Custom = &models.CustomFetcher{Kind: kind, ID: sourceID}
	return row
}

func directorRow(id, title string, personID int) models.RowConfig {
	row := customRow(id, title, "director", models.MediaTypeMovie, models.FetcherPerson, personID)
	row.Custom.Job = "Director"
	return row
}

func studioRow(id, title string, companyID int) models.RowConfig {
	return customRow(id, title, "studio", models.MediaTypeMovie, models.FetcherCompany, companyID)
}

func collectionRow(id, title string, collectionID int) models.RowConfig {
	return customRow(id, title, "collection", models.MediaTypeMovie, models.FetcherCollection, collectionID)
}

func enriched(row models.RowConfig) models.RowConfig {
	row.Enrich = true
	return row
}

// rows is the registration order. ListRowIDs returns IDs in this order.
var rows = []models.RowConfig{
	enriched(listRow("popular-movies", "Popular Movies", "popular", models.MediaTypeMovie)),
	listRow("top-rated-movies", "Top Rated Movies", "top_rated", models.MediaTypeMovie),
	listRow("now-playing-movies", "Now Playing", "now_playing", models.MediaTypeMovie),
	enriched(listRow("trending-movies", "Trending Movies", "trending", models.MediaTypeMovie)),

	listRow("action-movies", "Action", "action", models.MediaTypeMovie),
	listRow("comedy-movies", "Comedy", "comedy", models.MediaTypeMovie),
	listRow("horror-movies", "Horror", "horror", models.MediaTypeMovie),
	listRow("scifi-movies", "Science Fiction", "scifi", models.MediaTypeMovie),
	listRow("thriller-movies", "Thrillers", "thriller", models.MediaTypeMovie),
	listRow("romance-movies", "Romance", "romance", models.MediaTypeMovie),
	listRow("animation-movies", "Animation", "animation", models.MediaTypeMovie),
	listRow("documentary-movies", "Documentaries", "documentary", models.MediaTypeMovie),
	listRow("crime-movies", "Crime", "crime", models.MediaTypeMovie),
	listRow("family-movies", "Family", "family", models.MediaTypeMovie),
	listRow("classic-movies", "Classics", "classic", models.MediaTypeMovie),

	customRow("upcoming-movies", "Coming Soon", "upcoming", models.MediaTypeMovie, models.FetcherUpcoming, 0),

	directorRow("nolan-movies", "Christopher Nolan", 525),
	directorRow("tarantino-movies", "Quentin Tarantino", 138),
	directorRow("spielberg-movies", "Steven Spielberg", 488),
	directorRow("scorsese-movies", "Martin Scorsese", 1032),
	directorRow("villeneuve-movies", "Denis Villeneuve", 137427),

	studioRow("a24-movies", "A24", 41077),
	studioRow("pixar-movies", "Pixar", 3),
	studioRow("ghibli-movies", "Studio Ghibli", 10342),
	studioRow("marvel-studios-movies", "Marvel Studios", 420),
	studioRow("blumhouse-movies", "Blumhouse", 3172),

	collectionRow("harry-potter-collection", "Harry Potter", 1241),
	collectionRow("star-wars-collection", "Star Wars", 10),
	collectionRow("lotr-collection", "The Lord of the Rings", 119),
	collectionRow("james-bond-collection", "James Bond", 645),

	listRow("popular-tv", "Popular Shows", "popular", models.MediaTypeTV),
	listRow("top-rated-tv", "Top Rated Shows", "top_rated", models.MediaTypeTV),
	listRow("on-the-air-tv", "On The Air", "on_the_air", models.MediaTypeTV),
	listRow("airing-today-tv", "Airing Today", "airing_today", models.MediaTypeTV),
	enriched(listRow("trending-tv", "Trending Shows", "trending", models.MediaTypeTV)),

	listRow("drama-tv", "Drama", "drama", models.MediaTypeTV),
	listRow("comedy-tv", "Comedy", "comedy", models.MediaTypeTV),
	listRow("crime-tv", "Crime", "crime", models.MediaTypeTV),
	listRow("scifi-fantasy-tv", "Sci-Fi & Fantasy", "scifi-fantasy", models.MediaTypeTV),
	listRow("animation-tv", "Animation", "animation", models.MediaTypeTV),
	listRow("mystery-tv", "Mystery", "mystery", models.MediaTypeTV),
	listRow("action-adventure-tv", "Action & Adventure", "action-adventure", models.MediaTypeTV),

	listRow(RowKDrama, "K-Drama", "kdrama", models.MediaTypeTV),
	listRow(RowAnime, "Anime", "anime", models.MediaTypeTV),
	listRow(RowBritishComedy, "British Comedy", "british-comedy", models.MediaTypeTV),

	customRow("tv-diverse", "Something Different", "diverse", models.MediaTypeTV, models.FetcherDiverseTV, 0),
	customRow("tv-network-hits", "Network Hits", "network-hits", models.MediaTypeTV, models.FetcherNetworkHits, 0),
	customRow("tv-sitcoms", "Sitcoms", "sitcoms", models.MediaTypeTV, models.FetcherSitcoms, 0),
}

var rowIndex = indexRows(rows)

func indexRows(rows []models.RowConfig) map[string]int {
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		if _, dup := index[row.ID]; dup {
			panic("catalog: duplicate row id " + row.ID)
		}
		index[row.ID] = i
	}
	return index
}

// GetRowConfig looks up a row by ID. The returned config is a copy.
func GetRowConfig(rowID string) (models.RowConfig, bool) {
	i, ok := rowIndex[rowID]
	if !ok {
		return models.RowConfig{}, false
	}
	row := rows[i]
	if row.Custom != nil {
		custom := *row.Custom
		row.Custom = &custom
	}
	return row, true
}

// ListRowIDs returns every registered row ID in registration order.
func ListRowIDs() []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids
}

// ListRowIDsByMediaType returns the registered row IDs for one media type.
func ListRowIDsByMediaType(mediaType models.MediaType) []string {
	var ids []string
	for _, row := range rows {
		if row.MediaType == mediaType {
			ids = append(ids, row.ID)
		}
	}
	return ids
}

// ListRows returns copies of every registered row config.
func ListRows() []models.RowConfig {
	out := make([]models.RowConfig, 0, len(rows))
	for _, id := range ListRowIDs() {
		row, _ := GetRowConfig(id)
		out = append(out, row)
	}
	return out
}
