package catalog

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/Nyumat/NyumatFlix-sub000/internal/logging"
	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

var errUpstream = errors.New("upstream exploded")

var testNow = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

type listCall struct {
	mediaType models.MediaType
	endpoint  string
	params    url.Values
}

// fakeUpstream implements Upstream with per-endpoint hooks. Unset hooks
// return empty payloads.
type fakeUpstream struct {
	mu sync.Mutex

	listFn         func(call listCall) (*models.Page, error)
	genres         map[models.MediaType][]models.Genre
	genresErr      error
	creditsFn      func(personID int) (*models.PersonCredits, error)
	collectionFn   func(collectionID int) (*models.Collection, error)
	releaseDatesFn func(movieID int) ([]models.CountryReleases, error)
	ratingsFn      func(seriesID int) ([]models.ContentRating, error)
	detailsFn      func(mediaType models.MediaType, id int) (*models.ItemDetails, error)

	listCalls   []listCall
	genreCalls  int
	detailCalls int
}

func (f *fakeUpstream) List(_ context.Context, mediaType models.MediaType, endpoint string, params url.Values) (*models.Page, error) {
	call := listCall{mediaType: mediaType, endpoint: endpoint, params: params}
	f.mu.Lock()
	f.listCalls = append(f.listCalls, call)
	f.mu.Unlock()

	if f.listFn == nil {
		return &models.Page{Page: 1}, nil
	}
	return f.listFn(call)
}

func (f *fakeUpstream) Genres(_ context.Context, mediaType models.MediaType) ([]models.Genre, error) {
	f.mu.Lock()
	f.genreCalls++
	f.mu.Unlock()

	if f.genresErr != nil {
		return nil, f.genresErr
	}
	return f.genres[mediaType], nil
}

func (f *fakeUpstream) PersonMovieCredits(_ context.Context, personID int) (*models.PersonCredits, error) {
	if f.creditsFn == nil {
		return &models.PersonCredits{}, nil
	}
	return f.creditsFn(personID)
}

func (f *fakeUpstream) Collection(_ context.Context, collectionID int) (*models.Collection, error) {
	if f.collectionFn == nil {
		return &models.Collection{ID: collectionID}, nil
	}
	return f.collectionFn(collectionID)
}

func (f *fakeUpstream) MovieReleaseDates(_ context.Context, movieID int) ([]models.CountryReleases, error) {
	if f.releaseDatesFn == nil {
		return nil, nil
	}
	return f.releaseDatesFn(movieID)
}

func (f *fakeUpstream) TVContentRatings(_ context.Context, seriesID int) ([]models.ContentRating, error) {
	if f.ratingsFn == nil {
		return nil, nil
	}
	return f.ratingsFn(seriesID)
}

func (f *fakeUpstream) Details(_ context.Context, mediaType models.MediaType, id int) (*models.ItemDetails, error) {
	f.mu.Lock()
	f.detailCalls++
	f.mu.Unlock()

	if f.detailsFn == nil {
		return &models.ItemDetails{Item: models.MediaItem{ID: id, MediaType: mediaType}}, nil
	}
	return f.detailsFn(mediaType, id)
}

func (f *fakeUpstream) calls() []listCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]listCall(nil), f.listCalls...)
}

func newTestCatalog(up Upstream) *Catalog {
	return New(up, Options{
		Logger: logging.Discard(),
		Now:    func() time.Time { return testNow },
	})
}

func strPtr(s string) *string { return &s }

func movie(id int, popularity float64) models.MediaItem {
	return models.MediaItem{
		ID:          id,
		MediaType:   models.MediaTypeMovie,
		Title:       "Movie",
		PosterPath:  strPtr("/poster.jpg"),
		Popularity:  popularity,
		VoteAverage: 7,
		VoteCount:   1000,
	}
}

func movies(ids ...int) []models.MediaItem {
	items := make([]models.MediaItem, len(ids))
	for i, id := range ids {
		items[i] = movie(id, float64(1000-i))
	}
	return items
}

func idRange(from, to int) []int {
	ids := make([]int, 0, to-from+1)
	for id := from; id <= to; id++ {
		ids = append(ids, id)
	}
	return ids
}

func tvShow(id int, language string, countries ...string) models.MediaItem {
	return models.MediaItem{
		ID:               id,
		MediaType:        models.MediaTypeTV,
		Name:             "Show",
		FirstAirDate:     "2020-01-01",
		OriginCountry:    countries,
		OriginalLanguage: language,
		PosterPath:       strPtr("/poster.jpg"),
		VoteAverage:      8,
		VoteCount:        500,
	}
}

func itemIDs(items []models.MediaItem) []int {
	ids := make([]int, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}
