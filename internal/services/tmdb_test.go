package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyumat/NyumatFlix-sub000/internal/cache"
	"github.com/Nyumat/NyumatFlix-sub000/internal/logging"
	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts TMDBOptions) *TMDBClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts.BaseURL = server.URL
	opts.RetryDelay = time.Millisecond
	opts.Logger = logging.Discard()
	return NewTMDBClient("secret-key", opts)
}

func TestListDecodesAndTagsItems(t *testing.T) {
	var query url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tv/popular", r.URL.Path)
		query = r.URL.Query()
		w.Write([]byte(`{
			"page": 2, "total_pages": 7, "total_results": 140,
			"results": [
				{"id": 1, "name": "Good", "first_air_date": "2020-01-01", "origin_country": ["US"], "poster_path": "/a.jpg", "genre_ids": [18]},
				{"id": "broken"},
				{"name": "No ID"},
				{"id": 2, "name": "No Poster", "poster_path": null}
			]
		}`))
	}, TMDBOptions{})

	params := url.Values{}
	params.Set("page", "2")
	page, err := client.List(context.Background(), models.MediaTypeTV, "/tv/popular", params)
	require.NoError(t, err)

	assert.Equal(t, "secret-key", query.Get("api_key"))
	assert.Equal(t, "en-US", query.Get("language"))
	assert.Equal(t, "2", query.Get("page"))

	assert.Equal(t, 7, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, models.MediaTypeTV, page.Items[0].MediaType)
	assert.Equal(t, "Good", page.Items[0].Name)
	assert.Equal(t, []string{"US"}, page.Items[0].OriginCountry)
	assert.True(t, page.Items[0].HasPoster())
	assert.False(t, page.Items[1].HasPoster())
}

func TestRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"genres": [{"id": 28, "name": "Action"}]}`))
	}, TMDBOptions{Retries: 3})

	genres, err := client.Genres(context.Background(), models.MediaTypeMovie)
	require.NoError(t, err)
	assert.Equal(t, []models.Genre{{ID: 28, Name: "Action"}}, genres)
	assert.Equal(t, int32(3), hits.Load())
}

func TestRetriesRateLimited(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, TMDBOptions{Retries: 2})

	_, err := client.Genres(context.Background(), models.MediaTypeMovie)
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, `{"status_message": "not found"}`, http.StatusNotFound)
	}, TMDBOptions{Retries: 3})

	_, err := client.Collection(context.Background(), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamStatus)
	assert.NotContains(t, err.Error(), "secret-key")
	assert.Equal(t, int32(1), hits.Load())
}

func TestMalformedPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [`))
	}, TMDBOptions{})

	_, err := client.List(context.Background(), models.MediaTypeMovie, "/movie/popular", url.Values{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}

func TestResponsesAreCached(t *testing.T) {
	var hits atomic.Int32
	manager, err := cache.NewManager(16, nil, nil)
	require.NoError(t, err)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"id": 10, "name": "Star Wars", "parts": [{"id": 11, "title": "A New Hope", "popularity": 50}]}`))
	}, TMDBOptions{Cache: manager, CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		collection, err := client.Collection(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, collection.Parts, 1)
		assert.Equal(t, models.MediaTypeMovie, collection.Parts[0].MediaType)
		assert.Equal(t, "A New Hope", collection.Parts[0].Title)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestPersonMovieCredits(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/person/525/movie_credits", r.URL.Path)
		w.Write([]byte(`{
			"cast": [{"id": 1, "title": "Cameo"}],
			"crew": [
				{"id": 27205, "title": "Inception", "job": "Director", "department": "Directing", "popularity": 90},
				{"id": 27205, "title": "Inception", "job": "Writer", "department": "Writing", "popularity": 90}
			]
		}`))
	}, TMDBOptions{})

	credits, err := client.PersonMovieCredits(context.Background(), 525)
	require.NoError(t, err)
	require.Len(t, credits.Crew, 2)
	assert.Equal(t, "Director", credits.Crew[0].Job)
	assert.Equal(t, "Inception", credits.Crew[0].Item.Title)
	assert.Len(t, credits.Cast, 1)
}

func TestMovieReleaseDates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1, "results": [
			{"iso_3166_1": "US", "release_dates": [
				{"certification": "PG-13", "type": 3, "release_date": "2010-07-16T00:00:00.000Z"},
				{"certification": "", "type": 4, "release_date": "bogus"}
			]}
		]}`))
	}, TMDBOptions{})

	countries, err := client.MovieReleaseDates(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, countries, 1)
	assert.Equal(t, "US", countries[0].Country)
	require.Len(t, countries[0].Releases, 2)
	assert.Equal(t, "PG-13", countries[0].Releases[0].Certification)
	assert.Equal(t, models.ReleaseTypeTheatrical, countries[0].Releases[0].Type)
	assert.Equal(t, 2010, countries[0].Releases[0].Date.Year())
	assert.True(t, countries[0].Releases[1].Date.IsZero())
}

func TestDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/27205", r.URL.Path)
		assert.Equal(t, "videos,images", r.URL.Query().Get("append_to_response"))
		w.Write([]byte(`{
			"id": 27205, "title": "Inception", "genres": [{"id": 28, "name": "Action"}],
			"production_countries": [{"iso_3166_1": "GB"}, {"iso_3166_1": "US"}],
			"images": {"logos": [{"file_path": "/logo.png", "width": 500, "height": 200, "aspect_ratio": 2.5, "iso_639_1": "en"}]},
			"videos": {"results": [{"key": "abc", "site": "YouTube", "type": "Trailer"}]}
		}`))
	}, TMDBOptions{})

	details, err := client.Details(context.Background(), models.MediaTypeMovie, 27205)
	require.NoError(t, err)
	assert.Equal(t, "Inception", details.Item.Title)
	assert.Equal(t, []int{28}, details.Item.GenreIDs)
	assert.Equal(t, []string{"GB", "US"}, details.ProductionCountries)
	require.Len(t, details.Logos, 1)
	assert.Equal(t, "en", *details.Logos[0].Language)
}

func TestDetailsSkipsMalformedLogos(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": 27205, "title": "Inception",
			"images": {"logos": [
				{"file_path": "/good.png", "width": 500, "height": 200, "aspect_ratio": 2.5, "iso_639_1": "en"},
				{"file_path": "/bad.png", "width": "wide", "height": 200, "aspect_ratio": 2.5, "iso_639_1": "en"}
			]}
		}`))
	}, TMDBOptions{})

	details, err := client.Details(context.Background(), models.MediaTypeMovie, 27205)
	require.NoError(t, err)
	assert.Equal(t, "Inception", details.Item.Title)
	require.Len(t, details.Logos, 1)
	assert.Equal(t, "/good.png", details.Logos[0].FilePath)
}

func TestDetailsToleratesMalformedImages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 27205, "title": "Inception", "images": {"logos": "none"}}`))
	}, TMDBOptions{})

	details, err := client.Details(context.Background(), models.MediaTypeMovie, 27205)
	require.NoError(t, err)
	assert.Equal(t, 27205, details.Item.ID)
	assert.Empty(t, details.Logos)
}

func TestTVContentRatings(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tv/1396/content_ratings", r.URL.Path)
		w.Write([]byte(`{"results": [{"iso_3166_1": "US", "rating": "TV-MA"}]}`))
	}, TMDBOptions{})

	ratings, err := client.TVContentRatings(context.Background(), 1396)
	require.NoError(t, err)
	assert.Equal(t, []models.ContentRating{{Country: "US", Rating: "TV-MA"}}, ratings)
}
