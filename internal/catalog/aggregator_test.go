package catalog

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

// pagedList serves pages[n-1] for page n and an empty page past the end.
func pagedList(totalPages int, pages ...[]models.MediaItem) func(call listCall) (*models.Page, error) {
	return func(call listCall) (*models.Page, error) {
		n, _ := strconv.Atoi(call.params.Get("page"))
		if n < 1 || n > len(pages) {
			return &models.Page{Page: n, TotalPages: totalPages}, nil
		}
		return &models.Page{Page: n, Items: pages[n-1], TotalPages: totalPages}, nil
	}
}

func TestAggregateRowTwoPagesReachMinCount(t *testing.T) {
	up := &fakeUpstream{listFn: pagedList(50,
		movies(idRange(1, 8)...),
		movies(idRange(101, 115)...),
	)}
	c := newTestCatalog(up)

	seen := NewSeenSet()
	result := c.AggregateRow(context.Background(), "action-movies", 20, seen)

	require.Len(t, up.calls(), 2)
	assert.Equal(t, "1", up.calls()[0].params.Get("page"))
	assert.Equal(t, "2", up.calls()[1].params.Get("page"))

	assert.Equal(t, models.RowComplete, result.Status)
	assert.Equal(t, 2, result.PagesFetched)
	require.Len(t, result.Items, 20)
	assert.Equal(t, append(idRange(1, 8), idRange(101, 112)...), itemIDs(result.Items))

	// Only emitted items are marked seen.
	assert.Equal(t, 20, seen.Len())
	assert.False(t, seen.Has(113))
}

func TestAggregateRowUsesCategoryQuery(t *testing.T) {
	up := &fakeUpstream{listFn: pagedList(1, movies(1))}
	c := newTestCatalog(up)

	c.AggregateRow(context.Background(), "action-movies", 20, nil)

	require.Len(t, up.calls(), 1)
	call := up.calls()[0]
	assert.Equal(t, "/discover/movie", call.endpoint)
	assert.Equal(t, "28", call.params.Get("with_genres"))
	assert.Equal(t, "false", call.params.Get("include_adult"))
}

func TestAggregateRowStopsOnEmptyPage(t *testing.T) {
	up := &fakeUpstream{listFn: pagedList(50, movies(idRange(1, 5)...))}
	c := newTestCatalog(up)

	result := c.AggregateRow(context.Background(), "popular-movies", 20, nil)

	assert.Len(t, up.calls(), 2)
	assert.Equal(t, models.RowExhausted, result.Status)
	assert.Len(t, result.Items, 5)
	assert.NoError(t, result.Err)
}

func TestAggregateRowStopsAtTotalPages(t *testing.T) {
	up := &fakeUpstream{listFn: pagedList(1, movies(idRange(1, 5)...), movies(idRange(6, 10)...))}
	c := newTestCatalog(up)

	result := c.AggregateRow(context.Background(), "popular-movies", 20, nil)

	assert.Len(t, up.calls(), 1)
	assert.Equal(t, models.RowExhausted, result.Status)
	assert.Len(t, result.Items, 5)
}

func TestAggregateRowPageCeiling(t *testing.T) {
	var pages [][]models.MediaItem
	for p := 1; p <= 15; p++ {
		noPoster := movie(1000+p, 1)
		noPoster.PosterPath = nil
		pages = append(pages, []models.MediaItem{movie(p, 1), noPoster})
	}
	up := &fakeUpstream{listFn: pagedList(500, pages...)}
	c := newTestCatalog(up)

	result := c.AggregateRow(context.Background(), "popular-movies", 20, nil)

	assert.Len(t, up.calls(), MaxPages)
	assert.Equal(t, MaxPages, result.PagesFetched)
	assert.Equal(t, models.RowPageCeiling, result.Status)
	assert.Equal(t, idRange(1, 10), itemIDs(result.Items))
}

func TestAggregateRowUnknownRow(t *testing.T) {
	up := &fakeUpstream{}
	c := newTestCatalog(up)

	result := c.AggregateRow(context.Background(), "no-such-row", 20, nil)

	assert.Equal(t, models.RowUnknown, result.Status)
	assert.ErrorIs(t, result.Err, ErrUnknownRow)
	assert.Empty(t, result.Items)
	assert.NotNil(t, result.Items)
	assert.Empty(t, up.calls())
}

func TestAggregateRowUpstreamFailureIsNotEmptyRow(t *testing.T) {
	up := &fakeUpstream{listFn: func(listCall) (*models.Page, error) {
		return nil, errUpstream
	}}
	c := newTestCatalog(up)

	result := c.AggregateRow(context.Background(), "popular-movies", 20, nil)

	assert.Equal(t, models.RowUpstreamError, result.Status)
	assert.ErrorIs(t, result.Err, errUpstream)
	assert.Empty(t, result.Items)
	assert.Len(t, up.calls(), 1)
}

func TestAggregateRowKeepsItemsBeforeFailure(t *testing.T) {
	up := &fakeUpstream{listFn: func(call listCall) (*models.Page, error) {
		if call.params.Get("page") == "1" {
			return &models.Page{Items: movies(1, 2, 3), TotalPages: 10}, nil
		}
		return nil, errUpstream
	}}
	c := newTestCatalog(up)

	result := c.AggregateRow(context.Background(), "popular-movies", 20, nil)

	assert.Equal(t, models.RowUpstreamError, result.Status)
	assert.Equal(t, []int{1, 2, 3}, itemIDs(result.Items))
}

func TestAggregateRowPosterGate(t *testing.T) {
	nilPoster := movie(2, 1)
	nilPoster.PosterPath = nil
	emptyPoster := movie(3, 1)
	emptyPoster.PosterPath = strPtr("")

	up := &fakeUpstream{listFn: pagedList(1, []models.MediaItem{movie(1, 1), nilPoster, emptyPoster, movie(4, 1)})}
	c := newTestCatalog(up)

	result := c.AggregateRow(context.Background(), "popular-movies", 20, nil)
	assert.Equal(t, []int{1, 4}, itemIDs(result.Items))
}

func TestAggregateRowDropsDuplicatesWithinPage(t *testing.T) {
	up := &fakeUpstream{listFn: pagedList(1, movies(1, 2, 1, 3, 2))}
	c := newTestCatalog(up)

	result := c.AggregateRow(context.Background(), "popular-movies", 20, nil)
	assert.Equal(t, []int{1, 2, 3}, itemIDs(result.Items))
}

func TestAggregateRowRegionalRules(t *testing.T) {
	page := []models.MediaItem{
		tvShow(1, "en", "FR"),
		tvShow(2, "fr", "FR"),
		tvShow(3, "ko", "KR"),
		tvShow(4, "en", "US"),
		tvShow(5, "es", "US"),
	}

	tests := []struct {
		rowID string
		want  []int
	}{
		{"popular-tv", []int{1, 4, 5}},
		{RowKDrama, []int{3}},
		{RowAnime, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.rowID, func(t *testing.T) {
			up := &fakeUpstream{listFn: pagedList(1, page)}
			c := newTestCatalog(up)

			result := c.AggregateRow(context.Background(), tt.rowID, 20, nil)
			assert.Equal(t, tt.want, itemIDs(result.Items))
		})
	}
}

func TestAggregateRowMoviesHaveNoRegionalRestriction(t *testing.T) {
	foreign := movie(7, 1)
	foreign.OriginalLanguage = "fr"
	up := &fakeUpstream{listFn: pagedList(1, []models.MediaItem{foreign})}
	c := newTestCatalog(up)

	result := c.AggregateRow(context.Background(), "popular-movies", 20, nil)
	assert.Equal(t, []int{7}, itemIDs(result.Items))
}

func TestAggregateRowAttachesCategories(t *testing.T) {
	item := movie(1, 1)
	item.GenreIDs = []int{28, 999, 12}
	up := &fakeUpstream{
		listFn: pagedList(1, []models.MediaItem{item}),
		genres: map[models.MediaType][]models.Genre{
			models.MediaTypeMovie: {{ID: 12, Name: "Adventure"}, {ID: 28, Name: "Action"}},
		},
	}
	c := newTestCatalog(up)

	result := c.AggregateRow(context.Background(), "action-movies", 20, nil)
	require.Len(t, result.Items, 1)
	assert.Equal(t, []string{"Action", "Adventure"}, result.Items[0].Categories)
}

func TestAggregateRowsRowPriority(t *testing.T) {
	byGenre := func(call listCall) (*models.Page, error) {
		switch call.params.Get("with_genres") {
		case "28":
			return &models.Page{Items: movies(1, 42, 2), TotalPages: 1}, nil
		case "35":
			return &models.Page{Items: movies(42, 3), TotalPages: 1}, nil
		}
		return &models.Page{}, nil
	}

	t.Run("action first", func(t *testing.T) {
		c := newTestCatalog(&fakeUpstream{listFn: byGenre})
		results := c.AggregateRows(context.Background(), []string{"action-movies", "comedy-movies"}, 20, nil)

		require.Len(t, results, 2)
		assert.Equal(t, []int{1, 42, 2}, itemIDs(results[0].Items))
		assert.Equal(t, []int{3}, itemIDs(results[1].Items))
	})

	t.Run("comedy first", func(t *testing.T) {
		c := newTestCatalog(&fakeUpstream{listFn: byGenre})
		results := c.AggregateRows(context.Background(), []string{"comedy-movies", "action-movies"}, 20, nil)

		require.Len(t, results, 2)
		assert.Equal(t, []int{42, 3}, itemIDs(results[0].Items))
		assert.Equal(t, []int{1, 2}, itemIDs(results[1].Items))
	})
}

func TestAggregateRowsNeverRepeatsAnID(t *testing.T) {
	// Every category returns an overlapping window of the same IDs.
	up := &fakeUpstream{listFn: func(call listCall) (*models.Page, error) {
		return &models.Page{Items: movies(idRange(1, 30)...), TotalPages: 3}, nil
	}}
	c := newTestCatalog(up)

	rowIDs := []string{"popular-movies", "top-rated-movies", "action-movies", "comedy-movies"}
	results := c.AggregateRows(context.Background(), rowIDs, 20, nil)

	seen := map[int]string{}
	for _, r := range results {
		for _, item := range r.Items {
			prev, dup := seen[item.ID]
			assert.False(t, dup, "item %d in both %s and %s", item.ID, prev, r.RowID)
			seen[item.ID] = r.RowID
		}
	}
	assert.Len(t, results[0].Items, 20)
	assert.Len(t, results[1].Items, 10)
	assert.Empty(t, results[2].Items)
}

func TestAggregateRowsUnknownRowDoesNotAbortBatch(t *testing.T) {
	up := &fakeUpstream{listFn: pagedList(1, movies(1, 2))}
	c := newTestCatalog(up)

	results := c.AggregateRows(context.Background(), []string{"missing", "popular-movies"}, 20, nil)

	require.Len(t, results, 2)
	assert.Equal(t, models.RowUnknown, results[0].Status)
	assert.Equal(t, []int{1, 2}, itemIDs(results[1].Items))
}

func TestAggregateRowCancelledContext(t *testing.T) {
	up := &fakeUpstream{listFn: pagedList(1, movies(1))}
	c := newTestCatalog(up)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := c.AggregateRow(ctx, "popular-movies", 20, nil)
	assert.Equal(t, models.RowUpstreamError, result.Status)
	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Empty(t, up.calls())
}

func TestAggregateRowContinuesPastFullyGatedPage(t *testing.T) {
	gated := movies(idRange(1, 5)...)
	for i := range gated {
		gated[i].VoteCount = 3
	}
	up := &fakeUpstream{listFn: pagedList(3, gated, movies(idRange(6, 8)...))}
	c := newTestCatalog(up)

	result := c.AggregateRow(context.Background(), "a24-movies", 20, nil)

	assert.Len(t, up.calls(), 3)
	assert.Equal(t, models.RowExhausted, result.Status)
	assert.Equal(t, idRange(6, 8), itemIDs(result.Items))
}
