package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyumat/NyumatFlix-sub000/internal/catalog"
	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

func TestReport(t *testing.T) {
	results := []models.RowResult{
		{RowID: "popular-movies", Status: models.RowComplete, PagesFetched: 2, Items: []models.MediaItem{{ID: 11}, {ID: 12}}},
		{RowID: "tv-kdrama", Status: models.RowExhausted, PagesFetched: 1, Items: []models.MediaItem{{ID: 7}}},
	}

	var buf bytes.Buffer
	require.NoError(t, report(&buf, results, 2, true))

	out := buf.String()
	assert.Contains(t, out, "popular-movies")
	assert.Contains(t, out, "11 12")
	assert.Contains(t, out, "2 rows, 3 distinct items")
}

func TestReportFailsOnUnknownRow(t *testing.T) {
	results := []models.RowResult{
		{RowID: "nope", Status: models.RowUnknown, Items: []models.MediaItem{}, Err: catalog.ErrUnknownRow},
	}

	var buf bytes.Buffer
	err := report(&buf, results, 20, false)
	assert.True(t, errors.Is(err, errUnknownRows))
	assert.Contains(t, buf.String(), catalog.ErrUnknownRow.Error())
}
