package catalog

import (
	"context"
	"fmt"

	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

const (
	// MaxPages bounds the upstream pages fetched for one row.
	MaxPages = 10
	// DefaultMinCount is the row size used when callers do not ask for one.
	DefaultMinCount = 20
)

// SeenSet holds the item IDs already emitted during one aggregation session.
// It is not safe for concurrent use; batch aggregation is sequential.
type SeenSet struct {
	ids map[int]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[int]struct{})}
}

func (s *SeenSet) Has(id int) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *SeenSet) Add(id int) {
	s.ids[id] = struct{}{}
}

func (s *SeenSet) Len() int {
	return len(s.ids)
}

// AggregateRow fetches pages of rowID until minCount items pass the poster
// gate, the regional rule and the seen set, the upstream runs dry, or
// MaxPages pages have been fetched. Pages are fetched one at a time.
//
// seen may be shared across calls to deduplicate a batch of rows; nil starts
// a fresh session. Accepted IDs are added to seen as soon as they are accepted.
func (c *Catalog) AggregateRow(ctx context.Context, rowID string, minCount int, seen *SeenSet) models.RowResult {
	row, ok := GetRowConfig(rowID)
	if !ok {
		c.logger.Warn("catalog.row.unknown", "row_id", rowID)
		return models.RowResult{
			RowID:  rowID,
			Items:  []models.MediaItem{},
			Status: models.RowUnknown,
			Err:    fmt.Errorf("%w: %s", ErrUnknownRow, rowID),
		}
	}
	if seen == nil {
		seen = NewSeenSet()
	}

	result := models.RowResult{
		RowID:     row.ID,
		Title:     row.Title,
		MediaType: row.MediaType,
		Items:     make([]models.MediaItem, 0, max(minCount, 0)),
	}

	for page := 1; len(result.Items) < minCount && page <= MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			result.Status = models.RowUpstreamError
			result.Err = err
			break
		}

		pr := c.fetchPage(ctx, row, page)
		result.PagesFetched++

		if pr.Status != models.PageOK {
			if pr.Status == models.PageUpstreamError || pr.Status == models.PageNotFound {
				c.logger.Warn("catalog.row.page_failed",
					"row_id", row.ID, "category", row.Category, "page", page, "status", pr.Status, "error", pr.Err)
				result.Status = models.RowUpstreamError
				result.Err = pr.Err
			} else {
				result.Status = models.RowExhausted
			}
			break
		}

		items := c.AttachCategories(ctx, pr.Items, row.MediaType)
		for i := range items {
			if len(result.Items) == minCount {
				break
			}
			item := &items[i]
			if !item.HasPoster() || !PassesRegionalRule(row, item) || seen.Has(item.ID) {
				continue
			}
			seen.Add(item.ID)
			result.Items = append(result.Items, *item)
		}

		if len(result.Items) < minCount && pr.TotalPages > 0 && page >= pr.TotalPages {
			result.Status = models.RowExhausted
			break
		}
	}

	if result.Status == "" {
		if len(result.Items) >= minCount {
			result.Status = models.RowComplete
		} else {
			result.Status = models.RowPageCeiling
		}
	}

	c.logger.Debug("catalog.row.aggregated",
		"row_id", row.ID, "items", len(result.Items), "pages", result.PagesFetched, "status", result.Status)
	return result
}

// AggregateRows aggregates rowIDs in order against one seen set, so a title
// shared by two rows appears only in the first of them.
func (c *Catalog) AggregateRows(ctx context.Context, rowIDs []string, minCount int, seen *SeenSet) []models.RowResult {
	if seen == nil {
		seen = NewSeenSet()
	}

	results := make([]models.RowResult, 0, len(rowIDs))
	for _, rowID := range rowIDs {
		results = append(results, c.AggregateRow(ctx, rowID, minCount, seen))
	}
	return results
}
