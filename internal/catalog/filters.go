package catalog

import (
	"strings"

	"github.com/mozillazg/go-unidecode"

	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

// internationalRows maps row IDs to the origin country their items must carry.
var internationalRows = map[string]string{
	RowKDrama:        "KR",
	RowAnime:         "JP",
	RowBritishComedy: "GB",
}

// PassesRegionalRule reports whether item may appear in row.
// International rows accept only their own origin country. Other TV rows
// accept US origin or English original language. Movies are unrestricted.
func PassesRegionalRule(row models.RowConfig, item *models.MediaItem) bool {
	if country, ok := internationalRows[row.ID]; ok {
		return hasCountry(item.OriginCountry, country)
	}

	if row.MediaType == models.MediaTypeTV {
		return hasCountry(item.OriginCountry, "US") || strings.EqualFold(item.OriginalLanguage, "en")
	}

	return true
}

func hasCountry(countries []string, code string) bool {
	for _, c := range countries {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// Studio rows require some audience signal.
const (
	studioMinVoteCount   = 20
	studioMinVoteAverage = 5.5
)

// PassesStudioGate reports whether a studio-row item has enough votes. Both bounds are inclusive.
func PassesStudioGate(item *models.MediaItem) bool {
	return item.VoteCount >= studioMinVoteCount && item.VoteAverage >= studioMinVoteAverage
}

func hasAnyGenre(item *models.MediaItem, genres []int) bool {
	for _, id := range item.GenreIDs {
		for _, g := range genres {
			if id == g {
				return true
			}
		}
	}
	return false
}

// normalizeText folds case and diacritics so "Réalité" matches "realite".
func normalizeText(s string) string {
	return strings.ToLower(unidecode.Unidecode(s))
}

// containsKeyword reports whether the title, original title or overview
// contains any of the keywords.
func containsKeyword(item *models.MediaItem, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}

	fields := []string{
		normalizeText(item.DisplayTitle()),
		normalizeText(item.OriginalDisplayTitle()),
		normalizeText(item.Overview),
	}
	for _, kw := range keywords {
		needle := normalizeText(kw)
		for _, f := range fields {
			if strings.Contains(f, needle) {
				return true
			}
		}
	}
	return false
}
