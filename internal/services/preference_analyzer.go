package services

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/otakulist/narabe/pkg/models"
)

// Rating pattern thresholds on the mean of the user's explicit ratings.
const (
	strictThreshold   = 6.5
	generousThreshold = 8.0
)

// Unrated completions still say something about taste; they count at a
// neutral score when accumulating genre weight.
const impliedRating = 6.0

// Length buckets in native units (episodes for anime, chapters for manga).
const (
	animeShortMax = 12
	animeMediumMax = 26
	mangaShortMax = 30
	mangaMediumMax = 100
)

// PreferenceAnalyzer derives a taste profile from a user's list history. It
// is pure and stateless: the same history always yields the same profile,
// which is what lets the three recommenders run concurrently against it.
type PreferenceAnalyzer struct{}

func NewPreferenceAnalyzer() *PreferenceAnalyzer {
	return &PreferenceAnalyzer{}
}

// Analyze builds the profile from the user's list entries. Entries that are
// neither completed nor rated contribute only to the completion rate. A user
// with no usable entries gets the zero profile with LowConfidence set; the
// aggregator substitutes popularity fallbacks downstream.
func (a *PreferenceAnalyzer) Analyze(entries []models.HistoryEntry) models.PreferenceProfile {
	profile := models.PreferenceProfile{}

	var usable []models.HistoryEntry
	completed := 0
	for _, e := range entries {
		if e.Completed() {
			completed++
		}
		if e.Completed() || e.Rated() {
			usable = append(usable, e)
		}
	}

	if len(entries) > 0 {
		profile.CompletionRate = float64(completed) / float64(len(entries))
	}
	profile.ItemCount = len(usable)

	if len(usable) == 0 {
		profile.LowConfidence = true
		return profile
	}

	profile.GenreWeights = a.genreWeights(usable)
	profile.AvgRating, profile.RatingPattern = a.ratingPattern(usable)
	profile.LengthPreference = a.lengthPreference(usable)
	profile.MediaTypeRatio = a.mediaTypeRatio(usable)
	profile.DiversityScore = a.diversity(profile.GenreWeights)

	return profile
}

// genreWeights accumulates the user's rating per genre and normalizes the
// distribution to sum to 1.0, heaviest genre first. Ties sort by genre name
// for determinism.
func (a *PreferenceAnalyzer) genreWeights(entries []models.HistoryEntry) []models.GenreWeight {
	raw := make(map[string]float64)
	for _, e := range entries {
		rating := e.Rating
		if !e.Rated() {
			rating = impliedRating
		}
		for _, genre := range e.Item.Genres {
			raw[genre] += rating
		}
	}

	if len(raw) == 0 {
		return nil
	}

	total := 0.0
	for _, w := range raw {
		total += w
	}

	weights := make([]models.GenreWeight, 0, len(raw))
	for genre, w := range raw {
		weights = append(weights, models.GenreWeight{Genre: genre, Weight: w / total})
	}

	sort.Slice(weights, func(i, j int) bool {
		if weights[i].Weight != weights[j].Weight {
			return weights[i].Weight > weights[j].Weight
		}
		return weights[i].Genre < weights[j].Genre
	})

	return weights
}

func (a *PreferenceAnalyzer) ratingPattern(entries []models.HistoryEntry) (float64, models.RatingPattern) {
	sum, n := 0.0, 0
	for _, e := range entries {
		if e.Rated() {
			sum += e.Rating
			n++
		}
	}
	if n == 0 {
		return 0, models.RatingPatternModerate
	}

	avg := sum / float64(n)
	switch {
	case avg < strictThreshold:
		return avg, models.RatingPatternStrict
	case avg <= generousThreshold:
		return avg, models.RatingPatternModerate
	default:
		return avg, models.RatingPatternGenerous
	}
}

// lengthPreference picks the modal length bucket of the user's entries.
// Ties resolve short < medium < long, matching the bucket scan order.
func (a *PreferenceAnalyzer) lengthPreference(entries []models.HistoryEntry) models.LengthPreference {
	counts := map[models.LengthPreference]int{}
	for _, e := range entries {
		counts[bucketFor(e.Item)]++
	}

	best := models.LengthMedium
	bestCount := -1
	for _, bucket := range []models.LengthPreference{models.LengthShort, models.LengthMedium, models.LengthLong} {
		if counts[bucket] > bestCount {
			best = bucket
			bestCount = counts[bucket]
		}
	}
	return best
}

func bucketFor(item models.CatalogItem) models.LengthPreference {
	units := item.LengthUnits()
	shortMax, mediumMax := animeShortMax, animeMediumMax
	if item.MediaType == models.MediaTypeManga {
		shortMax, mediumMax = mangaShortMax, mangaMediumMax
	}

	switch {
	case units <= shortMax:
		return models.LengthShort
	case units <= mediumMax:
		return models.LengthMedium
	default:
		return models.LengthLong
	}
}

func (a *PreferenceAnalyzer) mediaTypeRatio(entries []models.HistoryEntry) float64 {
	anime := 0
	for _, e := range entries {
		if e.Item.MediaType == models.MediaTypeAnime {
			anime++
		}
	}
	return float64(anime) / float64(len(entries))
}

// diversity is the Shannon entropy of the genre distribution, normalized to
// [0,1] by the maximum entropy for that many genres. One genre means zero
// spread.
func (a *PreferenceAnalyzer) diversity(weights []models.GenreWeight) float64 {
	if len(weights) < 2 {
		return 0
	}

	dist := make([]float64, len(weights))
	for i, gw := range weights {
		dist[i] = gw.Weight
	}

	entropy := stat.Entropy(dist)
	return entropy / math.Log(float64(len(dist)))
}
