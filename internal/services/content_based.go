package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/otakulist/narabe/internal/config"
	"github.com/otakulist/narabe/pkg/models"
)

// ContentBasedRecommender builds the completed_based section: nearest
// neighbors of the user's completed titles, weighted by how much and how
// recently the user liked the source title.
type ContentBasedRecommender struct {
	similarity SimilarityReader
	catalog    CatalogReader
	config     *config.ContentBasedConfig
	logger     *logrus.Logger
}

func NewContentBasedRecommender(
	similarity SimilarityReader,
	catalog CatalogReader,
	cfg *config.ContentBasedConfig,
	logger *logrus.Logger,
) *ContentBasedRecommender {
	return &ContentBasedRecommender{
		similarity: similarity,
		catalog:    catalog,
		config:     cfg,
		logger:     logger,
	}
}

type neighborScore struct {
	total      float64
	bestSource string // title of the strongest contributing completion
	bestWeight float64
}

// Recommend aggregates neighbor contributions across the user's completed
// items, drops anything in the exclusion set, and returns the top
// candidates. Sort order is deterministic: aggregated score desc, then
// popularity desc, then lower item id.
func (r *ContentBasedRecommender) Recommend(
	ctx context.Context,
	history []models.HistoryEntry,
	profile *models.PreferenceProfile,
	exclude map[int64]struct{},
	limit int,
) ([]models.RecommendationItem, error) {

	completed := completedEntries(history, r.config.MaxCompletedItems)
	if len(completed) == 0 {
		return nil, nil
	}

	now := time.Now()
	scores := make(map[int64]*neighborScore)

	for _, entry := range completed {
		neighbors, err := r.similarity.Neighbors(ctx, entry.Item.ID, r.config.MinSimilarity, r.config.NeighborsPerItem)
		if err != nil {
			return nil, fmt.Errorf("similarity lookup for item %d: %w", entry.Item.ID, err)
		}

		weight := r.sourceWeight(entry, now)
		for _, n := range neighbors {
			if _, skip := exclude[n.ItemID]; skip {
				continue
			}
			contribution := n.Similarity * weight

			s, ok := scores[n.ItemID]
			if !ok {
				s = &neighborScore{}
				scores[n.ItemID] = s
			}
			s.total += contribution
			if contribution > s.bestWeight {
				s.bestWeight = contribution
				s.bestSource = entry.Item.Title
			}
		}
	}

	if len(scores) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(scores))
	maxScore := 0.0
	for id, s := range scores {
		ids = append(ids, id)
		if s.total > maxScore {
			maxScore = s.total
		}
	}

	items, err := r.catalog.ItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve neighbor candidates: %w", err)
	}

	topGenres := genreSet(profile.TopGenres(3))

	results := make([]models.RecommendationItem, 0, len(items))
	for id, item := range items {
		s := scores[id]

		factors := []models.ExplanationFactor{models.FactorContentMatch}
		if itemMatchesGenres(item, topGenres) {
			factors = append(factors, models.FactorGenreMatch)
		}

		results = append(results, models.RecommendationItem{
			Item:               item,
			Score:              s.total / maxScore,
			Reasoning:          fmt.Sprintf("Similar to %s, which you completed", s.bestSource),
			ExplanationFactors: factors,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Item.Popularity != results[j].Item.Popularity {
			return results[i].Item.Popularity > results[j].Item.Popularity
		}
		return results[i].Item.ID < results[j].Item.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// sourceWeight combines how the user scored the completion with how recent
// it is. Ratings scale linearly; recency decays exponentially with the
// configured half-life. Entries without a completion timestamp sit at the
// midpoint rather than being discarded.
func (r *ContentBasedRecommender) sourceWeight(entry models.HistoryEntry, now time.Time) float64 {
	ratingWeight := impliedRating / 10.0
	if entry.Rated() {
		ratingWeight = entry.Rating / 10.0
	}

	recencyWeight := 0.5
	if entry.FinishedAt != nil {
		ageDays := now.Sub(*entry.FinishedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		recencyWeight = math.Exp(-math.Ln2 * ageDays / r.config.RecencyHalfLifeDays)
	}

	return ratingWeight * recencyWeight
}

func completedEntries(history []models.HistoryEntry, max int) []models.HistoryEntry {
	var out []models.HistoryEntry
	for _, e := range history {
		if !e.Completed() {
			continue
		}
		out = append(out, e)
		if len(out) == max {
			break
		}
	}
	return out
}

func genreSet(weights []models.GenreWeight) map[string]struct{} {
	set := make(map[string]struct{}, len(weights))
	for _, gw := range weights {
		set[gw.Genre] = struct{}{}
	}
	return set
}

func itemMatchesGenres(item models.CatalogItem, genres map[string]struct{}) bool {
	for _, g := range item.Genres {
		if _, ok := genres[g]; ok {
			return true
		}
	}
	return false
}
