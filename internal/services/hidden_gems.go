package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/otakulist/narabe/internal/config"
	"github.com/otakulist/narabe/pkg/models"
)

// HiddenGemRecommender builds the hidden_gems section: high-quality titles
// whose popularity sits below the discovery percentile of the candidate
// snapshot, restricted to genres the user already likes.
type HiddenGemRecommender struct {
	catalog CatalogReader
	config  *config.HiddenGemsConfig
	logger  *logrus.Logger
}

func NewHiddenGemRecommender(catalog CatalogReader, cfg *config.HiddenGemsConfig, logger *logrus.Logger) *HiddenGemRecommender {
	return &HiddenGemRecommender{catalog: catalog, config: cfg, logger: logger}
}

// Recommend scores candidates by a quality/discoverability composite:
// quality_weight * (score/10) + discovery_weight * (1 - popularity/max).
// Both terms are in [0,1] and the weights sum to 1, so the composite is too.
func (r *HiddenGemRecommender) Recommend(
	ctx context.Context,
	profile *models.PreferenceProfile,
	exclude map[int64]struct{},
	limit int,
) ([]models.RecommendationItem, error) {

	if len(profile.GenreWeights) == 0 {
		return nil, nil
	}

	genres := make([]string, len(profile.GenreWeights))
	for i, gw := range profile.GenreWeights {
		genres[i] = gw.Genre
	}

	candidates, err := r.catalog.ItemsByGenres(ctx, genres, r.config.QualityFloor, r.config.CandidatePool)
	if err != nil {
		return nil, fmt.Errorf("hidden gem candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	cutoff, maxPopularity := r.popularityCutoff(candidates)

	results := make([]models.RecommendationItem, 0, limit)
	for _, item := range candidates {
		if _, skip := exclude[item.ID]; skip {
			continue
		}
		if float64(item.Popularity) >= cutoff {
			continue
		}

		normScore := item.Score / 10.0
		normPopularity := 0.0
		if maxPopularity > 0 {
			normPopularity = float64(item.Popularity) / maxPopularity
		}
		composite := r.config.QualityWeight*normScore + r.config.DiscoveryWeight*(1-normPopularity)

		results = append(results, models.RecommendationItem{
			Item:  item,
			Score: composite,
			Reasoning: fmt.Sprintf("Hidden gem in %s: scored %.2f but still flying under the radar",
				firstProfileGenre(item, profile), item.Score),
			ExplanationFactors: []models.ExplanationFactor{
				models.FactorHiddenGem,
				models.FactorGenreMatch,
				models.FactorScoreMatch,
			},
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Item.Score != results[j].Item.Score {
			return results[i].Item.Score > results[j].Item.Score
		}
		return results[i].Item.ID < results[j].Item.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// popularityCutoff computes the discovery threshold over the candidate
// snapshot: anything at or above the configured percentile is too well
// known to be a gem.
func (r *HiddenGemRecommender) popularityCutoff(candidates []models.CatalogItem) (cutoff, max float64) {
	pops := make([]float64, len(candidates))
	for i, item := range candidates {
		pops[i] = float64(item.Popularity)
		if pops[i] > max {
			max = pops[i]
		}
	}
	sort.Float64s(pops)

	cutoff = stat.Quantile(r.config.DiscoveryPercentile, stat.Empirical, pops, nil)
	if cutoff <= 0 {
		// Degenerate snapshot (all zero popularity); let everything through.
		cutoff = max + 1
	}
	return cutoff, max
}

func firstProfileGenre(item models.CatalogItem, profile *models.PreferenceProfile) string {
	for _, gw := range profile.GenreWeights {
		if item.HasGenre(gw.Genre) {
			return gw.Genre
		}
	}
	if len(item.Genres) > 0 {
		return item.Genres[0]
	}
	return "your genres"
}
