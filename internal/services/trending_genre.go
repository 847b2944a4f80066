package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/otakulist/narabe/internal/config"
	"github.com/otakulist/narabe/pkg/models"
)

// TrendingGenreRecommender builds the trending_genres section: well-scored
// catalog titles from the user's heaviest genres, interleaved so no single
// genre dominates the section.
type TrendingGenreRecommender struct {
	catalog CatalogReader
	config  *config.TrendingConfig
	logger  *logrus.Logger
}

func NewTrendingGenreRecommender(catalog CatalogReader, cfg *config.TrendingConfig, logger *logrus.Logger) *TrendingGenreRecommender {
	return &TrendingGenreRecommender{catalog: catalog, config: cfg, logger: logger}
}

// scoreFloor maps the user's rating pattern onto the lower bound of the
// quality band. Strict raters only see the top of the catalog; generous
// raters get a wider band.
func (r *TrendingGenreRecommender) scoreFloor(pattern models.RatingPattern) float64 {
	switch pattern {
	case models.RatingPatternStrict:
		return r.config.StrictFloor
	case models.RatingPatternModerate:
		return r.config.ModerateFloor
	case models.RatingPatternGenerous:
		return r.config.GenerousFloor
	default:
		return r.config.FallbackFloor
	}
}

// Recommend ranks candidates by quality x genre weight within each selected
// genre, then interleaves across genres. The per-genre cap is
// ceil(limit / selected genres), and per-genre rank order is preserved
// through the interleave.
func (r *TrendingGenreRecommender) Recommend(
	ctx context.Context,
	profile *models.PreferenceProfile,
	exclude map[int64]struct{},
	limit int,
) ([]models.RecommendationItem, error) {

	genres := profile.TopGenres(r.config.TopGenres)
	if len(genres) == 0 {
		return nil, nil
	}

	floor := r.scoreFloor(profile.RatingPattern)

	perGenre := make([][]models.RecommendationItem, 0, len(genres))
	var lastErr error
	for _, gw := range genres {
		items, err := r.catalog.ItemsByGenre(ctx, gw.Genre, floor, 10.0, r.config.CandidatePool)
		if err != nil {
			// A single bad genre query narrows the section instead of
			// killing it; the section fails only if every genre fails.
			lastErr = err
			r.logger.WithError(err).WithField("genre", gw.Genre).Warn("Trending genre query failed")
			continue
		}

		ranked := make([]models.RecommendationItem, 0, len(items))
		for _, item := range items {
			if _, skip := exclude[item.ID]; skip {
				continue
			}
			ranked = append(ranked, models.RecommendationItem{
				Item:  item,
				Score: (item.Score / 10.0) * (0.5 + gw.Weight/2),
				Reasoning: fmt.Sprintf("Trending in %s, one of your top genres (score %.2f)",
					gw.Genre, item.Score),
				ExplanationFactors: []models.ExplanationFactor{
					models.FactorGenreMatch,
					models.FactorScoreMatch,
				},
			})
		}
		perGenre = append(perGenre, ranked)
	}

	if len(perGenre) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("all trending genre queries failed: %w", lastErr)
		}
		return nil, nil
	}

	return interleave(perGenre, limit), nil
}

// interleave round-robins across the per-genre rank lists, capping each
// genre's contribution at ceil(limit / lists) while preserving each list's
// internal order.
func interleave(lists [][]models.RecommendationItem, limit int) []models.RecommendationItem {
	genreCap := (limit + len(lists) - 1) / len(lists)

	taken := make([]int, len(lists))
	out := make([]models.RecommendationItem, 0, limit)

	for len(out) < limit {
		progressed := false
		for i, list := range lists {
			if len(out) == limit {
				break
			}
			if taken[i] >= genreCap || taken[i] >= len(list) {
				continue
			}
			out = append(out, list[taken[i]])
			taken[i]++
			progressed = true
		}
		if !progressed {
			break
		}
	}

	return out
}
