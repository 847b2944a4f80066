package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/otakulist/narabe/internal/cache"
	"github.com/otakulist/narabe/internal/config"
	"github.com/otakulist/narabe/pkg/models"
)

// RecommendationService orchestrates the three section recommenders behind
// the response cache. Sections run concurrently against a shared immutable
// profile; a failed section degrades to empty instead of failing the request.
type RecommendationService struct {
	history  HistoryReader
	catalog  CatalogReader
	analyzer *PreferenceAnalyzer
	content  *ContentBasedRecommender
	trending *TrendingGenreRecommender
	gems     *HiddenGemRecommender
	cache    *cache.Manager
	config   *config.RecommenderConfig
	logger   *logrus.Logger

	sectionDuration *prometheus.HistogramVec
	sectionFailures *prometheus.CounterVec
	requests        *prometheus.CounterVec
}

func NewRecommendationService(
	history HistoryReader,
	catalog CatalogReader,
	similarity SimilarityReader,
	cacheManager *cache.Manager,
	cfg *config.RecommenderConfig,
	logger *logrus.Logger,
) *RecommendationService {
	s := &RecommendationService{
		history:  history,
		catalog:  catalog,
		analyzer: NewPreferenceAnalyzer(),
		content:  NewContentBasedRecommender(similarity, catalog, &cfg.ContentBased, logger),
		trending: NewTrendingGenreRecommender(catalog, &cfg.Trending, logger),
		gems:     NewHiddenGemRecommender(catalog, &cfg.HiddenGems, logger),
		cache:    cacheManager,
		config:   cfg,
		logger:   logger,
	}

	s.sectionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recommendation_section_duration_seconds",
		Help:    "Per-section generation latency",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"section"})

	s.sectionFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recommendation_section_failures_total",
		Help: "Section generators that errored and degraded to empty",
	}, []string{"section"})

	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recommendation_requests_total",
		Help: "Recommendation requests by cache outcome",
	}, []string{"result"})

	for _, collector := range []prometheus.Collector{s.sectionDuration, s.sectionFailures, s.requests} {
		if err := prometheus.Register(collector); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				logger.WithError(err).Warn("Failed to register recommender metric")
			}
		}
	}

	return s
}

// clampLimit bounds the per-section size. Zero and negative values fall back
// to the default; anything above the maximum is capped, not rejected.
func (s *RecommendationService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		return s.config.MaxLimit
	}
	return limit
}

// GenerateForUser serves the user's recommendations, from cache when a fresh
// entry exists. forceRefresh skips the cache read but still stores the
// recomputed result. Only a full (unfiltered) computation is cached; a
// section-filtered request served from cache strips the other sections from
// a copy.
func (s *RecommendationService) GenerateForUser(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
	section models.Section,
	forceRefresh bool,
) (*models.RecommendationResponse, error) {

	limit = s.clampLimit(limit)

	if !forceRefresh {
		if cached, ok := s.cache.Get(ctx, userID); ok {
			s.requests.WithLabelValues("hit").Inc()
			return filterSections(cached, section), nil
		}
	}
	s.requests.WithLabelValues("miss").Inc()

	resp, err := s.generate(ctx, userID, limit, section)
	if err != nil {
		return nil, err
	}

	// Partial responses would poison later unfiltered reads, so only the
	// full computation is written back.
	if section == models.SectionAll {
		s.cache.Set(ctx, userID, resp)
	}

	return resp, nil
}

func (s *RecommendationService) generate(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
	section models.Section,
) (*models.RecommendationResponse, error) {

	history, historyErr := s.history.UserHistory(ctx, userID)
	if historyErr != nil {
		s.logger.WithError(historyErr).WithField("user_id", userID).
			Warn("History fetch failed, degrading to popularity fallback")
		history = nil
	}

	profile := s.analyzer.Analyze(history)

	exclude := make(map[int64]struct{}, len(history))
	for _, e := range history {
		exclude[e.Item.ID] = struct{}{}
	}

	wantContent := section == models.SectionAll || section == models.SectionCompletedBased
	wantTrending := section == models.SectionAll || section == models.SectionTrendingGenres
	wantGems := section == models.SectionAll || section == models.SectionHiddenGems

	var (
		wg       sync.WaitGroup
		sections models.RecommendationSections

		contentErr, trendingErr, gemsErr error
	)

	if wantContent {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sections.CompletedBased, contentErr = s.timed(models.SectionCompletedBased, func() ([]models.RecommendationItem, error) {
				if profile.LowConfidence || historyErr != nil {
					return s.popularityFallback(ctx, exclude, limit)
				}
				return s.content.Recommend(ctx, history, &profile, exclude, limit)
			})
		}()
	}

	if wantTrending {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sections.TrendingGenres, trendingErr = s.timed(models.SectionTrendingGenres, func() ([]models.RecommendationItem, error) {
				return s.trending.Recommend(ctx, &profile, exclude, limit)
			})
		}()
	}

	if wantGems {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sections.HiddenGems, gemsErr = s.timed(models.SectionHiddenGems, func() ([]models.RecommendationItem, error) {
				return s.gems.Recommend(ctx, &profile, exclude, limit)
			})
		}()
	}

	wg.Wait()

	for _, sec := range []struct {
		wanted bool
		err    error
		name   models.Section
	}{
		{wantContent, contentErr, models.SectionCompletedBased},
		{wantTrending, trendingErr, models.SectionTrendingGenres},
		{wantGems, gemsErr, models.SectionHiddenGems},
	} {
		if !sec.wanted || sec.err == nil {
			continue
		}
		s.sectionFailures.WithLabelValues(string(sec.name)).Inc()
		s.logger.WithError(sec.err).WithFields(logrus.Fields{
			"user_id": userID,
			"section": sec.name,
		}).Warn("Section generation failed, returning empty section")
	}

	// With history gone the fallback section reads only the catalog; its
	// failure means both stores are down and there is nothing to serve.
	if historyErr != nil && wantContent && contentErr != nil {
		return nil, fmt.Errorf("%w: history and catalog both failing", ErrUpstreamUnavailable)
	}

	finalizeScores(sections.CompletedBased)
	finalizeScores(sections.TrendingGenres)
	finalizeScores(sections.HiddenGems)
	normalizeSections(&sections)

	topGenres := profile.TopGenres(5)
	if topGenres == nil {
		topGenres = []models.GenreWeight{}
	}

	now := time.Now().UTC()
	return &models.RecommendationResponse{
		Recommendations: sections,
		UserPreferences: models.UserPreferences{
			TopGenres:           topGenres,
			AvgRating:           profile.AvgRating,
			PreferredLength:     profile.LengthPreference,
			CompletionRate:      profile.CompletionRate,
			MediaTypePreference: profile.MediaTypePreference(),
		},
		CacheInfo: models.CacheInfo{
			GeneratedAt:      now,
			ExpiresAt:        now.Add(s.cache.TTL()),
			AlgorithmVersion: s.config.AlgorithmVersion,
			CacheHit:         false,
		},
	}, nil
}

// popularityFallback substitutes globally popular titles when there is no
// usable history to personalize from.
func (s *RecommendationService) popularityFallback(ctx context.Context, exclude map[int64]struct{}, limit int) ([]models.RecommendationItem, error) {
	items, err := s.catalog.PopularItems(ctx, limit+len(exclude))
	if err != nil {
		return nil, fmt.Errorf("popularity fallback: %w", err)
	}

	out := make([]models.RecommendationItem, 0, limit)
	for _, item := range items {
		if _, skip := exclude[item.ID]; skip {
			continue
		}
		out = append(out, models.RecommendationItem{
			Item:      item,
			Score:     item.Score / 10.0,
			Reasoning: "Popular with the community while we learn your taste",
			ExplanationFactors: []models.ExplanationFactor{
				models.FactorNewUserFallback,
				models.FactorPopular,
			},
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *RecommendationService) timed(section models.Section, fn func() ([]models.RecommendationItem, error)) ([]models.RecommendationItem, error) {
	start := time.Now()
	items, err := fn()
	s.sectionDuration.WithLabelValues(string(section)).Observe(time.Since(start).Seconds())
	return items, err
}

// Invalidate drops the user's cached response from every cache tier.
func (s *RecommendationService) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return s.cache.Invalidate(ctx, userID)
}

// finalizeScores normalizes presentation: scores clamp to [0,1] and round to
// three decimals so equal-looking scores compare equal in the payload.
func finalizeScores(items []models.RecommendationItem) {
	for i := range items {
		score := items[i].Score
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		items[i].Score = math.Round(score*1000) / 1000
	}
}

// filterSections returns the response narrowed to the requested section. The
// cached value is shared, so narrowing works on a shallow copy.
func filterSections(resp *models.RecommendationResponse, section models.Section) *models.RecommendationResponse {
	if section == models.SectionAll {
		return resp
	}

	out := *resp
	out.Recommendations = models.RecommendationSections{}
	switch section {
	case models.SectionCompletedBased:
		out.Recommendations.CompletedBased = resp.Recommendations.CompletedBased
	case models.SectionTrendingGenres:
		out.Recommendations.TrendingGenres = resp.Recommendations.TrendingGenres
	case models.SectionHiddenGems:
		out.Recommendations.HiddenGems = resp.Recommendations.HiddenGems
	}
	normalizeSections(&out.Recommendations)
	return &out
}

// normalizeSections replaces nil section slices with empty ones so the
// payload serializes every section as an array, never null.
func normalizeSections(s *models.RecommendationSections) {
	if s.CompletedBased == nil {
		s.CompletedBased = []models.RecommendationItem{}
	}
	if s.TrendingGenres == nil {
		s.TrendingGenres = []models.RecommendationItem{}
	}
	if s.HiddenGems == nil {
		s.HiddenGems = []models.RecommendationItem{}
	}
}
