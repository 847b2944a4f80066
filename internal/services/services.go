package services

import (
	"github.com/sirupsen/logrus"

	"github.com/otakulist/narabe/internal/cache"
	"github.com/otakulist/narabe/internal/config"
	"github.com/otakulist/narabe/internal/database"
	"github.com/otakulist/narabe/internal/store"
)

type Services struct {
	Auth           *AuthService
	Health         *HealthService
	RateLimit      *RateLimitService
	Cache          *cache.Manager
	LocalCache     *cache.LocalBackend
	Recommendation *RecommendationService
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	authService := NewAuthService(cfg, logger, db.Redis)
	healthService := NewHealthService(cfg, logger, db)
	rateLimitService := NewRateLimitService(cfg, logger, db.Redis)

	// Redis is the shared tier, the in-process map the fallback when Redis
	// is unreachable.
	localBackend := cache.NewLocalBackend(cfg.Cache.LocalMaxEntries, cfg.Cache.LocalSweepPeriod)
	cacheManager := cache.NewManager(
		cfg.Cache, cfg.Recommender.AlgorithmVersion, logger,
		cache.NewRedisBackend(db.Redis), localBackend,
	)

	catalogStore := store.NewCatalogStore(db.PG, logger)
	historyStore := store.NewHistoryStore(db.PG, logger)
	similarityIndex := store.NewSimilarityIndex(db.Neo4j, logger)

	recommendationService := NewRecommendationService(
		historyStore, catalogStore, similarityIndex,
		cacheManager, &cfg.Recommender, logger,
	)

	return &Services{
		Auth:           authService,
		Health:         healthService,
		RateLimit:      rateLimitService,
		Cache:          cacheManager,
		LocalCache:     localBackend,
		Recommendation: recommendationService,
	}, nil
}

// Stop releases background resources owned by the service layer.
func (s *Services) Stop() {
	if s.LocalCache != nil {
		s.LocalCache.Stop()
	}
}
