package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/otakulist/narabe/pkg/models"
)

// CatalogReader is the read contract of the catalog store.
type CatalogReader interface {
	ItemsByGenre(ctx context.Context, genre string, minScore, maxScore float64, limit int) ([]models.CatalogItem, error)
	ItemsByGenres(ctx context.Context, genres []string, floor float64, limit int) ([]models.CatalogItem, error)
	ItemsByIDs(ctx context.Context, ids []int64) (map[int64]models.CatalogItem, error)
	PopularItems(ctx context.Context, limit int) ([]models.CatalogItem, error)
}

// HistoryReader is the read contract of the user history store.
type HistoryReader interface {
	UserHistory(ctx context.Context, userID uuid.UUID) ([]models.HistoryEntry, error)
}

// SimilarityReader is the read contract of the offline-built similarity
// index.
type SimilarityReader interface {
	Neighbors(ctx context.Context, itemID int64, minScore float64, limit int) ([]models.Neighbor, error)
}

// RecommendationServiceInterface is what the HTTP and Kafka surfaces consume.
type RecommendationServiceInterface interface {
	GenerateForUser(ctx context.Context, userID uuid.UUID, limit int, section models.Section, forceRefresh bool) (*models.RecommendationResponse, error)
	Invalidate(ctx context.Context, userID uuid.UUID) error
}
