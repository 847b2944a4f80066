package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/otakulist/narabe/pkg/models"
)

type MockCatalogReader struct {
	mock.Mock
}

func (m *MockCatalogReader) ItemsByGenre(ctx context.Context, genre string, minScore, maxScore float64, limit int) ([]models.CatalogItem, error) {
	args := m.Called(ctx, genre, minScore, maxScore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CatalogItem), args.Error(1)
}

func (m *MockCatalogReader) ItemsByGenres(ctx context.Context, genres []string, floor float64, limit int) ([]models.CatalogItem, error) {
	args := m.Called(ctx, genres, floor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CatalogItem), args.Error(1)
}

func (m *MockCatalogReader) ItemsByIDs(ctx context.Context, ids []int64) (map[int64]models.CatalogItem, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]models.CatalogItem), args.Error(1)
}

func (m *MockCatalogReader) PopularItems(ctx context.Context, limit int) ([]models.CatalogItem, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CatalogItem), args.Error(1)
}

type MockHistoryReader struct {
	mock.Mock
}

func (m *MockHistoryReader) UserHistory(ctx context.Context, userID uuid.UUID) ([]models.HistoryEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.HistoryEntry), args.Error(1)
}

type MockSimilarityReader struct {
	mock.Mock
}

func (m *MockSimilarityReader) Neighbors(ctx context.Context, itemID int64, minScore float64, limit int) ([]models.Neighbor, error) {
	args := m.Called(ctx, itemID, minScore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Neighbor), args.Error(1)
}
