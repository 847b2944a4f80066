package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/otakulist/narabe/internal/config"
	"github.com/otakulist/narabe/pkg/models"
)

func trendingConfig() *config.TrendingConfig {
	return &config.TrendingConfig{
		TopGenres:     3,
		CandidatePool: 50,
		StrictFloor:   8.0,
		ModerateFloor: 7.0,
		GenerousFloor: 6.0,
		FallbackFloor: 7.0,
	}
}

func trendingProfile() *models.PreferenceProfile {
	return &models.PreferenceProfile{
		GenreWeights: []models.GenreWeight{
			{Genre: "Action", Weight: 0.5},
			{Genre: "Drama", Weight: 0.3},
			{Genre: "Comedy", Weight: 0.2},
		},
		RatingPattern: models.RatingPatternModerate,
	}
}

func genreItems(genre string, base int64, n int) []models.CatalogItem {
	items := make([]models.CatalogItem, n)
	for i := range items {
		items[i] = models.CatalogItem{
			ID:     base + int64(i),
			Title:  fmt.Sprintf("%s %d", genre, i),
			Genres: []string{genre},
			Score:  9.0 - float64(i)*0.1,
		}
	}
	return items
}

func TestTrendingGenreRecommender_Recommend(t *testing.T) {
	catalog := new(MockCatalogReader)
	r := NewTrendingGenreRecommender(catalog, trendingConfig(), testLogger())

	catalog.On("ItemsByGenre", mock.Anything, "Action", 7.0, 10.0, 50).Return(genreItems("Action", 100, 10), nil)
	catalog.On("ItemsByGenre", mock.Anything, "Drama", 7.0, 10.0, 50).Return(genreItems("Drama", 200, 10), nil)
	catalog.On("ItemsByGenre", mock.Anything, "Comedy", 7.0, 10.0, 50).Return(genreItems("Comedy", 300, 10), nil)

	results, err := r.Recommend(context.Background(), trendingProfile(), nil, 6)
	require.NoError(t, err)
	require.Len(t, results, 6)

	// Round-robin interleave: one per genre in rotation
	assert.Equal(t, int64(100), results[0].Item.ID)
	assert.Equal(t, int64(200), results[1].Item.ID)
	assert.Equal(t, int64(300), results[2].Item.ID)
	assert.Equal(t, int64(101), results[3].Item.ID)

	// Score blends quality and genre weight: 0.9 * (0.5 + 0.5/2)
	assert.InDelta(t, 0.9*0.75, results[0].Score, 1e-6)

	for _, item := range results {
		assert.Contains(t, item.ExplanationFactors, models.FactorGenreMatch)
		assert.Contains(t, item.ExplanationFactors, models.FactorScoreMatch)
	}
}

func TestTrendingGenreRecommender_PerGenreCap(t *testing.T) {
	catalog := new(MockCatalogReader)
	r := NewTrendingGenreRecommender(catalog, trendingConfig(), testLogger())

	catalog.On("ItemsByGenre", mock.Anything, "Action", 7.0, 10.0, 50).Return(genreItems("Action", 100, 50), nil)
	catalog.On("ItemsByGenre", mock.Anything, "Drama", 7.0, 10.0, 50).Return(genreItems("Drama", 200, 2), nil)
	catalog.On("ItemsByGenre", mock.Anything, "Comedy", 7.0, 10.0, 50).Return(genreItems("Comedy", 300, 2), nil)

	results, err := r.Recommend(context.Background(), trendingProfile(), nil, 20)
	require.NoError(t, err)

	// Cap is ceil(20/3) = 7, so a dominant genre cannot fill the section
	perGenre := map[string]int{}
	for _, item := range results {
		perGenre[item.Item.Genres[0]]++
	}
	assert.LessOrEqual(t, perGenre["Action"], 7)
	assert.Equal(t, 2, perGenre["Drama"])
	assert.Equal(t, 2, perGenre["Comedy"])
}

func TestTrendingGenreRecommender_ScoreFloorByPattern(t *testing.T) {
	r := NewTrendingGenreRecommender(nil, trendingConfig(), testLogger())

	assert.Equal(t, 8.0, r.scoreFloor(models.RatingPatternStrict))
	assert.Equal(t, 7.0, r.scoreFloor(models.RatingPatternModerate))
	assert.Equal(t, 6.0, r.scoreFloor(models.RatingPatternGenerous))
	assert.Equal(t, 7.0, r.scoreFloor(models.RatingPattern("")))
}

func TestTrendingGenreRecommender_PartialGenreFailure(t *testing.T) {
	catalog := new(MockCatalogReader)
	r := NewTrendingGenreRecommender(catalog, trendingConfig(), testLogger())

	catalog.On("ItemsByGenre", mock.Anything, "Action", 7.0, 10.0, 50).Return(nil, errors.New("db timeout"))
	catalog.On("ItemsByGenre", mock.Anything, "Drama", 7.0, 10.0, 50).Return(genreItems("Drama", 200, 5), nil)
	catalog.On("ItemsByGenre", mock.Anything, "Comedy", 7.0, 10.0, 50).Return(genreItems("Comedy", 300, 5), nil)

	results, err := r.Recommend(context.Background(), trendingProfile(), nil, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
	for _, item := range results {
		assert.NotEqual(t, "Action", item.Item.Genres[0])
	}
}

func TestTrendingGenreRecommender_AllGenresFail(t *testing.T) {
	catalog := new(MockCatalogReader)
	r := NewTrendingGenreRecommender(catalog, trendingConfig(), testLogger())

	catalog.On("ItemsByGenre", mock.Anything, mock.Anything, 7.0, 10.0, 50).Return(nil, errors.New("db down"))

	_, err := r.Recommend(context.Background(), trendingProfile(), nil, 10)
	assert.Error(t, err)
}

func TestTrendingGenreRecommender_EmptyProfile(t *testing.T) {
	catalog := new(MockCatalogReader)
	r := NewTrendingGenreRecommender(catalog, trendingConfig(), testLogger())

	results, err := r.Recommend(context.Background(), &models.PreferenceProfile{}, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
	catalog.AssertNotCalled(t, "ItemsByGenre", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInterleave(t *testing.T) {
	lists := [][]models.RecommendationItem{
		{{Item: models.CatalogItem{ID: 1}}, {Item: models.CatalogItem{ID: 2}}},
		{{Item: models.CatalogItem{ID: 10}}},
	}

	out := interleave(lists, 4)
	require.Len(t, out, 3)
	assert.Equal(t, int64(1), out[0].Item.ID)
	assert.Equal(t, int64(10), out[1].Item.ID)
	assert.Equal(t, int64(2), out[2].Item.ID)
}
