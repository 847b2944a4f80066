package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otakulist/narabe/internal/config"
	"github.com/otakulist/narabe/pkg/models"
)

// failingBackend simulates an unreachable tier: every call errors.
type failingBackend struct{}

func (failingBackend) Name() string { return "failing" }

func (failingBackend) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("down")
}

func (failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}

func (failingBackend) Delete(context.Context, string) error {
	return errors.New("down")
}

func cacheTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testResponse(ttl time.Duration) *models.RecommendationResponse {
	now := time.Now().UTC()
	return &models.RecommendationResponse{
		Recommendations: models.RecommendationSections{
			CompletedBased: []models.RecommendationItem{
				{
					Item:               models.CatalogItem{ID: 42, Title: "Mushishi", Score: 8.7},
					Score:              0.931,
					Reasoning:          "Similar to Natsume's Book of Friends, which you completed",
					ExplanationFactors: []models.ExplanationFactor{models.FactorContentMatch},
				},
			},
		},
		UserPreferences: models.UserPreferences{
			TopGenres: []models.GenreWeight{{Genre: "Slice of Life", Weight: 0.6}, {Genre: "Mystery", Weight: 0.4}},
		},
		CacheInfo: models.CacheInfo{
			GeneratedAt:      now,
			ExpiresAt:        now.Add(ttl),
			AlgorithmVersion: "v2.1",
		},
	}
}

func newTestManager(backends ...Backend) *Manager {
	return NewManager(config.CacheConfig{
		TTL:            30 * time.Minute,
		BackendTimeout: 50 * time.Millisecond,
	}, "v2.1", cacheTestLogger(), backends...)
}

func TestManager_SetGetRoundTrip(t *testing.T) {
	local := NewLocalBackend(10, 0)
	m := newTestManager(local)

	userID := uuid.New()
	ctx := context.Background()

	_, ok := m.Get(ctx, userID)
	assert.False(t, ok)

	resp := testResponse(30 * time.Minute)
	m.Set(ctx, userID, resp)

	got, ok := m.Get(ctx, userID)
	require.True(t, ok)
	assert.True(t, got.CacheInfo.CacheHit)
	assert.Equal(t, resp.Recommendations.CompletedBased, got.Recommendations.CompletedBased)
	assert.Equal(t, resp.UserPreferences.TopGenres, got.UserPreferences.TopGenres)
}

func TestManager_FallbackOnBackendFailure(t *testing.T) {
	local := NewLocalBackend(10, 0)
	m := newTestManager(failingBackend{}, local)

	userID := uuid.New()
	ctx := context.Background()

	// Set writes to every reachable backend; the failing tier is skipped
	m.Set(ctx, userID, testResponse(30*time.Minute))

	// Get falls through the failing tier to the local one
	got, ok := m.Get(ctx, userID)
	require.True(t, ok)
	assert.True(t, got.CacheInfo.CacheHit)
}

func TestManager_CleanMissIsAuthoritative(t *testing.T) {
	empty := NewLocalBackend(10, 0)
	populated := NewLocalBackend(10, 0)
	m := newTestManager(empty, populated)

	userID := uuid.New()
	ctx := context.Background()

	// Seed only the second tier directly
	secondary := newTestManager(populated)
	secondary.Set(ctx, userID, testResponse(30*time.Minute))

	// A healthy first tier missing the key ends the lookup; the stale
	// second tier must not answer
	_, ok := m.Get(ctx, userID)
	assert.False(t, ok)
}

func TestManager_ExpiredPayloadIsAMiss(t *testing.T) {
	local := NewLocalBackend(10, 0)
	m := newTestManager(local)

	userID := uuid.New()
	ctx := context.Background()

	// Payload expiry in the past even though the backend TTL is long
	m.Set(ctx, userID, testResponse(-time.Minute))

	_, ok := m.Get(ctx, userID)
	assert.False(t, ok)
	assert.Zero(t, local.Len())
}

func TestManager_Invalidate(t *testing.T) {
	local := NewLocalBackend(10, 0)
	m := newTestManager(local)

	userID := uuid.New()
	ctx := context.Background()

	m.Set(ctx, userID, testResponse(30*time.Minute))
	require.NoError(t, m.Invalidate(ctx, userID))

	_, ok := m.Get(ctx, userID)
	assert.False(t, ok)

	// Idempotent: deleting an absent entry is not an error
	require.NoError(t, m.Invalidate(ctx, userID))
}

func TestManager_InvalidateAggregatesFailures(t *testing.T) {
	local := NewLocalBackend(10, 0)
	m := newTestManager(failingBackend{}, local)

	userID := uuid.New()
	ctx := context.Background()

	m.Set(ctx, userID, testResponse(30*time.Minute))

	// The failing tier reports its error, the local delete still happens
	err := m.Invalidate(ctx, userID)
	require.Error(t, err)

	_, ok := m.Get(ctx, userID)
	assert.False(t, ok)
}

func TestManager_KeyIncludesVersion(t *testing.T) {
	m := newTestManager(NewLocalBackend(10, 0))
	userID := uuid.New()

	key := m.key(userID)
	assert.Contains(t, key, "v2.1")
	assert.Contains(t, key, userID.String())
}
