package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/otakulist/narabe/internal/services"
	"github.com/otakulist/narabe/pkg/models"
)

type RecommendationHandler struct {
	recommender services.RecommendationServiceInterface
	logger      *logrus.Logger
}

func NewRecommendationHandler(
	recommender services.RecommendationServiceInterface,
	logger *logrus.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		logger:      logger,
	}
}

// Get serves GET /api/v1/recommendations/:userId.
//
// Query parameters:
//
//	limit   - items per section, clamped to the configured bounds
//	section - completed_based, trending_genres or hidden_gems; anything
//	          else means all sections
//	refresh - "true" recomputes even when a cached entry is fresh
func (h *RecommendationHandler) Get(c *gin.Context) {
	userIDStr := c.Param("userId")
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "Invalid user ID format",
			},
		})
		return
	}

	// Limit bounds are enforced by the service; out-of-range values clamp
	// rather than 400.
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "INVALID_LIMIT",
					"message": "limit must be an integer",
				},
			})
			return
		}
		limit = parsed
	}

	section := models.ParseSection(c.Query("section"))
	forceRefresh := c.Query("refresh") == "true"

	response, err := h.recommender.GenerateForUser(c.Request.Context(), userID, limit, section, forceRefresh)
	if err != nil {
		if errors.Is(err, services.ErrUpstreamUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": gin.H{
					"code":    "UPSTREAM_UNAVAILABLE",
					"message": "Recommendation sources are temporarily unavailable",
				},
			})
			return
		}

		h.logger.WithError(err).WithField("user_id", userID).
			Error("Failed to generate recommendations")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "RECOMMENDATION_GENERATION_FAILED",
				"message": "Failed to generate recommendations",
			},
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// InvalidateCache serves DELETE /api/v1/recommendations/:userId/cache. The
// operation is idempotent; deleting an absent entry still returns 204.
func (h *RecommendationHandler) InvalidateCache(c *gin.Context) {
	userIDStr := c.Param("userId")
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "Invalid user ID format",
			},
		})
		return
	}

	if err := h.recommender.Invalidate(c.Request.Context(), userID); err != nil {
		// Best effort: a tier that could not be reached will expire the
		// entry by TTL instead.
		h.logger.WithError(err).WithField("user_id", userID).
			Warn("Cache invalidation incomplete")
	}

	c.Status(http.StatusNoContent)
}
