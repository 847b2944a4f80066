package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/otakulist/narabe/internal/services"
	"github.com/otakulist/narabe/pkg/models"
)

type AuthHandler struct {
	authService *services.AuthService
	validator   *validator.Validate
	logger      *logrus.Logger
}

func NewAuthHandler(authService *services.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validator.New(),
		logger:      logger,
	}
}

// Token exchanges an API key for a session JWT scoped to one user.
func (h *AuthHandler) Token(c *gin.Context) {
	var req models.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Invalid request body format",
			},
		})
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	clientID, err := h.authService.ValidateAPIKey(req.APIKey)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    "INVALID_API_KEY",
				"message": "Invalid API key",
			},
		})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "Invalid user ID format",
			},
		})
		return
	}

	token, err := h.authService.GenerateToken(userID, req.APIKey, clientID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "TOKEN_GENERATION_FAILED",
				"message": "Failed to generate token",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.authService.TokenTTL()),
		ClientID:  clientID,
	})
}

// Revoke drops the caller's session, invalidating outstanding tokens.
func (h *AuthHandler) Revoke(c *gin.Context) {
	userID, _, _ := getAuthContext(c)

	if err := h.authService.RevokeToken(userID); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to revoke session")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "REVOKE_FAILED",
				"message": "Failed to revoke session",
			},
		})
		return
	}

	c.Status(http.StatusNoContent)
}

func getAuthContext(c *gin.Context) (uuid.UUID, string, string) {
	userID, _ := c.Get("user_id")
	clientID, _ := c.Get("client_id")
	apiKey, _ := c.Get("api_key")

	id, _ := userID.(uuid.UUID)
	client, _ := clientID.(string)
	key, _ := apiKey.(string)
	return id, client, key
}
