package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/otakulist/narabe/internal/services"
)

type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
	Auth           *AuthHandler
}

func New(logger *logrus.Logger, services *services.Services) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, services.Health),
		Recommendation: NewRecommendationHandler(services.Recommendation, logger),
		Auth:           NewAuthHandler(services.Auth, logger),
	}
}
