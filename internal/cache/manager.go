package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/otakulist/narabe/internal/config"
	"github.com/otakulist/narabe/pkg/models"
)

// Manager is the read-through/write-through cache over an ordered chain of
// backends (distributed first, in-process fallback second).
//
// Fallback semantics: a backend failure or timeout moves on to the next
// backend for that single call, with no retry against the failed backend. A
// clean miss from a healthy backend is authoritative and ends the lookup;
// answering a primary miss from the local tier could resurrect an entry the
// invalidation trigger already deleted upstream.
type Manager struct {
	backends  []Backend
	ttl       time.Duration
	opTimeout time.Duration
	version   string
	logger    *logrus.Logger

	lookups   *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
}

func NewManager(cfg config.CacheConfig, version string, logger *logrus.Logger, backends ...Backend) *Manager {
	m := &Manager{
		backends:  backends,
		ttl:       cfg.TTL,
		opTimeout: cfg.BackendTimeout,
		version:   version,
		logger:    logger,
	}

	m.lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recommendation_cache_lookups_total",
		Help: "Cache lookup outcomes by backend",
	}, []string{"backend", "result"})

	m.fallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recommendation_cache_fallbacks_total",
		Help: "Backend failures that triggered fallback to the next tier",
	}, []string{"backend", "operation"})

	for _, collector := range []prometheus.Collector{m.lookups, m.fallbacks} {
		if err := prometheus.Register(collector); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				logger.WithError(err).Warn("Failed to register cache metric")
			}
		}
	}

	return m
}

// TTL returns the configured entry lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) key(userID uuid.UUID) string {
	return fmt.Sprintf("rec:%s:%s", m.version, userID.String())
}

// Get looks the user's cached response up across the backend chain. The
// second return is true only on a usable hit; every failure mode degrades to
// a miss and is never surfaced to the caller.
func (m *Manager) Get(ctx context.Context, userID uuid.UUID) (*models.RecommendationResponse, bool) {
	key := m.key(userID)

	for _, backend := range m.backends {
		opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
		data, err := backend.Get(opCtx, key)
		cancel()

		if errors.Is(err, ErrMiss) {
			m.lookups.WithLabelValues(backend.Name(), "miss").Inc()
			return nil, false
		}
		if err != nil {
			m.lookups.WithLabelValues(backend.Name(), "error").Inc()
			m.fallbacks.WithLabelValues(backend.Name(), "get").Inc()
			m.logger.WithError(err).WithField("backend", backend.Name()).
				Warn("Cache backend unavailable, falling back")
			continue
		}

		var resp models.RecommendationResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			m.lookups.WithLabelValues(backend.Name(), "error").Inc()
			m.logger.WithError(err).WithField("backend", backend.Name()).
				Warn("Corrupt cache entry, treating as miss")
			return nil, false
		}

		// Backend TTLs already bound entry life; the payload expiry check
		// guards against drift between tiers.
		if time.Now().After(resp.CacheInfo.ExpiresAt) {
			m.lookups.WithLabelValues(backend.Name(), "expired").Inc()
			m.deleteFrom(ctx, backend, key)
			return nil, false
		}

		m.lookups.WithLabelValues(backend.Name(), "hit").Inc()
		resp.CacheInfo.CacheHit = true
		return &resp, true
	}

	return nil, false
}

// Set stores the response on every backend that is currently reachable. A
// write failure on one backend never fails the request or blocks writes to
// the others.
func (m *Manager) Set(ctx context.Context, userID uuid.UUID, resp *models.RecommendationResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		m.logger.WithError(err).Error("Failed to marshal recommendation payload for cache")
		return
	}

	key := m.key(userID)
	for _, backend := range m.backends {
		opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
		err := backend.Set(opCtx, key, data, m.ttl)
		cancel()

		if err != nil {
			m.fallbacks.WithLabelValues(backend.Name(), "set").Inc()
			m.logger.WithError(err).WithField("backend", backend.Name()).
				Warn("Cache store failed on backend")
		}
	}
}

// Invalidate deletes the user's entry from every reachable backend. It is
// idempotent: an absent entry is not an error. The returned error aggregates
// backend failures so callers can decide whether to retry the whole
// operation (the Kafka consumer does, the HTTP hook just logs).
func (m *Manager) Invalidate(ctx context.Context, userID uuid.UUID) error {
	key := m.key(userID)

	var errs []error
	for _, backend := range m.backends {
		opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
		err := backend.Delete(opCtx, key)
		cancel()

		if err != nil {
			m.fallbacks.WithLabelValues(backend.Name(), "delete").Inc()
			m.logger.WithError(err).WithFields(logrus.Fields{
				"backend": backend.Name(),
				"user_id": userID,
			}).Warn("Cache invalidation failed on backend")
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		}
	}

	return errors.Join(errs...)
}

func (m *Manager) deleteFrom(ctx context.Context, backend Backend, key string) {
	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()
	if err := backend.Delete(opCtx, key); err != nil {
		m.logger.WithError(err).WithField("backend", backend.Name()).
			Debug("Failed to drop expired cache entry")
	}
}
