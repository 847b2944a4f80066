package store

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/otakulist/narabe/pkg/models"
)

// SimilarityIndex reads the offline-built item-item nearest-neighbor graph.
// The index builder maintains (:Title)-[:SIMILAR {score}]->(:Title) edges;
// this service only ever streams them.
type SimilarityIndex struct {
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

func NewSimilarityIndex(driver neo4j.DriverWithContext, logger *logrus.Logger) *SimilarityIndex {
	return &SimilarityIndex{driver: driver, logger: logger}
}

// Neighbors returns up to limit nearest neighbors of itemID with similarity
// at or above minScore, strongest first.
func (s *SimilarityIndex) Neighbors(ctx context.Context, itemID int64, minScore float64, limit int) ([]models.Neighbor, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (t:Title {title_id: $itemId})-[r:SIMILAR]->(n:Title)
		WHERE r.score >= $minScore
		RETURN n.title_id AS item_id, r.score AS score
		ORDER BY r.score DESC
		LIMIT $limit`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"itemId":   itemID,
		"minScore": minScore,
		"limit":    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("neighbor query failed: %w", err)
	}

	var neighbors []models.Neighbor
	for result.Next(ctx) {
		record := result.Record()
		id, ok := record.Values[0].(int64)
		if !ok {
			s.logger.WithField("item_id", itemID).Warn("Unexpected neighbor id type in similarity index")
			continue
		}
		score, ok := record.Values[1].(float64)
		if !ok {
			continue
		}
		neighbors = append(neighbors, models.Neighbor{ItemID: id, Similarity: score})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("neighbor stream failed: %w", err)
	}

	return neighbors, nil
}
