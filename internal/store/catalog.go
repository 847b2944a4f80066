package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/otakulist/narabe/pkg/models"
)

// Querier is the subset of pgxpool.Pool the stores need. Narrowed so tests
// can substitute pgxmock.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// CatalogStore reads catalog entries from Postgres. The catalog is owned by
// the browsing service; this store only selects.
type CatalogStore struct {
	db     Querier
	logger *logrus.Logger
}

func NewCatalogStore(db Querier, logger *logrus.Logger) *CatalogStore {
	return &CatalogStore{db: db, logger: logger}
}

const catalogColumns = `id, title, media_type, genres, score, popularity, episodes, chapters, status, start_year`

func scanCatalogItems(rows pgx.Rows) ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	for rows.Next() {
		var it models.CatalogItem
		if err := rows.Scan(
			&it.ID, &it.Title, &it.MediaType, &it.Genres, &it.Score,
			&it.Popularity, &it.Episodes, &it.Chapters, &it.Status, &it.StartYear,
		); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ItemsByGenre returns catalog entries carrying the genre whose community
// score lies in [minScore, maxScore], best-scored first.
func (s *CatalogStore) ItemsByGenre(ctx context.Context, genre string, minScore, maxScore float64, limit int) ([]models.CatalogItem, error) {
	query := `
		SELECT ` + catalogColumns + `
		FROM titles
		WHERE $1 = ANY(genres)
			AND score >= $2 AND score <= $3
		ORDER BY score DESC, popularity DESC, id ASC
		LIMIT $4`

	rows, err := s.db.Query(ctx, query, genre, minScore, maxScore, limit)
	if err != nil {
		return nil, fmt.Errorf("genre query failed: %w", err)
	}
	defer rows.Close()

	return scanCatalogItems(rows)
}

// ItemsByGenres returns entries matching any of the given genres with a
// score at or above floor. Used by the hidden-gem recommender, which does
// its own popularity filtering on the snapshot.
func (s *CatalogStore) ItemsByGenres(ctx context.Context, genres []string, floor float64, limit int) ([]models.CatalogItem, error) {
	query := `
		SELECT ` + catalogColumns + `
		FROM titles
		WHERE genres && $1
			AND score >= $2
		ORDER BY score DESC, id ASC
		LIMIT $3`

	rows, err := s.db.Query(ctx, query, genres, floor, limit)
	if err != nil {
		return nil, fmt.Errorf("genres query failed: %w", err)
	}
	defer rows.Close()

	return scanCatalogItems(rows)
}

// ItemsByIDs resolves similarity-index neighbor ids to full catalog entries.
// Missing ids are silently absent from the result.
func (s *CatalogStore) ItemsByIDs(ctx context.Context, ids []int64) (map[int64]models.CatalogItem, error) {
	if len(ids) == 0 {
		return map[int64]models.CatalogItem{}, nil
	}

	query := `
		SELECT ` + catalogColumns + `
		FROM titles
		WHERE id = ANY($1)`

	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("ids query failed: %w", err)
	}
	defer rows.Close()

	items, err := scanCatalogItems(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]models.CatalogItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return byID, nil
}

// PopularItems returns the most-listed titles, used as the fallback section
// for users without history.
func (s *CatalogStore) PopularItems(ctx context.Context, limit int) ([]models.CatalogItem, error) {
	query := `
		SELECT ` + catalogColumns + `
		FROM titles
		WHERE score >= 7.0
		ORDER BY popularity DESC, score DESC, id ASC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("popular query failed: %w", err)
	}
	defer rows.Close()

	return scanCatalogItems(rows)
}
