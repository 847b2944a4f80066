package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/otakulist/narabe/pkg/models"
)

// HistoryStore reads a user's list entries. Writes are owned by the list
// service; this store only sees the committed state.
type HistoryStore struct {
	db     Querier
	logger *logrus.Logger
}

func NewHistoryStore(db Querier, logger *logrus.Logger) *HistoryStore {
	return &HistoryStore{db: db, logger: logger}
}

// UserHistory returns the user's rated/completed list entries joined with
// their catalog metadata, most recently finished first.
func (s *HistoryStore) UserHistory(ctx context.Context, userID uuid.UUID) ([]models.HistoryEntry, error) {
	query := `
		SELECT t.id, t.title, t.media_type, t.genres, t.score, t.popularity,
			t.episodes, t.chapters, t.status, t.start_year,
			l.status, l.rating, l.finished_at
		FROM list_entries l
		JOIN titles t ON t.id = l.title_id
		WHERE l.user_id = $1
		ORDER BY l.finished_at DESC NULLS LAST, t.id ASC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("history query failed: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(
			&e.Item.ID, &e.Item.Title, &e.Item.MediaType, &e.Item.Genres,
			&e.Item.Score, &e.Item.Popularity, &e.Item.Episodes,
			&e.Item.Chapters, &e.Item.Status, &e.Item.StartYear,
			&e.Status, &e.Rating, &e.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
