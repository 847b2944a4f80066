package models

type MediaType string

const (
	MediaTypeAnime MediaType = "anime"
	MediaTypeManga MediaType = "manga"
)

// CatalogItem is the read-only view of a catalog entry as served by the
// catalog store. The recommendation core never mutates it.
type CatalogItem struct {
	ID         int64     `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	MediaType  MediaType `json:"media_type" db:"media_type"`
	Genres     []string  `json:"genres" db:"genres"`
	Score      float64   `json:"score" db:"score"`           // community quality score, 0-10
	Popularity int       `json:"popularity" db:"popularity"` // list member count
	Episodes   int       `json:"episodes,omitempty" db:"episodes"`
	Chapters   int       `json:"chapters,omitempty" db:"chapters"`
	Status     string    `json:"status,omitempty" db:"status"` // airing, finished, publishing, ...
	StartYear  int       `json:"start_year,omitempty" db:"start_year"`
}

// LengthUnits returns the item's length in the unit native to its media
// type: episodes for anime, chapters for manga.
func (i CatalogItem) LengthUnits() int {
	if i.MediaType == MediaTypeManga {
		return i.Chapters
	}
	return i.Episodes
}

func (i CatalogItem) HasGenre(genre string) bool {
	for _, g := range i.Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// Neighbor is a nearest-neighbor entry from the offline-built similarity
// index.
type Neighbor struct {
	ItemID     int64   `json:"item_id"`
	Similarity float64 `json:"similarity"` // 0-1
}
