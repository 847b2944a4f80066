package models

import (
	"encoding/json"
	"fmt"
)

type RatingPattern string

const (
	RatingPatternStrict   RatingPattern = "strict"
	RatingPatternModerate RatingPattern = "moderate"
	RatingPatternGenerous RatingPattern = "generous"
)

type LengthPreference string

const (
	LengthShort  LengthPreference = "short"
	LengthMedium LengthPreference = "medium"
	LengthLong   LengthPreference = "long"
)

// GenreWeight is a single entry of the normalized genre distribution.
// It marshals as a ["genre", weight] pair to match the public response
// shape for user_preferences.top_genres.
type GenreWeight struct {
	Genre  string
	Weight float64
}

func (g GenreWeight) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{g.Genre, g.Weight})
}

func (g *GenreWeight) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &g.Genre); err != nil {
		return fmt.Errorf("genre weight pair: %w", err)
	}
	if err := json.Unmarshal(pair[1], &g.Weight); err != nil {
		return fmt.Errorf("genre weight pair: %w", err)
	}
	return nil
}

// PreferenceProfile is the derived taste model for one user. It is built
// per-request by the preference analyzer and owned by that request.
//
// GenreWeights is sorted by descending weight and normalized so the weights
// sum to 1.0. A user with no usable history gets the zero profile with
// LowConfidence set; callers must check LowConfidence rather than testing
// for nil.
type PreferenceProfile struct {
	GenreWeights     []GenreWeight    `json:"genre_weights"`
	AvgRating        float64          `json:"avg_rating"`
	RatingPattern    RatingPattern    `json:"rating_pattern"`
	LengthPreference LengthPreference `json:"length_preference"`
	MediaTypeRatio   float64          `json:"media_type_ratio"` // share of anime among completed items
	DiversityScore   float64          `json:"diversity_score"`  // normalized entropy of genre weights
	CompletionRate   float64          `json:"completion_rate"`
	ItemCount        int              `json:"item_count"`
	LowConfidence    bool             `json:"low_confidence"`
}

// TopGenres returns up to n genres by descending weight.
func (p *PreferenceProfile) TopGenres(n int) []GenreWeight {
	if n > len(p.GenreWeights) {
		n = len(p.GenreWeights)
	}
	return p.GenreWeights[:n]
}

// Weight returns the normalized weight for a genre, zero if absent.
func (p *PreferenceProfile) Weight(genre string) float64 {
	for _, gw := range p.GenreWeights {
		if gw.Genre == genre {
			return gw.Weight
		}
	}
	return 0
}

// MediaTypePreference buckets the anime/manga ratio for display.
func (p *PreferenceProfile) MediaTypePreference() string {
	switch {
	case p.ItemCount == 0:
		return "unknown"
	case p.MediaTypeRatio >= 0.7:
		return "anime"
	case p.MediaTypeRatio <= 0.3:
		return "manga"
	default:
		return "mixed"
	}
}
