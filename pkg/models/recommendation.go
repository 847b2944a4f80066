package models

import "time"

// Section identifiers accepted by the recommendations endpoint.
type Section string

const (
	SectionCompletedBased Section = "completed_based"
	SectionTrendingGenres Section = "trending_genres"
	SectionHiddenGems     Section = "hidden_gems"
	SectionAll            Section = "all"
)

// ParseSection maps a raw query value to a known section. Unknown values
// fall back to SectionAll rather than being rejected.
func ParseSection(raw string) Section {
	switch Section(raw) {
	case SectionCompletedBased, SectionTrendingGenres, SectionHiddenGems:
		return Section(raw)
	default:
		return SectionAll
	}
}

// ExplanationFactor tags why an item was recommended.
type ExplanationFactor string

const (
	FactorContentMatch    ExplanationFactor = "content_match"
	FactorGenreMatch      ExplanationFactor = "genre_match"
	FactorScoreMatch      ExplanationFactor = "score_match"
	FactorHiddenGem       ExplanationFactor = "hidden_gem"
	FactorPopular         ExplanationFactor = "popular"
	FactorNewUserFallback ExplanationFactor = "new_user_fallback"
)

// RecommendationItem is one ranked suggestion. Score is always in [0,1]
// with 3-decimal precision.
type RecommendationItem struct {
	Item               CatalogItem         `json:"item"`
	Score              float64             `json:"recommendation_score"`
	Reasoning          string              `json:"reasoning"`
	ExplanationFactors []ExplanationFactor `json:"explanation_factors"`
}

// RecommendationSections holds the three independent result lists. Sections
// are not deduplicated against each other.
type RecommendationSections struct {
	CompletedBased []RecommendationItem `json:"completed_based"`
	TrendingGenres []RecommendationItem `json:"trending_genres"`
	HiddenGems     []RecommendationItem `json:"hidden_gems"`
}

// UserPreferences is the public projection of a PreferenceProfile.
type UserPreferences struct {
	TopGenres           []GenreWeight    `json:"top_genres"`
	AvgRating           float64          `json:"avg_rating"`
	PreferredLength     LengthPreference `json:"preferred_length"`
	CompletionRate      float64          `json:"completion_rate"`
	MediaTypePreference string           `json:"media_type_preference"`
}

type CacheInfo struct {
	GeneratedAt      time.Time `json:"generated_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	AlgorithmVersion string    `json:"algorithm_version"`
	CacheHit         bool      `json:"cache_hit"`
}

// RecommendationResponse is the full payload for one user. It is also the
// unit of caching: the cache manager stores it verbatim and flips
// CacheInfo.CacheHit on reads.
type RecommendationResponse struct {
	Recommendations RecommendationSections `json:"recommendations"`
	UserPreferences UserPreferences        `json:"user_preferences"`
	CacheInfo       CacheInfo              `json:"cache_info"`
}
