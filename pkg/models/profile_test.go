package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenreWeight_JSONPairShape(t *testing.T) {
	gw := GenreWeight{Genre: "Action", Weight: 0.42}

	data, err := json.Marshal(gw)
	require.NoError(t, err)
	assert.JSONEq(t, `["Action", 0.42]`, string(data))

	var back GenreWeight
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, gw, back)
}

func TestGenreWeight_UnmarshalRejectsBadShape(t *testing.T) {
	var gw GenreWeight
	assert.Error(t, json.Unmarshal([]byte(`{"genre": "Action"}`), &gw))
	assert.Error(t, json.Unmarshal([]byte(`[0.42, "Action"]`), &gw))
}

func TestParseSection(t *testing.T) {
	assert.Equal(t, SectionCompletedBased, ParseSection("completed_based"))
	assert.Equal(t, SectionTrendingGenres, ParseSection("trending_genres"))
	assert.Equal(t, SectionHiddenGems, ParseSection("hidden_gems"))
	assert.Equal(t, SectionAll, ParseSection("all"))
	assert.Equal(t, SectionAll, ParseSection(""))
	assert.Equal(t, SectionAll, ParseSection("something_else"))
}

func TestPreferenceProfile_TopGenres(t *testing.T) {
	p := PreferenceProfile{
		GenreWeights: []GenreWeight{
			{Genre: "Action", Weight: 0.5},
			{Genre: "Drama", Weight: 0.3},
			{Genre: "Comedy", Weight: 0.2},
		},
	}

	assert.Len(t, p.TopGenres(2), 2)
	assert.Equal(t, "Action", p.TopGenres(2)[0].Genre)
	assert.Len(t, p.TopGenres(10), 3)
	assert.Empty(t, p.TopGenres(0))
}

func TestPreferenceProfile_MediaTypePreference(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		count int
		want  string
	}{
		{"mostly anime", 0.8, 10, "anime"},
		{"boundary anime", 0.7, 10, "anime"},
		{"mostly manga", 0.2, 10, "manga"},
		{"boundary manga", 0.3, 10, "manga"},
		{"mixed", 0.5, 10, "mixed"},
		{"no items", 0, 0, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PreferenceProfile{MediaTypeRatio: tt.ratio, ItemCount: tt.count}
			assert.Equal(t, tt.want, p.MediaTypePreference())
		})
	}
}

func TestRecommendationResponse_JSONRoundTrip(t *testing.T) {
	resp := RecommendationResponse{
		Recommendations: RecommendationSections{
			HiddenGems: []RecommendationItem{
				{
					Item:               CatalogItem{ID: 7, Title: "Girls' Last Tour", Score: 8.2},
					Score:              0.815,
					Reasoning:          "Hidden gem in Slice of Life: scored 8.20 but still flying under the radar",
					ExplanationFactors: []ExplanationFactor{FactorHiddenGem, FactorGenreMatch, FactorScoreMatch},
				},
			},
		},
		UserPreferences: UserPreferences{
			TopGenres:       []GenreWeight{{Genre: "Slice of Life", Weight: 1}},
			PreferredLength: LengthShort,
		},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var back RecommendationResponse
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, resp.Recommendations.HiddenGems, back.Recommendations.HiddenGems)
	assert.Equal(t, resp.UserPreferences, back.UserPreferences)
}
