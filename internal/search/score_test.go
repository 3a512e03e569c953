package search

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tu "github.com/yagnikpt/tunebox/internal/testing"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		want  float64
	}{
		{name: "exact", text: "Love", query: "love", want: ScoreExact},
		{name: "prefix", text: "Love Story", query: "love", want: ScorePrefix},
		{name: "substring", text: "iloveyou", query: "LOVE", want: ScoreSubstring},
		{name: "no match", text: "Hate", query: "love", want: ScoreNone},
		{name: "empty text", text: "", query: "love", want: ScoreNone},
		{name: "empty query", text: "Love", query: "", want: ScoreNone},
		{name: "query longer than text", text: "Lo", query: "love", want: ScoreNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.text, tt.query))
		})
	}

	t.Run("case symmetric", func(t *testing.T) {
		pairs := [][2]string{{"Love Story", "love"}, {"ILOVEYOU", "Love"}, {"abc", "ABC"}, {"x", "y"}}
		for _, p := range pairs {
			text, query := p[0], p[1]
			want := Score(text, query)
			assert.Equal(t, want, Score(strings.ToUpper(text), strings.ToLower(query)))
			assert.Equal(t, want, Score(strings.ToLower(text), strings.ToUpper(query)))
		}
	})

	t.Run("ordering", func(t *testing.T) {
		assert.Greater(t, ScoreExact, ScorePrefix)
		assert.Greater(t, ScorePrefix, ScoreSubstring)
		assert.Greater(t, ScoreSubstring, ScoreNone)
	})
}

func TestCompositeScores(t *testing.T) {
	t.Run("track uses artist at secondary weight", func(t *testing.T) {
		r := NewTrackResult(tu.Track("b", "Other", "Love"), "love")
		assert.InDelta(t, 80.0, r.Score(), 1e-9)
	})

	t.Run("track prefers the better field", func(t *testing.T) {
		r := NewTrackResult(tu.Track("a", "Love", "Lovers"), "love")
		assert.Equal(t, ScoreExact, r.Score())
	})

	t.Run("playlist uses description at secondary weight", func(t *testing.T) {
		owner := tu.User("u1", "owner")
		r := NewPlaylistResult(tu.PlaylistSummary("p1", "Mix", "songs about love", owner), "love")
		assert.InDelta(t, 40.0, r.Score(), 1e-9)
	})

	t.Run("user scores username only", func(t *testing.T) {
		r := NewUserResult(tu.User("u1", "iloveyou"), "love")
		assert.Equal(t, ScoreSubstring, r.Score())
	})
}

func TestResultsJSON(t *testing.T) {
	owner := tu.User("u1", "owner")
	preview := tu.Track("t1", "Love Story", "Artist")
	results := Results{
		Query:       "love",
		HasSearched: true,
		Items: []Result{
			NewTrackResult(preview, "love"),
			NewUserResult(owner, "love"),
			NewPlaylistResult(tu.PlaylistSummary("p1", "Love Mix", "", owner, preview), "love"),
		},
	}

	data, err := json.Marshal(results)
	require.NoError(t, err)

	var wire struct {
		Query       string           `json:"query"`
		HasSearched bool             `json:"has_searched"`
		Results     []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.True(t, wire.HasSearched)
	require.Len(t, wire.Results, 3)
	assert.Equal(t, "track", wire.Results[0]["kind"])
	assert.Contains(t, wire.Results[0], "track")
	assert.Equal(t, "user", wire.Results[1]["kind"])
	assert.Contains(t, wire.Results[1], "user")
	assert.Equal(t, "playlist", wire.Results[2]["kind"])
	assert.Contains(t, wire.Results[2], "playlist")

	var decoded Results
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, 3, decoded.Len())

	for i, item := range decoded.Items {
		assert.Equal(t, results.Items[i].Kind(), item.Kind())
		assert.Equal(t, results.Items[i].Score(), item.Score())
	}

	playlist, ok := decoded.Items[2].(PlaylistResult)
	require.True(t, ok)
	assert.Equal(t, "owner", playlist.Owner().Username)
	assert.Equal(t, 1, playlist.TrackCount())
	require.Len(t, playlist.Preview(), 1)
	assert.Equal(t, "t1", playlist.Preview()[0].ID)

	t.Run("empty results encode an empty array", func(t *testing.T) {
		data, err := json.Marshal(Results{Query: ""})
		require.NoError(t, err)
		assert.JSONEq(t, `{"query":"","has_searched":false,"results":[]}`, string(data))
	})

	t.Run("unknown kind", func(t *testing.T) {
		var r Results
		err := json.Unmarshal([]byte(`{"query":"x","has_searched":true,"results":[{"kind":"album","score":1}]}`), &r)
		assert.Error(t, err)
	})
}
