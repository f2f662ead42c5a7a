package features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantasygrid/gameday/internal/matchup"
	"github.com/fantasygrid/gameday/internal/scoring"
	"github.com/fantasygrid/gameday/internal/types"
)

type countingStore struct {
	rows        map[string][]types.PlayerGameRow
	defense     map[string][]types.TeamDefenseRow
	singleCalls int
}

func (s *countingStore) PlayerHistory(_ context.Context, playerID string, _, _, _ int) ([]types.PlayerGameRow, error) {
	s.singleCalls++
	return s.rows[playerID], nil
}

func (s *countingStore) PlayerHistories(_ context.Context, playerIDs []string, _, _, _ int) (map[string][]types.PlayerGameRow, error) {
	out := make(map[string][]types.PlayerGameRow)
	for _, id := range playerIDs {
		if rows, ok := s.rows[id]; ok {
			out[id] = rows
		}
	}
	return out, nil
}

func (s *countingStore) TeamDefenseHistory(_ context.Context, teamID string, _, _, _ int) ([]types.TeamDefenseRow, error) {
	return s.defense[teamID], nil
}

type stubMatchups struct {
	opponent string
	features map[string]float64
	dst      *matchup.MatchupStrength
}

func (m stubMatchups) OpponentFor(context.Context, string, int, int) (string, error) {
	return m.opponent, nil
}

func (m stubMatchups) PositionMatchupFeatures(context.Context, string, string, string, int, int) (map[string]float64, error) {
	return m.features, nil
}

func (m stubMatchups) MatchupForDST(context.Context, string, int, int) (*matchup.MatchupStrength, error) {
	return m.dst, nil
}

func wrSeason(playerID string, weeks ...int) []types.PlayerGameRow {
	rows := make([]types.PlayerGameRow, 0, len(weeks))
	for _, w := range weeks {
		rows = append(rows, types.PlayerGameRow{
			BoxScoreRow: types.BoxScoreRow{
				PlayerID:       playerID,
				TeamID:         "PHI",
				Receptions:     5,
				ReceivingYards: 60,
			},
			SeasonID: 2024,
			Week:     w,
			Position: "WR",
		})
	}
	return rows
}

func TestPrefetchSkipsPerPlayerQueries(t *testing.T) {
	store := &countingStore{rows: map[string][]types.PlayerGameRow{
		"p1": wrSeason("p1", 1, 2, 3, 4),
		"p2": wrSeason("p2", 1, 2, 3),
	}}
	b := NewBuilder(store, stubMatchups{})
	rs := scoring.DefaultFanDuel()

	require.NoError(t, b.Prefetch(context.Background(), []string{"p1", "p2"}, 2024, 5, rs))

	f, err := b.BuildPlayerFeatures(context.Background(), "p1", 2024, 5, rs)
	require.NoError(t, err)
	assert.Equal(t, "WR", f.Position)
	assert.Equal(t, "PHI", f.TeamID)
	assert.Zero(t, store.singleCalls, "primed cache serves the build")
}

func TestStaleCacheScopeFallsBackToStore(t *testing.T) {
	store := &countingStore{rows: map[string][]types.PlayerGameRow{
		"p1": wrSeason("p1", 1, 2, 3, 4),
	}}
	b := NewBuilder(store, stubMatchups{})
	rs := scoring.DefaultFanDuel()

	require.NoError(t, b.Prefetch(context.Background(), []string{"p1"}, 2024, 5, rs))

	_, err := b.BuildPlayerFeatures(context.Background(), "p1", 2024, 6, rs)
	require.NoError(t, err)
	assert.Equal(t, 1, store.singleCalls, "different target week cannot reuse the cache")
}

func TestBuildPlayerFeaturesAttachesMatchup(t *testing.T) {
	store := &countingStore{rows: map[string][]types.PlayerGameRow{
		"p1": wrSeason("p1", 1, 2, 3),
	}}
	matchups := stubMatchups{
		opponent: "DAL",
		features: map[string]float64{"opponent_pass_defense_rank": 28},
	}
	b := NewBuilder(store, matchups)

	f, err := b.BuildPlayerFeatures(context.Background(), "p1", 2024, 4, scoring.DefaultFanDuel())
	require.NoError(t, err)
	require.NotNil(t, f.PositionMatchup)
	assert.InDelta(t, 28.0, f.PositionMatchup["opponent_pass_defense_rank"], 1e-9)
}

func TestBuildPlayerFeaturesByeWeekSkipsMatchup(t *testing.T) {
	store := &countingStore{rows: map[string][]types.PlayerGameRow{
		"p1": wrSeason("p1", 1, 2, 3),
	}}
	b := NewBuilder(store, stubMatchups{opponent: ""})

	f, err := b.BuildPlayerFeatures(context.Background(), "p1", 2024, 4, scoring.DefaultFanDuel())
	require.NoError(t, err)
	assert.Nil(t, f.PositionMatchup)
}

func TestBuildDSTFeaturesFillsMatchupFields(t *testing.T) {
	store := &countingStore{defense: map[string][]types.TeamDefenseRow{
		"PHI": {
			{TeamID: "PHI", SeasonID: 2024, Week: 1, PointsAllowed: 17, Sacks: 3},
			{TeamID: "PHI", SeasonID: 2024, Week: 2, PointsAllowed: 24, Sacks: 1},
		},
	}}
	matchups := stubMatchups{dst: &matchup.MatchupStrength{
		Offense:        matchup.OffensiveStrength{OffensiveScore: 77},
		PointsModifier: 1.2,
		SackModifier:   0.9,
	}}
	b := NewBuilder(store, matchups)

	f, err := b.BuildDSTFeatures(context.Background(), "PHI", 2024, 3, scoring.DefaultFanDuel())
	require.NoError(t, err)

	assert.InDelta(t, 77.0, f.OpponentOffensiveScore, 1e-9)
	assert.InDelta(t, 1.2, f.MatchupPointsModifier, 1e-9)
	assert.InDelta(t, 0.9, f.MatchupSackModifier, 1e-9)
}

func TestFillDSTMatchupNeutralOnBye(t *testing.T) {
	b := NewBuilder(&countingStore{}, stubMatchups{dst: nil})

	f := &DSTFeatures{TeamID: "PHI", Season: 2024, Week: 7, MatchupPointsModifier: 1.0}
	require.NoError(t, b.FillDSTMatchup(context.Background(), f))
	assert.InDelta(t, 1.0, f.MatchupPointsModifier, 1e-9, "bye leaves the neutral default")
}
