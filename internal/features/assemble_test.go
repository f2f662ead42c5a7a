package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantasygrid/gameday/internal/types"
)

func playerRow(season, week int, points float64) HistoryRow {
	return HistoryRow{
		Row: types.PlayerGameRow{
			SeasonID: season,
			Week:     week,
			Position: "WR",
			BoxScoreRow: types.BoxScoreRow{
				TeamID:           "PHI",
				ReceivingTargets: 8,
			},
		},
		FantasyPoints: points,
	}
}

func TestAssemblePlayerFeaturesRequiresThreeGames(t *testing.T) {
	history := []HistoryRow{
		playerRow(2024, 1, 10),
		playerRow(2024, 2, 12),
	}

	_, err := AssemblePlayerFeatures(history, "p1", "WR", 2024, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotEnoughHistory)
	assert.Equal(t, types.KindNotEnoughHistory, types.KindOf(err))
}

func TestAssemblePlayerFeaturesIgnoresTargetAndLaterWeeks(t *testing.T) {
	history := []HistoryRow{
		playerRow(2024, 1, 10),
		playerRow(2024, 2, 14),
		playerRow(2024, 3, 18),
		playerRow(2024, 5, 99), // target week itself
		playerRow(2024, 6, 99), // future
	}

	f, err := AssemblePlayerFeatures(history, "p1", "WR", 2024, 5)
	require.NoError(t, err)

	assert.InDelta(t, 14.0, f.AvgFantasyPointsL3, 1e-9)
	assert.InDelta(t, 14.0, f.AvgFantasyPointsSeason, 1e-9)
	assert.Equal(t, 3, f.GamesPlayedSeason)
}

func TestAssemblePlayerFeaturesSeasonAverageSpansOnlyTargetSeason(t *testing.T) {
	history := []HistoryRow{
		playerRow(2023, 16, 30),
		playerRow(2023, 17, 30),
		playerRow(2024, 1, 10),
		playerRow(2024, 2, 12),
	}

	f, err := AssemblePlayerFeatures(history, "p1", "WR", 2024, 4)
	require.NoError(t, err)

	assert.InDelta(t, 11.0, f.AvgFantasyPointsSeason, 1e-9)
	assert.Equal(t, 2, f.GamesPlayedSeason)
	// Last-3 window crosses the season boundary.
	assert.InDelta(t, (30+10+12)/3.0, f.AvgFantasyPointsL3, 1e-9)
}

func TestAssemblePlayerFeaturesTargetShareSkipsUnknown(t *testing.T) {
	share := func(v float64) *float64 { return &v }
	history := []HistoryRow{
		playerRow(2024, 1, 10),
		playerRow(2024, 2, 12),
		playerRow(2024, 3, 14),
	}
	history[0].Row.TargetShare = share(0.20)
	history[2].Row.TargetShare = share(0.30)

	f, err := AssemblePlayerFeatures(history, "p1", "WR", 2024, 4)
	require.NoError(t, err)

	// Two known shares average; the nil row is not counted as zero.
	assert.InDelta(t, 0.25, f.TargetShareL3, 1e-9)
}

func TestAssemblePlayerFeaturesTeamAnchorsToCurrentSeason(t *testing.T) {
	history := []HistoryRow{
		playerRow(2023, 16, 9),
		playerRow(2023, 17, 9),
		playerRow(2024, 1, 9),
	}
	history[0].Row.TeamID = "DAL"
	history[1].Row.TeamID = "DAL"
	history[2].Row.TeamID = "NYG"

	f, err := AssemblePlayerFeatures(history, "p1", "WR", 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, "NYG", f.TeamID, "midseason trades follow the newest roster row")
}

func TestConsistencyAndTrendThresholds(t *testing.T) {
	consistency, trend := consistencyAndTrendValues([]float64{10, 12})
	assert.Zero(t, consistency)
	assert.Zero(t, trend)

	consistency, trend = consistencyAndTrendValues([]float64{10, 12, 14})
	assert.Greater(t, consistency, 0.0)
	assert.Zero(t, trend, "trend needs four games")

	// Chronologically rising points slope downward in the
	// most-recent-first ordering the window uses.
	_, trend = consistencyAndTrendValues([]float64{10, 12, 14, 16})
	assert.InDelta(t, -2.0, trend, 1e-9)
}

func TestAssembleDSTFeaturesNeutralDefaults(t *testing.T) {
	history := []types.TeamDefenseRow{
		{TeamID: "SF", SeasonID: 2024, Week: 1, PointsAllowed: 17, Sacks: 2, Interceptions: 1},
		{TeamID: "SF", SeasonID: 2024, Week: 2, PointsAllowed: 20, Sacks: 3, FumblesRecovered: 1},
		{TeamID: "SF", SeasonID: 2024, Week: 3, PointsAllowed: 14, Sacks: 4, Interceptions: 2},
	}
	points := []float64{8, 7, 12}

	f, err := AssembleDSTFeatures(history, points, "SF", 2024, 4)
	require.NoError(t, err)

	assert.InDelta(t, 17.0, f.AvgPointsAllowedL3, 1e-9)
	assert.InDelta(t, 3.0, f.AvgSacksL3, 1e-9)
	assert.InDelta(t, 9.0, f.AvgFantasyPointsL3, 1e-9)
	assert.Equal(t, 3, f.GamesPlayedSeason)

	assert.InDelta(t, LeagueAveragePoints, f.OpponentAvgPointsL3, 1e-9)
	assert.InDelta(t, 1.0, f.MatchupPointsModifier, 1e-9)
	assert.InDelta(t, 1.0, f.MatchupSackModifier, 1e-9)
	assert.InDelta(t, 1.0, f.IsHome, 1e-9)

	vec := f.Vector()
	require.Len(t, vec, len(DSTFeatureNames))
}

func TestPlayerVectorOrderMatchesSchema(t *testing.T) {
	f := &PlayerFeatures{
		Position:           "RB",
		AvgFantasyPointsL3: 11.5,
		GamesPlayedSeason:  6,
		PositionMatchup: map[string]float64{
			"opponent_rush_defense_rank": 28,
			"rb_volume_modifier":         1.1,
		},
	}

	base := f.BaseVector()
	require.Len(t, base, len(BaseFeatureNames))
	assert.InDelta(t, 11.5, base[0], 1e-9)
	assert.InDelta(t, 1.0, base[6], 1e-9, "RB encodes as 1")

	full := f.Vector(true)
	require.Len(t, full, len(BaseFeatureNames)+5)
	assert.InDelta(t, 28.0, full[len(BaseFeatureNames)], 1e-9)
	// Unset matchup keys fill with the neutral zero.
	assert.Zero(t, full[len(full)-1])
}
