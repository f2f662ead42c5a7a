// Package features assembles leak-free player and DST feature vectors from
// historical box scores, scoring, and matchup signals.
package features

import (
	"github.com/fantasygrid/gameday/internal/matchup"
	"github.com/fantasygrid/gameday/internal/types"
)

const (
	// PlayerHistoryLimit caps how many prior games feed a player vector.
	PlayerHistoryLimit = 50
	// DSTHistoryLimit caps how many prior games feed a DST vector.
	DSTHistoryLimit = 20
	// MinHistoryGames is the floor below which no features are built.
	MinHistoryGames = 3
	// LeagueAveragePoints stands in for opponent scoring when schedule
	// context is unavailable.
	LeagueAveragePoints = 21.0
)

// BaseFeatureNames is the ordered player feature schema. Artifacts record
// it verbatim; reorder it and every persisted model becomes incompatible.
var BaseFeatureNames = []string{
	"avg_fantasy_points_l3",
	"avg_targets_l3",
	"avg_carries_l3",
	"avg_passing_attempts_l3",
	"avg_fantasy_points_season",
	"games_played_season",
	"position_encoded",
	"target_share_l3",
	"consistency_score",
	"trend_score",
}

// DSTFeatureNames is the ordered DST feature schema.
var DSTFeatureNames = []string{
	"avg_points_allowed_l3",
	"avg_sacks_l3",
	"avg_turnovers_l3",
	"avg_fantasy_points_l3",
	"avg_points_allowed_season",
	"avg_sacks_season",
	"avg_turnovers_season",
	"avg_fantasy_points_season",
	"games_played_season",
	"opponent_avg_points_l3",
	"opponent_avg_points_season",
	"is_home",
	"consistency_score",
	"trend_score",
	"opponent_offensive_score",
	"matchup_points_modifier",
	"matchup_sack_modifier",
}

// PlayerFeatures is the assembled input for one player projection.
type PlayerFeatures struct {
	PlayerID string
	Season   int
	Week     int
	Position string
	TeamID   string

	AvgFantasyPointsL3     float64
	AvgTargetsL3           float64
	AvgCarriesL3           float64
	AvgPassAttemptsL3      float64
	AvgFantasyPointsSeason float64
	GamesPlayedSeason      int
	TargetShareL3          float64
	ConsistencyScore       float64
	TrendScore             float64

	// PositionMatchup maps the position's matchup feature names (see
	// matchup.PositionFeatureNames) to values. Empty on a bye week.
	PositionMatchup map[string]float64
}

// BaseVector returns the ten base features in schema order.
func (f *PlayerFeatures) BaseVector() []float64 {
	return []float64{
		f.AvgFantasyPointsL3,
		f.AvgTargetsL3,
		f.AvgCarriesL3,
		f.AvgPassAttemptsL3,
		f.AvgFantasyPointsSeason,
		float64(f.GamesPlayedSeason),
		types.PositionCode(f.Position),
		f.TargetShareL3,
		f.ConsistencyScore,
		f.TrendScore,
	}
}

// Vector returns the full feature vector. With position features enabled,
// the position's ordered matchup features follow the base block; absent
// values fill with the neutral 0.
func (f *PlayerFeatures) Vector(withPositionFeatures bool) []float64 {
	vec := f.BaseVector()
	if !withPositionFeatures {
		return vec
	}
	for _, name := range matchup.PositionFeatureNames(f.Position) {
		vec = append(vec, f.PositionMatchup[name])
	}
	return vec
}

// FeatureNames returns the schema the vector follows, in order.
func (f *PlayerFeatures) FeatureNames(withPositionFeatures bool) []string {
	names := append([]string(nil), BaseFeatureNames...)
	if withPositionFeatures {
		names = append(names, matchup.PositionFeatureNames(f.Position)...)
	}
	return names
}

// DSTFeatures is the assembled input for one defense projection.
type DSTFeatures struct {
	TeamID string
	Season int
	Week   int

	AvgPointsAllowedL3 float64
	AvgSacksL3         float64
	AvgTurnoversL3     float64
	AvgFantasyPointsL3 float64

	AvgPointsAllowedSeason float64
	AvgSacksSeason         float64
	AvgTurnoversSeason     float64
	AvgFantasyPointsSeason float64
	GamesPlayedSeason      int

	OpponentAvgPointsL3     float64
	OpponentAvgPointsSeason float64
	IsHome                  float64

	ConsistencyScore float64
	TrendScore       float64

	OpponentOffensiveScore float64
	MatchupPointsModifier  float64
	MatchupSackModifier    float64
}

// Vector returns the seventeen DST features in schema order.
func (f *DSTFeatures) Vector() []float64 {
	return []float64{
		f.AvgPointsAllowedL3,
		f.AvgSacksL3,
		f.AvgTurnoversL3,
		f.AvgFantasyPointsL3,
		f.AvgPointsAllowedSeason,
		f.AvgSacksSeason,
		f.AvgTurnoversSeason,
		f.AvgFantasyPointsSeason,
		float64(f.GamesPlayedSeason),
		f.OpponentAvgPointsL3,
		f.OpponentAvgPointsSeason,
		f.IsHome,
		f.ConsistencyScore,
		f.TrendScore,
		f.OpponentOffensiveScore,
		f.MatchupPointsModifier,
		f.MatchupSackModifier,
	}
}
