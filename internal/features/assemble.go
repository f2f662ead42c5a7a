package features

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/fantasygrid/gameday/internal/types"
)

// HistoryRow pairs a historical box-score row with its fantasy points,
// scored once per (row, ruleset).
type HistoryRow struct {
	Row           types.PlayerGameRow
	FantasyPoints float64
}

// Before reports whether (s, w) precedes (season, week) lexicographically.
func Before(s, w, season, week int) bool {
	return s < season || (s == season && w < week)
}

// AssemblePlayerFeatures computes the base player features for
// (season, week) from a chronological history. Rows at or after the target
// are ignored; the window caps at PlayerHistoryLimit most recent rows.
// Matchup features are left for the caller. Used by both the serving
// builder and the training pass so the two can never drift.
func AssemblePlayerFeatures(history []HistoryRow, playerID, position string, season, week int) (*PlayerFeatures, error) {
	prior := make([]HistoryRow, 0, len(history))
	for _, h := range history {
		if Before(h.Row.SeasonID, h.Row.Week, season, week) {
			prior = append(prior, h)
		}
	}
	if len(prior) > PlayerHistoryLimit {
		prior = prior[len(prior)-PlayerHistoryLimit:]
	}
	if len(prior) < MinHistoryGames {
		return nil, fmt.Errorf("player %s at %d/wk%d has %d prior games: %w",
			playerID, season, week, len(prior), types.ErrNotEnoughHistory)
	}

	f := &PlayerFeatures{
		PlayerID:        playerID,
		Season:          season,
		Week:            week,
		Position:        position,
		PositionMatchup: map[string]float64{},
	}

	last3 := prior[len(prior)-3:]
	f.AvgFantasyPointsL3 = historyMean(last3, func(h HistoryRow) float64 { return h.FantasyPoints })
	f.AvgTargetsL3 = historyMean(last3, func(h HistoryRow) float64 { return h.Row.ReceivingTargets })
	f.AvgCarriesL3 = historyMean(last3, func(h HistoryRow) float64 { return h.Row.RushAttempts })
	f.AvgPassAttemptsL3 = historyMean(last3, func(h HistoryRow) float64 { return h.Row.PassAttempts })
	f.TargetShareL3 = historyTargetShare(last3)

	var seasonPoints []float64
	for _, h := range prior {
		if h.Row.SeasonID == season {
			seasonPoints = append(seasonPoints, h.FantasyPoints)
		}
	}
	if len(seasonPoints) > 0 {
		f.AvgFantasyPointsSeason = stat.Mean(seasonPoints, nil)
		f.GamesPlayedSeason = len(seasonPoints)
	}

	points := make([]float64, len(prior))
	for i, h := range prior {
		points[i] = h.FantasyPoints
	}
	f.ConsistencyScore, f.TrendScore = consistencyAndTrendValues(points)

	// Most recent team this season anchors matchup lookups.
	for i := len(prior) - 1; i >= 0; i-- {
		if prior[i].Row.SeasonID == season {
			f.TeamID = prior[i].Row.TeamID
			break
		}
	}
	if f.TeamID == "" {
		f.TeamID = prior[len(prior)-1].Row.TeamID
	}

	return f, nil
}

// AssembleDSTFeatures computes a defense's features for (season, week)
// from a chronological defensive history with pre-scored fantasy points.
// Matchup fields default to neutral; the caller fills them when a matchup
// is known.
func AssembleDSTFeatures(history []types.TeamDefenseRow, fantasyPoints []float64, teamID string, season, week int) (*DSTFeatures, error) {
	var prior []types.TeamDefenseRow
	var priorPoints []float64
	for i, row := range history {
		if Before(row.SeasonID, row.Week, season, week) {
			prior = append(prior, row)
			priorPoints = append(priorPoints, fantasyPoints[i])
		}
	}
	if len(prior) > DSTHistoryLimit {
		prior = prior[len(prior)-DSTHistoryLimit:]
		priorPoints = priorPoints[len(priorPoints)-DSTHistoryLimit:]
	}
	if len(prior) < MinHistoryGames {
		return nil, fmt.Errorf("dst %s at %d/wk%d has %d prior games: %w",
			teamID, season, week, len(prior), types.ErrNotEnoughHistory)
	}

	f := &DSTFeatures{
		TeamID: teamID,
		Season: season,
		Week:   week,

		OpponentAvgPointsL3:     LeagueAveragePoints,
		OpponentAvgPointsSeason: LeagueAveragePoints,
		// Home/away is unknown without schedule context.
		IsHome: 1,

		MatchupPointsModifier: 1.0,
		MatchupSackModifier:   1.0,
	}

	last3 := prior[len(prior)-3:]
	var pa3, sacks3, to3 float64
	for _, row := range last3 {
		pa3 += row.PointsAllowed
		sacks3 += row.Sacks
		to3 += row.Interceptions + row.FumblesRecovered
	}
	f.AvgPointsAllowedL3 = pa3 / 3
	f.AvgSacksL3 = sacks3 / 3
	f.AvgTurnoversL3 = to3 / 3
	f.AvgFantasyPointsL3 = stat.Mean(priorPoints[len(priorPoints)-3:], nil)

	var paS, sacksS, toS, fpS float64
	seasonGames := 0
	for i, row := range prior {
		if row.SeasonID != season {
			continue
		}
		paS += row.PointsAllowed
		sacksS += row.Sacks
		toS += row.Interceptions + row.FumblesRecovered
		fpS += priorPoints[i]
		seasonGames++
	}
	if seasonGames > 0 {
		n := float64(seasonGames)
		f.AvgPointsAllowedSeason = paS / n
		f.AvgSacksSeason = sacksS / n
		f.AvgTurnoversSeason = toS / n
		f.AvgFantasyPointsSeason = fpS / n
		f.GamesPlayedSeason = seasonGames
	}

	f.ConsistencyScore, f.TrendScore = consistencyAndTrendValues(priorPoints)
	return f, nil
}

func historyMean(rows []HistoryRow, field func(HistoryRow) float64) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, row := range rows {
		sum += field(row)
	}
	return sum / float64(len(rows))
}

// historyTargetShare averages the known target shares of the window; rows
// without one are skipped rather than counted as zero.
func historyTargetShare(rows []HistoryRow) float64 {
	var sum float64
	known := 0
	for _, row := range rows {
		if row.Row.TargetShare != nil {
			sum += *row.Row.TargetShare
			known++
		}
	}
	if known == 0 {
		return 0
	}
	return sum / float64(known)
}
