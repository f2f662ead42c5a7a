package scoring

import (
	"context"
	"sort"

	"github.com/fantasygrid/gameday/internal/types"
)

// RankingSource is the repository slice the weekly leaderboards read.
type RankingSource interface {
	WeekPlayerRows(ctx context.Context, season, week int) ([]types.PlayerGameRow, error)
	WeekDefenseRows(ctx context.Context, season, week int) ([]types.TeamDefenseRow, error)
}

// PlayerRanking is one scored leaderboard entry for a completed week.
type PlayerRanking struct {
	PlayerID   string       `json:"player_id"`
	PlayerName string       `json:"player_name"`
	Position   string       `json:"position"`
	TeamID     string       `json:"team_id"`
	Points     PlayerPoints `json:"points"`
}

// DSTRanking is one scored defense entry for a completed week.
type DSTRanking struct {
	TeamID        string    `json:"team_id"`
	PointsAllowed float64   `json:"points_allowed"`
	Sacks         float64   `json:"sacks"`
	Turnovers     float64   `json:"turnovers"`
	Points        DSTPoints `json:"points"`
}

// WeeklyRankings scores every box-score row of (season, week) under the
// ruleset and returns the top entries, highest first. position filters to a
// single position when non-empty; limit <= 0 returns everything.
func WeeklyRankings(ctx context.Context, src RankingSource, season, week int, rs Ruleset, position string, limit int) ([]PlayerRanking, error) {
	rows, err := src.WeekPlayerRows(ctx, season, week)
	if err != nil {
		return nil, err
	}

	rankings := make([]PlayerRanking, 0, len(rows))
	for _, row := range rows {
		if position != "" && row.Position != position {
			continue
		}
		rankings = append(rankings, PlayerRanking{
			PlayerID:   row.PlayerID,
			PlayerName: row.PlayerName,
			Position:   row.Position,
			TeamID:     row.TeamID,
			Points:     ScorePlayer(row.BoxScoreRow, rs),
		})
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Points.Total > rankings[j].Points.Total
	})
	if limit > 0 && len(rankings) > limit {
		rankings = rankings[:limit]
	}
	return rankings, nil
}

// DSTWeeklyRankings scores every defense of (season, week), highest first.
func DSTWeeklyRankings(ctx context.Context, src RankingSource, season, week int, rs Ruleset, limit int) ([]DSTRanking, error) {
	rows, err := src.WeekDefenseRows(ctx, season, week)
	if err != nil {
		return nil, err
	}

	rankings := make([]DSTRanking, 0, len(rows))
	for _, row := range rows {
		rankings = append(rankings, DSTRanking{
			TeamID:        row.TeamID,
			PointsAllowed: row.PointsAllowed,
			Sacks:         row.Sacks,
			Turnovers:     row.Interceptions + row.FumblesRecovered,
			Points:        ScoreDST(row, rs),
		})
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Points.Total > rankings[j].Points.Total
	})
	if limit > 0 && len(rankings) > limit {
		rankings = rankings[:limit]
	}
	return rankings, nil
}
