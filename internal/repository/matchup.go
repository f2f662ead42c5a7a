package repository

import (
	"context"
)

// TeamGameOffense is one game's offensive aggregate for a team, summed from
// its players' box-score rows and joined with the final score.
type TeamGameOffense struct {
	GameID       string  `gorm:"column:game_id"`
	Week         int     `gorm:"column:week"`
	Points       float64 `gorm:"column:points"`
	PassYards    float64 `gorm:"column:pass_yards"`
	RushYards    float64 `gorm:"column:rush_yards"`
	PassTDs      float64 `gorm:"column:pass_tds"`
	RushTDs      float64 `gorm:"column:rush_tds"`
	RecTDs       float64 `gorm:"column:rec_tds"`
	Turnovers    float64 `gorm:"column:turnovers"`
	SacksAllowed float64 `gorm:"column:sacks_allowed"`
}

// TeamOffenseWindow aggregates a team's offense per game for weeks in
// [week-lookback, week) of the given season.
func (s *Store) TeamOffenseWindow(ctx context.Context, teamID string, season, week, lookback int) ([]TeamGameOffense, error) {
	var rows []TeamGameOffense
	err := s.db.WithContext(ctx).Raw(`
		SELECT g.game_id, g.week,
		       COALESCE(CASE WHEN g.home_team_id = ? THEN g.home_score ELSE g.away_score END, 0) AS points,
		       SUM(COALESCE(gs.pass_yards, 0)) AS pass_yards,
		       SUM(COALESCE(gs.rush_yards, 0)) AS rush_yards,
		       SUM(COALESCE(gs.pass_touchdowns, 0)) AS pass_tds,
		       SUM(COALESCE(gs.rush_touchdowns, 0)) AS rush_tds,
		       SUM(COALESCE(gs.receiving_touchdowns, 0)) AS rec_tds,
		       SUM(COALESCE(gs.pass_interceptions, 0) + COALESCE(gs.rush_fumbles, 0) + COALESCE(gs.receiving_fumbles, 0)) AS turnovers,
		       SUM(COALESCE(gs.pass_sacks, 0)) AS sacks_allowed
		FROM games g
		JOIN game_stats gs ON gs.game_id = g.game_id AND gs.team_id = ?
		WHERE (g.home_team_id = ? OR g.away_team_id = ?)
		  AND g.season_id = ?
		  AND g.week < ? AND g.week >= ?
		GROUP BY g.game_id, g.week, g.home_team_id, g.home_score, g.away_score
		ORDER BY g.week DESC`,
		teamID, teamID, teamID, teamID, season, week, week-lookback).
		Scan(&rows).Error
	if err != nil {
		return nil, dberr("team offense window", err)
	}
	return rows, nil
}

// TeamDefenseWindow returns a team's defensive rows for weeks in
// [week-lookback, week) of the given season, most recent first.
func (s *Store) TeamDefenseWindow(ctx context.Context, teamID string, season, week, lookback int) ([]TeamDefenseWindowRow, error) {
	var rows []TeamDefenseWindowRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT tds.week,
		       COALESCE(tds.points_allowed, 0) AS points_allowed,
		       COALESCE(tds.yards_allowed, 0) AS yards_allowed,
		       COALESCE(tds.passing_yards_allowed, 0) AS passing_yards_allowed,
		       COALESCE(tds.rushing_yards_allowed, 0) AS rushing_yards_allowed,
		       COALESCE(tds.sacks, 0) AS sacks,
		       COALESCE(tds.interceptions, 0) AS interceptions,
		       COALESCE(tds.fumbles_recovered, 0) AS fumbles_recovered
		FROM team_defense_stats tds
		WHERE tds.team_id = ?
		  AND tds.season_id = ?
		  AND tds.week < ? AND tds.week >= ?
		ORDER BY tds.week DESC`,
		teamID, season, week, week-lookback).
		Scan(&rows).Error
	if err != nil {
		return nil, dberr("team defense window", err)
	}
	return rows, nil
}

// TeamDefenseWindowRow is the slim defensive row used by strength and
// profile computation.
type TeamDefenseWindowRow struct {
	Week             int     `gorm:"column:week"`
	PointsAllowed    float64 `gorm:"column:points_allowed"`
	YardsAllowed     float64 `gorm:"column:yards_allowed"`
	PassYardsAllowed float64 `gorm:"column:passing_yards_allowed"`
	RushYardsAllowed float64 `gorm:"column:rushing_yards_allowed"`
	Sacks            float64 `gorm:"column:sacks"`
	Interceptions    float64 `gorm:"column:interceptions"`
	FumblesRecovered float64 `gorm:"column:fumbles_recovered"`
}

// PositionOffenseAllowed is one game's opponent production against a
// defense, split by position group.
type PositionOffenseAllowed struct {
	Week           int     `gorm:"column:week"`
	QBPassYards    float64 `gorm:"column:qb_pass_yards"`
	QBPassTDs      float64 `gorm:"column:qb_pass_tds"`
	QBPassAttempts float64 `gorm:"column:qb_pass_attempts"`
	RBRushYards    float64 `gorm:"column:rb_rush_yards"`
	RBRushTDs      float64 `gorm:"column:rb_rush_tds"`
	RBRushAttempts float64 `gorm:"column:rb_rush_attempts"`
	RBRecYards     float64 `gorm:"column:rb_rec_yards"`
	WRRecYards     float64 `gorm:"column:wr_rec_yards"`
	TERecYards     float64 `gorm:"column:te_rec_yards"`
}

// PositionOffenseAgainst aggregates, per game, what opposing skill players
// produced against a defense over [week-lookback, week).
func (s *Store) PositionOffenseAgainst(ctx context.Context, teamID string, season, week, lookback int) ([]PositionOffenseAllowed, error) {
	var rows []PositionOffenseAllowed
	err := s.db.WithContext(ctx).Raw(`
		SELECT g.week,
		       SUM(CASE WHEN p.position = 'QB' THEN COALESCE(gs.pass_yards, 0) ELSE 0 END) AS qb_pass_yards,
		       SUM(CASE WHEN p.position = 'QB' THEN COALESCE(gs.pass_touchdowns, 0) ELSE 0 END) AS qb_pass_tds,
		       SUM(CASE WHEN p.position = 'QB' THEN COALESCE(gs.pass_attempts, 0) ELSE 0 END) AS qb_pass_attempts,
		       SUM(CASE WHEN p.position = 'RB' THEN COALESCE(gs.rush_yards, 0) ELSE 0 END) AS rb_rush_yards,
		       SUM(CASE WHEN p.position = 'RB' THEN COALESCE(gs.rush_touchdowns, 0) ELSE 0 END) AS rb_rush_tds,
		       SUM(CASE WHEN p.position = 'RB' THEN COALESCE(gs.rush_attempts, 0) ELSE 0 END) AS rb_rush_attempts,
		       SUM(CASE WHEN p.position = 'RB' THEN COALESCE(gs.receiving_yards, 0) ELSE 0 END) AS rb_rec_yards,
		       SUM(CASE WHEN p.position = 'WR' THEN COALESCE(gs.receiving_yards, 0) ELSE 0 END) AS wr_rec_yards,
		       SUM(CASE WHEN p.position = 'TE' THEN COALESCE(gs.receiving_yards, 0) ELSE 0 END) AS te_rec_yards
		FROM games g
		JOIN game_stats gs ON gs.game_id = g.game_id AND gs.team_id != ?
		JOIN players p ON p.player_id = gs.player_id
		WHERE (g.home_team_id = ? OR g.away_team_id = ?)
		  AND g.season_id = ?
		  AND g.week < ? AND g.week >= ?
		  AND p.position IN ?
		GROUP BY g.game_id, g.week
		ORDER BY g.week DESC`,
		teamID, teamID, teamID, season, week, week-lookback,
		[]string{"QB", "RB", "WR", "TE"}).
		Scan(&rows).Error
	if err != nil {
		return nil, dberr("position offense against", err)
	}
	return rows, nil
}

// LeagueDefenseAggregate is one team's league-window defensive averages,
// used for relative ranking.
type LeagueDefenseAggregate struct {
	TeamID           string  `gorm:"column:team_id"`
	Games            int     `gorm:"column:games"`
	AvgPointsAllowed float64 `gorm:"column:avg_points_allowed"`
	AvgSacks         float64 `gorm:"column:avg_sacks"`
	AvgTurnovers     float64 `gorm:"column:avg_turnovers"`
}

// LeagueDefenseAggregates averages defensive production per team over
// [week-8, week) of the season. Teams with fewer than three games in the
// window are excluded so early-season noise cannot dominate the ranking.
func (s *Store) LeagueDefenseAggregates(ctx context.Context, season, week int) ([]LeagueDefenseAggregate, error) {
	var rows []LeagueDefenseAggregate
	err := s.db.WithContext(ctx).Raw(`
		SELECT team_id,
		       COUNT(*) AS games,
		       AVG(COALESCE(points_allowed, 0)) AS avg_points_allowed,
		       AVG(COALESCE(sacks, 0)) AS avg_sacks,
		       AVG(COALESCE(interceptions, 0) + COALESCE(fumbles_recovered, 0)) AS avg_turnovers
		FROM team_defense_stats
		WHERE season_id = ?
		  AND week < ? AND week >= ?
		GROUP BY team_id
		HAVING COUNT(*) >= 3
		ORDER BY avg_points_allowed`,
		season, week, week-8).
		Scan(&rows).Error
	if err != nil {
		return nil, dberr("league defense aggregates", err)
	}
	return rows, nil
}
