// Package repository is the single SQL access layer for the projection
// pipeline. All queries are raw SQL with ? placeholders so they run
// unchanged on postgres and on the sqlite fixture databases used in tests.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fantasygrid/gameday/internal/types"
	"github.com/fantasygrid/gameday/pkg/logger"
)

type Store struct {
	db  *gorm.DB
	log *logrus.Entry
}

func New(db *gorm.DB) *Store {
	return &Store{
		db:  db,
		log: logger.WithComponent("repository"),
	}
}

func dberr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, types.ErrDataBackend, err)
}

const playerGameColumns = `
	gs.player_id, gs.game_id, gs.team_id,
	COALESCE(gs.pass_attempts, 0) AS pass_attempts,
	COALESCE(gs.pass_completions, 0) AS pass_completions,
	COALESCE(gs.pass_yards, 0) AS pass_yards,
	COALESCE(gs.pass_touchdowns, 0) AS pass_touchdowns,
	COALESCE(gs.pass_interceptions, 0) AS pass_interceptions,
	COALESCE(gs.pass_sacks, 0) AS pass_sacks,
	COALESCE(gs.rush_attempts, 0) AS rush_attempts,
	COALESCE(gs.rush_yards, 0) AS rush_yards,
	COALESCE(gs.rush_touchdowns, 0) AS rush_touchdowns,
	COALESCE(gs.rush_fumbles, 0) AS rush_fumbles,
	COALESCE(gs.receptions, 0) AS receptions,
	COALESCE(gs.receiving_targets, 0) AS receiving_targets,
	COALESCE(gs.receiving_yards, 0) AS receiving_yards,
	COALESCE(gs.receiving_touchdowns, 0) AS receiving_touchdowns,
	COALESCE(gs.receiving_fumbles, 0) AS receiving_fumbles,
	gs.target_share,
	g.season_id, g.week, p.position, p.player_name`

const defenseColumns = `
	tds.team_id, tds.game_id, tds.season_id, tds.week,
	COALESCE(tds.points_allowed, 0) AS points_allowed,
	COALESCE(tds.yards_allowed, 0) AS yards_allowed,
	COALESCE(tds.passing_yards_allowed, 0) AS passing_yards_allowed,
	COALESCE(tds.rushing_yards_allowed, 0) AS rushing_yards_allowed,
	COALESCE(tds.interceptions, 0) AS interceptions,
	COALESCE(tds.fumbles_recovered, 0) AS fumbles_recovered,
	COALESCE(tds.sacks, 0) AS sacks,
	COALESCE(tds.sack_yards, 0) AS sack_yards,
	COALESCE(tds.defensive_touchdowns, 0) AS defensive_touchdowns,
	COALESCE(tds.pick_six, 0) AS pick_six,
	COALESCE(tds.fumble_touchdowns, 0) AS fumble_touchdowns,
	COALESCE(tds.safeties, 0) AS safeties,
	COALESCE(tds.blocked_kicks, 0) AS blocked_kicks,
	COALESCE(tds.return_touchdowns, 0) AS return_touchdowns,
	COALESCE(tds.is_home, false) AS is_home,
	tds.opponent_team_id`

// GetPlayer looks up one player by identifier.
func (s *Store) GetPlayer(ctx context.Context, playerID string) (*types.Player, error) {
	var player types.Player
	err := s.db.WithContext(ctx).
		Raw(`SELECT player_id, player_name, position FROM players WHERE player_id = ?`, playerID).
		First(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("player %s: %w", playerID, types.ErrNotFound)
	}
	if err != nil {
		return nil, dberr("get player", err)
	}
	return &player, nil
}

// GetTeam looks up one team by identifier.
func (s *Store) GetTeam(ctx context.Context, teamID string) (*types.Team, error) {
	var team types.Team
	err := s.db.WithContext(ctx).
		Raw(`SELECT team_id, team_name, city, division, conference FROM teams WHERE team_id = ?`, teamID).
		First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("team %s: %w", teamID, types.ErrNotFound)
	}
	if err != nil {
		return nil, dberr("get team", err)
	}
	return &team, nil
}

// PlayerHistory returns up to limit box-score rows for a player strictly
// before (season, week), oldest first.
func (s *Store) PlayerHistory(ctx context.Context, playerID string, season, week, limit int) ([]types.PlayerGameRow, error) {
	var rows []types.PlayerGameRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT `+playerGameColumns+`
		FROM game_stats gs
		JOIN games g ON g.game_id = gs.game_id
		JOIN players p ON p.player_id = gs.player_id
		WHERE gs.player_id = ?
		  AND (g.season_id < ? OR (g.season_id = ? AND g.week < ?))
		ORDER BY g.season_id DESC, g.week DESC
		LIMIT ?`, playerID, season, season, week, limit).
		Scan(&rows).Error
	if err != nil {
		return nil, dberr("player history", err)
	}
	reverseRows(rows)
	return rows, nil
}

// PlayerHistories bulk-loads the union of several players' histories before
// (season, week) in one round trip, keeping the most recent perPlayer rows
// each, oldest first. This backs the feature builder's prefetch path.
func (s *Store) PlayerHistories(ctx context.Context, playerIDs []string, season, week, perPlayer int) (map[string][]types.PlayerGameRow, error) {
	if len(playerIDs) == 0 {
		return map[string][]types.PlayerGameRow{}, nil
	}
	var rows []types.PlayerGameRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT `+playerGameColumns+`
		FROM game_stats gs
		JOIN games g ON g.game_id = gs.game_id
		JOIN players p ON p.player_id = gs.player_id
		WHERE gs.player_id IN ?
		  AND (g.season_id < ? OR (g.season_id = ? AND g.week < ?))
		ORDER BY gs.player_id, g.season_id, g.week`, playerIDs, season, season, week).
		Scan(&rows).Error
	if err != nil {
		return nil, dberr("player histories", err)
	}
	grouped := make(map[string][]types.PlayerGameRow, len(playerIDs))
	for _, row := range rows {
		grouped[row.PlayerID] = append(grouped[row.PlayerID], row)
	}
	for id, history := range grouped {
		if len(history) > perPlayer {
			grouped[id] = history[len(history)-perPlayer:]
		}
	}
	return grouped, nil
}

// TeamDefenseHistory returns up to limit defensive rows for a team strictly
// before (season, week), oldest first.
func (s *Store) TeamDefenseHistory(ctx context.Context, teamID string, season, week, limit int) ([]types.TeamDefenseRow, error) {
	var rows []types.TeamDefenseRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT `+defenseColumns+`
		FROM team_defense_stats tds
		WHERE tds.team_id = ?
		  AND (tds.season_id < ? OR (tds.season_id = ? AND tds.week < ?))
		ORDER BY tds.season_id DESC, tds.week DESC
		LIMIT ?`, teamID, season, season, week, limit).
		Scan(&rows).Error
	if err != nil {
		return nil, dberr("team defense history", err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// GamesForWeek lists the scheduled games for (season, week).
func (s *Store) GamesForWeek(ctx context.Context, season, week int) ([]types.Game, error) {
	var games []types.Game
	err := s.db.WithContext(ctx).Raw(`
		SELECT game_id, season_id, week, game_date, game_time,
		       home_team_id, away_team_id, home_score, away_score
		FROM games
		WHERE season_id = ? AND week = ?
		ORDER BY game_id`, season, week).
		Scan(&games).Error
	if err != nil {
		return nil, dberr("games for week", err)
	}
	return games, nil
}

// OpponentFor resolves a team's opponent for (season, week). Returns empty
// string when the team is on bye.
func (s *Store) OpponentFor(ctx context.Context, teamID string, season, week int) (string, error) {
	var opponents []string
	err := s.db.WithContext(ctx).Raw(`
		SELECT CASE WHEN home_team_id = ? THEN away_team_id ELSE home_team_id END
		FROM games
		WHERE season_id = ? AND week = ?
		  AND (home_team_id = ? OR away_team_id = ?)`,
		teamID, season, week, teamID, teamID).
		Scan(&opponents).Error
	if err != nil {
		return "", dberr("opponent for", err)
	}
	if len(opponents) == 0 {
		return "", nil
	}
	return opponents[0], nil
}

// EligiblePlayer is a skill player whose current team plays in the
// requested week.
type EligiblePlayer struct {
	PlayerID   string `gorm:"column:player_id"`
	PlayerName string `gorm:"column:player_name"`
	Position   string `gorm:"column:position"`
	TeamID     string `gorm:"column:team_id"`
}

// EligiblePlayers lists QB/RB/WR/TE players whose most recent team (from
// box scores strictly before the requested week) appears on the week's
// schedule.
func (s *Store) EligiblePlayers(ctx context.Context, season, week int) ([]EligiblePlayer, error) {
	var players []EligiblePlayer
	err := s.db.WithContext(ctx).Raw(`
		WITH latest_team AS (
			SELECT gs.player_id, gs.team_id,
			       ROW_NUMBER() OVER (
			           PARTITION BY gs.player_id
			           ORDER BY g.season_id DESC, g.week DESC
			       ) AS rn
			FROM game_stats gs
			JOIN games g ON g.game_id = gs.game_id
			WHERE g.season_id < ? OR (g.season_id = ? AND g.week < ?)
		)
		SELECT p.player_id, p.player_name, p.position, lt.team_id
		FROM latest_team lt
		JOIN players p ON p.player_id = lt.player_id
		WHERE lt.rn = 1
		  AND p.position IN ?
		  AND lt.team_id IN (
			SELECT home_team_id FROM games WHERE season_id = ? AND week = ?
			UNION
			SELECT away_team_id FROM games WHERE season_id = ? AND week = ?
		  )
		ORDER BY p.player_id`,
		season, season, week, types.SkillPositions, season, week, season, week).
		Scan(&players).Error
	if err != nil {
		return nil, dberr("eligible players", err)
	}
	return players, nil
}

// ScoringSystemRows returns the raw scoring_systems rows as maps so the
// scoring layer can coalesce current and legacy column names.
func (s *Store) ScoringSystemRows(ctx context.Context) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	err := s.db.WithContext(ctx).Raw(`SELECT * FROM scoring_systems`).Scan(&rows).Error
	if err != nil {
		return nil, dberr("scoring systems", err)
	}
	return rows, nil
}

// WeekPlayerRows returns every box-score row for exactly (season, week),
// used by the weekly rankings surface.
func (s *Store) WeekPlayerRows(ctx context.Context, season, week int) ([]types.PlayerGameRow, error) {
	var rows []types.PlayerGameRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT `+playerGameColumns+`
		FROM game_stats gs
		JOIN games g ON g.game_id = gs.game_id
		JOIN players p ON p.player_id = gs.player_id
		WHERE g.season_id = ? AND g.week = ?`, season, week).
		Scan(&rows).Error
	if err != nil {
		return nil, dberr("week player rows", err)
	}
	return rows, nil
}

// WeekDefenseRows returns every team-defense row for exactly (season, week).
func (s *Store) WeekDefenseRows(ctx context.Context, season, week int) ([]types.TeamDefenseRow, error) {
	var rows []types.TeamDefenseRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT `+defenseColumns+`
		FROM team_defense_stats tds
		WHERE tds.season_id = ? AND tds.week = ?`, season, week).
		Scan(&rows).Error
	if err != nil {
		return nil, dberr("week defense rows", err)
	}
	return rows, nil
}

// TrainingPlayerRows iterates every skill-position box-score row in the
// given seasons with week > 2, oldest first.
func (s *Store) TrainingPlayerRows(ctx context.Context, seasons []int) ([]types.PlayerGameRow, error) {
	if len(seasons) == 0 {
		return nil, nil
	}
	var rows []types.PlayerGameRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT `+playerGameColumns+`
		FROM game_stats gs
		JOIN games g ON g.game_id = gs.game_id
		JOIN players p ON p.player_id = gs.player_id
		WHERE g.season_id IN ? AND g.week > 2 AND p.position IN ?
		ORDER BY g.season_id, g.week, gs.player_id`, seasons, types.SkillPositions).
		Scan(&rows).Error
	if err != nil {
		return nil, dberr("training player rows", err)
	}
	return rows, nil
}

// TrainingDefenseRows iterates every team-defense row in the given seasons
// with week > 2, oldest first.
func (s *Store) TrainingDefenseRows(ctx context.Context, seasons []int) ([]types.TeamDefenseRow, error) {
	if len(seasons) == 0 {
		return nil, nil
	}
	var rows []types.TeamDefenseRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT `+defenseColumns+`
		FROM team_defense_stats tds
		WHERE tds.season_id IN ? AND tds.week > 2
		ORDER BY tds.season_id, tds.week, tds.team_id`, seasons).
		Scan(&rows).Error
	if err != nil {
		return nil, dberr("training defense rows", err)
	}
	return rows, nil
}

// WeekGameCounts reports how many games are scheduled for (season, week)
// and how many of them have both scores recorded.
func (s *Store) WeekGameCounts(ctx context.Context, season, week int) (games, scored int, err error) {
	type counts struct {
		Games  int `gorm:"column:games"`
		Scored int `gorm:"column:scored"`
	}
	var c counts
	err = s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) AS games,
		       SUM(CASE WHEN home_score IS NOT NULL AND away_score IS NOT NULL THEN 1 ELSE 0 END) AS scored
		FROM games
		WHERE season_id = ? AND week = ?`, season, week).
		Scan(&c).Error
	if err != nil {
		return 0, 0, dberr("week game counts", err)
	}
	return c.Games, c.Scored, nil
}

// WeekDefenseCount reports the number of team-defense rows for (season, week).
func (s *Store) WeekDefenseCount(ctx context.Context, season, week int) (int, error) {
	var count int
	err := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM team_defense_stats WHERE season_id = ? AND week = ?`, season, week).
		Scan(&count).Error
	if err != nil {
		return 0, dberr("week defense count", err)
	}
	return count, nil
}

// WeekBoxScoreGameIDs lists the distinct game identifiers carried by
// box-score rows for (season, week). The cutoff policy scans them for
// synthetic identifiers left behind by partial ingestion.
func (s *Store) WeekBoxScoreGameIDs(ctx context.Context, season, week int) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Raw(`
		SELECT DISTINCT gs.game_id
		FROM game_stats gs
		JOIN games g ON g.game_id = gs.game_id
		WHERE g.season_id = ? AND g.week = ?
		ORDER BY gs.game_id`, season, week).
		Scan(&ids).Error
	if err != nil {
		return nil, dberr("week box score game ids", err)
	}
	return ids, nil
}

// SeasonScoredGames counts the games in a season with both scores set.
func (s *Store) SeasonScoredGames(ctx context.Context, season int) (int, error) {
	var count int
	err := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM games
		WHERE season_id = ? AND home_score IS NOT NULL AND away_score IS NOT NULL`, season).
		Scan(&count).Error
	if err != nil {
		return 0, dberr("season scored games", err)
	}
	return count, nil
}

type injuryRow struct {
	Season         int    `gorm:"column:season"`
	GameType       string `gorm:"column:game_type"`
	Team           string `gorm:"column:team"`
	Week           int    `gorm:"column:week"`
	GsisID         string `gorm:"column:gsis_id"`
	Position       string `gorm:"column:position"`
	FullName       string `gorm:"column:full_name"`
	PrimaryInjury  string `gorm:"column:report_primary_injury"`
	ReportStatus   string `gorm:"column:report_status"`
	PracticeStatus string `gorm:"column:practice_status"`
	DateModified   string `gorm:"column:date_modified"`
}

const injuryColumns = `
	season, game_type, team, week,
	COALESCE(gsis_id, '') AS gsis_id,
	COALESCE(position, '') AS position,
	COALESCE(full_name, '') AS full_name,
	COALESCE(report_primary_injury, '') AS report_primary_injury,
	COALESCE(report_status, '') AS report_status,
	COALESCE(practice_status, '') AS practice_status,
	COALESCE(date_modified, '') AS date_modified`

// HistoricalInjuries returns the injury report stored for (season, week).
func (s *Store) HistoricalInjuries(ctx context.Context, season, week int) ([]types.InjuryRecord, error) {
	var rows []injuryRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT `+injuryColumns+`
		FROM historical_injuries
		WHERE season = ? AND week = ?
		ORDER BY team, full_name`, season, week).
		Scan(&rows).Error
	if err != nil {
		return nil, dberr("historical injuries", err)
	}
	return convertInjuries(rows), nil
}

// LatestInjuries returns the most recent report snapshot in the table,
// defined as the rows for the max (season, week) present.
func (s *Store) LatestInjuries(ctx context.Context) ([]types.InjuryRecord, error) {
	var rows []injuryRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT `+injuryColumns+`
		FROM historical_injuries
		WHERE season = (SELECT MAX(season) FROM historical_injuries)
		  AND week = (
			SELECT MAX(week) FROM historical_injuries
			WHERE season = (SELECT MAX(season) FROM historical_injuries)
		  )
		ORDER BY team, full_name`).
		Scan(&rows).Error
	if err != nil {
		return nil, dberr("latest injuries", err)
	}
	return convertInjuries(rows), nil
}

func convertInjuries(rows []injuryRow) []types.InjuryRecord {
	records := make([]types.InjuryRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, types.InjuryRecord{
			Season:         r.Season,
			GameType:       r.GameType,
			Team:           r.Team,
			Week:           r.Week,
			GsisID:         r.GsisID,
			Position:       r.Position,
			FullName:       r.FullName,
			PrimaryInjury:  r.PrimaryInjury,
			ReportStatus:   r.ReportStatus,
			PracticeStatus: r.PracticeStatus,
			DateModified:   parseReportTime(r.DateModified),
		})
	}
	return records
}

func parseReportTime(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func reverseRows(rows []types.PlayerGameRow) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
