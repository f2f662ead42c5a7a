// Package types holds the domain entities shared across the projection
// pipeline and the error taxonomy surfaced at process boundaries.
package types

import "time"

type Team struct {
	TeamID     string `gorm:"column:team_id;primaryKey" json:"team_id"`
	TeamName   string `gorm:"column:team_name" json:"team_name"`
	City       string `gorm:"column:city" json:"city"`
	Division   string `gorm:"column:division" json:"division"`
	Conference string `gorm:"column:conference" json:"conference"`
}

func (Team) TableName() string { return "teams" }

type Player struct {
	PlayerID   string `gorm:"column:player_id;primaryKey" json:"player_id"`
	PlayerName string `gorm:"column:player_name" json:"player_name"`
	Position   string `gorm:"column:position" json:"position"`
}

func (Player) TableName() string { return "players" }

type Game struct {
	GameID     string `gorm:"column:game_id;primaryKey" json:"game_id"`
	SeasonID   int    `gorm:"column:season_id" json:"season_id"`
	Week       int    `gorm:"column:week" json:"week"`
	GameDate   string `gorm:"column:game_date" json:"game_date"`
	GameTime   string `gorm:"column:game_time" json:"game_time"`
	HomeTeamID string `gorm:"column:home_team_id" json:"home_team_id"`
	AwayTeamID string `gorm:"column:away_team_id" json:"away_team_id"`
	HomeScore  *int   `gorm:"column:home_score" json:"home_score"`
	AwayScore  *int   `gorm:"column:away_score" json:"away_score"`
}

func (Game) TableName() string { return "games" }

// BoxScoreRow is one player's stat line for one game. Nullable columns are
// coalesced to zero at the query boundary except target_share, whose absence
// is meaningful to the feature builder.
type BoxScoreRow struct {
	PlayerID          string   `gorm:"column:player_id" json:"player_id"`
	GameID            string   `gorm:"column:game_id" json:"game_id"`
	TeamID            string   `gorm:"column:team_id" json:"team_id"`
	PassAttempts      float64  `gorm:"column:pass_attempts" json:"pass_attempts"`
	PassCompletions   float64  `gorm:"column:pass_completions" json:"pass_completions"`
	PassYards         float64  `gorm:"column:pass_yards" json:"pass_yards"`
	PassTouchdowns    float64  `gorm:"column:pass_touchdowns" json:"pass_touchdowns"`
	PassInterceptions float64  `gorm:"column:pass_interceptions" json:"pass_interceptions"`
	PassSacks         float64  `gorm:"column:pass_sacks" json:"pass_sacks"`
	RushAttempts      float64  `gorm:"column:rush_attempts" json:"rush_attempts"`
	RushYards         float64  `gorm:"column:rush_yards" json:"rush_yards"`
	RushTouchdowns    float64  `gorm:"column:rush_touchdowns" json:"rush_touchdowns"`
	RushFumbles       float64  `gorm:"column:rush_fumbles" json:"rush_fumbles"`
	Receptions        float64  `gorm:"column:receptions" json:"receptions"`
	ReceivingTargets  float64  `gorm:"column:receiving_targets" json:"receiving_targets"`
	ReceivingYards    float64  `gorm:"column:receiving_yards" json:"receiving_yards"`
	ReceivingTDs      float64  `gorm:"column:receiving_touchdowns" json:"receiving_touchdowns"`
	ReceivingFumbles  float64  `gorm:"column:receiving_fumbles" json:"receiving_fumbles"`
	TargetShare       *float64 `gorm:"column:target_share" json:"target_share"`
}

// PlayerGameRow is a BoxScoreRow joined with its game context. This is the
// shape history queries and training iterators return.
type PlayerGameRow struct {
	BoxScoreRow
	SeasonID   int    `gorm:"column:season_id" json:"season_id"`
	Week       int    `gorm:"column:week" json:"week"`
	Position   string `gorm:"column:position" json:"position"`
	PlayerName string `gorm:"column:player_name" json:"player_name"`
}

// TeamDefenseRow is one team's defensive stat line for one game.
type TeamDefenseRow struct {
	TeamID          string  `gorm:"column:team_id" json:"team_id"`
	GameID          string  `gorm:"column:game_id" json:"game_id"`
	SeasonID        int     `gorm:"column:season_id" json:"season_id"`
	Week            int     `gorm:"column:week" json:"week"`
	PointsAllowed   float64 `gorm:"column:points_allowed" json:"points_allowed"`
	YardsAllowed    float64 `gorm:"column:yards_allowed" json:"yards_allowed"`
	PassYardsAllowed float64 `gorm:"column:passing_yards_allowed" json:"passing_yards_allowed"`
	RushYardsAllowed float64 `gorm:"column:rushing_yards_allowed" json:"rushing_yards_allowed"`
	Interceptions   float64 `gorm:"column:interceptions" json:"interceptions"`
	FumblesRecovered float64 `gorm:"column:fumbles_recovered" json:"fumbles_recovered"`
	Sacks           float64 `gorm:"column:sacks" json:"sacks"`
	SackYards       float64 `gorm:"column:sack_yards" json:"sack_yards"`
	DefensiveTDs    float64 `gorm:"column:defensive_touchdowns" json:"defensive_touchdowns"`
	PickSix         float64 `gorm:"column:pick_six" json:"pick_six"`
	FumbleTDs       float64 `gorm:"column:fumble_touchdowns" json:"fumble_touchdowns"`
	Safeties        float64 `gorm:"column:safeties" json:"safeties"`
	BlockedKicks    float64 `gorm:"column:blocked_kicks" json:"blocked_kicks"`
	ReturnTDs       float64 `gorm:"column:return_touchdowns" json:"return_touchdowns"`
	IsHome          bool    `gorm:"column:is_home" json:"is_home"`
	OpponentTeamID  string  `gorm:"column:opponent_team_id" json:"opponent_team_id"`
}

// InjuryRecord is one player's entry on an injury report. FantasyStatus is
// only populated by feed-backed sources; the historical table does not carry
// it.
type InjuryRecord struct {
	Season         int       `json:"season"`
	GameType       string    `json:"game_type"`
	Team           string    `json:"team"`
	Week           int       `json:"week"`
	GsisID         string    `json:"gsis_id,omitempty"`
	Position       string    `json:"position"`
	FullName       string    `json:"full_name"`
	PrimaryInjury  string    `json:"report_primary_injury"`
	ReportStatus   string    `json:"report_status"`
	PracticeStatus string    `json:"practice_status"`
	FantasyStatus  string    `json:"fantasy_status,omitempty"`
	DateModified   time.Time `json:"date_modified"`
}

// PlayerPrediction is one projected stat line after model serving and,
// optionally, injury adjustment.
type PlayerPrediction struct {
	PlayerID         string  `json:"player_id"`
	PlayerName       string  `json:"player_name"`
	Team             string  `json:"team"`
	Position         string  `json:"position"`
	PredictedPoints  float64 `json:"predicted_points"`
	InjuryStatus     string  `json:"injury_status,omitempty"`
	InjuryAdjustment float64 `json:"injury_adjustment,omitempty"`
}

// DSTPrediction is one team defense projection, including any uplift from
// opponent injuries.
type DSTPrediction struct {
	TeamID          string  `json:"team_id"`
	Opponent        string  `json:"opponent"`
	PredictedPoints float64 `json:"predicted_points"`
	InjuryBoost     float64 `json:"injury_boost,omitempty"`
}

// Skill positions eligible for player projections.
var SkillPositions = []string{"QB", "RB", "WR", "TE"}

// PositionCode encodes a position for the feature vector.
func PositionCode(position string) float64 {
	switch position {
	case "QB":
		return 0
	case "RB":
		return 1
	case "WR":
		return 2
	case "TE":
		return 3
	default:
		return 4
	}
}
