// Package matchup derives opponent-strength signals and position-specific
// matchup modifiers from recent game history.
package matchup

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/fantasygrid/gameday/internal/repository"
	"github.com/fantasygrid/gameday/pkg/logger"
)

// DefaultLookback is the number of prior weeks a strength window covers.
const DefaultLookback = 8

// strongThreshold classifies a composite score as "Strong".
const strongThreshold = 70

// Store is the slice of the repository the analyzer reads.
type Store interface {
	TeamOffenseWindow(ctx context.Context, teamID string, season, week, lookback int) ([]repository.TeamGameOffense, error)
	TeamDefenseWindow(ctx context.Context, teamID string, season, week, lookback int) ([]repository.TeamDefenseWindowRow, error)
	PositionOffenseAgainst(ctx context.Context, teamID string, season, week, lookback int) ([]repository.PositionOffenseAllowed, error)
	LeagueDefenseAggregates(ctx context.Context, season, week int) ([]repository.LeagueDefenseAggregate, error)
	OpponentFor(ctx context.Context, teamID string, season, week int) (string, error)
}

// OffensiveStrength captures a team's recent offensive output and a
// composite score in [0, 100].
type OffensiveStrength struct {
	TeamID string `json:"team_id"`
	Season int    `json:"season"`
	Week   int    `json:"week"`

	GamesAnalyzed int `json:"games_analyzed"`

	PointsPerGame       float64 `json:"points_per_game"`
	YardsPerGame        float64 `json:"yards_per_game"`
	PassYardsPerGame    float64 `json:"passing_yards_per_game"`
	RushYardsPerGame    float64 `json:"rushing_yards_per_game"`
	PassTDsPerGame      float64 `json:"passing_tds_per_game"`
	RushTDsPerGame      float64 `json:"rushing_tds_per_game"`
	TurnoversPerGame    float64 `json:"turnovers_per_game"`
	SacksAllowedPerGame float64 `json:"sacks_allowed_per_game"`

	OffensiveScore float64 `json:"offensive_score"`
}

// DefensiveStrength captures a team's recent defensive output and a
// composite score in [0, 100].
type DefensiveStrength struct {
	TeamID string `json:"team_id"`
	Season int    `json:"season"`
	Week   int    `json:"week"`

	GamesAnalyzed int `json:"games_analyzed"`

	PointsAllowedPerGame    float64 `json:"points_allowed_per_game"`
	YardsAllowedPerGame     float64 `json:"yards_allowed_per_game"`
	PassYardsAllowedPerGame float64 `json:"passing_yards_allowed_per_game"`
	RushYardsAllowedPerGame float64 `json:"rushing_yards_allowed_per_game"`
	SacksPerGame            float64 `json:"sacks_per_game"`
	InterceptionsPerGame    float64 `json:"interceptions_per_game"`
	FumblesRecoveredPerGame float64 `json:"fumbles_recovered_per_game"`
	TurnoversForcedPerGame  float64 `json:"turnovers_forced_per_game"`

	DefensiveScore float64 `json:"defensive_score"`
}

// MatchupStrength is the complete offense-vs-defense comparison for one
// pairing.
type MatchupStrength struct {
	OffensiveTeam string `json:"offensive_team"`
	DefensiveTeam string `json:"defensive_team"`
	Season        int    `json:"season"`
	Week          int    `json:"week"`

	Offense OffensiveStrength `json:"offense_strength"`
	Defense DefensiveStrength `json:"defense_strength"`

	MatchupType        string  `json:"matchup_type"`
	OffensiveAdvantage float64 `json:"offensive_advantage"`
	DefensiveAdvantage float64 `json:"defensive_advantage"`

	PointsModifier   float64 `json:"points_modifier"`
	TurnoverModifier float64 `json:"turnover_modifier"`
	SackModifier     float64 `json:"sack_modifier"`
}

type Analyzer struct {
	store Store
	cache *Cache
	log   *logrus.Entry
}

// NewAnalyzer builds an analyzer. cache may be nil, in which case every
// call recomputes from the store.
func NewAnalyzer(store Store, cache *Cache) *Analyzer {
	return &Analyzer{
		store: store,
		cache: cache,
		log:   logger.WithComponent("matchup"),
	}
}

// OffensiveStrength aggregates a team's offense over the prior lookback
// weeks of the season. Missing history yields a zero-valued strength with
// GamesAnalyzed == 0.
func (a *Analyzer) OffensiveStrength(ctx context.Context, teamID string, season, week, lookback int) (OffensiveStrength, error) {
	if cached, ok := a.cache.getOffense(ctx, teamID, season, week); ok {
		return cached, nil
	}

	offense := OffensiveStrength{TeamID: teamID, Season: season, Week: week}
	games, err := a.store.TeamOffenseWindow(ctx, teamID, season, week, lookback)
	if err != nil {
		return offense, err
	}
	if len(games) == 0 {
		return offense, nil
	}

	var points, passYards, rushYards, passTDs, rushTDs, recTDs, turnovers, sacks float64
	for _, g := range games {
		points += g.Points
		passYards += g.PassYards
		rushYards += g.RushYards
		passTDs += g.PassTDs
		rushTDs += g.RushTDs
		recTDs += g.RecTDs
		turnovers += g.Turnovers
		sacks += g.SacksAllowed
	}

	n := float64(len(games))
	offense.GamesAnalyzed = len(games)
	offense.PointsPerGame = points / n
	offense.PassYardsPerGame = passYards / n
	offense.RushYardsPerGame = rushYards / n
	offense.YardsPerGame = offense.PassYardsPerGame + offense.RushYardsPerGame
	offense.PassTDsPerGame = passTDs / n
	// Receiving scores count toward ground-game output so two-TD games by
	// pass-catching backs register.
	offense.RushTDsPerGame = (rushTDs + recTDs) / n
	offense.TurnoversPerGame = turnovers / n
	offense.SacksAllowedPerGame = sacks / n

	pointsScore := clamp(offense.PointsPerGame/30.0*100, 0, 100)
	yardsScore := clamp(offense.YardsPerGame/400.0*100, 0, 100)
	tdScore := clamp((offense.PassTDsPerGame+offense.RushTDsPerGame)/3.0*100, 0, 100)
	turnoverScore := max(0, 100-offense.TurnoversPerGame*25)
	offense.OffensiveScore = pointsScore*0.4 + yardsScore*0.3 + tdScore*0.2 + turnoverScore*0.1

	a.cache.putOffense(ctx, offense)
	return offense, nil
}

// DefensiveStrength aggregates a team's defense over the prior lookback
// weeks of the season.
func (a *Analyzer) DefensiveStrength(ctx context.Context, teamID string, season, week, lookback int) (DefensiveStrength, error) {
	if cached, ok := a.cache.getDefense(ctx, teamID, season, week); ok {
		return cached, nil
	}

	defense := DefensiveStrength{TeamID: teamID, Season: season, Week: week}
	games, err := a.store.TeamDefenseWindow(ctx, teamID, season, week, lookback)
	if err != nil {
		return defense, err
	}
	if len(games) == 0 {
		return defense, nil
	}

	var pointsAllowed, yardsAllowed, passAllowed, rushAllowed, sacks, ints, fumbles float64
	for _, g := range games {
		pointsAllowed += g.PointsAllowed
		yardsAllowed += g.YardsAllowed
		passAllowed += g.PassYardsAllowed
		rushAllowed += g.RushYardsAllowed
		sacks += g.Sacks
		ints += g.Interceptions
		fumbles += g.FumblesRecovered
	}

	n := float64(len(games))
	defense.GamesAnalyzed = len(games)
	defense.PointsAllowedPerGame = pointsAllowed / n
	defense.YardsAllowedPerGame = yardsAllowed / n
	defense.PassYardsAllowedPerGame = passAllowed / n
	defense.RushYardsAllowedPerGame = rushAllowed / n
	defense.SacksPerGame = sacks / n
	defense.InterceptionsPerGame = ints / n
	defense.FumblesRecoveredPerGame = fumbles / n
	defense.TurnoversForcedPerGame = (ints + fumbles) / n

	pointsScore := clamp(100-(defense.PointsAllowedPerGame-14)*3, 0, 100)
	yardsScore := clamp(100-(defense.YardsAllowedPerGame-250)*0.2, 0, 100)
	turnoverScore := min(100, defense.TurnoversForcedPerGame*40)
	sackScore := min(100, defense.SacksPerGame*25)
	defense.DefensiveScore = pointsScore*0.4 + yardsScore*0.3 + turnoverScore*0.2 + sackScore*0.1

	a.cache.putDefense(ctx, defense)
	return defense, nil
}

// AnalyzeMatchup compares one team's offense against another's defense and
// derives bounded prediction modifiers.
func (a *Analyzer) AnalyzeMatchup(ctx context.Context, offensiveTeam, defensiveTeam string, season, week int) (MatchupStrength, error) {
	offense, err := a.OffensiveStrength(ctx, offensiveTeam, season, week, DefaultLookback)
	if err != nil {
		return MatchupStrength{}, err
	}
	defense, err := a.DefensiveStrength(ctx, defensiveTeam, season, week, DefaultLookback)
	if err != nil {
		return MatchupStrength{}, err
	}

	offenseStrong := offense.OffensiveScore >= strongThreshold
	defenseStrong := defense.DefensiveScore >= strongThreshold

	var matchupType string
	switch {
	case offenseStrong && defenseStrong:
		matchupType = "Strong vs Strong"
	case offenseStrong:
		matchupType = "Strong vs Weak"
	case defenseStrong:
		matchupType = "Weak vs Strong"
	default:
		matchupType = "Weak vs Weak"
	}

	offAdv := offense.OffensiveScore - defense.DefensiveScore
	defAdv := defense.DefensiveScore - offense.OffensiveScore

	return MatchupStrength{
		OffensiveTeam:      offensiveTeam,
		DefensiveTeam:      defensiveTeam,
		Season:             season,
		Week:               week,
		Offense:            offense,
		Defense:            defense,
		MatchupType:        matchupType,
		OffensiveAdvantage: offAdv,
		DefensiveAdvantage: defAdv,
		PointsModifier:     clamp(1+offAdv/200.0, 0.5, 1.5),
		TurnoverModifier:   clamp(1+defAdv/200.0, 0.5, 1.5),
		SackModifier:       clamp(1+(defense.SacksPerGame-offense.SacksAllowedPerGame)/5.0, 0.5, 1.5),
	}, nil
}

// OpponentFor resolves a team's scheduled opponent. Empty string means bye.
func (a *Analyzer) OpponentFor(ctx context.Context, teamID string, season, week int) (string, error) {
	return a.store.OpponentFor(ctx, teamID, season, week)
}

// MatchupForPlayer analyzes from an offensive player's perspective: the
// player's team attacks the opponent's defense. Returns nil on a bye.
func (a *Analyzer) MatchupForPlayer(ctx context.Context, playerTeam string, season, week int) (*MatchupStrength, error) {
	opponent, err := a.store.OpponentFor(ctx, playerTeam, season, week)
	if err != nil {
		return nil, err
	}
	if opponent == "" {
		return nil, nil
	}
	m, err := a.AnalyzeMatchup(ctx, playerTeam, opponent, season, week)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MatchupForDST analyzes from a defense's perspective: the opponent's
// offense attacks the DST team. Returns nil on a bye.
func (a *Analyzer) MatchupForDST(ctx context.Context, dstTeam string, season, week int) (*MatchupStrength, error) {
	opponent, err := a.store.OpponentFor(ctx, dstTeam, season, week)
	if err != nil {
		return nil, err
	}
	if opponent == "" {
		return nil, nil
	}
	m, err := a.AnalyzeMatchup(ctx, opponent, dstTeam, season, week)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
