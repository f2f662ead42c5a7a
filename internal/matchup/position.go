package matchup

import (
	"context"
)

// PositionDefensiveProfile describes how a defense performs against each
// offensive position group, with league-relative ranks (1 = best defense,
// 32 = worst).
type PositionDefensiveProfile struct {
	TeamID string `json:"team_id"`
	Season int    `json:"season"`
	Week   int    `json:"week"`

	GamesAnalyzed int `json:"games_analyzed"`

	PassYardsAllowedPerGame float64 `json:"pass_yards_allowed_per_game"`
	PassTDsAllowedPerGame   float64 `json:"pass_tds_allowed_per_game"`
	SackRate                float64 `json:"sack_rate"`
	IntRate                 float64 `json:"int_rate"`

	RushYardsAllowedPerGame float64 `json:"rush_yards_allowed_per_game"`
	RushTDsAllowedPerGame   float64 `json:"rush_tds_allowed_per_game"`
	YardsPerCarryAllowed    float64 `json:"yards_per_carry_allowed"`

	RBReceivingYardsAllowed float64 `json:"rb_receiving_yards_allowed"`
	WRYardsAllowedPerGame   float64 `json:"wr_yards_allowed_per_game"`
	TEYardsAllowedPerGame   float64 `json:"te_yards_allowed_per_game"`

	PassDefenseRank      int `json:"pass_defense_rank"`
	RushDefenseRank      int `json:"rush_defense_rank"`
	SackPressureRank     int `json:"sack_pressure_rank"`
	TurnoverCreationRank int `json:"turnover_creation_rank"`
}

// positionAdvantage is the intermediate per-position matchup scoring that
// feeds the model feature maps.
type positionAdvantage struct {
	primaryScore   float64
	secondaryScore float64
	pressureScore  float64
	turnoverRisk   float64
	redZone        float64

	efficiencyModifier float64
	volumeModifier     float64
	ceilingModifier    float64
}

// PositionFeatureNames returns the ordered matchup feature names for a
// position. The order is part of the persisted model schema.
func PositionFeatureNames(position string) []string {
	switch position {
	case "QB":
		return []string{
			"opponent_pass_defense_rank",
			"opponent_pass_rush_pressure",
			"opponent_turnover_creation",
			"qb_efficiency_modifier",
			"qb_ceiling_modifier",
		}
	case "RB":
		return []string{
			"opponent_rush_defense_rank",
			"opponent_rb_receiving_weakness",
			"rb_volume_modifier",
			"rb_efficiency_modifier",
			"rb_goal_line_advantage",
		}
	case "WR":
		return []string{
			"opponent_pass_defense_rank",
			"opponent_wr_coverage_weakness",
			"wr_pressure_impact",
			"wr_efficiency_modifier",
			"wr_ceiling_modifier",
		}
	case "TE":
		return []string{
			"opponent_te_coverage_weakness",
			"opponent_pass_defense_rank",
			"te_checkdown_opportunity",
			"te_efficiency_modifier",
			"te_red_zone_advantage",
		}
	default:
		return nil
	}
}

// PositionProfile computes a defense's position-specific profile over the
// prior lookback weeks. Missing history returns a neutral profile with
// GamesAnalyzed == 0.
func (a *Analyzer) PositionProfile(ctx context.Context, teamID string, season, week, lookback int) (PositionDefensiveProfile, error) {
	if cached, ok := a.cache.getProfile(ctx, teamID, season, week); ok {
		return cached, nil
	}

	profile := PositionDefensiveProfile{
		TeamID:               teamID,
		Season:               season,
		Week:                 week,
		YardsPerCarryAllowed: 4.0,
		PassDefenseRank:      16,
		RushDefenseRank:      16,
		SackPressureRank:     16,
		TurnoverCreationRank: 16,
	}

	defenseRows, err := a.store.TeamDefenseWindow(ctx, teamID, season, week, lookback)
	if err != nil {
		return profile, err
	}
	offenseRows, err := a.store.PositionOffenseAgainst(ctx, teamID, season, week, lookback)
	if err != nil {
		return profile, err
	}
	if len(defenseRows) == 0 || len(offenseRows) == 0 {
		return profile, nil
	}

	games := float64(len(defenseRows))
	profile.GamesAnalyzed = len(defenseRows)

	var passYards, passTDs, passAttempts float64
	var rushYards, rushTDs, rushAttempts float64
	var rbRecYards, wrRecYards, teRecYards float64
	for _, g := range offenseRows {
		passYards += g.QBPassYards
		passTDs += g.QBPassTDs
		passAttempts += g.QBPassAttempts
		rushYards += g.RBRushYards
		rushTDs += g.RBRushTDs
		rushAttempts += g.RBRushAttempts
		rbRecYards += g.RBRecYards
		wrRecYards += g.WRRecYards
		teRecYards += g.TERecYards
	}
	perOffGame := float64(len(offenseRows))

	profile.PassYardsAllowedPerGame = passYards / perOffGame
	profile.RushYardsAllowedPerGame = rushYards / perOffGame
	profile.RBReceivingYardsAllowed = rbRecYards / perOffGame
	profile.WRYardsAllowedPerGame = wrRecYards / perOffGame
	profile.TEYardsAllowedPerGame = teRecYards / perOffGame

	var sacks, ints float64
	for _, g := range defenseRows {
		sacks += g.Sacks
		ints += g.Interceptions
	}
	if passAttempts > 0 {
		profile.PassTDsAllowedPerGame = passTDs / perOffGame
		profile.SackRate = sacks / passAttempts
		profile.IntRate = ints / passAttempts
	}
	if rushAttempts > 0 {
		profile.RushTDsAllowedPerGame = rushTDs / perOffGame
		profile.YardsPerCarryAllowed = profile.RushYardsAllowedPerGame / (rushAttempts / games)
	}

	if err := a.rankProfile(ctx, &profile, season, week); err != nil {
		return profile, err
	}

	a.cache.putProfile(ctx, profile)
	return profile, nil
}

// rankProfile assigns league-relative ranks. Points-allowed rank doubles as
// the pass and rush defense rank; dedicated per-position ranks would need
// data the schema does not carry.
func (a *Analyzer) rankProfile(ctx context.Context, profile *PositionDefensiveProfile, season, week int) error {
	league, err := a.store.LeagueDefenseAggregates(ctx, season, week)
	if err != nil {
		return err
	}
	if len(league) == 0 {
		return nil
	}

	for _, team := range league {
		if team.TeamID != profile.TeamID {
			continue
		}
		pointsRank, sackRank, turnoverRank := 1, 1, 1
		for _, other := range league {
			if other.TeamID == team.TeamID {
				continue
			}
			if other.AvgPointsAllowed < team.AvgPointsAllowed {
				pointsRank++
			}
			if other.AvgSacks > team.AvgSacks {
				sackRank++
			}
			if other.AvgTurnovers > team.AvgTurnovers {
				turnoverRank++
			}
		}
		profile.PassDefenseRank = pointsRank
		profile.RushDefenseRank = pointsRank
		profile.SackPressureRank = sackRank
		profile.TurnoverCreationRank = turnoverRank
		break
	}
	return nil
}

// PositionMatchupFeatures returns the position's matchup feature map for a
// specific offense/defense pairing. Keys follow PositionFeatureNames; an
// unsupported position yields an empty map.
func (a *Analyzer) PositionMatchupFeatures(ctx context.Context, position, offensiveTeam, defensiveTeam string, season, week int) (map[string]float64, error) {
	profile, err := a.PositionProfile(ctx, defensiveTeam, season, week, DefaultLookback)
	if err != nil {
		return nil, err
	}

	var adv positionAdvantage
	switch position {
	case "QB":
		adv = analyzeQBMatchup(profile)
		return map[string]float64{
			"opponent_pass_defense_rank":  33 - adv.primaryScore,
			"opponent_pass_rush_pressure": -adv.pressureScore,
			"opponent_turnover_creation":  adv.turnoverRisk,
			"qb_efficiency_modifier":      adv.efficiencyModifier,
			"qb_ceiling_modifier":         adv.ceilingModifier,
		}, nil
	case "RB":
		adv = analyzeRBMatchup(profile)
		return map[string]float64{
			"opponent_rush_defense_rank":     33 - adv.primaryScore,
			"opponent_rb_receiving_weakness": adv.secondaryScore,
			"rb_volume_modifier":             adv.volumeModifier,
			"rb_efficiency_modifier":         adv.efficiencyModifier,
			"rb_goal_line_advantage":         adv.redZone,
		}, nil
	case "WR":
		adv = analyzeWRMatchup(profile)
		return map[string]float64{
			"opponent_pass_defense_rank":    33 - adv.primaryScore,
			"opponent_wr_coverage_weakness": adv.secondaryScore,
			"wr_pressure_impact":            adv.pressureScore,
			"wr_efficiency_modifier":        adv.efficiencyModifier,
			"wr_ceiling_modifier":           adv.ceilingModifier,
		}, nil
	case "TE":
		adv = analyzeTEMatchup(profile)
		return map[string]float64{
			"opponent_te_coverage_weakness": adv.primaryScore,
			"opponent_pass_defense_rank":    adv.secondaryScore,
			"te_checkdown_opportunity":      adv.pressureScore,
			"te_efficiency_modifier":        adv.efficiencyModifier,
			"te_red_zone_advantage":         adv.redZone,
		}, nil
	default:
		return map[string]float64{}, nil
	}
}

func analyzeQBMatchup(defense PositionDefensiveProfile) positionAdvantage {
	adv := neutralAdvantage()
	adv.primaryScore = float64(33 - defense.PassDefenseRank)
	adv.pressureScore = float64(defense.SackPressureRank - 16)
	adv.turnoverRisk = float64(16 - defense.TurnoverCreationRank)

	modifier := 1.0
	if defense.PassDefenseRank > 24 {
		modifier += 0.15
	} else if defense.PassDefenseRank < 9 {
		modifier -= 0.15
	}
	if defense.SackPressureRank < 9 {
		modifier -= 0.10
	} else if defense.SackPressureRank > 24 {
		modifier += 0.10
	}
	adv.efficiencyModifier = clamp(modifier, 0.7, 1.4)

	switch {
	case defense.PassDefenseRank > 20:
		adv.ceilingModifier = 1.15
	case defense.PassDefenseRank < 12:
		adv.ceilingModifier = 0.90
	}
	return adv
}

func analyzeRBMatchup(defense PositionDefensiveProfile) positionAdvantage {
	adv := neutralAdvantage()
	adv.primaryScore = float64(33 - defense.RushDefenseRank)
	adv.secondaryScore = max(0, defense.RBReceivingYardsAllowed-20) / 5

	modifier := 1.0
	if defense.RushDefenseRank > 24 {
		modifier += 0.20
	} else if defense.RushDefenseRank < 9 {
		modifier -= 0.20
	}
	if defense.RBReceivingYardsAllowed > 30 {
		modifier += 0.05
	}
	adv.efficiencyModifier = clamp(modifier, 0.6, 1.5)

	switch {
	case defense.RushDefenseRank > 20:
		adv.volumeModifier = 1.10
	case defense.RushDefenseRank < 12:
		adv.volumeModifier = 0.95
	}
	return adv
}

func analyzeWRMatchup(defense PositionDefensiveProfile) positionAdvantage {
	adv := neutralAdvantage()
	adv.primaryScore = float64(33 - defense.PassDefenseRank)
	adv.secondaryScore = max(0, defense.WRYardsAllowedPerGame-200) / 20
	adv.pressureScore = float64(defense.SackPressureRank - 16)

	modifier := 1.0
	if defense.PassDefenseRank > 20 {
		modifier += 0.18
	} else if defense.PassDefenseRank < 12 {
		modifier -= 0.18
	}
	if defense.SackPressureRank < 12 {
		modifier -= 0.08
	}
	adv.efficiencyModifier = clamp(modifier, 0.7, 1.4)

	if defense.PassDefenseRank > 24 {
		adv.ceilingModifier = 1.25
	}
	return adv
}

func analyzeTEMatchup(defense PositionDefensiveProfile) positionAdvantage {
	adv := neutralAdvantage()
	adv.primaryScore = max(0, defense.TEYardsAllowedPerGame-40) / 5
	adv.secondaryScore = float64(33 - defense.PassDefenseRank)
	// Heavy pressure pushes checkdowns to the tight end.
	adv.pressureScore = float64(16 - defense.SackPressureRank)

	modifier := 1.0
	if defense.TEYardsAllowedPerGame > 60 {
		modifier += 0.20
	} else if defense.TEYardsAllowedPerGame < 30 {
		modifier -= 0.15
	}
	if defense.SackPressureRank < 12 {
		modifier += 0.08
	}
	adv.efficiencyModifier = clamp(modifier, 0.7, 1.3)
	return adv
}

func neutralAdvantage() positionAdvantage {
	return positionAdvantage{
		efficiencyModifier: 1.0,
		volumeModifier:     1.0,
		ceilingModifier:    1.0,
	}
}
