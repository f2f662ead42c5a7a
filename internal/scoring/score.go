package scoring

import "github.com/fantasygrid/gameday/internal/types"

// PlayerPoints decomposes a player's fantasy score.
type PlayerPoints struct {
	Passing   float64 `json:"passing_points"`
	Rushing   float64 `json:"rushing_points"`
	Receiving float64 `json:"receiving_points"`
	Bonus     float64 `json:"bonus_points"`
	Penalty   float64 `json:"penalty_points"`
	Total     float64 `json:"total_points"`
}

// DSTPoints decomposes a team defense's fantasy score.
type DSTPoints struct {
	PointsAllowed float64 `json:"points_allowed_score"`
	Turnovers     float64 `json:"turnovers_score"`
	Sacks         float64 `json:"sacks_score"`
	Touchdowns    float64 `json:"touchdowns_score"`
	Safety        float64 `json:"safety_score"`
	Bonus         float64 `json:"bonus_score"`
	Total         float64 `json:"total_points"`
}

// ScorePlayer computes a player's decomposed fantasy points for one game.
// Pure: equal inputs always give equal outputs.
func ScorePlayer(row types.BoxScoreRow, rs Ruleset) PlayerPoints {
	var p PlayerPoints

	p.Passing = row.PassYards*rs.PassYardPoints + row.PassTouchdowns*rs.PassTDPoints
	p.Rushing = row.RushYards*rs.RushYardPoints + row.RushTouchdowns*rs.RushTDPoints
	p.Receiving = row.Receptions*rs.ReceptionPoints +
		row.ReceivingYards*rs.ReceivingYardPoints +
		row.ReceivingTDs*rs.ReceivingTDPoints

	p.Penalty = row.PassInterceptions*rs.PassIntPoints +
		(row.RushFumbles+row.ReceivingFumbles)*rs.FumblePoints

	if rs.hasYardageBonuses() {
		if row.RushYards >= 100 {
			p.Bonus += 3
		}
		if row.ReceivingYards >= 100 {
			p.Bonus += 3
		}
		if row.PassYards >= 300 {
			p.Bonus += 3
		}
	}

	p.Total = p.Passing + p.Rushing + p.Receiving + p.Bonus + p.Penalty
	return p
}

// ScoreDST computes a defense's decomposed fantasy points for one game.
func ScoreDST(row types.TeamDefenseRow, rs Ruleset) DSTPoints {
	var p DSTPoints

	p.PointsAllowed = rs.DSTTiers[pointsAllowedTier(row.PointsAllowed)]

	p.Turnovers = row.Interceptions*rs.DSTInterceptionPoints +
		row.FumblesRecovered*rs.DSTFumbleRecoveryPoints
	p.Sacks = row.Sacks * rs.DSTSackPoints

	totalTDs := row.DefensiveTDs + row.PickSix + row.FumbleTDs + row.ReturnTDs
	p.Touchdowns = totalTDs * rs.DSTTouchdownPoints

	p.Safety = row.Safeties * rs.DSTSafetyPoints

	if row.YardsAllowed < 100 {
		p.Bonus = rs.DSTUnder100Bonus
	} else if row.YardsAllowed < 300 {
		p.Bonus = rs.DSTUnder300Bonus
	}

	p.Total = p.PointsAllowed + p.Turnovers + p.Sacks + p.Touchdowns + p.Safety + p.Bonus
	return p
}

// pointsAllowedTier maps points allowed to a tier index. Boundary values
// land in the lower tier: 6 scores as "1-6", 7 as "7-13".
func pointsAllowedTier(pointsAllowed float64) int {
	switch {
	case pointsAllowed <= 0:
		return 0
	case pointsAllowed <= 6:
		return 1
	case pointsAllowed <= 13:
		return 2
	case pointsAllowed <= 20:
		return 3
	case pointsAllowed <= 27:
		return 4
	case pointsAllowed <= 34:
		return 5
	default:
		return 6
	}
}
