package lineup

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/fantasygrid/gameday/internal/types"
	"github.com/fantasygrid/gameday/pkg/logger"
)

// basicSlots is the fixed starting lineup the points-only composer fills.
var basicSlots = []struct {
	Position string
	Count    int
}{
	{"QB", 1},
	{"RB", 2},
	{"WR", 3},
	{"TE", 1},
}

// Lineup is the points-only composer result. Unfilled counts slots a thin
// prediction set could not cover.
type Lineup struct {
	Slots          map[string][]types.PlayerPrediction `json:"slots"`
	TotalProjected float64                             `json:"total_projected"`
	Unfilled       map[string]int                      `json:"unfilled,omitempty"`
}

// Compose fills 1 QB, 2 RB, 3 WR, 1 TE by taking the top projections per
// position.
func Compose(predictions []types.PlayerPrediction) *Lineup {
	log := logger.WithComponent("lineup")

	byPosition := make(map[string][]types.PlayerPrediction)
	for _, p := range predictions {
		byPosition[p.Position] = append(byPosition[p.Position], p)
	}
	for _, group := range byPosition {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].PredictedPoints > group[j].PredictedPoints
		})
	}

	result := &Lineup{Slots: make(map[string][]types.PlayerPrediction)}
	for _, slot := range basicSlots {
		group := byPosition[slot.Position]
		take := slot.Count
		if take > len(group) {
			if result.Unfilled == nil {
				result.Unfilled = make(map[string]int)
			}
			result.Unfilled[slot.Position] = take - len(group)
			take = len(group)
		}
		result.Slots[slot.Position] = group[:take]
		for _, p := range group[:take] {
			result.TotalProjected += p.PredictedPoints
		}
	}

	if len(result.Unfilled) > 0 {
		log.WithField("unfilled", result.Unfilled).Warn("Lineup has open slots")
	}
	return result
}

// Projection is one candidate for the salary-aware composer.
type Projection struct {
	PlayerID        string  `json:"player_id"`
	PlayerName      string  `json:"player_name"`
	Position        string  `json:"position"`
	Team            string  `json:"team"`
	ProjectedPoints float64 `json:"projected_points"`
	Salary          float64 `json:"salary"`
}

// Constraints bound the salary-aware composer.
type Constraints struct {
	Positions         map[string]int
	SalaryCap         float64
	MinTeams          int
	MaxPlayersPerTeam int
}

// DefaultConstraints is the DraftKings classic format: one FLEX drawn
// from RB/WR/TE on top of the base slots.
func DefaultConstraints() Constraints {
	return Constraints{
		Positions:         map[string]int{"QB": 1, "RB": 2, "WR": 3, "TE": 1, "FLEX": 1, "DST": 1},
		SalaryCap:         50000,
		MinTeams:          2,
		MaxPlayersPerTeam: 4,
	}
}

// SalaryLineup is the salary-aware composer result.
type SalaryLineup struct {
	Players        []Projection `json:"players"`
	TotalProjected float64      `json:"total_projected"`
	TotalSalary    float64      `json:"total_salary"`
	TeamsUsed      []string     `json:"teams_used"`
}

// ComposeSalaryAware greedily picks by value (points per $1000 of salary)
// under the cap, team diversity, and slot constraints. If the first pass
// lands on a single team, it retries with that team capped one lower.
func ComposeSalaryAware(projections []Projection, constraints Constraints) *SalaryLineup {
	log := logger.WithComponent("lineup")

	candidates := append([]Projection(nil), projections...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return value(candidates[i]) > value(candidates[j])
	})

	selected := selectGreedy(candidates, constraints, nil)
	if constraints.MinTeams > 1 && len(selected) > 0 && distinctTeams(selected) < constraints.MinTeams {
		dominant := selected[0].Team
		retry := selectGreedy(candidates, constraints, map[string]int{dominant: constraints.MaxPlayersPerTeam - 1})
		if distinctTeams(retry) > distinctTeams(selected) {
			selected = retry
		}
	}

	result := &SalaryLineup{Players: selected}
	teams := make(map[string]struct{})
	for _, p := range selected {
		result.TotalProjected += p.ProjectedPoints
		result.TotalSalary += p.Salary
		teams[p.Team] = struct{}{}
	}
	for team := range teams {
		result.TeamsUsed = append(result.TeamsUsed, team)
	}
	sort.Strings(result.TeamsUsed)

	if want := slotCount(constraints); len(selected) < want {
		log.WithFields(logrus.Fields{"filled": len(selected), "slots": want}).
			Warn("Salary lineup incomplete under constraints")
	}
	return result
}

// flexEligible positions may take the FLEX slot; QB and DST never do.
var flexEligible = map[string]bool{"RB": true, "WR": true, "TE": true}

func selectGreedy(candidates []Projection, constraints Constraints, teamCaps map[string]int) []Projection {
	remaining := make(map[string]int, len(constraints.Positions))
	for position, count := range constraints.Positions {
		remaining[position] = count
	}
	flexLeft := remaining["FLEX"]
	delete(remaining, "FLEX")

	var selected []Projection
	budget := constraints.SalaryCap
	perTeam := make(map[string]int)
	want := slotCount(constraints)

	for _, p := range candidates {
		if len(selected) == want {
			break
		}
		useFlex := false
		if remaining[p.Position] <= 0 {
			if flexLeft <= 0 || !flexEligible[p.Position] {
				continue
			}
			useFlex = true
		}
		if p.Salary > budget {
			continue
		}
		teamCap := constraints.MaxPlayersPerTeam
		if override, ok := teamCaps[p.Team]; ok && override < teamCap {
			teamCap = override
		}
		if perTeam[p.Team] >= teamCap {
			continue
		}

		selected = append(selected, p)
		budget -= p.Salary
		if useFlex {
			flexLeft--
		} else {
			remaining[p.Position]--
		}
		perTeam[p.Team]++
	}
	return selected
}

func slotCount(constraints Constraints) int {
	total := 0
	for _, count := range constraints.Positions {
		total += count
	}
	return total
}

func distinctTeams(players []Projection) int {
	teams := make(map[string]struct{})
	for _, p := range players {
		teams[p.Team] = struct{}{}
	}
	return len(teams)
}

func value(p Projection) float64 {
	if p.Salary <= 0 {
		return 0
	}
	return p.ProjectedPoints / (p.Salary / 1000)
}
