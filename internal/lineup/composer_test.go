package lineup

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantasygrid/gameday/internal/types"
)

func prediction(name, position string, points float64) types.PlayerPrediction {
	return types.PlayerPrediction{PlayerName: name, Position: position, PredictedPoints: points}
}

func TestComposeTakesTopPerPosition(t *testing.T) {
	predictions := []types.PlayerPrediction{
		prediction("QB Low", "QB", 14),
		prediction("QB High", "QB", 24),
		prediction("RB A", "RB", 19),
		prediction("RB B", "RB", 15),
		prediction("RB C", "RB", 11),
		prediction("WR A", "WR", 17),
		prediction("WR B", "WR", 16),
		prediction("WR C", "WR", 12),
		prediction("WR D", "WR", 9),
		prediction("TE A", "TE", 10),
	}

	result := Compose(predictions)

	require.Len(t, result.Slots["QB"], 1)
	assert.Equal(t, "QB High", result.Slots["QB"][0].PlayerName)
	require.Len(t, result.Slots["RB"], 2)
	require.Len(t, result.Slots["WR"], 3)
	require.Len(t, result.Slots["TE"], 1)
	assert.Empty(t, result.Unfilled)
	assert.InDelta(t, 24+19+15+17+16+12+10, result.TotalProjected, 1e-9)
}

func TestComposeReportsUnfilledSlots(t *testing.T) {
	result := Compose([]types.PlayerPrediction{
		prediction("QB High", "QB", 24),
		prediction("RB A", "RB", 19),
	})

	assert.Equal(t, 1, result.Unfilled["RB"])
	assert.Equal(t, 3, result.Unfilled["WR"])
	assert.Equal(t, 1, result.Unfilled["TE"])
	assert.InDelta(t, 43.0, result.TotalProjected, 1e-9)
}

func candidatePool() []Projection {
	var pool []Projection
	add := func(position, team string, n int, points float64) {
		for i := 0; i < n; i++ {
			p := points - float64(i)*1.5
			pool = append(pool, Projection{
				PlayerID:        fmt.Sprintf("%s-%s-%d", team, position, i),
				PlayerName:      fmt.Sprintf("%s %s %d", team, position, i),
				Position:        position,
				Team:            team,
				ProjectedPoints: p,
				Salary:          EstimateSalary(position, p),
			})
		}
	}
	add("QB", "PHI", 2, 12)
	add("QB", "DAL", 2, 11)
	add("RB", "PHI", 3, 8)
	add("RB", "SF", 3, 7.5)
	add("WR", "DAL", 4, 8)
	add("WR", "MIA", 4, 7.5)
	add("TE", "KC", 2, 8)
	add("TE", "SF", 2, 7)
	add("DST", "BUF", 1, 9)
	add("DST", "NYJ", 1, 8)
	return pool
}

func TestComposeSalaryAwareFillsEverySlot(t *testing.T) {
	constraints := DefaultConstraints()
	result := ComposeSalaryAware(candidatePool(), constraints)

	require.Len(t, result.Players, 9, "QB+2RB+3WR+TE+FLEX+DST")
	assert.LessOrEqual(t, result.TotalSalary, constraints.SalaryCap)
	assert.GreaterOrEqual(t, len(result.TeamsUsed), constraints.MinTeams)

	counts := make(map[string]int)
	perTeam := make(map[string]int)
	for _, p := range result.Players {
		counts[p.Position]++
		perTeam[p.Team]++
	}
	assert.Equal(t, 1, counts["QB"])
	assert.Equal(t, 1, counts["DST"])
	// FLEX adds exactly one skill player beyond the base 2/3/1.
	assert.Equal(t, 7, counts["RB"]+counts["WR"]+counts["TE"])
	assert.LessOrEqual(t, counts["RB"], 3)
	assert.LessOrEqual(t, counts["WR"], 4)
	assert.LessOrEqual(t, counts["TE"], 2)
	for team, n := range perTeam {
		assert.LessOrEqual(t, n, constraints.MaxPlayersPerTeam, "team %s", team)
	}
}

func TestComposeSalaryAwareRespectsCap(t *testing.T) {
	constraints := DefaultConstraints()
	constraints.SalaryCap = 20000

	result := ComposeSalaryAware(candidatePool(), constraints)

	assert.LessOrEqual(t, result.TotalSalary, 20000.0)
	assert.Less(t, len(result.Players), 9, "tight cap leaves slots open")
}

func TestComposeSalaryAwareFlexNeverTakesQBOrDST(t *testing.T) {
	pool := candidatePool()
	result := ComposeSalaryAware(pool, DefaultConstraints())

	counts := make(map[string]int)
	for _, p := range result.Players {
		counts[p.Position]++
	}
	assert.LessOrEqual(t, counts["QB"], 1)
	assert.LessOrEqual(t, counts["DST"], 1)
}

func TestEstimateSalaryBands(t *testing.T) {
	assert.Equal(t, 4500.0, EstimateSalary("QB", 1), "floor")
	assert.Equal(t, 9000.0, EstimateSalary("QB", 40), "ceiling")
	assert.InDelta(t, 8400.0, EstimateSalary("RB", 12), 1e-9, "in-band value scales linearly")
	assert.Equal(t, 10000.0, EstimateSalary("RB", 20), "RB band caps at 10000")
}

func TestEstimateDSTSalaryBand(t *testing.T) {
	assert.Equal(t, 2000.0, EstimateSalary("DST", 1))
	assert.InDelta(t, 2500.0, EstimateSalary("DST", 10), 1e-9)
	assert.Equal(t, 6000.0, EstimateSalary("DST", 40))
}
