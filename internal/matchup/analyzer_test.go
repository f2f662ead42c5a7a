package matchup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantasygrid/gameday/internal/repository"
)

type fakeStore struct {
	offense   map[string][]repository.TeamGameOffense
	defense   map[string][]repository.TeamDefenseWindowRow
	allowed   map[string][]repository.PositionOffenseAllowed
	league    []repository.LeagueDefenseAggregate
	opponents map[string]string
}

func (f *fakeStore) TeamOffenseWindow(_ context.Context, teamID string, _, _, _ int) ([]repository.TeamGameOffense, error) {
	return f.offense[teamID], nil
}

func (f *fakeStore) TeamDefenseWindow(_ context.Context, teamID string, _, _, _ int) ([]repository.TeamDefenseWindowRow, error) {
	return f.defense[teamID], nil
}

func (f *fakeStore) PositionOffenseAgainst(_ context.Context, teamID string, _, _, _ int) ([]repository.PositionOffenseAllowed, error) {
	return f.allowed[teamID], nil
}

func (f *fakeStore) LeagueDefenseAggregates(context.Context, int, int) ([]repository.LeagueDefenseAggregate, error) {
	return f.league, nil
}

func (f *fakeStore) OpponentFor(_ context.Context, teamID string, _, _ int) (string, error) {
	return f.opponents[teamID], nil
}

// eliteOffenseGames averages 30 points, 400 yards, 3 TDs and no turnovers,
// which maxes out every component of the composite score.
func eliteOffenseGames() []repository.TeamGameOffense {
	g := repository.TeamGameOffense{
		Points:    30,
		PassYards: 250,
		RushYards: 150,
		PassTDs:   2,
		RushTDs:   1,
	}
	return []repository.TeamGameOffense{g, g}
}

func TestOffensiveStrengthComposite(t *testing.T) {
	store := &fakeStore{offense: map[string][]repository.TeamGameOffense{
		"PHI": eliteOffenseGames(),
	}}
	a := NewAnalyzer(store, nil)

	offense, err := a.OffensiveStrength(context.Background(), "PHI", 2024, 10, DefaultLookback)
	require.NoError(t, err)

	assert.Equal(t, 2, offense.GamesAnalyzed)
	assert.InDelta(t, 30.0, offense.PointsPerGame, 1e-9)
	assert.InDelta(t, 400.0, offense.YardsPerGame, 1e-9)
	assert.InDelta(t, 100.0, offense.OffensiveScore, 1e-9)
}

func TestOffensiveStrengthFoldsReceivingTDs(t *testing.T) {
	store := &fakeStore{offense: map[string][]repository.TeamGameOffense{
		"SF": {{Points: 21, RushTDs: 1, RecTDs: 1}},
	}}
	a := NewAnalyzer(store, nil)

	offense, err := a.OffensiveStrength(context.Background(), "SF", 2024, 6, DefaultLookback)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, offense.RushTDsPerGame, 1e-9)
}

func TestOffensiveStrengthEmptyWindow(t *testing.T) {
	a := NewAnalyzer(&fakeStore{}, nil)

	offense, err := a.OffensiveStrength(context.Background(), "PHI", 2024, 1, DefaultLookback)
	require.NoError(t, err)

	assert.Equal(t, 0, offense.GamesAnalyzed)
	assert.Zero(t, offense.OffensiveScore)
	assert.Zero(t, offense.PointsPerGame)
}

func TestDefensiveStrengthComposite(t *testing.T) {
	g := repository.TeamDefenseWindowRow{
		PointsAllowed:    24,
		YardsAllowed:     350,
		PassYardsAllowed: 230,
		RushYardsAllowed: 120,
		Sacks:            2,
		Interceptions:    1,
		FumblesRecovered: 1,
	}
	store := &fakeStore{defense: map[string][]repository.TeamDefenseWindowRow{
		"NYJ": {g, g, g},
	}}
	a := NewAnalyzer(store, nil)

	defense, err := a.DefensiveStrength(context.Background(), "NYJ", 2024, 10, DefaultLookback)
	require.NoError(t, err)

	assert.Equal(t, 3, defense.GamesAnalyzed)
	assert.InDelta(t, 2.0, defense.TurnoversForcedPerGame, 1e-9)
	// points 70*0.4 + yards 80*0.3 + turnovers 80*0.2 + sacks 50*0.1
	assert.InDelta(t, 73.0, defense.DefensiveScore, 1e-9)
}

func TestAnalyzeMatchupStrongVsWeak(t *testing.T) {
	store := &fakeStore{offense: map[string][]repository.TeamGameOffense{
		"PHI": eliteOffenseGames(),
	}}
	a := NewAnalyzer(store, nil)

	m, err := a.AnalyzeMatchup(context.Background(), "PHI", "CAR", 2024, 10)
	require.NoError(t, err)

	assert.Equal(t, "Strong vs Weak", m.MatchupType)
	assert.InDelta(t, 100.0, m.OffensiveAdvantage, 1e-9)
	assert.InDelta(t, -100.0, m.DefensiveAdvantage, 1e-9)
	// A 100-point edge hits the modifier rails in both directions.
	assert.InDelta(t, 1.5, m.PointsModifier, 1e-9)
	assert.InDelta(t, 0.5, m.TurnoverModifier, 1e-9)
	assert.InDelta(t, 1.0, m.SackModifier, 1e-9)
}

func TestAnalyzeMatchupWeakVsStrong(t *testing.T) {
	g := repository.TeamDefenseWindowRow{
		PointsAllowed: 14,
		YardsAllowed:  250,
		Sacks:         4,
		Interceptions: 2,
	}
	store := &fakeStore{defense: map[string][]repository.TeamDefenseWindowRow{
		"BAL": {g, g},
	}}
	a := NewAnalyzer(store, nil)

	m, err := a.AnalyzeMatchup(context.Background(), "CAR", "BAL", 2024, 10)
	require.NoError(t, err)

	assert.Equal(t, "Weak vs Strong", m.MatchupType)
	assert.InDelta(t, 0.5, m.PointsModifier, 1e-9)
	assert.InDelta(t, 1.5, m.TurnoverModifier, 1e-9)
	// 4 sacks per game against a clean pocket maxes the sack modifier.
	assert.InDelta(t, 1.5, m.SackModifier, 1e-9)
}

func TestMatchupForPlayerOrientation(t *testing.T) {
	store := &fakeStore{
		opponents: map[string]string{"PHI": "DAL"},
		offense: map[string][]repository.TeamGameOffense{
			"PHI": eliteOffenseGames(),
		},
	}
	a := NewAnalyzer(store, nil)

	m, err := a.MatchupForPlayer(context.Background(), "PHI", 2024, 10)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, "PHI", m.OffensiveTeam)
	assert.Equal(t, "DAL", m.DefensiveTeam)
}

func TestMatchupForDSTOrientation(t *testing.T) {
	store := &fakeStore{opponents: map[string]string{"PHI": "DAL"}}
	a := NewAnalyzer(store, nil)

	m, err := a.MatchupForDST(context.Background(), "PHI", 2024, 10)
	require.NoError(t, err)
	require.NotNil(t, m)

	// The opponent's offense attacks the DST team's defense.
	assert.Equal(t, "DAL", m.OffensiveTeam)
	assert.Equal(t, "PHI", m.DefensiveTeam)
}

func TestMatchupForDSTByeWeek(t *testing.T) {
	a := NewAnalyzer(&fakeStore{opponents: map[string]string{}}, nil)

	m, err := a.MatchupForDST(context.Background(), "PHI", 2024, 7)
	require.NoError(t, err)
	assert.Nil(t, m)
}
