package injury

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantasygrid/gameday/internal/types"
)

func report(name, team, position, status, fantasy string) types.InjuryRecord {
	return types.InjuryRecord{
		FullName:      name,
		Team:          team,
		Position:      position,
		ReportStatus:  status,
		FantasyStatus: fantasy,
	}
}

func TestSeverityLadder(t *testing.T) {
	assert.Equal(t, 1.0, Severity(report("a", "PHI", "WR", "Out", "")))
	assert.Equal(t, 1.0, Severity(report("a", "PHI", "WR", "Questionable", "INACTIVE")),
		"fantasy status INACTIVE overrides the report status")
	assert.Equal(t, 0.8, Severity(report("a", "PHI", "WR", "Doubtful", "")))
	assert.Equal(t, 0.3, Severity(report("a", "PHI", "WR", "Questionable", "")))
	assert.Zero(t, Severity(report("a", "PHI", "WR", "Active", "")))
}

func TestFilterOutMatchesCaseInsensitively(t *testing.T) {
	f := NewFilter([]types.InjuryRecord{
		report("Jalen Hurts", "PHI", "QB", "Out", ""),
		report("AJ Brown", "PHI", "WR", "Questionable", ""),
	})

	predictions := []types.PlayerPrediction{
		{PlayerName: "JALEN HURTS", PredictedPoints: 22},
		{PlayerName: "AJ Brown", PredictedPoints: 15},
		{PlayerName: "DeVonta Smith", PredictedPoints: 13},
	}

	kept := f.FilterOut(predictions)
	require.Len(t, kept, 2)
	assert.Equal(t, "AJ Brown", kept[0].PlayerName)
	assert.Equal(t, "DeVonta Smith", kept[1].PlayerName)
}

func TestAdjustOnlyLowersPredictions(t *testing.T) {
	f := NewFilter([]types.InjuryRecord{
		report("AJ Brown", "PHI", "WR", "Questionable", ""),
		report("Dallas Goedert", "PHI", "TE", "Doubtful", ""),
		report("Saquon Barkley", "PHI", "RB", "Active", ""),
	})

	predictions := []types.PlayerPrediction{
		{PlayerName: "AJ Brown", PredictedPoints: 20},
		{PlayerName: "Dallas Goedert", PredictedPoints: 10},
		{PlayerName: "Saquon Barkley", PredictedPoints: 18},
		{PlayerName: "DeVonta Smith", PredictedPoints: 13},
	}

	adjusted := f.Adjust(predictions)
	require.Len(t, adjusted, 4)

	assert.InDelta(t, 14.0, adjusted[0].PredictedPoints, 1e-9)
	assert.Equal(t, 0.3, adjusted[0].InjuryAdjustment)
	assert.Equal(t, "Questionable", adjusted[0].InjuryStatus)

	assert.InDelta(t, 2.0, adjusted[1].PredictedPoints, 1e-9)

	for i, p := range adjusted {
		assert.LessOrEqual(t, p.PredictedPoints, predictions[i].PredictedPoints,
			"adjustments never raise a projection")
	}
	assert.Equal(t, 18.0, adjusted[2].PredictedPoints, "active players are untouched")
	assert.Zero(t, adjusted[3].InjuryAdjustment)
}

func TestDSTBoostLadderAndCap(t *testing.T) {
	impact := TeamImpact([]types.InjuryRecord{
		report("QB One", "DAL", "QB", "Out", ""),
		report("QB Two", "DAL", "QB", "Questionable", ""),
		report("Center", "DAL", "C", "Out", ""),
		report("Guard", "DAL", "G", "Out", ""),
		report("Healthy", "DAL", "WR", "Active", ""),
		report("Other Team", "NYG", "QB", "Out", ""),
	}, "DAL")

	assert.NotContains(t, impact, "WR", "zero-severity records are excluded")
	assert.InDelta(t, 0.15+0.05+0.03+0.03, DSTBoost(impact), 1e-9)

	// Stacked QB outs hit the cap.
	capped := TeamImpact([]types.InjuryRecord{
		report("QB One", "NYJ", "QB", "Out", ""),
		report("QB Two", "NYJ", "QB", "Out", ""),
	}, "NYJ")
	assert.Equal(t, 0.25, DSTBoost(capped))
}

func TestBuildReportHighImpactTeams(t *testing.T) {
	r := BuildReport([]types.InjuryRecord{
		report("QB One", "CHI", "QB", "Out", ""),       // 3.0
		report("Back One", "CHI", "RB", "Out", ""),     // 5.0 -> high impact
		report("QB Two", "DET", "QB", "Out", ""),       // 3.0, not above threshold
		report("Wide One", "GB", "WR", "Doubtful", ""), // questionable only
	})

	assert.Equal(t, 3, r.TotalOut)
	assert.Equal(t, 1, r.TotalQuestionable)
	assert.Equal(t, []string{"CHI"}, r.HighImpactTeams)
	assert.Contains(t, r.OutByPosition["QB"], "QB One")
	assert.Contains(t, r.QuestionableByPosition["WR"], "Wide One")
}
