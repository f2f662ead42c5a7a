package model

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/fantasygrid/gameday/internal/features"
	"github.com/fantasygrid/gameday/internal/types"
)

func testLog(t *testing.T) *logrus.Entry {
	t.Helper()
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return logrus.NewEntry(l)
}

// fakeTrainingStore serves deterministic synthetic seasons: every player's
// output scales with a per-player base plus a weekly wobble, so the models
// have real signal to find.
type fakeTrainingStore struct{}

func (fakeTrainingStore) TrainingPlayerRows(_ context.Context, seasons []int) ([]types.PlayerGameRow, error) {
	var rows []types.PlayerGameRow
	for _, season := range seasons {
		for week := 3; week <= 17; week++ {
			for _, position := range types.SkillPositions {
				for p := 0; p < 6; p++ {
					base := float64(40 + p*15)
					wobble := float64((week*7+p*3)%11) - 5
					row := types.PlayerGameRow{
						Position: position,
						SeasonID: season,
						Week:     week,
					}
					row.PlayerID = fmt.Sprintf("%s-%d", position, p)
					row.TeamID = fmt.Sprintf("T%02d", p)
					switch position {
					case "QB":
						row.PassYards = base*4 + wobble*10
						row.PassAttempts = 32
						row.PassTouchdowns = 2
					case "RB":
						row.RushYards = base + wobble*2
						row.RushAttempts = 15
					default:
						row.ReceivingYards = base + wobble*2
						row.Receptions = 5
						row.ReceivingTargets = 8
					}
					rows = append(rows, row)
				}
			}
		}
	}
	return rows, nil
}

func (fakeTrainingStore) TrainingDefenseRows(_ context.Context, seasons []int) ([]types.TeamDefenseRow, error) {
	var rows []types.TeamDefenseRow
	for _, season := range seasons {
		for week := 1; week <= 17; week++ {
			for team := 0; team < 8; team++ {
				rows = append(rows, types.TeamDefenseRow{
					TeamID:           fmt.Sprintf("T%02d", team),
					SeasonID:         season,
					Week:             week,
					PointsAllowed:    float64(14 + (week+team)%14),
					Sacks:            float64(1 + (week+team)%4),
					Interceptions:    float64((week + team) % 3),
					FumblesRecovered: float64(week % 2),
					YardsAllowed:     320,
				})
			}
		}
	}
	return rows, nil
}

type neutralFiller struct{}

func (neutralFiller) FillDSTMatchup(context.Context, *features.DSTFeatures) error { return nil }

type fixedCutoffs struct {
	seasons []int
	season  int
	week    int
	ok      bool
}

func (c fixedCutoffs) TrainingSeasons(context.Context, int) []int { return c.seasons }

func (c fixedCutoffs) LatestReadyBefore(context.Context, int, int) (int, int, bool) {
	return c.season, c.week, c.ok
}
