package model

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/fantasygrid/gameday/internal/features"
	"github.com/fantasygrid/gameday/internal/scoring"
	"github.com/fantasygrid/gameday/internal/types"
)

const (
	// minPositionRows is the floor below which a position gets no model.
	minPositionRows = 50
	evalFraction    = 0.2
)

// TrainingStore is the slice of the repository the trainer reads.
type TrainingStore interface {
	TrainingPlayerRows(ctx context.Context, seasons []int) ([]types.PlayerGameRow, error)
	TrainingDefenseRows(ctx context.Context, seasons []int) ([]types.TeamDefenseRow, error)
}

// DSTMatchupFiller fills matchup fields on an assembled DST vector. The
// feature builder implements it; the matchup cache keeps the per-row
// lookups cheap.
type DSTMatchupFiller interface {
	FillDSTMatchup(ctx context.Context, f *features.DSTFeatures) error
}

type dataset struct {
	rows    [][]float64
	targets []float64
}

func (d *dataset) add(x []float64, y float64) {
	d.rows = append(d.rows, x)
	d.targets = append(d.targets, y)
}

// buildPlayerDatasets walks every player's history chronologically and
// emits one (vector, actual points) pair per game with enough prior
// history. Rows after the cutoff week never become labels or history.
// Player vectors use base features only, so no matchup queries run here.
func buildPlayerDatasets(all []types.PlayerGameRow, rs scoring.Ruleset, cutoffSeason, cutoffWeek int) map[string]*dataset {
	byPlayer := make(map[string][]types.PlayerGameRow)
	var order []string
	for _, row := range all {
		if !features.Before(row.SeasonID, row.Week, cutoffSeason, cutoffWeek+1) {
			continue
		}
		if _, seen := byPlayer[row.PlayerID]; !seen {
			order = append(order, row.PlayerID)
		}
		byPlayer[row.PlayerID] = append(byPlayer[row.PlayerID], row)
	}
	sort.Strings(order)

	sets := make(map[string]*dataset)
	for _, playerID := range order {
		rows := byPlayer[playerID]
		history := make([]features.HistoryRow, 0, len(rows))
		for _, row := range rows {
			actual := scoring.ScorePlayer(row.BoxScoreRow, rs).Total
			f, err := features.AssemblePlayerFeatures(history, playerID, row.Position, row.SeasonID, row.Week)
			if err == nil {
				set := sets[row.Position]
				if set == nil {
					set = &dataset{}
					sets[row.Position] = set
				}
				set.add(f.Vector(false), actual)
			}
			history = append(history, features.HistoryRow{Row: row, FantasyPoints: actual})
		}
	}
	return sets
}

// buildDSTDataset does the same walk per defense. Matchup fields are
// filled per labeled row; a failed lookup leaves the neutral defaults.
func buildDSTDataset(ctx context.Context, all []types.TeamDefenseRow, rs scoring.Ruleset, filler DSTMatchupFiller, cutoffSeason, cutoffWeek int, log *logrus.Entry) (*dataset, error) {
	byTeam := make(map[string][]types.TeamDefenseRow)
	var order []string
	for _, row := range all {
		if !features.Before(row.SeasonID, row.Week, cutoffSeason, cutoffWeek+1) {
			continue
		}
		if _, seen := byTeam[row.TeamID]; !seen {
			order = append(order, row.TeamID)
		}
		byTeam[row.TeamID] = append(byTeam[row.TeamID], row)
	}
	sort.Strings(order)

	set := &dataset{}
	for _, teamID := range order {
		rows := byTeam[teamID]
		points := make([]float64, len(rows))
		for i, row := range rows {
			points[i] = scoring.ScoreDST(row, rs).Total
		}
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			f, err := features.AssembleDSTFeatures(rows[:i], points[:i], teamID, row.SeasonID, row.Week)
			if err != nil {
				continue
			}
			if err := filler.FillDSTMatchup(ctx, f); err != nil {
				log.WithFields(logrus.Fields{
					"team": teamID, "season": row.SeasonID, "week": row.Week,
				}).WithError(err).Debug("DST matchup unavailable, keeping neutral")
			}
			set.add(f.Vector(), points[i])
		}
	}
	return set, nil
}

// PositionModel is one trained regressor with everything prediction needs.
// All fields are exported for gob.
type PositionModel struct {
	Kind         string
	Forest       *Forest
	GBM          *GBM
	Ridge        *Ridge
	Scaler       *StandardScaler
	FeatureNames []string
	HeldOutMAE   float64
	TrainingRows int
}

// Predict applies the winning regressor. Only the ridge sees standardized
// inputs; the tree ensembles split on raw values.
func (m *PositionModel) Predict(x []float64) (float64, error) {
	if len(x) != len(m.FeatureNames) {
		return 0, fmt.Errorf("%w: model expects %d features, got %d",
			types.ErrSchemaMismatch, len(m.FeatureNames), len(x))
	}
	switch m.Kind {
	case "ridge":
		return m.Ridge.Predict(m.Scaler.Transform(x)), nil
	case "gbm":
		return m.GBM.Predict(x), nil
	case "forest":
		return m.Forest.Predict(x), nil
	default:
		return 0, fmt.Errorf("%w: unknown model kind %q", types.ErrInternal, m.Kind)
	}
}

// trainPosition fits all three candidates on a seeded 80/20 split and
// keeps the one with the lowest held-out mean absolute error.
func trainPosition(set *dataset, featureNames []string, log *logrus.Entry) *PositionModel {
	n := len(set.rows)
	perm := rand.New(rand.NewSource(trainSeed)).Perm(n)
	evalSize := int(float64(n) * evalFraction)
	if evalSize == 0 {
		evalSize = 1
	}

	var trainRows, evalRows [][]float64
	var trainY, evalY []float64
	for i, idx := range perm {
		if i < evalSize {
			evalRows = append(evalRows, set.rows[idx])
			evalY = append(evalY, set.targets[idx])
		} else {
			trainRows = append(trainRows, set.rows[idx])
			trainY = append(trainY, set.targets[idx])
		}
	}

	scaler := FitScaler(trainRows)
	m := &PositionModel{
		Scaler:       scaler,
		FeatureNames: featureNames,
		TrainingRows: n,
	}

	forest := FitForest(trainRows, trainY)
	gbm := FitGBM(trainRows, trainY)
	ridge := FitRidge(scaler.transformAll(trainRows), trainY)

	candidates := []struct {
		kind    string
		predict func([]float64) float64
	}{
		{"forest", forest.Predict},
		{"gbm", gbm.Predict},
		{"ridge", func(x []float64) float64 { return ridge.Predict(scaler.Transform(x)) }},
	}

	best := math.Inf(1)
	for _, c := range candidates {
		var absErr float64
		for i, x := range evalRows {
			absErr += math.Abs(c.predict(x) - evalY[i])
		}
		mae := absErr / float64(len(evalRows))
		log.WithFields(logrus.Fields{"model": c.kind, "mae": mae}).Debug("Candidate evaluated")
		if mae < best {
			best = mae
			m.Kind = c.kind
		}
	}

	m.HeldOutMAE = best
	// Only the winner ships in the artifact.
	switch m.Kind {
	case "forest":
		m.Forest = forest
	case "gbm":
		m.GBM = gbm
	case "ridge":
		m.Ridge = ridge
	}
	return m
}
