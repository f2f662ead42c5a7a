package model

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticLinear builds rows where y = 3*x0 - 2*x1 + 5 plus small noise.
func syntheticLinear(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	targets := make([]float64, n)
	for i := range rows {
		x0 := rng.Float64() * 10
		x1 := rng.Float64() * 10
		rows[i] = []float64{x0, x1}
		targets[i] = 3*x0 - 2*x1 + 5 + rng.NormFloat64()*0.1
	}
	return rows, targets
}

func TestScalerStandardizes(t *testing.T) {
	rows := [][]float64{{1, 100, 7}, {2, 200, 7}, {3, 300, 7}}
	s := FitScaler(rows)

	mid := s.Transform([]float64{2, 200, 7})
	assert.InDelta(t, 0, mid[0], 1e-9)
	assert.InDelta(t, 0, mid[1], 1e-9)
	assert.InDelta(t, 0, mid[2], 1e-9, "constant column passes through")

	hi := s.Transform([]float64{3, 300, 7})
	assert.InDelta(t, 1.0, hi[0], 1e-9, "sample std of 1,2,3 is 1")
}

func TestRidgeRecoversLinearSignal(t *testing.T) {
	rows, targets := syntheticLinear(400, 7)
	scaler := FitScaler(rows)
	r := FitRidge(scaler.transformAll(rows), targets)

	var absErr float64
	for i, row := range rows {
		absErr += math.Abs(r.Predict(scaler.Transform(row)) - targets[i])
	}
	assert.Less(t, absErr/float64(len(rows)), 0.5)
}

func TestForestAndGBMFitStepFunction(t *testing.T) {
	// A threshold rule trees should carve out easily.
	var rows [][]float64
	var targets []float64
	for i := 0; i < 200; i++ {
		x := float64(i%20) + 0.5
		rows = append(rows, []float64{x})
		if x > 10 {
			targets = append(targets, 20)
		} else {
			targets = append(targets, 5)
		}
	}

	forest := FitForest(rows, targets)
	gbm := FitGBM(rows, targets)

	assert.InDelta(t, 5, forest.Predict([]float64{3}), 2.0)
	assert.InDelta(t, 20, forest.Predict([]float64{17}), 2.0)
	assert.InDelta(t, 5, gbm.Predict([]float64{3}), 1.0)
	assert.InDelta(t, 20, gbm.Predict([]float64{17}), 1.0)
}

func TestForestDeterministicAcrossRuns(t *testing.T) {
	rows, targets := syntheticLinear(150, 11)

	a := FitForest(rows, targets)
	b := FitForest(rows, targets)

	probe := []float64{4.2, 6.9}
	assert.Equal(t, a.Predict(probe), b.Predict(probe),
		"seeded training must reproduce bit-identical models")
}

func TestTrainPositionSelectsByHeldOutError(t *testing.T) {
	rows, targets := syntheticLinear(300, 3)
	set := &dataset{rows: rows, targets: targets}

	m := trainPosition(set, []string{"f0", "f1"}, testLog(t))

	require.NotEmpty(t, m.Kind)
	assert.Contains(t, []string{"forest", "gbm", "ridge"}, m.Kind)
	assert.False(t, math.IsInf(m.HeldOutMAE, 1))
	assert.Equal(t, 300, m.TrainingRows)

	// Only the winning regressor is retained.
	kept := 0
	if m.Forest != nil {
		kept++
	}
	if m.GBM != nil {
		kept++
	}
	if m.Ridge != nil {
		kept++
	}
	assert.Equal(t, 1, kept)

	points, err := m.Predict([]float64{5, 5})
	require.NoError(t, err)
	assert.InDelta(t, 3*5-2*5+5, points, 3.0)
}

func TestTrainPositionDeterministic(t *testing.T) {
	rows, targets := syntheticLinear(200, 5)

	a := trainPosition(&dataset{rows: rows, targets: targets}, []string{"f0", "f1"}, testLog(t))
	b := trainPosition(&dataset{rows: rows, targets: targets}, []string{"f0", "f1"}, testLog(t))

	assert.Equal(t, a.Kind, b.Kind)
	assert.Equal(t, a.HeldOutMAE, b.HeldOutMAE)

	pa, err := a.Predict([]float64{2, 8})
	require.NoError(t, err)
	pb, err := b.Predict([]float64{2, 8})
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestPositionModelRejectsWrongWidth(t *testing.T) {
	rows, targets := syntheticLinear(100, 9)
	m := trainPosition(&dataset{rows: rows, targets: targets}, []string{"f0", "f1"}, testLog(t))

	_, err := m.Predict([]float64{1, 2, 3})
	require.Error(t, err)
}
