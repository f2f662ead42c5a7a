// Package model trains, persists, and serves the weekly projection models.
// Three candidate regressors are fit per position and the one with the
// lowest held-out error wins.
package model

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// trainSeed fixes every stochastic step (bootstrap draws, the train/eval
// split) so retraining on identical data reproduces identical artifacts.
const trainSeed = 42

// StandardScaler holds per-feature standardization parameters. All fields
// are exported for gob.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes column means and sample standard deviations.
// Zero-variance columns scale by 1 so constant features pass through.
func FitScaler(rows [][]float64) *StandardScaler {
	if len(rows) == 0 {
		return &StandardScaler{}
	}
	p := len(rows[0])
	s := &StandardScaler{
		Mean: make([]float64, p),
		Std:  make([]float64, p),
	}
	col := make([]float64, len(rows))
	for j := 0; j < p; j++ {
		for i, row := range rows {
			col[i] = row[j]
		}
		s.Mean[j] = stat.Mean(col, nil)
		s.Std[j] = stat.StdDev(col, nil)
		if s.Std[j] == 0 || math.IsNaN(s.Std[j]) {
			s.Std[j] = 1
		}
	}
	return s
}

// Transform standardizes a single vector.
func (s *StandardScaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

func (s *StandardScaler) transformAll(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = s.Transform(row)
	}
	return out
}

// TreeNode is one node of a CART regression tree. Leaves carry the mean
// target of their training rows.
type TreeNode struct {
	Leaf      bool
	Value     float64
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
}

// Tree is a variance-reduction CART regressor.
type Tree struct {
	Root *TreeNode
}

func (t *Tree) Predict(x []float64) float64 {
	node := t.Root
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

type treeConfig struct {
	maxDepth       int
	minSamplesLeaf int
	// featureSubset caps how many features each split considers; 0 means
	// all of them. The forest sets it for decorrelation.
	featureSubset int
}

func fitTree(rows [][]float64, targets []float64, indices []int, cfg treeConfig, rng *rand.Rand) *Tree {
	return &Tree{Root: growNode(rows, targets, indices, 0, cfg, rng)}
}

func growNode(rows [][]float64, targets []float64, indices []int, depth int, cfg treeConfig, rng *rand.Rand) *TreeNode {
	if depth >= cfg.maxDepth || len(indices) < 2*cfg.minSamplesLeaf {
		return leafNode(targets, indices)
	}

	feature, threshold, ok := bestSplit(rows, targets, indices, cfg, rng)
	if !ok {
		return leafNode(targets, indices)
	}

	var left, right []int
	for _, i := range indices {
		if rows[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < cfg.minSamplesLeaf || len(right) < cfg.minSamplesLeaf {
		return leafNode(targets, indices)
	}

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      growNode(rows, targets, left, depth+1, cfg, rng),
		Right:     growNode(rows, targets, right, depth+1, cfg, rng),
	}
}

func leafNode(targets []float64, indices []int) *TreeNode {
	var sum float64
	for _, i := range indices {
		sum += targets[i]
	}
	return &TreeNode{Leaf: true, Value: sum / float64(len(indices))}
}

// bestSplit scans candidate features for the threshold with the largest
// sum-of-squares reduction, using a sorted sweep with running sums.
func bestSplit(rows [][]float64, targets []float64, indices []int, cfg treeConfig, rng *rand.Rand) (feature int, threshold float64, ok bool) {
	p := len(rows[indices[0]])
	candidates := make([]int, p)
	for j := range candidates {
		candidates[j] = j
	}
	if cfg.featureSubset > 0 && cfg.featureSubset < p {
		rng.Shuffle(p, func(a, b int) { candidates[a], candidates[b] = candidates[b], candidates[a] })
		candidates = candidates[:cfg.featureSubset]
	}

	n := float64(len(indices))
	var total float64
	for _, i := range indices {
		total += targets[i]
	}

	bestGain := 0.0
	sorted := make([]int, len(indices))
	for _, j := range candidates {
		copy(sorted, indices)
		sort.Slice(sorted, func(a, b int) bool { return rows[sorted[a]][j] < rows[sorted[b]][j] })

		var leftSum float64
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			leftSum += targets[i]
			if rows[i][j] == rows[sorted[k+1]][j] {
				continue
			}
			nl := float64(k + 1)
			nr := n - nl
			if int(nl) < cfg.minSamplesLeaf || int(nr) < cfg.minSamplesLeaf {
				continue
			}
			rightSum := total - leftSum
			gain := leftSum*leftSum/nl + rightSum*rightSum/nr - total*total/n
			if gain > bestGain {
				bestGain = gain
				feature = j
				threshold = (rows[i][j] + rows[sorted[k+1]][j]) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

// Forest is a bagged ensemble of CART trees.
type Forest struct {
	Trees []*Tree
}

const (
	forestTrees    = 100
	forestMaxDepth = 10
	forestMinLeaf  = 3
)

// FitForest fits a seeded bagged forest. Each tree trains on a bootstrap
// resample and considers a third of the features per split.
func FitForest(rows [][]float64, targets []float64) *Forest {
	rng := rand.New(rand.NewSource(trainSeed))
	p := len(rows[0])
	cfg := treeConfig{
		maxDepth:       forestMaxDepth,
		minSamplesLeaf: forestMinLeaf,
		featureSubset:  maxInt(1, p/3),
	}

	f := &Forest{Trees: make([]*Tree, forestTrees)}
	sample := make([]int, len(rows))
	for t := 0; t < forestTrees; t++ {
		for i := range sample {
			sample[i] = rng.Intn(len(rows))
		}
		f.Trees[t] = fitTree(rows, targets, append([]int(nil), sample...), cfg, rng)
	}
	return f
}

func (f *Forest) Predict(x []float64) float64 {
	var sum float64
	for _, t := range f.Trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(f.Trees))
}

// GBM is a gradient-boosted ensemble of shallow trees fit to residuals.
type GBM struct {
	Base         float64
	LearningRate float64
	Trees        []*Tree
}

const (
	gbmIterations = 100
	gbmMaxDepth   = 3
	gbmMinLeaf    = 3
	gbmRate       = 0.1
)

// FitGBM boosts from the target mean with squared-error residuals.
func FitGBM(rows [][]float64, targets []float64) *GBM {
	rng := rand.New(rand.NewSource(trainSeed))
	cfg := treeConfig{maxDepth: gbmMaxDepth, minSamplesLeaf: gbmMinLeaf}

	g := &GBM{
		Base:         stat.Mean(targets, nil),
		LearningRate: gbmRate,
	}

	indices := make([]int, len(rows))
	for i := range indices {
		indices[i] = i
	}
	residuals := make([]float64, len(targets))
	current := make([]float64, len(targets))
	for i := range current {
		current[i] = g.Base
	}

	for it := 0; it < gbmIterations; it++ {
		for i := range residuals {
			residuals[i] = targets[i] - current[i]
		}
		tree := fitTree(rows, residuals, indices, cfg, rng)
		g.Trees = append(g.Trees, tree)
		for i := range current {
			current[i] += g.LearningRate * tree.Predict(rows[i])
		}
	}
	return g
}

func (g *GBM) Predict(x []float64) float64 {
	sum := g.Base
	for _, t := range g.Trees {
		sum += g.LearningRate * t.Predict(x)
	}
	return sum
}

// Ridge is an L2-regularized linear model fit on standardized features.
type Ridge struct {
	Alpha     float64
	Intercept float64
	Weights   []float64
}

const ridgeAlpha = 1.0

// FitRidge solves the closed form (XᵀX + αI)w = Xᵀy on centered targets.
// Inputs are expected to be standardized already; the intercept absorbs
// the target mean and is not penalized.
func FitRidge(rows [][]float64, targets []float64) *Ridge {
	n := len(rows)
	p := len(rows[0])

	yMean := stat.Mean(targets, nil)
	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i, row := range rows {
		x.SetRow(i, row)
		y.SetVec(i, targets[i]-yMean)
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	for j := 0; j < p; j++ {
		xtx.SetSym(j, j, xtx.At(j, j)+ridgeAlpha)
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var chol mat.Cholesky
	w := mat.NewVecDense(p, nil)
	if chol.Factorize(&xtx) {
		chol.SolveVecTo(w, &xty)
	}

	r := &Ridge{
		Alpha:     ridgeAlpha,
		Intercept: yMean,
		Weights:   make([]float64, p),
	}
	for j := 0; j < p; j++ {
		r.Weights[j] = w.AtVec(j)
	}
	return r
}

func (r *Ridge) Predict(x []float64) float64 {
	sum := r.Intercept
	for j, w := range r.Weights {
		sum += w * x[j]
	}
	return sum
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
