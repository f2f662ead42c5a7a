// Package lineup selects starting lineups from adjusted projections,
// either by raw points per slot or salary-aware under DFS constraints.
package lineup

// SalaryEstimator maps a projection to a DFS salary. The default is a
// position heuristic; a real slate feed can be swapped in.
type SalaryEstimator func(position string, projectedPoints float64) float64

// EstimateSalary is the default heuristic: projected points times a
// position multiplier, clamped to that position's realistic band.
func EstimateSalary(position string, projectedPoints float64) float64 {
	if position == "DST" {
		return estimateDSTSalary(projectedPoints)
	}

	multipliers := map[string]float64{"QB": 600, "RB": 700, "WR": 700, "TE": 500}
	multiplier, ok := multipliers[position]
	if !ok {
		multiplier = 600
	}
	salary := projectedPoints * multiplier

	minSalary := map[string]float64{"QB": 4500, "RB": 4000, "WR": 4000, "TE": 3500}
	maxSalary := map[string]float64{"QB": 9000, "RB": 10000, "WR": 9500, "TE": 7500}
	lo, ok := minSalary[position]
	if !ok {
		lo = 4000
	}
	hi, ok := maxSalary[position]
	if !ok {
		hi = 8000
	}

	if salary < lo {
		return lo
	}
	if salary > hi {
		return hi
	}
	return salary
}

// DST salaries run much lower than skill positions.
func estimateDSTSalary(projectedPoints float64) float64 {
	salary := projectedPoints * 250
	if salary < 2000 {
		return 2000
	}
	if salary > 6000 {
		return 6000
	}
	return salary
}
