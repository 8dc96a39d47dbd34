package trajectory

import "math"

// SimilarityFunc scores how alike two sequence elements are. 1 means
// identical; DTW treats 1-score as the alignment cost.
type SimilarityFunc func(a, b float64) float64

// DTW aligns two sequences with dynamic time warping and returns
// 1 - cost/max(len(a), len(b)), where cost is the cheapest cumulative
// (1 - sim) over a monotonic alignment. Insertion, deletion and match steps
// are all allowed; no element is skipped.
//
// Two empty sequences score 1, one empty sequence scores 0. The result is not
// clamped: a sim outside [0,1] can push it outside [0,1] too.
//
// Time and space are O(len(a)*len(b)); inputs are key-point sequences, not raw
// samples.
func DTW(a, b []float64, sim SimilarityFunc) float64 {
	if len(a) == 0 || len(b) == 0 {
		if len(a) == len(b) {
			return 1
		}
		return 0
	}

	m, n := len(a), len(b)
	cost := make([][]float64, m+1)
	for i := range cost {
		cost[i] = make([]float64, n+1)
		for j := range cost[i] {
			cost[i][j] = math.Inf(1)
		}
	}
	cost[0][0] = 0

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			step := 1 - sim(a[i-1], b[j-1])
			cost[i][j] = step + min(
				cost[i-1][j],   // insertion
				cost[i][j-1],   // deletion
				cost[i-1][j-1], // match
			)
		}
	}

	return 1 - cost[m][n]/float64(max(m, n))
}
