package scoring

import (
	"math"
	"sort"
)

// PercentileRanks converts raw composite scores into percentile ranks
// on [0,100] within the given population. Ties receive the averaged
// mid-rank, so identical raw scores always rank identically. A single
// member ranks 100; an empty population yields nil. Ranks are rounded
// to two decimals.
func PercentileRanks(raw []float64) []float64 {
	n := len(raw)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []float64{100}
	}

	sorted := make([]float64, n)
	copy(sorted, raw)
	sort.Float64s(sorted)

	ranks := make([]float64, n)
	for i, v := range raw {
		first := sort.SearchFloat64s(sorted, v)
		last := first
		for last+1 < n && sorted[last+1] == v {
			last++
		}
		mid := float64(first+last) / 2
		ranks[i] = round2(mid / float64(n-1) * 100)
	}
	return ranks
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
