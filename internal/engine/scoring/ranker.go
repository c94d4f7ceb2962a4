// # internal/engine/scoring/ranker.go
package scoring

import (
	"slices"
)

type Band string

const (
	BandEasy   Band = "easy"
	BandMedium Band = "medium"
	BandHard   Band = "hard"
)

// Bands lists bands from easiest to hardest.
var Bands = []Band{BandEasy, BandMedium, BandHard}

const (
	EasyCeiling = 33.0
	HardFloor   = 67.0

	DefaultTopN = 10
)

// BandOf is the one place scores are mapped to difficulty bands. Every
// report and diagram color derives from it.
func BandOf(score float64) Band {
	switch {
	case score <= EasyCeiling:
		return BandEasy
	case score >= HardFloor:
		return BandHard
	default:
		return BandMedium
	}
}

type Ranking struct {
	Sorted  []ExtractionScore
	Easiest []ExtractionScore
	// Hardest is ordered hardest first.
	Hardest []ExtractionScore
	Counts  map[Band]int
}

// Rank orders scores ascending. Equal scores keep their input order.
func Rank(scores []ExtractionScore, n int) Ranking {
	if n <= 0 {
		n = DefaultTopN
	}
	sorted := slices.Clone(scores)
	slices.SortStableFunc(sorted, func(a, b ExtractionScore) int {
		switch {
		case a.Final < b.Final:
			return -1
		case a.Final > b.Final:
			return 1
		default:
			return 0
		}
	})

	counts := make(map[Band]int, len(Bands))
	for _, b := range Bands {
		counts[b] = 0
	}
	for _, s := range sorted {
		counts[BandOf(s.Final)]++
	}

	k := min(n, len(sorted))
	hardest := make([]ExtractionScore, 0, k)
	for i := len(sorted) - 1; i >= len(sorted)-k; i-- {
		hardest = append(hardest, sorted[i])
	}

	return Ranking{
		Sorted:  sorted,
		Easiest: slices.Clone(sorted[:k]),
		Hardest: hardest,
		Counts:  counts,
	}
}
