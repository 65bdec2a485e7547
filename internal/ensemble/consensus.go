package ensemble

import (
	"trendspotter/internal/detector"
	"trendspotter/pkg/stat"
)

// minVotes is the consensus floor: a row is an anomaly when at least
// this many available detectors flagged it.
const minVotes = 2

// combine folds the available detector results into one verdict per
// row. Scores are min-max normalized per detector before averaging so a
// distance scale cannot dominate a z scale.
func combine(rows int, results []*detector.Result, singleVote bool) []Verdict {
	verdicts := make([]Verdict, rows)
	if len(results) == 0 {
		return verdicts
	}

	votesNeeded := minVotes
	if singleVote || len(results) == 1 {
		votesNeeded = 1
	}

	normalized := make([][]float64, len(results))
	for i, result := range results {
		normalized[i] = normalize(result.Scores)
	}

	for row := 0; row < rows; row++ {
		var sum float64
		var votes int
		var methods []string
		for i, result := range results {
			sum += normalized[i][row]
			if result.Flags[row] {
				votes++
				methods = append(methods, string(result.Kind))
			}
		}
		verdicts[row] = Verdict{
			Score:   sum / float64(len(results)),
			Outlier: votes >= votesNeeded,
			Methods: methods,
		}
	}
	return verdicts
}

func normalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	min, max := stat.MinMax(scores)
	if max == min {
		return out
	}
	for i, s := range scores {
		out[i] = (s - min) / (max - min)
	}
	return out
}
