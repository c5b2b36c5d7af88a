// Package dataset routes generated pairs to partitions and persists them.
package dataset

import (
	"math"

	"github.com/menta2k/pairset/pkg/types"
)

// AssignPartitions maps each file to a partition based purely on its position.
//
// With split enabled the first floor(len*trainFraction) files are Train and
// the rest Test; otherwise every file is Unsplit. The listing is not shuffled.
func AssignPartitions(files []string, trainFraction float64, split bool) map[string]types.Partition {
	out := make(map[string]types.Partition, len(files))
	if !split {
		for _, f := range files {
			out[f] = types.Unsplit
		}
		return out
	}

	nTrain := TrainCount(len(files), trainFraction)
	for i, f := range files {
		if i < nTrain {
			out[f] = types.Train
		} else {
			out[f] = types.Test
		}
	}
	return out
}

// TrainCount returns floor(n*trainFraction) clamped to [0, n]
func TrainCount(n int, trainFraction float64) int {
	k := int(math.Floor(float64(n) * trainFraction))
	return max(0, min(k, n))
}
