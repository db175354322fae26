package facematch

import (
	"fmt"
	"math"
	"strings"

	"github.com/kozaktomas/faceauth/internal/database"
)

// Consensus reduces a user's per-sample distances to one representative distance
type Consensus string

const (
	ConsensusMin      Consensus = "min"      // Closest sample wins
	ConsensusMean     Consensus = "mean"     // Average over all samples
	ConsensusWeighted Consensus = "weighted" // 0.7*min + 0.3*mean
)

const (
	weightedMinShare  = 0.7
	weightedMeanShare = 0.3
)

// ParseConsensus parses a consensus name, case-insensitively. Empty selects min.
func ParseConsensus(s string) (Consensus, error) {
	switch c := Consensus(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return ConsensusMin, nil
	case ConsensusMin, ConsensusMean, ConsensusWeighted:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown consensus %q (want min, mean or weighted)", database.ErrValidation, s)
	}
}

// Reduce returns the representative distance. An empty slice yields +Inf.
func (c Consensus) Reduce(distances []float64) float64 {
	if len(distances) == 0 {
		return math.Inf(1)
	}

	lowest := distances[0]
	var sum float64
	for _, d := range distances {
		lowest = min(lowest, d)
		sum += d
	}
	mean := sum / float64(len(distances))

	switch c {
	case ConsensusMean:
		return mean
	case ConsensusWeighted:
		return weightedMinShare*lowest + weightedMeanShare*mean
	default:
		return lowest
	}
}

// Confidence maps a distance onto [0, 1] relative to the tolerance.
// With a zero tolerance only an exact match has confidence.
func Confidence(distance, tolerance float64) float64 {
	if tolerance <= 0 {
		if distance == 0 {
			return 1
		}
		return 0
	}
	return max(0, 1-distance/tolerance)
}
