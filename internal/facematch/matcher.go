package facematch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/kozaktomas/faceauth/internal/database"
)

// Matcher compares probes against the records of an authorization store.
// It holds no state between calls.
type Matcher struct {
	store     database.RecordReader
	dimension int
	consensus Consensus
	log       *zap.Logger
}

// NewMatcher creates a matcher reading from store. dimension is the established
// feature dimension; 0 leaves it to the stored samples. An empty consensus selects min.
func NewMatcher(store database.RecordReader, dimension int, consensus Consensus, logger *zap.Logger) *Matcher {
	if consensus == "" {
		consensus = ConsensusMin
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{store: store, dimension: dimension, consensus: consensus, log: logger}
}

// ValidateTolerance rejects tolerances that cannot express a threshold.
func ValidateTolerance(tolerance float64) error {
	if math.IsNaN(tolerance) || math.IsInf(tolerance, 0) || tolerance < 0 {
		return fmt.Errorf("%w: tolerance must be a finite number >= 0, got %v", database.ErrValidation, tolerance)
	}
	return nil
}

// scoreUser returns the representative distance of rec and its nearest sample.
func (m *Matcher) scoreUser(probe database.FeatureVector, rec *database.UserRecord) (database.UserDistance, error) {
	distances := make([]float64, len(rec.Samples))
	nearest := 0
	for i, s := range rec.Samples {
		if s.Vector.Dim() != probe.Dim() {
			return database.UserDistance{}, fmt.Errorf("%w: user %q sample %q has %d components, probe has %d",
				database.ErrDimensionMismatch, rec.UserID, s.ID, s.Vector.Dim(), probe.Dim())
		}
		distances[i] = database.EuclideanDistance(probe, s.Vector)
		if distances[i] < distances[nearest] {
			nearest = i
		}
	}
	return database.UserDistance{
		UserID:   rec.UserID,
		SampleID: rec.Samples[nearest].ID,
		Distance: m.consensus.Reduce(distances),
	}, nil
}

// Authenticate finds the authorized user nearest to probe and accepts iff that
// user's distance is within tolerance. Exact ties go to the lexicographically
// smallest user id.
func (m *Matcher) Authenticate(ctx context.Context, probe database.FeatureVector, tolerance float64) (*MatchResult, error) {
	if err := ValidateTolerance(tolerance); err != nil {
		return nil, err
	}
	if err := database.CheckVector(probe); err != nil {
		return nil, fmt.Errorf("%w: probe: %v", database.ErrValidation, err)
	}
	if m.dimension > 0 && probe.Dim() != m.dimension {
		return nil, fmt.Errorf("%w: probe has %d components, established dimension is %d",
			database.ErrDimensionMismatch, probe.Dim(), m.dimension)
	}

	records, err := m.store.All(ctx)
	if errors.Is(err, database.ErrStoreUnavailable) {
		return nil, fmt.Errorf("%w: %w", database.ErrNoAuthorizedUsers, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load authorized users: %w", err)
	}
	if len(records) == 0 {
		return nil, database.ErrNoAuthorizedUsers
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	table := make([]database.UserDistance, 0, len(ids))
	best := -1
	for _, id := range ids {
		ud, err := m.scoreUser(probe, records[id])
		if err != nil {
			return nil, err
		}
		table = append(table, ud)
		// Strictly-less keeps the earliest id on exact ties.
		if best < 0 || ud.Distance < table[best].Distance {
			best = len(table) - 1
		}
	}

	winner := table[best]
	result := &MatchResult{
		Accepted:   winner.Distance <= tolerance,
		UserID:     winner.UserID,
		SampleID:   winner.SampleID,
		Distance:   winner.Distance,
		Tolerance:  tolerance,
		Confidence: Confidence(winner.Distance, tolerance),
		Consensus:  m.consensus,
	}

	sort.SliceStable(table, func(i, j int) bool {
		return table[i].Distance < table[j].Distance
	})
	result.Distances = table

	m.log.Debug("authentication evaluated",
		zap.String("user_id", result.UserID),
		zap.Float64("distance", result.Distance),
		zap.Float64("tolerance", tolerance),
		zap.Bool("accepted", result.Accepted),
		zap.Int("candidates", len(table)),
	)
	return result, nil
}
