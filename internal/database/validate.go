package database

import (
	"fmt"
	"math"
)

// CheckVector reports why v cannot be stored, or nil.
func CheckVector(v FeatureVector) error {
	if len(v) == 0 {
		return fmt.Errorf("empty feature vector")
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("component %d is not finite", i)
		}
	}
	return nil
}

// checkSamples verifies that samples are non-empty, finite and share one dimension.
// dim is the expected dimension; 0 accepts whatever the first sample has.
func checkSamples(samples []Sample, dim int) error {
	if len(samples) == 0 {
		return fmt.Errorf("at least one sample is required")
	}
	if dim == 0 {
		dim = samples[0].Vector.Dim()
	}
	for i, s := range samples {
		if err := CheckVector(s.Vector); err != nil {
			return fmt.Errorf("sample %d: %v", i, err)
		}
		if s.Vector.Dim() != dim {
			return fmt.Errorf("sample %d: %w: got %d components, want %d", i, ErrDimensionMismatch, s.Vector.Dim(), dim)
		}
	}
	return nil
}

// ValidateSamples checks samples offered for enrollment. Any failure wraps ErrValidation.
func ValidateSamples(samples []Sample, dim int) error {
	if err := checkSamples(samples, dim); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// ValidateRecord checks a record read back from storage. Any failure wraps ErrCorruptRecord.
// Records are never repaired.
func ValidateRecord(r *UserRecord) error {
	if r == nil {
		return fmt.Errorf("%w: empty document", ErrCorruptRecord)
	}
	if r.UserID == "" {
		return fmt.Errorf("%w: missing user_id", ErrCorruptRecord)
	}
	if r.SampleCount != len(r.Samples) {
		return fmt.Errorf("%w: user %q: sample_count %d does not match %d encodings",
			ErrCorruptRecord, r.UserID, r.SampleCount, len(r.Samples))
	}
	if err := checkSamples(r.Samples, 0); err != nil {
		return fmt.Errorf("%w: user %q: %w", ErrCorruptRecord, r.UserID, err)
	}
	return nil
}
