package facematch

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kozaktomas/faceauth/internal/database"
	"github.com/kozaktomas/faceauth/internal/database/mock"
)

func userRecord(userID string, vectors ...database.FeatureVector) *database.UserRecord {
	rec := &database.UserRecord{UserID: userID, SampleCount: len(vectors)}
	for i, v := range vectors {
		rec.Samples = append(rec.Samples, database.Sample{Vector: v, ID: userID + "_" + string(rune('0'+i))})
	}
	return rec
}

func storeWith(records ...*database.UserRecord) *mock.MockRecordStore {
	s := mock.NewMockRecordStore()
	for _, r := range records {
		s.AddRecord(r)
	}
	return s
}

func TestAuthenticate_Scenarios(t *testing.T) {
	probe := database.FeatureVector{0, 0}
	store := storeWith(
		userRecord("alice", database.FeatureVector{0.3, 0}),
		userRecord("bob", database.FeatureVector{0.8, 0}),
	)

	tests := []struct {
		name      string
		tolerance float64
		accepted  bool
	}{
		{"within tolerance", 0.6, true},
		{"outside tolerance still reports closest", 0.2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(store, 0, ConsensusMin, nil)
			result, err := m.Authenticate(context.Background(), probe, tt.tolerance)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.UserID != "alice" {
				t.Errorf("expected alice selected, got %q", result.UserID)
			}
			if math.Abs(result.Distance-0.3) > 1e-9 {
				t.Errorf("expected distance 0.3, got %v", result.Distance)
			}
			if result.Accepted != tt.accepted {
				t.Errorf("expected accepted=%v, got %v", tt.accepted, result.Accepted)
			}
			if len(result.Distances) != 2 || result.Distances[0].UserID != "alice" || result.Distances[1].UserID != "bob" {
				t.Errorf("unexpected distance table: %+v", result.Distances)
			}
		})
	}
}

func TestAuthenticate_ExactMatchAnyTolerance(t *testing.T) {
	probe := database.FeatureVector{0.12, -0.5, 0.77}
	store := storeWith(userRecord("alice", probe))
	m := NewMatcher(store, 0, "", nil)

	for _, tol := range []float64{0, 0.1, 0.6, 10} {
		result, err := m.Authenticate(context.Background(), probe, tol)
		if err != nil {
			t.Fatalf("tolerance %v: unexpected error: %v", tol, err)
		}
		if !result.Accepted || result.UserID != "alice" || result.Distance != 0 {
			t.Errorf("tolerance %v: expected exact accept of alice, got %+v", tol, result)
		}
		if result.Confidence != 1 {
			t.Errorf("tolerance %v: expected confidence 1, got %v", tol, result.Confidence)
		}
	}
}

func TestAuthenticate_TieBreak(t *testing.T) {
	store := storeWith(
		userRecord("zed", database.FeatureVector{0, 0.45}),
		userRecord("amy", database.FeatureVector{0.45, 0}),
	)
	m := NewMatcher(store, 0, ConsensusMin, nil)

	for range 5 {
		result, err := m.Authenticate(context.Background(), database.FeatureVector{0, 0}, 0.6)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.UserID != "amy" {
			t.Fatalf("expected lexicographically smallest user amy, got %q", result.UserID)
		}
		if !result.Accepted {
			t.Error("expected acceptance")
		}
	}
}

func TestAuthenticate_MinimumOverSamples(t *testing.T) {
	store := storeWith(
		userRecord("alice", database.FeatureVector{5, 5}, database.FeatureVector{0.1, 0}),
		userRecord("bob", database.FeatureVector{0.2, 0}),
	)
	m := NewMatcher(store, 0, ConsensusMin, nil)

	result, err := m.Authenticate(context.Background(), database.FeatureVector{0, 0}, 0.6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UserID != "alice" || result.SampleID != "alice_1" {
		t.Errorf("expected alice via her second sample, got %s/%s", result.UserID, result.SampleID)
	}
}

func TestAuthenticate_Errors(t *testing.T) {
	ctx := context.Background()
	probe := database.FeatureVector{0, 0}

	t.Run("empty store", func(t *testing.T) {
		m := NewMatcher(mock.NewMockRecordStore(), 0, ConsensusMin, nil)
		for _, tol := range []float64{0, 0.6, 100} {
			if _, err := m.Authenticate(ctx, probe, tol); !errors.Is(err, database.ErrNoAuthorizedUsers) {
				t.Errorf("expected ErrNoAuthorizedUsers, got %v", err)
			}
		}
	})

	t.Run("unprovisioned store", func(t *testing.T) {
		m := NewMatcher(mock.NewUnprovisionedStore(), 0, ConsensusMin, nil)
		_, err := m.Authenticate(ctx, probe, 0.6)
		if !errors.Is(err, database.ErrNoAuthorizedUsers) || !errors.Is(err, database.ErrStoreUnavailable) {
			t.Errorf("expected no users and store unavailable, got %v", err)
		}
	})

	t.Run("probe dimension", func(t *testing.T) {
		m := NewMatcher(storeWith(userRecord("alice", database.FeatureVector{1, 2, 3})), 0, ConsensusMin, nil)
		if _, err := m.Authenticate(ctx, probe, 0.6); !errors.Is(err, database.ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("probe differs from established dimension", func(t *testing.T) {
		// The stored record agrees with the probe, but the deployment is pinned to D=3.
		flat := database.FeatureVector{1, 2}
		m := NewMatcher(storeWith(userRecord("alice", flat)), 3, ConsensusMin, nil)
		result, err := m.Authenticate(ctx, flat, 0.6)
		if !errors.Is(err, database.ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch, got %v (result %+v)", err, result)
		}
	})

	t.Run("stored sample differs from established dimension", func(t *testing.T) {
		m := NewMatcher(storeWith(userRecord("alice", database.FeatureVector{1, 2})), 3, ConsensusMin, nil)
		if _, err := m.Authenticate(ctx, database.FeatureVector{1, 2, 3}, 0.6); !errors.Is(err, database.ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("invalid tolerance", func(t *testing.T) {
		m := NewMatcher(storeWith(userRecord("alice", probe)), 0, ConsensusMin, nil)
		for _, tol := range []float64{-0.1, math.NaN(), math.Inf(1)} {
			if _, err := m.Authenticate(ctx, probe, tol); !errors.Is(err, database.ErrValidation) {
				t.Errorf("tolerance %v: expected ErrValidation, got %v", tol, err)
			}
		}
	})

	t.Run("store failure", func(t *testing.T) {
		s := storeWith(userRecord("alice", probe))
		s.AllError = database.ErrCorruptRecord
		m := NewMatcher(s, 0, ConsensusMin, nil)
		if _, err := m.Authenticate(ctx, probe, 0.6); !errors.Is(err, database.ErrCorruptRecord) {
			t.Errorf("expected ErrCorruptRecord, got %v", err)
		}
	})
}

func TestAuthenticate_RevokedUserExcluded(t *testing.T) {
	probe := database.FeatureVector{0, 0}
	store := storeWith(
		userRecord("alice", probe),
		userRecord("bob", database.FeatureVector{0.4, 0}),
	)
	if err := store.Delete(context.Background(), "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := NewMatcher(store, 0, ConsensusMin, nil).Authenticate(context.Background(), probe, 0.6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UserID != "bob" {
		t.Errorf("expected bob after alice was removed, got %q", result.UserID)
	}
	for _, d := range result.Distances {
		if d.UserID == "alice" {
			t.Error("removed user appears in distance table")
		}
	}
}
