package database

import (
	"errors"
	"testing"
)

func record(userID string, vectors ...FeatureVector) *UserRecord {
	rec := &UserRecord{UserID: userID, SampleCount: len(vectors)}
	for i, v := range vectors {
		rec.Samples = append(rec.Samples, Sample{Vector: v, ID: userID + "_sample_" + string(rune('1'+i))})
	}
	return rec
}

func TestSampleIndex_Search(t *testing.T) {
	idx := NewSampleIndex()
	if err := idx.Add(record("alice", FeatureVector{0, 0}, FeatureVector{0.1, 0})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := idx.Add(record("bob", FeatureVector{5, 5})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if idx.Count() != 3 {
		t.Errorf("expected 3 indexed samples, got %d", idx.Count())
	}

	hits, err := idx.Search(FeatureVector{0, 0}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].UserID != "alice" || hits[0].Distance != 0 {
		t.Errorf("expected exact alice hit, got %+v", hits[0])
	}
}

func TestSampleIndex_WithinTolerance(t *testing.T) {
	idx := NewSampleIndex()
	_ = idx.Add(record("alice", FeatureVector{0, 0}, FeatureVector{0.1, 0}))
	_ = idx.Add(record("bob", FeatureVector{5, 5}))

	hits, err := idx.WithinTolerance(FeatureVector{0.05, 0}, 0.6, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected a single user within tolerance, got %+v", hits)
	}
	if hits[0].UserID != "alice" {
		t.Errorf("expected alice, got %s", hits[0].UserID)
	}
}

func TestSampleIndex_EmptyAndMismatch(t *testing.T) {
	idx := NewSampleIndex()

	hits, err := idx.Search(FeatureVector{1, 2}, 3)
	if err != nil || hits != nil {
		t.Errorf("expected no hits from empty index, got %v, %v", hits, err)
	}

	_ = idx.Add(record("alice", FeatureVector{0, 0}))
	if _, err := idx.Search(FeatureVector{1, 2, 3}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if err := idx.Add(record("carol", FeatureVector{1, 2, 3})); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on add, got %v", err)
	}
}
