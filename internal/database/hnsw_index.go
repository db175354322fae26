package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// SampleRef identifies an indexed sample.
type SampleRef struct {
	UserID   string
	SampleID string
}

// Neighbor is a search hit with its true Euclidean distance.
type Neighbor struct {
	SampleRef
	Distance float64
}

// SampleIndex wraps an HNSW graph over enrolled samples for nearest-face lookups.
type SampleIndex struct {
	graph   *hnsw.Graph[int]
	refs    map[int]SampleRef
	vectors map[int]FeatureVector
	dim     int
	nextID  int
	mu      sync.RWMutex
}

// NewSampleIndex creates a new empty index.
func NewSampleIndex() *SampleIndex {
	return &SampleIndex{
		refs:    make(map[int]SampleRef),
		vectors: make(map[int]FeatureVector),
	}
}

func newGraph() *hnsw.Graph[int] {
	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Add indexes every sample of rec.
func (x *SampleIndex) Add(rec *UserRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, s := range rec.Samples {
		if len(s.Vector) == 0 {
			continue
		}
		if x.dim == 0 {
			x.dim = s.Vector.Dim()
		}
		if s.Vector.Dim() != x.dim {
			return fmt.Errorf("%w: user %q sample %q has %d components, index holds %d",
				ErrDimensionMismatch, rec.UserID, s.ID, s.Vector.Dim(), x.dim)
		}
		if x.graph == nil {
			x.graph = newGraph()
		}

		id := x.nextID
		x.nextID++
		x.graph.Add(hnsw.MakeNode(id, s.Vector.Float32()))
		x.refs[id] = SampleRef{UserID: rec.UserID, SampleID: s.ID}
		x.vectors[id] = s.Vector
	}
	return nil
}

// BuildFromStore indexes every record in r except the one belonging to skipUserID.
func (x *SampleIndex) BuildFromStore(ctx context.Context, r RecordReader, skipUserID string) error {
	if !r.Exists() {
		return nil
	}
	records, err := r.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load records for index: %w", err)
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if id == skipUserID {
			continue
		}
		if err := x.Add(records[id]); err != nil {
			return err
		}
	}
	return nil
}

// Search finds up to k nearest samples to query.
// Distances are recomputed in float64 so they agree with the matcher.
func (x *SampleIndex) Search(query FeatureVector, k int) ([]Neighbor, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil || k <= 0 {
		return nil, nil
	}
	if query.Dim() != x.dim {
		return nil, fmt.Errorf("%w: query has %d components, index holds %d", ErrDimensionMismatch, query.Dim(), x.dim)
	}

	nodes := x.graph.Search(query.Float32(), k*HNSWSearchMultiplier)
	out := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		ref, ok := x.refs[n.Key]
		if !ok {
			continue
		}
		out = append(out, Neighbor{SampleRef: ref, Distance: EuclideanDistance(query, x.vectors[n.Key])})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// WithinTolerance returns the nearest indexed samples within tolerance of query,
// at most one hit per user.
func (x *SampleIndex) WithinTolerance(query FeatureVector, tolerance float64, k int) ([]Neighbor, error) {
	hits, err := x.Search(query, k)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []Neighbor
	for _, h := range hits {
		if h.Distance > tolerance || seen[h.UserID] {
			continue
		}
		seen[h.UserID] = true
		out = append(out, h)
	}
	return out, nil
}

// Count returns the number of indexed samples.
func (x *SampleIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.refs)
}
