package enrollment

import (
	"context"
	"sort"

	"github.com/kozaktomas/faceauth/internal/database"
)

// lookalikeCandidates is how many neighbours are inspected per sample.
const lookalikeCandidates = 5

// FindLookalikes reports other enrolled users whose samples lie within tolerance
// of any of the given samples. The user being enrolled is excluded. At most one
// hit is returned per user, the nearest one.
func (e *EnrollmentStore) FindLookalikes(ctx context.Context, userID string, samples []database.Sample, tolerance float64) ([]database.Neighbor, error) {
	idx := database.NewSampleIndex()
	if err := idx.BuildFromStore(ctx, e.store, userID); err != nil {
		return nil, err
	}
	if idx.Count() == 0 {
		return nil, nil
	}

	nearest := make(map[string]database.Neighbor)
	for _, s := range samples {
		hits, err := idx.WithinTolerance(s.Vector, tolerance, lookalikeCandidates)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			if cur, ok := nearest[h.UserID]; !ok || h.Distance < cur.Distance {
				nearest[h.UserID] = h
			}
		}
	}

	out := make([]database.Neighbor, 0, len(nearest))
	for _, h := range nearest {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}
