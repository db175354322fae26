package database

// HNSW parameters for the enrolled-sample index. Enrollment stores are small,
// so recall matters more than build time.
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 64

	// HNSWSearchMultiplier widens each query so that hits belonging to the
	// excluded user can be filtered out and enough candidates remain.
	HNSWSearchMultiplier = 3
)
