// Package facematch decides whether a probe face belongs to one of the authorized users.
package facematch

import "github.com/kozaktomas/faceauth/internal/database"

// MatchResult is the outcome of one authentication attempt.
// UserID and Distance describe the nearest user even when the attempt is rejected.
type MatchResult struct {
	Accepted   bool
	UserID     string
	SampleID   string // Nearest sample of the selected user
	Distance   float64
	Tolerance  float64
	Confidence float64 // Informational only, never used for the decision
	Consensus  Consensus
	Distances  []database.UserDistance // One entry per authorized user, nearest first
}
