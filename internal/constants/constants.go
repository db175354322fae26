// Package constants provides shared constants used across the codebase.
package constants

// Matching constants
const (
	// DefaultTolerance is the maximum Euclidean distance accepted as a match.
	// Lower values = stricter matching
	DefaultTolerance = 0.6

	// DefaultConsensus is the per-user reduction used when none is configured
	DefaultConsensus = "min"
)

// Enrollment constants
const (
	// DefaultSampleCount is the number of face samples captured per enrollment
	DefaultSampleCount = 3

	// MaxSampleCount bounds a single enrollment
	MaxSampleCount = 50
)

// Storage constants
const (
	// DefaultEnrollDir holds every enrolled user
	DefaultEnrollDir = "generated"

	// DefaultAuthDir holds users currently allowed to authenticate
	DefaultAuthDir = "source"

	// DefaultExportDir receives exported credentials
	DefaultExportDir = "exported_credentials"
)

// Extraction constants
const (
	// MaxImageSize is the maximum dimension (width or height) sent to the extractor
	MaxImageSize = 1280

	// DefaultMinDetScore is the minimum face detection score accepted
	DefaultMinDetScore = 0.5

	// DefaultExtractorTimeoutSeconds bounds a single extraction request
	DefaultExtractorTimeoutSeconds = 60
)
