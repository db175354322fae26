// Package extractor turns face images into feature vectors using an external
// face-embedding backend.
package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/faceauth/internal/database"
)

var (
	ErrNoFaceDetected        = errors.New("no face detected")
	ErrMultipleFacesDetected = errors.New("multiple faces detected")
	ErrLowQuality            = errors.New("face quality too low")
	ErrNoProvider            = errors.New("no feature extractor available")
)

// Extractor derives a feature vector from an encoded image.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (database.FeatureVector, error)
}

// Provider is an Extractor that can report whether its backend is usable.
type Provider interface {
	Extractor
	// Name identifies the provider in diagnostics.
	Name() string
	// Probe checks that the backend can serve requests.
	Probe(ctx context.Context) error
}

// FaceDetection is one face found by a backend.
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Embedding []float64 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2] in pixels
	DetScore  float64   `json:"det_score"`
	Dim       int       `json:"dim"`
}

// FaceResponse is the backend reply for one image.
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
	Error      string          `json:"error,omitempty"`
}

// selectFace picks the single usable face from resp.
func selectFace(resp *FaceResponse, minScore float64) (database.FeatureVector, error) {
	if resp.Error != "" {
		return nil, fmt.Errorf("backend error: %s", resp.Error)
	}
	switch len(resp.Faces) {
	case 0:
		return nil, ErrNoFaceDetected
	case 1:
	default:
		return nil, fmt.Errorf("%w: %d faces in image", ErrMultipleFacesDetected, len(resp.Faces))
	}

	face := resp.Faces[0]
	if face.DetScore < minScore {
		return nil, fmt.Errorf("%w: detection score %.2f below %.2f", ErrLowQuality, face.DetScore, minScore)
	}
	vec := database.FeatureVector(face.Embedding)
	if err := database.CheckVector(vec); err != nil {
		return nil, fmt.Errorf("backend returned an unusable embedding: %w", err)
	}
	return vec, nil
}
