// Package enrollment manages the lifecycle of enrolled and authorized users.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kozaktomas/faceauth/internal/database"
)

// ErrAlreadyEnrolled is returned by Import when the user exists and overwriting was not requested.
var ErrAlreadyEnrolled = errors.New("user already enrolled")

// NewSample builds a sample with a fresh identifier.
func NewSample(vector database.FeatureVector, imagePath string, capturedAt time.Time) database.Sample {
	return database.Sample{
		Vector:     vector,
		CapturedAt: database.NewTimestamp(capturedAt),
		ImagePath:  imagePath,
		ID:         uuid.NewString(),
	}
}

// EnrollmentStore holds every user that has ever completed enrollment.
type EnrollmentStore struct {
	store     database.RecordWriter
	dimension int
	now       func() time.Time
	log       *zap.Logger
}

// NewEnrollmentStore wraps store. A positive dimension pins D; zero lets the
// first stored record establish it.
func NewEnrollmentStore(store database.RecordWriter, dimension int, logger *zap.Logger) *EnrollmentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentStore{
		store:     store,
		dimension: dimension,
		now:       time.Now,
		log:       logger.Named("enrollment"),
	}
}

// Records exposes the underlying store for read-only consumers.
func (e *EnrollmentStore) Records() database.RecordReader {
	return e.store
}

// Dimension returns the established feature dimension, or 0 if none is known yet.
func (e *EnrollmentStore) Dimension(ctx context.Context) (int, error) {
	return database.EstablishedDimension(ctx, e.store, e.dimension, e.log)
}

// Enroll replaces userID's record with a fresh one built from samples.
// Samples without an ID or capture time get one assigned.
func (e *EnrollmentStore) Enroll(ctx context.Context, userID string, samples []database.Sample) (*database.UserRecord, error) {
	if _, err := database.SanitizeUserID(userID); err != nil {
		return nil, err
	}
	dim, err := e.Dimension(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to establish feature dimension: %w", err)
	}
	if err := database.ValidateSamples(samples, dim); err != nil {
		return nil, err
	}

	now := e.now()
	rec := &database.UserRecord{
		UserID:         userID,
		Samples:        make([]database.Sample, len(samples)),
		EnrollmentDate: database.NewTimestamp(now),
		SampleCount:    len(samples),
	}
	for i, s := range samples {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.CapturedAt.IsZero() {
			s.CapturedAt = database.NewTimestamp(now)
		}
		rec.Samples[i] = s
	}

	if err := e.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store enrollment for %q: %w", userID, err)
	}

	e.log.Info("user enrolled", zap.String("user_id", userID), zap.Int("samples", rec.SampleCount), zap.Int("dim", rec.Dim()))
	return rec, nil
}

// Load returns the record for userID.
func (e *EnrollmentStore) Load(ctx context.Context, userID string) (*database.UserRecord, error) {
	return e.store.Get(ctx, userID)
}

// List lazily yields every enrolled user ID.
func (e *EnrollmentStore) List(ctx context.Context) iter.Seq2[string, error] {
	return e.store.Keys(ctx)
}

// Remove deletes userID's enrollment. Authorizations are left alone.
func (e *EnrollmentStore) Remove(ctx context.Context, userID string) error {
	if err := e.store.Delete(ctx, userID); err != nil {
		return err
	}
	e.log.Info("enrollment removed", zap.String("user_id", userID))
	return nil
}
