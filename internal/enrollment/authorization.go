package enrollment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kozaktomas/faceauth/internal/database"
)

// AuthorizationStore holds point-in-time copies of enrollment records for users
// allowed to authenticate. Later re-enrollment does not refresh a copy.
type AuthorizationStore struct {
	enrolled database.RecordReader
	store    database.RecordWriter
	log      *zap.Logger
}

// NewAuthorizationStore creates a store that copies records from enrolled into store.
func NewAuthorizationStore(enrolled database.RecordReader, store database.RecordWriter, logger *zap.Logger) *AuthorizationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthorizationStore{
		enrolled: enrolled,
		store:    store,
		log:      logger.Named("authorization"),
	}
}

// Records exposes the authorized records for the matcher.
func (a *AuthorizationStore) Records() database.RecordReader {
	return a.store
}

// Authorize snapshots userID's enrollment record, replacing any earlier grant.
func (a *AuthorizationStore) Authorize(ctx context.Context, userID string) (*database.UserRecord, error) {
	rec, err := a.enrolled.Get(ctx, userID)
	if errors.Is(err, database.ErrStoreUnavailable) {
		return nil, fmt.Errorf("user %q is not enrolled: %w: %w", userID, database.ErrNotFound, err)
	}
	if err != nil {
		return nil, err
	}

	snapshot := rec.Clone()
	if err := a.store.Put(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to authorize %q: %w", userID, err)
	}

	a.log.Info("user authorized", zap.String("user_id", userID), zap.Int("samples", snapshot.SampleCount))
	return snapshot, nil
}

// Revoke removes userID's grant. It reports whether a grant existed; revoking
// an absent user is not an error.
func (a *AuthorizationStore) Revoke(ctx context.Context, userID string) (bool, error) {
	err := a.store.Delete(ctx, userID)
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, database.ErrStoreUnavailable) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to revoke %q: %w", userID, err)
	}

	a.log.Info("authorization revoked", zap.String("user_id", userID))
	return true, nil
}

// Load returns the authorized snapshot for userID.
func (a *AuthorizationStore) Load(ctx context.Context, userID string) (*database.UserRecord, error) {
	return a.store.Get(ctx, userID)
}

// LoadAll returns every authorized record. An unprovisioned store is reported
// as ErrStoreUnavailable, distinct from an empty map.
func (a *AuthorizationStore) LoadAll(ctx context.Context) (map[string]*database.UserRecord, error) {
	return a.store.All(ctx)
}
