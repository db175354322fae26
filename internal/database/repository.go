package database

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"
)

// RecordReader provides read-only access to a keyed store of user records
type RecordReader interface {
	// Get retrieves a record by user ID, returns ErrNotFound if absent
	Get(ctx context.Context, userID string) (*UserRecord, error)
	// Keys lazily yields every stored user ID in a stable order.
	// The sequence can be ranged over more than once.
	Keys(ctx context.Context) iter.Seq2[string, error]
	// All loads every record keyed by user ID.
	// Records removed while the scan is running are skipped.
	All(ctx context.Context) (map[string]*UserRecord, error)
	// Exists reports whether the store has been provisioned
	Exists() bool
}

// RecordWriter provides write access to a keyed store of user records
type RecordWriter interface {
	RecordReader

	// Put stores a record, replacing any previous record for the same user atomically
	Put(ctx context.Context, rec *UserRecord) error
	// Delete removes a record, returns ErrNotFound if absent
	Delete(ctx context.Context, userID string) error
}

// EstablishedDimension returns the dimension used by the store's records.
// A non-zero configured value wins; otherwise the first readable record decides.
// Corrupt records are skipped with a warning. Returns 0 when nothing is
// configured and the store holds no readable records.
func EstablishedDimension(ctx context.Context, r RecordReader, configured int, logger *zap.Logger) (int, error) {
	if configured > 0 {
		return configured, nil
	}
	if !r.Exists() {
		return 0, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	for userID, err := range r.Keys(ctx) {
		if errors.Is(err, ErrCorruptRecord) {
			logger.Warn("skipping corrupt record", zap.Error(err))
			continue
		}
		if err != nil {
			return 0, err
		}
		rec, err := r.Get(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if errors.Is(err, ErrCorruptRecord) {
			logger.Warn("skipping corrupt record", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read %q: %w", userID, err)
		}
		return rec.Dim(), nil
	}
	return 0, nil
}
