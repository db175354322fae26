package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"go.uber.org/zap"

	"github.com/kozaktomas/faceauth/internal/database"
)

// ExportFileName returns the default file name for an exported record.
func ExportFileName(userID string, at database.Timestamp) (string, error) {
	name, err := database.SanitizeUserID(userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_credentials_%s.json", name, at.UTC().Format("20060102_150405")), nil
}

// Export wraps userID's enrollment record in a portable envelope.
func (e *EnrollmentStore) Export(ctx context.Context, userID string) (*database.ExportEnvelope, error) {
	rec, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &database.ExportEnvelope{
		UserID:     userID,
		UserData:   rec,
		ExportedAt: database.NewTimestamp(e.now()),
		Version:    database.CurrentExportVersion,
	}, nil
}

// WriteExport writes env to path atomically, creating parent directories.
func WriteExport(path string, env *database.ExportEnvelope) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("%w: failed to create export directory: %w", database.ErrIO, err)
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", database.ErrIO, path, err)
	}
	return nil
}

// ReadExport reads and validates an export envelope.
func ReadExport(path string) (*database.ExportEnvelope, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", database.ErrIO, path, err)
	}

	var env database.ExportEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", database.ErrCorruptRecord, filepath.Base(path), err)
	}
	if err := database.ValidateRecord(env.UserData); err != nil {
		return nil, err
	}
	if env.UserID != "" && env.UserID != env.UserData.UserID {
		return nil, fmt.Errorf("%w: envelope user %q does not match record user %q",
			database.ErrCorruptRecord, env.UserID, env.UserData.UserID)
	}
	return &env, nil
}

// Import stores the record carried by env. An existing enrollment is only
// replaced when force is set.
func (e *EnrollmentStore) Import(ctx context.Context, env *database.ExportEnvelope, force bool) (*database.UserRecord, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: empty envelope", database.ErrValidation)
	}
	if err := database.ValidateRecord(env.UserData); err != nil {
		return nil, err
	}
	rec := env.UserData.Clone()

	_, err := e.store.Get(ctx, rec.UserID)
	switch {
	case err == nil && !force:
		return nil, fmt.Errorf("%w: %q", ErrAlreadyEnrolled, rec.UserID)
	case err != nil && !errors.Is(err, database.ErrNotFound) && !errors.Is(err, database.ErrStoreUnavailable) && !errors.Is(err, database.ErrCorruptRecord):
		return nil, err
	}

	dim, err := e.Dimension(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to establish feature dimension: %w", err)
	}
	if err := database.ValidateSamples(rec.Samples, dim); err != nil {
		return nil, err
	}

	if err := e.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to import %q: %w", rec.UserID, err)
	}

	e.log.Info("enrollment imported", zap.String("user_id", rec.UserID), zap.Bool("overwrite", force))
	return rec, nil
}
