// Package filestore implements database.RecordWriter as a directory of JSON
// documents, one per user, each replaced atomically on write.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio"
	"go.uber.org/zap"

	"github.com/kozaktomas/faceauth/internal/database"
)

const (
	recordExt = ".json"
	dirPerm   = 0o700
	filePerm  = 0o600
)

// Store keeps user records under a single root directory.
type Store struct {
	root string
	log  *zap.Logger
}

// New creates a store rooted at dir. The directory is created lazily on the first write.
func New(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		root: filepath.Clean(dir),
		log:  logger.With(zap.String("store", dir)),
	}
}

// Exists reports whether the root directory has been provisioned.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.root)
	return err == nil && info.IsDir()
}

func (s *Store) pathFor(userID string) (string, error) {
	name, err := database.SanitizeUserID(userID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, name+recordExt), nil
}

func (s *Store) unavailable() error {
	return fmt.Errorf("%w: %s does not exist", database.ErrStoreUnavailable, s.root)
}

// readRecord decodes and validates a single document.
func readRecord(path string) (*database.UserRecord, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from a sanitized user id
	if err != nil {
		return nil, err
	}
	var rec database.UserRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", database.ErrCorruptRecord, filepath.Base(path), err)
	}
	if err := database.ValidateRecord(&rec); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}

// Get retrieves a record by user ID.
func (s *Store) Get(ctx context.Context, userID string) (*database.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.pathFor(userID)
	if err != nil {
		return nil, err
	}

	rec, err := readRecord(path)
	if errors.Is(err, fs.ErrNotExist) {
		if !s.Exists() {
			return nil, s.unavailable()
		}
		return nil, fmt.Errorf("user %q: %w", userID, database.ErrNotFound)
	}
	if err != nil {
		if errors.Is(err, database.ErrCorruptRecord) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to read %s: %w", database.ErrIO, path, err)
	}

	// A colliding sanitized name holds somebody else's record.
	if rec.UserID != userID {
		return nil, fmt.Errorf("user %q: %w", userID, database.ErrNotFound)
	}
	return rec, nil
}

// recordFiles lists candidate document paths in name order.
// Hidden files, which include in-flight temporary files, are skipped.
func (s *Store) recordFiles() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, s.unavailable()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list %s: %w", database.ErrIO, s.root, err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != recordExt {
			continue
		}
		paths = append(paths, filepath.Join(s.root, name))
	}
	sort.Strings(paths)
	return paths, nil
}

type recordHeader struct {
	UserID string `json:"user_id"`
}

// Keys lazily yields every stored user ID in file name order.
// Only the user_id field is decoded per document.
func (s *Store) Keys(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		paths, err := s.recordFiles()
		if err != nil {
			yield("", err)
			return
		}

		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}

			data, err := os.ReadFile(path) //nolint:gosec // path comes from the store root listing
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				if !yield("", fmt.Errorf("%w: failed to read %s: %w", database.ErrIO, path, err)) {
					return
				}
				continue
			}

			var h recordHeader
			if err := json.Unmarshal(data, &h); err != nil || h.UserID == "" {
				if !yield("", fmt.Errorf("%w: %s has no readable user_id", database.ErrCorruptRecord, filepath.Base(path))) {
					return
				}
				continue
			}
			if !yield(h.UserID, nil) {
				return
			}
		}
	}
}

// All loads every record. Files removed between listing and reading are skipped.
func (s *Store) All(ctx context.Context) (map[string]*database.UserRecord, error) {
	paths, err := s.recordFiles()
	if err != nil {
		return nil, err
	}

	out := make(map[string]*database.UserRecord, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := readRecord(path)
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("record vanished during scan", zap.String("path", path))
			continue
		}
		if err != nil {
			if errors.Is(err, database.ErrCorruptRecord) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: failed to read %s: %w", database.ErrIO, path, err)
		}

		if expected, err := s.pathFor(rec.UserID); err != nil || expected != path {
			return nil, fmt.Errorf("%w: %s holds user %q under a foreign file name",
				database.ErrCorruptRecord, filepath.Base(path), rec.UserID)
		}
		if _, dup := out[rec.UserID]; dup {
			return nil, fmt.Errorf("%w: user %q stored twice", database.ErrCorruptRecord, rec.UserID)
		}
		out[rec.UserID] = rec
	}
	return out, nil
}

// checkOwner returns ErrIDConflict when path already holds a different user's record.
func checkOwner(path, userID string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from a sanitized user id
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: failed to read %s: %w", database.ErrIO, path, err)
	}
	var h recordHeader
	if err := json.Unmarshal(data, &h); err != nil {
		// Unreadable documents are replaced by a good one.
		return nil
	}
	if h.UserID != "" && h.UserID != userID {
		return fmt.Errorf("%w: %w: %q and %q share file %s",
			database.ErrValidation, database.ErrIDConflict, userID, h.UserID, filepath.Base(path))
	}
	return nil
}

// Put writes rec atomically, replacing any previous record of the same user.
func (s *Store) Put(ctx context.Context, rec *database.UserRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: nil record", database.ErrValidation)
	}
	if rec.SampleCount != len(rec.Samples) {
		return fmt.Errorf("%w: sample_count %d does not match %d samples",
			database.ErrValidation, rec.SampleCount, len(rec.Samples))
	}
	if err := database.ValidateSamples(rec.Samples, 0); err != nil {
		return err
	}

	path, err := s.pathFor(rec.UserID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, dirPerm); err != nil {
		return fmt.Errorf("%w: failed to create %s: %w", database.ErrIO, s.root, err)
	}
	if err := checkOwner(path, rec.UserID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := renameio.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", database.ErrIO, path, err)
	}

	s.log.Debug("record written", zap.String("user_id", rec.UserID), zap.Int("samples", rec.SampleCount))
	return nil
}

// Delete removes a user's record.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if _, err := s.Get(ctx, userID); err != nil && !errors.Is(err, database.ErrCorruptRecord) {
		return err
	}
	path, err := s.pathFor(userID)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("user %q: %w", userID, database.ErrNotFound)
		}
		return fmt.Errorf("%w: failed to remove %s: %w", database.ErrIO, path, err)
	}

	s.log.Debug("record removed", zap.String("user_id", userID))
	return nil
}

var _ database.RecordWriter = (*Store)(nil)
