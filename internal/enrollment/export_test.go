package enrollment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/faceauth/internal/database"
)

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newStores(t)
	dst := newStores(t)

	_, err := src.enroll.Enroll(ctx, "Jiří", samples(database.FeatureVector{0.5, 0.25}))
	require.NoError(t, err)

	env, err := src.enroll.Export(ctx, "Jiří")
	require.NoError(t, err)
	assert.Equal(t, database.CurrentExportVersion, env.Version)

	name, err := ExportFileName(env.UserID, env.ExportedAt)
	require.NoError(t, err)
	assert.Equal(t, "Jiri_credentials_20240601_093000.json", name)

	path := filepath.Join(t.TempDir(), "exported_credentials", name)
	require.NoError(t, WriteExport(path, env))

	read, err := ReadExport(path)
	require.NoError(t, err)

	rec, err := dst.enroll.Import(ctx, read, false)
	require.NoError(t, err)
	assert.Equal(t, "Jiří", rec.UserID)

	loaded, err := dst.enroll.Load(ctx, "Jiří")
	require.NoError(t, err)
	assert.Equal(t, database.FeatureVector{0.5, 0.25}, loaded.Samples[0].Vector)

	_, err = dst.enroll.Import(ctx, read, false)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)

	_, err = dst.enroll.Import(ctx, read, true)
	assert.NoError(t, err)
}

func TestImport_RejectsForeignDimension(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)

	_, err := s.enroll.Enroll(ctx, "alice", samples(database.FeatureVector{1, 2}))
	require.NoError(t, err)

	env := &database.ExportEnvelope{
		UserID: "bob",
		UserData: &database.UserRecord{
			UserID:      "bob",
			Samples:     samples(database.FeatureVector{1, 2, 3}),
			SampleCount: 1,
		},
	}
	_, err = s.enroll.Import(ctx, env, false)
	assert.ErrorIs(t, err, database.ErrDimensionMismatch)
}

func TestReadExport_Corrupt(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"user_id":"x","user_data":{"user_id":"x","face_encodings":[],"sample_count":0}}`), 0o600))
	_, err := ReadExport(bad)
	assert.ErrorIs(t, err, database.ErrCorruptRecord)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("not json"), 0o600))
	_, err = ReadExport(garbage)
	assert.ErrorIs(t, err, database.ErrCorruptRecord)

	_, err = ReadExport(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, database.ErrIO)
}
