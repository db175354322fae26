package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/faceauth/internal/database"
)

// resetFlags restores every flag to its default so commands can run repeatedly in one process.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

type cli struct {
	t        *testing.T
	enroll   string
	auth     string
	imageDir string
}

// newCLI points the extractor at a fake embedding server whose vector is the
// uploaded image width divided by 100.
func newCLI(t *testing.T) *cli {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/embed/face":
			file, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			cfg, _, err := image.DecodeConfig(file)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			fmt.Fprintf(w, `{"faces_count":1,"faces":[{"embedding":[%g,0],"det_score":0.99}]}`, float64(cfg.Width)/100)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	t.Setenv("FACEAUTH_CONFIG", "")
	t.Setenv("FACEAUTH_PROVIDERS", "http")
	t.Setenv("EMBEDDING_URL", server.URL)
	t.Setenv("FACEAUTH_LOG_LEVEL", "error")

	dir := t.TempDir()
	return &cli{
		t:        t,
		enroll:   filepath.Join(dir, "generated"),
		auth:     filepath.Join(dir, "source"),
		imageDir: filepath.Join(dir, "images"),
	}
}

// image writes a PNG of the given width and returns its path.
func (c *cli) image(width int) string {
	c.t.Helper()
	require.NoError(c.t, os.MkdirAll(c.imageDir, 0o700))
	path := filepath.Join(c.imageDir, fmt.Sprintf("face_%d.png", width))
	var buf bytes.Buffer
	require.NoError(c.t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, width, 40))))
	require.NoError(c.t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--enroll-dir", c.enroll, "--auth-dir", c.auth}, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_EnrollAuthorizeAuthenticate(t *testing.T) {
	c := newCLI(t)
	alice := c.image(100)
	bob := c.image(300)

	out, err := c.run("enroll", "alice", "--image", alice, "--image", alice, "--image", alice)
	require.NoError(t, err)
	assert.Contains(t, out, "Enrolled alice with 3 samples (dimension 2)")

	// Enrolled is not authorized.
	_, err = c.run("authenticate", "--image", alice)
	assert.ErrorIs(t, err, database.ErrNoAuthorizedUsers)

	out, err = c.run("authorize", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Authorized alice")

	_, err = c.run("enroll", "bob", "--image", bob, "--samples", "1")
	require.NoError(t, err)

	out, err = c.run("authenticate", "--image", alice)
	require.NoError(t, err)
	assert.Contains(t, out, "ACCEPTED: alice")

	out, err = c.run("authenticate", "--image", bob, "--verbose")
	assert.ErrorIs(t, err, errAccessDenied)
	assert.Contains(t, out, "REJECTED: closest user alice")
	assert.Contains(t, out, "USER")

	out, err = c.run("authenticate", "--image", bob, "--tolerance", "2.5", "--json")
	require.NoError(t, err)
	var result authenticateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Accepted)
	assert.Equal(t, "alice", result.UserID)
	assert.InDelta(t, 2.0, result.Distance, 1e-9)
	assert.Len(t, result.Candidates, 1)
}

func TestCLI_RevokeAndList(t *testing.T) {
	c := newCLI(t)
	alice := c.image(100)
	bob := c.image(300)

	_, err := c.run("enroll", "alice", "--image", alice, "--samples", "1")
	require.NoError(t, err)
	_, err = c.run("enroll", "bob", "--image", bob, "--samples", "1")
	require.NoError(t, err)
	_, err = c.run("authorize", "alice")
	require.NoError(t, err)

	out, err := c.run("list")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "Total enrolled users: 2")

	out, err = c.run("list", "--authorized")
	require.NoError(t, err)
	assert.Contains(t, out, "Total authorized users: 1")

	out, err = c.run("revoke", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Revoked alice")

	out, err = c.run("revoke", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "was not authorized")

	out, err = c.run("list", "--authorized")
	require.NoError(t, err)
	assert.Contains(t, out, "Total authorized users: 0")

	out, err = c.run("show", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Dimension:  2")
}

func TestCLI_ExportDeleteImport(t *testing.T) {
	c := newCLI(t)
	alice := c.image(100)
	exportPath := filepath.Join(t.TempDir(), "alice.json")

	_, err := c.run("enroll", "alice", "--image", alice, "--samples", "1")
	require.NoError(t, err)

	out, err := c.run("export", "alice", "--file", exportPath)
	require.NoError(t, err)
	assert.Contains(t, out, exportPath)

	_, err = c.run("import", exportPath)
	assert.Error(t, err, "import over an existing enrollment needs --force")

	out, err = c.run("delete", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted enrollment of alice")

	out, err = c.run("import", exportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported alice (1 samples)")

	_, err = c.run("import", exportPath, "--force")
	require.NoError(t, err)
}

func TestCLI_EnrollErrors(t *testing.T) {
	c := newCLI(t)
	alice := c.image(100)
	lookalike := c.image(110)

	_, err := c.run("enroll", "alice", "--image", alice)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "need 3 images"), err.Error())

	_, err = c.run("enroll", "alice", "--image", filepath.Join(t.TempDir(), "missing.png"), "--samples", "1")
	assert.Error(t, err)

	_, err = c.run("enroll", "alice", "--image", alice, "--samples", "1")
	require.NoError(t, err)

	_, err = c.run("enroll", "mallory", "--image", lookalike, "--samples", "1", "--strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "within tolerance of \"alice\"")

	_, err = c.run("show", "mallory")
	assert.True(t, errors.Is(err, database.ErrNotFound))
}

func TestCLI_Check(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("check")
	require.NoError(t, err)
	assert.Contains(t, out, "not created")
	assert.Contains(t, out, "Extractor: http(")
}

func TestCLI_Version(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("version")
	require.NoError(t, err)
	assert.Contains(t, out, "face-auth dev")
}
