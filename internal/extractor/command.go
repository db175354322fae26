package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/kozaktomas/faceauth/internal/database"
)

// safeCommand wraps exec.Cmd and keeps the child's stderr for error reports.
type safeCommand struct {
	*exec.Cmd
	stderr *bytes.Buffer
}

func newSafeCommand(ctx context.Context, name string, args ...string) *safeCommand {
	cmd := exec.CommandContext(ctx, name, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	return &safeCommand{Cmd: cmd, stderr: stderr}
}

// failure decorates err with whatever the child printed on stderr.
func (c *safeCommand) failure(err error) error {
	if msg := strings.TrimSpace(c.stderr.String()); msg != "" {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}

// CommandProvider runs an external interpreter with an embedding script.
// The image is written to the script's stdin and a FaceResponse is read from stdout.
type CommandProvider struct {
	interpreter string
	script      string
	minScore    float64
}

// NewCommandProvider creates a provider for a known interpreter and script.
func NewCommandProvider(interpreter, script string, minScore float64) *CommandProvider {
	return &CommandProvider{interpreter: interpreter, script: script, minScore: minScore}
}

// DiscoverCommandProvider picks the first interpreter found on disk or in PATH
// and the first existing script from the candidate lists.
func DiscoverCommandProvider(interpreters, scripts []string, minScore float64) (*CommandProvider, error) {
	script, err := firstExisting(scripts)
	if err != nil {
		return nil, err
	}

	var tried []string
	for _, candidate := range interpreters {
		path, err := exec.LookPath(candidate)
		if err != nil {
			tried = append(tried, fmt.Sprintf("%s: %v", candidate, err))
			continue
		}
		return NewCommandProvider(path, script, minScore), nil
	}
	return nil, fmt.Errorf("no runnable interpreter, tried:\n  %s", strings.Join(tried, "\n  "))
}

func firstExisting(paths []string) (string, error) {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("embedding script not found, tried: %s", strings.Join(paths, ", "))
}

// Name identifies the provider.
func (p *CommandProvider) Name() string {
	return "command(" + p.interpreter + " " + p.script + ")"
}

// Probe asks the script to verify that its dependencies import cleanly.
func (p *CommandProvider) Probe(ctx context.Context) error {
	cmd := newSafeCommand(ctx, p.interpreter, p.script, "check")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("dependency check failed: %w", cmd.failure(err))
	}
	return nil
}

// Extract runs the script on image and returns the single face's embedding.
func (p *CommandProvider) Extract(ctx context.Context, image []byte) (database.FeatureVector, error) {
	cmd := newSafeCommand(ctx, p.interpreter, p.script, "extract")
	cmd.Stdin = bytes.NewReader(image)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("embedding script exited with code %d: %w", exitErr.ExitCode(), cmd.failure(err))
		}
		return nil, fmt.Errorf("failed to run embedding script: %w", err)
	}

	var resp FaceResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse script output: %w", cmd.failure(err))
	}
	return selectFace(&resp, p.minScore)
}
