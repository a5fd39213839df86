package fetch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/n3ms/medialib/internal/shared"
)

// authErrorMarkers are stderr substrings that indicate an expired or invalid
// session rather than a generic tool failure.
var authErrorMarkers = []string{
	"Unable to download",
	"HTTP Error 401",
	"HTTP Error 403",
	"login required",
	"cookies",
}

// Runner invokes the yt-dlp binary. All methods block until the subprocess
// exits; callers run them off their own loops.
type Runner struct {
	binary string
}

// NewRunner creates a Runner for the given binary path. A bare name is
// resolved against PATH.
func NewRunner(binary string) *Runner {
	return &Runner{binary: binary}
}

// Output runs the tool with the given arguments and returns captured stdout.
func (r *Runner) Output(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, r.classify(ctx, err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// Stream runs the tool and delivers each stdout line to onLine as it
// arrives. Cancelling the context kills the subprocess.
func (r *Runner) Stream(ctx context.Context, onLine func(string), args ...string) error {
	cmd := exec.CommandContext(ctx, r.binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to capture stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return r.classify(ctx, err, stderr.String())
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		onLine(scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		return r.classify(ctx, err, stderr.String())
	}

	return nil
}

// classify folds a subprocess failure into the shared error taxonomy.
func (r *Runner) classify(ctx context.Context, err error, stderr string) error {
	if ctx.Err() != nil {
		return shared.ErrCancelled
	}

	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s", shared.ErrToolUnavailable, r.binary)
	}

	for _, marker := range authErrorMarkers {
		if strings.Contains(stderr, marker) {
			return shared.ErrAuthFailed
		}
	}

	if tail := stderrTail(stderr); tail != "" {
		return fmt.Errorf("%w: %s", shared.ErrToolFailed, tail)
	}
	return fmt.Errorf("%w: %v", shared.ErrToolFailed, err)
}

// stderrTail returns the last non-empty stderr line, which is where yt-dlp
// puts its actual error.
func stderrTail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
