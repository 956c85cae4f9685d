// Package vcs drives the git command line for the publish pipeline.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chanfeed/internal/errs"
)

// ErrNothingToCommit is returned by Commit when git reports there is nothing
// staged. It is an expected outcome, not a failure.
var ErrNothingToCommit = errors.New("vcs: nothing to commit")

var nothingToCommitMarkers = []string{
	"nothing to commit",
	"nothing added to commit",
	"no changes added to commit",
}

// Result holds the captured output of one git invocation.
type Result struct {
	Stdout string
	Stderr string
}

// Combined returns stdout and stderr joined, trimmed.
func (r Result) Combined() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

// CommandError is a git invocation that exited non-zero or could not start.
// It matches errs.ErrVersionControl.
type CommandError struct {
	Args     []string
	ExitCode int
	Result
	Err error
}

func (e *CommandError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		detail = strings.TrimSpace(e.Stdout)
	}
	if detail == "" {
		detail = e.Err.Error()
	}
	return fmt.Sprintf("git %s: exit %d: %s", strings.Join(e.Args, " "), e.ExitCode, detail)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Is reports version-control kind for every command failure.
func (e *CommandError) Is(target error) bool {
	return target == errs.ErrVersionControl
}

// Git runs git subcommands in a working tree.
type Git struct {
	// Dir is the working tree.
	Dir string
	// Binary defaults to "git".
	Binary string
	// Timeout bounds each invocation. 0 means no limit beyond ctx.
	Timeout time.Duration
	// Env is appended to the process environment.
	Env []string
	Log zerolog.Logger
}

// New creates a Git runner for dir.
func New(dir string, timeout time.Duration, log zerolog.Logger) *Git {
	return &Git{
		Dir:     dir,
		Timeout: timeout,
		Log:     log.With().Str("component", "vcs").Logger(),
	}
}

// Run executes git with args, capturing stdout and stderr separately.
func (g *Git) Run(ctx context.Context, args ...string) (Result, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	bin := g.Binary
	if bin == "" {
		bin = "git"
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = g.Dir
	if len(g.Env) > 0 {
		cmd.Env = append(os.Environ(), g.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	g.Log.Debug().
		Strs("args", args).
		Dur("took", time.Since(start)).
		Err(err).
		Msg("git")

	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return res, &CommandError{Args: args, ExitCode: code, Result: res, Err: err}
	}
	return res, nil
}

// Status returns the porcelain status of paths. An empty string means the
// paths are unchanged.
func (g *Git) Status(ctx context.Context, paths ...string) (string, error) {
	args := append([]string{"status", "--porcelain", "--"}, paths...)
	res, err := g.Run(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Add stages paths.
func (g *Git) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	_, err := g.Run(ctx, args...)
	return err
}

// Commit records message. With paths, only those paths are committed and
// anything else in the index stays staged. It returns ErrNothingToCommit when
// git exits non-zero because there was nothing to record.
func (g *Git) Commit(ctx context.Context, message string, paths ...string) (string, error) {
	args := []string{"commit", "-m", message}
	if len(paths) > 0 {
		args = append(append(args, "--"), paths...)
	}
	res, err := g.Run(ctx, args...)
	if err != nil {
		if IsNothingToCommit(res.Stdout + res.Stderr) {
			return res.Combined(), ErrNothingToCommit
		}
		return "", err
	}
	return res.Combined(), nil
}

// Push pushes to remote and branch. Empty remote pushes to the upstream.
func (g *Git) Push(ctx context.Context, remote, branch string) (string, error) {
	args := []string{"push"}
	if remote != "" {
		args = append(args, remote)
		if branch != "" {
			args = append(args, branch)
		}
	}
	res, err := g.Run(ctx, args...)
	if err != nil {
		return "", err
	}
	return res.Combined(), nil
}

// IsNothingToCommit reports whether git output says there was nothing to
// commit.
func IsNothingToCommit(output string) bool {
	lower := strings.ToLower(output)
	for _, m := range nothingToCommitMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
