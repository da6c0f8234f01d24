package publish

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes git commands. The seam exists so tests can record and
// fake the command sequence without a real repository.
type Runner interface {
	// Run executes git with the given arguments in dir and returns the
	// trimmed combined output.
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// gitRunner shells out to the git binary.
type gitRunner struct{}

// NewGitRunner returns a [Runner] backed by the git binary on PATH.
func NewGitRunner() Runner {
	return gitRunner{}
}

func (gitRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(buf.String()))
	}
	return strings.TrimSpace(buf.String()), nil
}

// branchExists reports whether the local branch exists in the repository.
func branchExists(ctx context.Context, r Runner, repoDir, branch string) bool {
	_, err := r.Run(ctx, repoDir, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// hasStagedChanges reports whether the index differs from HEAD.
// `git diff --cached --quiet` exits non-zero when there are changes.
func hasStagedChanges(ctx context.Context, r Runner, dir string) bool {
	_, err := r.Run(ctx, dir, "diff", "--cached", "--quiet")
	return err != nil
}
