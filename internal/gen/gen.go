// Package gen runs the external site generator.
//
// The demo pages PageDeck manages are produced by a generator script owned
// by another project (for the SigChain site, a Python dashboard script).
// PageDeck never interprets what the generator does; it runs the configured
// command with a timeout, streams its output to the logger, and reports how
// the run ended. Regenerated output is picked up by the normal scan.
//
// This package is internal to PageDeck and its API may change without
// notice.
package gen

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"
)

// Config describes the generator command.
type Config struct {
	// Command is the argv to run, e.g.
	// ["python", "examples/radar_plotly_dashboard.py"].
	Command []string

	// Dir is the working directory for the command. Empty means the
	// current directory.
	Dir string

	// Env are additional environment variables, merged over the current
	// process environment.
	Env map[string]string

	// Timeout bounds the run. Zero means no timeout beyond ctx.
	Timeout time.Duration
}

// Result reports how a generator run ended.
type Result struct {
	// Duration is the wall-clock run time.
	Duration time.Duration

	// ExitCode is the command's exit code; zero on success.
	ExitCode int
}

// Run executes the generator and streams its combined output to the logger
// line by line.
//
// A non-zero exit is returned as an error alongside a Result carrying the
// exit code. A timeout surfaces as a context deadline error.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) (*Result, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("generator command is empty")
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = mergedEnv(cfg.Env)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("generator stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	logger.Info("generator starting", "command", cfg.Command[0], "dir", cfg.Dir)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start generator: %w", err)
	}

	// drain output before Wait so the pipe never backs up
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			logger.Info("generator output", "line", scanner.Text())
		}
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	result := &Result{Duration: time.Since(start)}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			return result, fmt.Errorf("generator timed out after %s: %w", result.Duration.Round(time.Millisecond), ctx.Err())
		}
		return result, fmt.Errorf("generator failed: %w", waitErr)
	}

	logger.Info("generator finished", "duration", result.Duration.String())
	return result, nil
}

// mergedEnv layers overrides on top of the process environment in a
// deterministic order.
func mergedEnv(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil // nil lets exec use the process environment
	}
	env := os.Environ()
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}
