// Package hook runs the user's command when a matching magic packet arrives
// and reports how it went.
package hook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
	"unicode/utf8"
)

// waitDelay bounds how long Run waits for output after the process is killed.
const waitDelay = time.Second

// ErrEmptyCommand is returned when Run is given no program to execute.
var ErrEmptyCommand = errors.New("empty command")

// Outcome classifies a finished command execution.
type Outcome int

const (
	// OutcomeSuccess means the process ran and exited with status 0.
	OutcomeSuccess Outcome = iota
	// OutcomeFailed means the process ran and exited non-zero or was killed.
	OutcomeFailed
	// OutcomeError means the process could not be started or waited on.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	default:
		return "error"
	}
}

// Result holds the captured output of one execution.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// ExitError is returned by Run when the process exited unsuccessfully.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with status %d: %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Runner is the interface implemented by command executors.
type Runner interface {
	// Run executes argv[0] with arguments argv[1:] and waits for it.
	// A non-zero exit yields a non-nil Result together with an *ExitError.
	// A nil Result is reported as empty output.
	Run(ctx context.Context, argv []string) (*Result, error)
}

// ExecRunner runs commands as child processes with captured output.
type ExecRunner struct {
	// Timeout kills the process after this long. Zero means no limit.
	Timeout time.Duration
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, argv []string) (*Result, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, ErrEmptyCommand
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Grandchildren may keep the output pipes open after a kill.
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Code: res.ExitCode, Err: err}
	default:
		return nil, fmt.Errorf("running %s: %w", argv[0], err)
	}
}

// Classify maps the error returned by Runner.Run to an Outcome.
func Classify(err error) Outcome {
	var exitErr *ExitError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &exitErr):
		return OutcomeFailed
	default:
		return OutcomeError
	}
}

// Report logs an execution result at a level matching its outcome and
// returns the outcome.
func Report(log *slog.Logger, res *Result, err error) Outcome {
	outcome := Classify(err)
	if res == nil {
		res = &Result{}
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.Code
		}
	}
	switch outcome {
	case OutcomeSuccess:
		log.Info("command executed successfully",
			"stdout", DisplayOutput(res.Stdout),
			"stderr", DisplayOutput(res.Stderr),
			"duration", res.Duration,
		)
	case OutcomeFailed:
		log.Error("command executed unsuccessfully",
			"status", res.ExitCode,
			"stdout", DisplayOutput(res.Stdout),
			"stderr", DisplayOutput(res.Stderr),
			"duration", res.Duration,
		)
	default:
		log.Error("failed to run command", "err", err)
	}
	return outcome
}

// DisplayOutput returns b as a string if it is valid UTF-8, otherwise its
// quoted Go representation.
func DisplayOutput(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return fmt.Sprintf("%q", b)
}
