// Package runner provides uniform, timeout-bounded execution of the
// external VCS commands (git, hg) the backends shell out to.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/jaxxstorm/scmver/internal/errs"
)

// DefaultTimeout is the soft timeout applied to a command when neither a
// per-call timeout nor SETUPTOOLS_SCM_SUBPROCESS_TIMEOUT-equivalent env
// override is supplied.
const DefaultTimeout = 40 * time.Second

// TimeoutEnvVar overrides DefaultTimeout, in seconds. The legacy
// spelling is accepted as a fallback.
const (
	TimeoutEnvVar       = "SCMVER_SUBPROCESS_TIMEOUT"
	legacyTimeoutEnvVar = "SETUPTOOLS_SCM_SUBPROCESS_TIMEOUT"
)

// Result is the outcome of running a command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// TimeoutError distinguishes a command that was killed for exceeding its
// timeout from an ordinary non-zero exit.
type TimeoutError struct {
	Argv    []string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q timed out after %s", strings.Join(e.Argv, " "), e.Timeout)
}

// Runner executes VCS command vectors. It never invokes a shell: argv is
// an explicit, unescaped list.
type Runner struct {
	// Timeout overrides DefaultTimeout/the env var when non-zero.
	Timeout time.Duration
}

// ConfiguredTimeout resolves the effective timeout: explicit field, then
// the env override, then DefaultTimeout. A malformed env value is an
// error, not a silent fallback.
func (r Runner) ConfiguredTimeout() (time.Duration, error) {
	if r.Timeout > 0 {
		return r.Timeout, nil
	}
	for _, name := range []string{TimeoutEnvVar, legacyTimeoutEnvVar} {
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return 0, &errs.ConfigurationError{
				Reason: fmt.Sprintf("%s value %q is not a positive integer of seconds", name, raw),
				Cause:  err,
			}
		}
		return time.Duration(secs) * time.Second, nil
	}
	return DefaultTimeout, nil
}

// Run executes argv in dir, returning captured stdout/stderr with
// trailing newlines stripped. A non-zero exit is reported via
// Result.ExitCode, not as an error; only spawn failures and timeouts are
// returned as errors.
func (r Runner) Run(dir string, argv ...string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("runner: empty command")
	}

	timeout, err := r.ConfiguredTimeout()
	if err != nil {
		return Result{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return Result{}, &TimeoutError{Argv: argv, Timeout: timeout}
	}

	result := Result{
		Stdout: strings.TrimRight(stdout.String(), "\n"),
		Stderr: strings.TrimRight(stderr.String(), "\n"),
	}

	if err == nil {
		return result, nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	return result, fmt.Errorf("running %q: %w", strings.Join(argv, " "), err)
}
