package doc2pdf

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-doc2pdf/internal/process"
)

// Bounds for the graduated shutdown of a timed-out engine.
const (
	// termGracePeriod is how long to wait after SIGTERM before force-killing
	// the process group.
	termGracePeriod = 5 * time.Second

	// killGracePeriod is how long to wait after SIGKILL before falling back
	// to the by-name sweep.
	killGracePeriod = 2 * time.Second

	// outputCaptureLimit caps how much captured stdout/stderr is embedded
	// in error messages.
	outputCaptureLimit = 4 << 10
)

// engineInvocation describes a single external process run. One is
// constructed fresh per call and never reused across processes.
type engineInvocation struct {
	argv    []string
	env     []string // appended to the inherited environment
	timeout time.Duration

	// sweep names an engine binary to forcefully terminate by name before
	// spawning, and again as a last resort if group signals fail on
	// timeout. This defends against an instance orphaned by a previous
	// timeout holding the engine's single allowed instance; the primary
	// concurrency control is the orchestrator's single-flight gate.
	sweep string
}

// commandRunner abstracts external process execution to enable testing
// without real subprocesses.
type commandRunner interface {
	run(ctx context.Context, inv engineInvocation) error
}

// execRunner implements commandRunner using os/exec. The child is spawned
// in its own process group so that a timeout can signal the whole subtree,
// not just the direct child.
type execRunner struct {
	log zerolog.Logger
}

// Compile-time interface check.
var _ commandRunner = (*execRunner)(nil)

func (r *execRunner) run(ctx context.Context, inv engineInvocation) error {
	if inv.sweep != "" {
		process.KillByName(inv.sweep)
	}

	cmd := exec.Command(inv.argv[0], inv.argv[1:]...) // #nosec G204 -- argv is built from configured binary paths
	if len(inv.env) > 0 {
		cmd.Env = append(os.Environ(), inv.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	setNewProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return convErrorCause(ErrEngineUnavailable, err,
			"verify the engine binary path in the configuration",
			"failed to start %s: %v", inv.argv[0], err)
	}

	// Final guarantee: whatever path returns, the direct child must not be
	// left running. reaped gates the kill; cmd.ProcessState is off limits
	// here because the wait goroutine may still be writing it.
	reaped := false
	defer func() {
		if !reaped && cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(inv.timeout)
	defer timer.Stop()

	select {
	case waitErr := <-done:
		reaped = true
		r.logRun(inv, stdout.String(), stderr.String(), waitErr)
		if waitErr == nil {
			return nil
		}
		return r.exitError(inv, stdout.String(), stderr.String(), waitErr)

	case <-timer.C:
		reaped = r.shutdown(cmd, done, inv.sweep)
		r.logAborted(inv, &stdout, &stderr, reaped, "timeout after "+inv.timeout.String())
		return convError(ErrTimeout,
			"try a smaller or simpler document",
			"command timed out after %s", inv.timeout)

	case <-ctx.Done():
		reaped = r.shutdown(cmd, done, inv.sweep)
		r.logAborted(inv, &stdout, &stderr, reaped, ctx.Err().Error())
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return convErrorCause(ErrTimeout, ctx.Err(),
				"try a smaller or simpler document",
				"command timed out after %s", inv.timeout)
		}
		return convErrorCause(ErrEngineFailed, ctx.Err(), "",
			"command canceled: %v", ctx.Err())
	}
}

// shutdown performs the graduated termination of a running engine: SIGTERM
// to the process group, a bounded wait, SIGKILL to the group, another
// bounded wait, and finally the by-name sweep. Secondary failures are
// swallowed; the deferred kill in run covers the direct child. Reports
// whether the wait goroutine was observed finishing, meaning the process is
// reaped and its capture buffers are stable.
func (r *execRunner) shutdown(cmd *exec.Cmd, done <-chan error, sweep string) bool {
	pid := cmd.Process.Pid

	if err := process.TerminateGroup(pid); err == nil {
		select {
		case <-done:
			return true
		case <-time.After(termGracePeriod):
		}
	}

	process.KillGroup(pid)
	select {
	case <-done:
		return true
	case <-time.After(killGracePeriod):
	}

	if sweep != "" {
		process.KillByName(sweep)
	}
	return false
}

// logAborted logs a run cut short by timeout or cancellation at error
// severity. The capture buffers are included only when the process was
// reaped; before that the wait goroutine may still be flushing them.
func (r *execRunner) logAborted(inv engineInvocation, stdout, stderr *bytes.Buffer, reaped bool, reason string) {
	ev := r.log.Error().
		Str("cmd", strings.Join(inv.argv, " ")).
		Str("reason", reason)
	if reaped {
		ev = ev.Str("stdout", truncateOutput(stdout.String())).
			Str("stderr", truncateOutput(stderr.String()))
	}
	ev.Msg("engine run aborted")
}

// exitError normalizes a non-zero exit into a ConversionError carrying the
// exit code, the joined command, and the captured output.
func (r *execRunner) exitError(inv engineInvocation, stdout, stderr string, waitErr error) error {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code = exitErr.ExitCode()
	}

	stderrMsg := truncateOutput(stderr)
	if stderrMsg == "" {
		stderrMsg = "no error message"
	}

	return convErrorCause(ErrEngineFailed, waitErr, "",
		"command failed with code %d\ncommand: %s\nstderr: %s\nstdout: %s",
		code, strings.Join(inv.argv, " "), stderrMsg, truncateOutput(stdout))
}

// logRun emits captured output at debug on every run and at error on
// failure, for diagnosability.
func (r *execRunner) logRun(inv engineInvocation, stdout, stderr string, waitErr error) {
	ev := r.log.Debug()
	if waitErr != nil {
		ev = r.log.Error().Err(waitErr)
	}
	ev.Str("cmd", strings.Join(inv.argv, " ")).
		Str("stdout", truncateOutput(stdout)).
		Str("stderr", truncateOutput(stderr)).
		Msg("engine run finished")
}

// truncateOutput trims surrounding whitespace and caps the size of captured
// engine output.
func truncateOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > outputCaptureLimit {
		return s[:outputCaptureLimit] + "... (truncated)"
	}
	return s
}
