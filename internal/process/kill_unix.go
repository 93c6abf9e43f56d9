//go:build !windows

// Package process provides best-effort, cross-platform process termination
// helpers for cleaning up external rendering engines.
package process

import (
	"os/exec"
	"syscall"
)

// TerminateGroup sends SIGTERM to the process group led by pid, giving the
// engine and its helper processes a chance to exit cleanly.
func TerminateGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}

// KillGroup kills a process and all its children by sending SIGKILL to the
// process group (negative PID).
func KillGroup(pid int) {
	// Best-effort cleanup; error ignored as the by-name sweep provides fallback
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// KillByName forcefully terminates every process whose command line matches
// name. Used as an orphan sweep for a previously hung engine instance, not
// as a concurrency-control mechanism.
func KillByName(name string) {
	// pkill exits 1 when nothing matched; that is fine
	_ = exec.Command("pkill", "-9", "-f", name).Run()
}
