//go:build windows

package process

import (
	"os/exec"
	"strconv"
)

// TerminateGroup asks the process tree led by pid to exit. Windows has no
// POSIX process groups; taskkill without /F performs a polite termination.
func TerminateGroup(pid int) error {
	return exec.Command("taskkill", "/T", "/PID", strconv.Itoa(pid)).Run()
}

// KillGroup kills a process and all its children using taskkill.
// /F = force kill, /T = terminate child processes (tree kill).
func KillGroup(pid int) {
	// Best-effort cleanup; error ignored as the by-name sweep provides fallback
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}

// KillByName forcefully terminates every process whose image name matches
// name (e.g. "soffice.exe").
func KillByName(name string) {
	_ = exec.Command("taskkill", "/F", "/IM", name, "/T").Run()
}
