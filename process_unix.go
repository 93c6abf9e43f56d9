//go:build !windows

package doc2pdf

import (
	"os/exec"
	"syscall"
)

// setNewProcessGroup makes the child the leader of a new process group so
// a timeout can signal the engine and every helper process it spawns.
func setNewProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
