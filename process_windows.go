//go:build windows

package doc2pdf

import (
	"os/exec"
	"syscall"
)

// setNewProcessGroup starts the child in a new process group; termination
// is handled by taskkill tree kills in internal/process.
func setNewProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
