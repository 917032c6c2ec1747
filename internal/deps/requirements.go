package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// BinaryStatus reports whether an auxiliary executable can be launched.
type BinaryStatus struct {
	Name      string
	Command   string
	Available bool
	Detail    string
}

// CheckBinary looks command up on PATH (or as a path) and requires an
// executable regular file. Command is replaced by the resolved path when
// found.
func CheckBinary(name, command string) BinaryStatus {
	status := BinaryStatus{Name: name, Command: strings.TrimSpace(command)}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("%s: binary %q not found", name, status.Command)
		return status
	}
	info, err := os.Stat(resolved)
	if err != nil || !isExecutable(info) {
		status.Detail = fmt.Sprintf("%s: %s is not executable", name, resolved)
		return status
	}
	status.Command = resolved
	status.Available = true
	return status
}
