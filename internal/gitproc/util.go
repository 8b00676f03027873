package gitproc

import "os/exec"

const NoDir = ""

// FromError renders an error from a git subprocess, including captured
// stderr when the failure was a nonzero exit.
func FromError(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := err.(*exec.ExitError); ok {
		if len(e.Stderr) > 0 {
			return e.Error() + ". stderr: " + string(e.Stderr)
		}
		return e.Error()
	}
	return err.Error()
}

func FromErrorCode(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := err.(*exec.ExitError); ok {
		return e.ExitCode()
	}
	return -1
}
