// Package process terminates the headless browser started for rendering
// together with the helper processes it spawned.
package process

import "errors"

// ErrInvalidPID is returned for pids that would address the caller's own
// process group or no process at all.
var ErrInvalidPID = errors.New("invalid process id")

// KillTree force-kills pid and its descendants. It is best-effort: callers
// still ask the launcher to clean up afterwards.
func KillTree(pid int) error {
	if pid <= 0 {
		return ErrInvalidPID
	}
	return killTree(pid)
}
