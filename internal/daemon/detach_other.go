//go:build !linux && !darwin

package daemon

import (
	"errors"
	"os"

	"go.uber.org/zap"
)

// DetachedEnv is set in the environment of a detached daemon.
const DetachedEnv = "CLIPSTACK_DAEMON"

// Detach is not supported on this platform; run the daemon under a service
// manager instead.
func Detach(executable string, args []string, logFile string, logger *zap.Logger) (int, error) {
	return 0, errors.New("detaching is not supported on this platform")
}

// Stop kills the daemon with the given pid.
func Stop(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
