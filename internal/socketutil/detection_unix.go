//go:build linux || darwin

package socketutil

import (
	"os"

	"github.com/codefionn/auswahl/internal/logger"
)

// socketFileExists reports whether path exists and is a unix socket.
func socketFileExists(path string) bool {
	stat, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debug("error checking socket file %s: %v", path, err)
		}
		return false
	}
	if stat.Mode()&os.ModeSocket == 0 {
		logger.Debug("file exists but is not a socket: %s", path)
		return false
	}
	return true
}
