//go:build !linux && !darwin

package socketutil

import (
	"os"

	"github.com/codefionn/auswahl/internal/logger"
)

// socketFileExists is the fallback for platforms without a usable ModeSocket
// bit. Existence of the path is the best we can check before dialing.
func socketFileExists(path string) bool {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			logger.Debug("error checking socket file %s: %v", path, err)
		}
		return false
	}
	return true
}
