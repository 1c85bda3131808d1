//go:build !linux

package sandbox

import (
	"github.com/codefionn/auswahl/internal/logger"
)

// LandlockSandbox is a no-op implementation for non-Linux systems.
type LandlockSandbox struct {
	cfg Config
}

// NewLandlockSandbox creates a sandbox (no-op on non-Linux).
func NewLandlockSandbox(cfg Config) *LandlockSandbox {
	if !cfg.Disable {
		logger.Debug("Landlock sandboxing not available on this platform")
	}
	return &LandlockSandbox{cfg: cfg}
}

// IsEnabled always returns false on non-Linux.
func (s *LandlockSandbox) IsEnabled() bool {
	return false
}

// GetAllowedPaths returns an empty list on non-Linux.
func (s *LandlockSandbox) GetAllowedPaths() []DirectoryPermission {
	return nil
}

// Restrict is a no-op on non-Linux.
func (s *LandlockSandbox) Restrict() error {
	return nil
}
