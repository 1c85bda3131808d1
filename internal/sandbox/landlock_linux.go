//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/codefionn/auswahl/internal/logger"
	landlock "github.com/landlock-lsm/go-landlock/landlock"
)

// LandlockSandbox restricts the process to a fixed set of paths. The rules
// are assembled up front from system defaults plus the caller's paths;
// Restrict applies them once, irrevocably, for this process and everything
// it spawns.
type LandlockSandbox struct {
	cfg        Config
	paths      []DirectoryPermission
	enabled    bool
	restricted bool
}

// NewLandlockSandbox builds a sandbox from the given settings. Paths that do
// not exist are skipped; a Landlock rule on a missing path would fail the
// whole restriction.
func NewLandlockSandbox(cfg Config) *LandlockSandbox {
	sandbox := &LandlockSandbox{cfg: cfg}

	if cfg.Disable {
		logger.Info("Landlock sandbox explicitly disabled via config")
		return sandbox
	}

	sandbox.enabled = true
	sandbox.paths = defaultAllowedPaths()
	for _, path := range cfg.ReadOnlyPaths {
		sandbox.addPath(path, AccessReadOnly)
	}
	for _, path := range cfg.ReadWritePaths {
		sandbox.addPath(path, AccessReadWrite)
	}

	logger.Debug("Landlock sandbox prepared with %d paths (best_effort=%v)", len(sandbox.paths), cfg.BestEffort)
	return sandbox
}

// defaultAllowedPaths returns what any picker server process needs: shared
// libraries and system config read-only, devices and temp space read-write.
func defaultAllowedPaths() []DirectoryPermission {
	var paths []DirectoryPermission
	seen := make(map[string]bool)

	add := func(path string, access AccessLevel) {
		if path == "" {
			return
		}
		path = filepath.Clean(path)
		if seen[path] {
			return
		}
		if _, err := os.Stat(path); err != nil {
			return
		}
		seen[path] = true
		paths = append(paths, DirectoryPermission{Path: path, Access: access})
	}

	for _, path := range []string{"/usr", "/bin", "/lib", "/lib64", "/etc"} {
		add(path, AccessReadOnly)
	}

	// The picker cannot come up without the terminal device.
	for _, path := range []string{"/dev/null", "/dev/zero", "/dev/urandom", "/dev/tty"} {
		add(path, AccessReadWrite)
	}

	add(os.TempDir(), AccessReadWrite)
	add("/tmp", AccessReadWrite)

	// Clipboard integration talks to display server sockets in the runtime
	// dir under Wayland.
	add(os.Getenv("XDG_RUNTIME_DIR"), AccessReadWrite)

	return paths
}

// addPath records a caller-supplied path if it exists.
func (s *LandlockSandbox) addPath(path string, access AccessLevel) {
	if path == "" {
		return
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	if _, err := os.Stat(absPath); err != nil {
		logger.Debug("Skipping missing sandbox path: %s", absPath)
		return
	}
	s.paths = append(s.paths, DirectoryPermission{Path: absPath, Access: access})
}

// IsEnabled returns whether Restrict will do anything.
func (s *LandlockSandbox) IsEnabled() bool {
	return s.enabled
}

// GetAllowedPaths returns the paths the sandbox will permit.
func (s *LandlockSandbox) GetAllowedPaths() []DirectoryPermission {
	result := make([]DirectoryPermission, len(s.paths))
	copy(result, s.paths)
	return result
}

// Restrict applies the Landlock rules to the current process. File access
// outside the allowed set fails from here on, for this process and its
// children. Network sockets are not restricted.
func (s *LandlockSandbox) Restrict() error {
	if !s.enabled || s.restricted {
		return nil
	}

	// Landlock rejects directory access rights on regular files, so files
	// and directories need separate rule kinds.
	rules := make([]landlock.Rule, 0, len(s.paths))
	var roCount, rwCount int
	for _, perm := range s.paths {
		info, err := os.Stat(perm.Path)
		isDir := err == nil && info.IsDir()
		switch {
		case perm.Access == AccessReadOnly && isDir:
			rules = append(rules, landlock.RODirs(perm.Path))
			roCount++
		case perm.Access == AccessReadOnly:
			rules = append(rules, landlock.ROFiles(perm.Path))
			roCount++
		case isDir:
			rules = append(rules, landlock.RWDirs(perm.Path))
			rwCount++
		default:
			rules = append(rules, landlock.RWFiles(perm.Path))
			rwCount++
		}
	}

	var err error
	if s.cfg.BestEffort {
		err = landlock.V6.BestEffort().RestrictPaths(rules...)
	} else {
		err = landlock.V6.RestrictPaths(rules...)
	}
	if err != nil {
		s.enabled = false
		return fmt.Errorf("landlock restriction failed: %w", err)
	}

	s.restricted = true
	logger.Info("Landlock restrictions applied: %d read-only, %d read-write paths", roCount, rwCount)
	return nil
}
