// Package sandbox confines the server to the few paths it needs using Linux
// Landlock. On Linux with Landlock support (kernel 5.13+) the process locks
// itself down before serving; on other platforms or older kernels operations
// proceed without sandboxing.
package sandbox

// AccessLevel represents the type of filesystem access granted to a path.
type AccessLevel int

const (
	// AccessReadOnly grants read-only access (read files, list directories)
	AccessReadOnly AccessLevel = iota
	// AccessReadWrite grants read and write access
	AccessReadWrite
)

// DirectoryPermission represents a path with its access level.
type DirectoryPermission struct {
	Path   string
	Access AccessLevel
}

// Config holds sandbox settings. It mirrors the sandbox fields of the
// application config so this package needs no config import.
type Config struct {
	// Disable skips the restriction entirely
	Disable bool
	// BestEffort accepts whatever Landlock ABI the kernel offers instead of
	// failing on older kernels
	BestEffort bool
	// ReadOnlyPaths are paths the server may read, on top of the defaults
	ReadOnlyPaths []string
	// ReadWritePaths are paths the server may read and write
	ReadWritePaths []string
}
