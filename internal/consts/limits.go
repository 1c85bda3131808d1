package consts

import "time"

// Buffer sizes for socket and channel plumbing
const (
	// BufferSize1KB is 1 kilobyte
	BufferSize1KB = 1024
	// BufferSize64KB is 64 kilobytes
	BufferSize64KB = 64 * 1024
	// MaxLineBytes caps a single protocol line; anything longer is a broken client
	MaxLineBytes = 1024 * 1024
	// SendQueueSize is the per-connection outbound message queue depth
	SendQueueSize = 256
	// EventQueueSize is the per-session surface event channel depth
	EventQueueSize = 64
)

// Timeouts for various operations
const (
	// Timeout1Second is a 1 second timeout
	Timeout1Second = 1 * time.Second
	// Timeout2Seconds is a 2 second timeout
	Timeout2Seconds = 2 * time.Second
	// Timeout5Seconds is a 5 second timeout
	Timeout5Seconds = 5 * time.Second
	// Timeout10Seconds is a 10 second timeout
	Timeout10Seconds = 10 * time.Second
	// Timeout30Seconds is a 30 second timeout
	Timeout30Seconds = 30 * time.Second
)

// Named operation timeouts
const (
	// DialTimeout bounds a client connection attempt
	DialTimeout = Timeout5Seconds
	// DetectionTimeout bounds a server liveness probe
	DetectionTimeout = Timeout1Second
	// AcceptPollInterval is the accept loop's shutdown polling deadline
	AcceptPollInterval = Timeout1Second
	// SurfaceStartTimeout bounds how long the worker waits for the picker to come up
	SurfaceStartTimeout = Timeout10Seconds
	// ShutdownGrace bounds the drain of live connections during server stop
	ShutdownGrace = Timeout5Seconds
)

// Staleness limits
const (
	// LockStaleAge is how old a lockfile may be before a dead owner is assumed
	LockStaleAge = 24 * time.Hour
)
