package config

import "time"

// Input defaults. Rotated logs look like gc.log.0 or gc.log.1.gz.
var DefaultPatterns = []string{"*.log", "*.log.*", "*.gz", "*.lz4", "*.zst", "*.sz"}

// Logging defaults.
const (
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
)

// Report defaults.
const (
	DefaultProgressInterval = 500 * time.Millisecond
)
