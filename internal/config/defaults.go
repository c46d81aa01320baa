package config

import "time"

// Default values for configuration
const (
	// Log defaults
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	// Server defaults
	DefaultServerListenAddr      = ":8080"
	DefaultServerReadTimeout     = 10 * time.Second
	DefaultServerWriteTimeout    = 10 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second

	// Database defaults
	DefaultDBPath             = "attendance.db"
	DefaultDBBusyTimeout      = 5 * time.Second
	DefaultDBOperationTimeout = 15 * time.Second

	// Attendance defaults
	DefaultAttendanceTimezone = "UTC"

	// Scheduler defaults
	DefaultMaintenanceSchedule = "0 4 * * *" // daily at 04:00
)
