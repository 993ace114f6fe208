// Package orchestra identifies the application for logging and diagnostics
package orchestra

const (
	// Name is the application name reported in log output
	Name = "orchestra"

	// Version is the application version reported in log output
	Version = "0.1.0"
)
