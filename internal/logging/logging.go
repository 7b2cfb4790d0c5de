// Package logging builds the zerolog logger shared by every duochat
// component, tagged with the service name and build version.
package logging

import (
	"os"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// New returns a structured logger writing JSON to stdout.
func New(service, version string) zerolog.Logger {
	return zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

// CommitHash reports the VCS revision embedded in the binary, or the module
// version when no revision is recorded.
func CommitHash() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
		return info.Main.Version
	}
	return "unknown"
}
