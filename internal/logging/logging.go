// Package logging wires the process's slog pipeline: console plus log
// file, optionally bridged into OpenTelemetry, with per-record simulation
// context injected by the runner.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// FilePath builds a session log file path using OS-appropriate
// separators.
func FilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}
