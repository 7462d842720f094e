//go:build !linux && !darwin

package system

import "log/slog"

// RaiseFileLimit is a no-op where there is no RLIMIT_NOFILE
func RaiseFileLimit(want uint64, log *slog.Logger) uint64 {
	return 0
}
