//go:build linux || darwin

package system

import (
	"log/slog"
	"syscall"
)

// RaiseFileLimit lifts the soft open-file limit to want, capped at the hard
// limit, so parallel shot writers don't run out of descriptors. It returns the
// limit in effect afterwards.
func RaiseFileLimit(want uint64, log *slog.Logger) uint64 {
	if log == nil {
		log = slog.Default()
	}
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn("system: can't read open file limit", "err", err)
		return 0
	}
	if rLimit.Cur >= want {
		return rLimit.Cur
	}

	prev := rLimit.Cur
	rLimit.Cur = want
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn("system: can't raise open file limit", "err", err)
		return prev
	}
	log.Debug("system: open file limit raised", "from", prev, "to", rLimit.Cur)
	return rLimit.Cur
}
