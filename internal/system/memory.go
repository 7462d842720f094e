package system

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryProbe reports how many bytes the machine can still hand out
type MemoryProbe func() (uint64, error)

// AvailableMemory reads the available memory of the host
func AvailableMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("reading virtual memory stats: %w", err)
	}
	return vm.Available, nil
}

// FrameBudget is the number of bytes a session will hold once all shots are
// buffered as packed RGB.
func FrameBudget(width, height, shots int) uint64 {
	if width <= 0 || height <= 0 || shots <= 0 {
		return 0
	}
	return uint64(width) * uint64(height) * 3 * uint64(shots)
}

// FitsInMemory reports whether the projected frame budget fits into the memory
// reported by probe. A failing probe is treated as "fits".
func FitsInMemory(probe MemoryProbe, width, height, shots int) (bool, uint64, uint64) {
	need := FrameBudget(width, height, shots)
	if probe == nil {
		return true, need, 0
	}
	avail, err := probe()
	if err != nil {
		return true, need, 0
	}
	return need <= avail, need, avail
}

// FormatBytes renders a byte count for notifications
func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
