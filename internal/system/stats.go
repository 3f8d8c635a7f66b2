package system

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is a snapshot of the machine the loader runs on.
type HostStats struct {
	LogicalCPUs     int
	TotalMemory     uint64
	AvailableMemory uint64
}

// ReadHostStats queries gopsutil, falling back to runtime data when the
// platform does not expose it.
func ReadHostStats() HostStats {
	st := HostStats{LogicalCPUs: runtime.NumCPU()}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		st.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		st.TotalMemory = vm.Total
		st.AvailableMemory = vm.Available
	}
	return st
}

// LoaderWorkers caps the requested number of concurrent decodes so that
// the decoded frames of all in-flight workers fit into a quarter of the
// available memory. frameBytes is the expected size of one decoded frame.
func (s HostStats) LoaderWorkers(requested int, frameBytes uint64) int {
	if requested <= 0 {
		requested = s.LogicalCPUs * 2
	}
	if requested <= 0 {
		requested = 1
	}
	if s.AvailableMemory == 0 || frameBytes == 0 {
		return requested
	}
	budget := int(s.AvailableMemory / 4 / frameBytes)
	if budget < 1 {
		budget = 1
	}
	if requested > budget {
		return budget
	}
	return requested
}

func (s HostStats) String() string {
	return fmt.Sprintf("CPU: %d | RAM: %.1f/%.1f GB",
		s.LogicalCPUs, float64(s.AvailableMemory)/(1<<30), float64(s.TotalMemory)/(1<<30))
}
