package utils

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

type SystemStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Goroutines    int     `json:"goroutines"`
}

// GetCPUUsage returns the current CPU usage as a percentage
func GetCPUUsage() float64 {
	percentage, err := cpu.Percent(time.Second, false)
	if err != nil {
		Warn().Err(err).Msg("error getting CPU usage")
		return 0
	}
	if len(percentage) > 0 {
		return percentage[0]
	}
	return 0
}

func GetSystemStats() SystemStats {
	stats := SystemStats{
		CPUPercent: GetCPUUsage(),
		Goroutines: runtime.NumGoroutine(),
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryPercent = vm.UsedPercent
	}
	return stats
}
