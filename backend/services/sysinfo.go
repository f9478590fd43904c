package services

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// SysInfo describes the backend process and host for the status page.
type SysInfo struct {
	OS          string `json:"os"`
	GoVersion   string `json:"go_version"`
	Uptime      string `json:"uptime"`
	Goroutines  int    `json:"goroutines"`
	HeapAllocMB uint64 `json:"heap_alloc_mb"`
	MemoryUsage int    `json:"memory_usage"` // host, percent; 0 when unknown
}

// SysInfoService reports process and host information. Host memory is read
// from /proc on Linux only.
type SysInfoService struct {
	started time.Time
}

func NewSysInfoService() *SysInfoService {
	return &SysInfoService{started: time.Now()}
}

// Snapshot collects the current values.
func (s *SysInfoService) Snapshot() SysInfo {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return SysInfo{
		OS:          runtime.GOOS,
		GoVersion:   runtime.Version(),
		Uptime:      s.GetUptime(),
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: mem.HeapAlloc / (1024 * 1024),
		MemoryUsage: s.GetMemoryUsage(),
	}
}

// GetUptime returns the backend uptime as a human-readable string
func (s *SysInfoService) GetUptime() string {
	return formatUptime(time.Since(s.started))
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

// GetMemoryUsage returns current host memory usage percentage (0-100)
func (s *SysInfoService) GetMemoryUsage() int {
	if runtime.GOOS != "linux" {
		return 0
	}

	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0
	}

	var memTotal, memAvailable uint64
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		val, _ := strconv.ParseUint(fields[1], 10, 64)
		switch fields[0] {
		case "MemTotal:":
			memTotal = val
		case "MemAvailable:":
			memAvailable = val
		}
	}

	if memTotal == 0 || memAvailable > memTotal {
		return 0
	}
	return int(float64(memTotal-memAvailable) / float64(memTotal) * 100)
}
