package api

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats — снимок ресурсов процесса для /api/stats
type ProcessStats struct {
	UptimeSeconds int64   `json:"uptime_seconds"`
	Uptime        string  `json:"uptime"`
	CPUPercent    float64 `json:"cpu_percent"`
	RSSMB         float64 `json:"rss_mb"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
	Goroutines    int     `json:"goroutines"`
}

// ServerMetrics собирает метрики процесса
type ServerMetrics struct {
	StartTime time.Time
	proc      *process.Process
}

// NewServerMetrics создает новый экземпляр метрик
func NewServerMetrics() *ServerMetrics {
	sm := &ServerMetrics{StartTime: time.Now()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		sm.proc = proc
	}
	return sm
}

// Snapshot возвращает текущие значения. Ошибки gopsutil дают нулевые поля.
func (sm *ServerMetrics) Snapshot() ProcessStats {
	uptime := time.Since(sm.StartTime)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := ProcessStats{
		UptimeSeconds: int64(uptime.Seconds()),
		Uptime:        uptime.Round(time.Second).String(),
		HeapAllocMB:   float64(m.HeapAlloc) / 1024 / 1024,
		NumGC:         m.NumGC,
		Goroutines:    runtime.NumGoroutine(),
	}

	if sm.proc != nil {
		if pct, err := sm.proc.CPUPercent(); err == nil {
			stats.CPUPercent = pct
		}
		if mem, err := sm.proc.MemoryInfo(); err == nil && mem != nil {
			stats.RSSMB = float64(mem.RSS) / 1024 / 1024
		}
	}
	if stats.CPUPercent == 0 {
		// Процессная метрика недоступна: берём системную без ожидания
		if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
			stats.CPUPercent = pcts[0]
		}
	}
	return stats
}
