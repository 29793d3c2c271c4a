package system

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostStats - срез нагрузки хоста и процесса на момент замера.
type HostStats struct {
	CPUPercent  float64 // весь хост
	MemUsedPct  float64
	MemTotalMB  uint64
	ProcRSSMB   uint64
	ProcCPUPct  float64
	LogicalCPUs int
}

// SampleHost собирает HostStats. Недоступные значения остаются нулевыми, ошибок замер не возвращает.
func SampleHost() HostStats {
	var s HostStats
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if n, err := cpu.Counts(true); err == nil {
		s.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemUsedPct = vm.UsedPercent
		s.MemTotalMB = vm.Total / (1 << 20)
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			s.ProcRSSMB = mi.RSS / (1 << 20)
		}
		if c, err := p.CPUPercent(); err == nil {
			s.ProcCPUPct = c
		}
	}
	return s
}

// RunReport - итог одного прогона экспорта.
type RunReport struct {
	Build        string
	Output       string
	Duration     float64 // секунды таймлайна
	Frames       int
	FailedFrames int
	Wall         time.Duration
	Host         HostStats
}

func (r RunReport) FPS() float64 {
	if r.Wall <= 0 {
		return 0
	}
	return float64(r.Frames) / r.Wall.Seconds()
}

func (r RunReport) String() string {
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Timeline: %.2fs\n"+
			"Frames: %d (failed %d)\n"+
			"Total Time: %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"Host CPU: %.1f%% of %d | Mem: %.1f%% of %dMB | Process RSS: %dMB\n"+
			"----------------------------\n",
		r.Build, r.Duration, r.Frames, r.FailedFrames, r.Wall.Seconds(), r.FPS(),
		r.Host.CPUPercent, r.Host.LogicalCPUs, r.Host.MemUsedPct, r.Host.MemTotalMB, r.Host.ProcRSSMB,
	)
}

// AppendLog дописывает в path одну строку о прогоне.
func (r RunReport) AppendLog(path string) error {
	entry := fmt.Sprintf("[%s] Build: %s | Output: %s | Frames: %d | Failed: %d | Total: %.2fs | FPS: %.2f | CPU: %.1f%% | RSS: %dMB\n",
		time.Now().Format("2006-01-02 15:04:05"),
		r.Build, r.Output, r.Frames, r.FailedFrames, r.Wall.Seconds(), r.FPS(),
		r.Host.CPUPercent, r.Host.ProcRSSMB,
	)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(entry)
	return err
}
