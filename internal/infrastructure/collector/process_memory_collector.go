package collector

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

const bytesPerMegabyte = 1024 * 1024

// ProcessMemoryCollector собирает RSS текущего процесса
type ProcessMemoryCollector struct {
	pid int32
}

// NewProcessMemoryCollector создает коллектор для текущего процесса
func NewProcessMemoryCollector() *ProcessMemoryCollector {
	return &ProcessMemoryCollector{pid: int32(os.Getpid())}
}

// CollectMb возвращает резидентную память процесса в мегабайтах
func (c *ProcessMemoryCollector) CollectMb(ctx context.Context) (float64, error) {
	proc, err := process.NewProcessWithContext(ctx, c.pid)
	if err != nil {
		return 0, fmt.Errorf("failed to open process %d: %w", c.pid, err)
	}

	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get memory info: %w", err)
	}

	return float64(info.RSS) / bytesPerMegabyte, nil
}
