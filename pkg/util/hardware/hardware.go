// Package hardware 提供主机资源信息的查询。
package hardware

import (
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/lk2023060901/stackjson-go/pkg/log"
)

var (
	cpuNumOnce sync.Once
	cpuNum     int
)

// GetCPUNum 返回可用的逻辑 CPU 数量。
// 结果取 gopsutil 探测值与 GOMAXPROCS 中的较小者（容器内 GOMAXPROCS 通常已被 automaxprocs 修正）。
func GetCPUNum() int {
	cpuNumOnce.Do(func() {
		cpuNum = runtime.GOMAXPROCS(0)
		counts, err := cpu.Counts(true)
		if err != nil {
			log.Warn("failed to detect cpu count, fallback to GOMAXPROCS", zap.Error(err))
			return
		}
		if counts > 0 && counts < cpuNum {
			cpuNum = counts
		}
	})
	return cpuNum
}

// GetMemoryCount 返回主机物理内存总量（字节），探测失败时返回 0。
func GetMemoryCount() uint64 {
	stats, err := mem.VirtualMemory()
	if err != nil {
		log.Warn("failed to get memory count", zap.Error(err))
		return 0
	}
	return stats.Total
}
