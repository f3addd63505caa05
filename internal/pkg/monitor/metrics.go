// 扫描节点资源监控，供 /health 接口与大规模扫描前的自检使用
package monitor

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"neorecon/internal/pkg/logger"
)

// HostInfo 扫描节点静态信息
type HostInfo struct {
	Hostname      string `json:"hostname"`
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	KernelVersion string `json:"kernel_version"`
	Arch          string `json:"arch"`
	CPUCores      int    `json:"cpu_cores"`
	MemoryTotal   uint64 `json:"memory_total"`
}

// SystemMetrics 扫描节点运行指标
type SystemMetrics struct {
	CPUUsage         float64 `json:"cpu_usage"`
	MemoryUsage      float64 `json:"memory_usage"`
	DiskUsage        float64 `json:"disk_usage"`
	NetworkBytesSent uint64  `json:"network_bytes_sent"`
	NetworkBytesRecv uint64  `json:"network_bytes_recv"`
	Goroutines       int     `json:"goroutines"`
	OpenConnections  int     `json:"open_connections"`
}

// GetSystemMetrics 采集当前指标，单项失败只记录日志
func GetSystemMetrics() *SystemMetrics {
	metrics := &SystemMetrics{Goroutines: runtime.NumGoroutine()}

	// 100ms 采样窗口
	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		warn("cpu", err)
	} else if len(cpuPercent) > 0 {
		metrics.CPUUsage = cpuPercent[0]
	}

	if vMem, err := mem.VirtualMemory(); err != nil {
		warn("memory", err)
	} else {
		metrics.MemoryUsage = vMem.UsedPercent
	}

	dUsage, err := disk.Usage("/")
	if err != nil {
		dUsage, err = disk.Usage("C:")
	}
	if err != nil {
		warn("disk", err)
	} else {
		metrics.DiskUsage = dUsage.UsedPercent
	}

	if netIO, err := net.IOCounters(false); err != nil {
		warn("network", err)
	} else if len(netIO) > 0 {
		metrics.NetworkBytesSent = netIO[0].BytesSent
		metrics.NetworkBytesRecv = netIO[0].BytesRecv
	}

	// 大量并发扫描时 TCP 连接数是判断 fd 是否紧张的直接依据
	if conns, err := net.Connections("tcp"); err == nil {
		metrics.OpenConnections = len(conns)
	}

	return metrics
}

// GetHostInfo 获取扫描节点静态信息
func GetHostInfo() *HostInfo {
	info := &HostInfo{OS: runtime.GOOS, Arch: runtime.GOARCH, CPUCores: runtime.NumCPU()}

	if hInfo, err := host.Info(); err != nil {
		warn("host", err)
	} else {
		info.Hostname = hInfo.Hostname
		info.Platform = hInfo.Platform + " " + hInfo.PlatformVersion
		info.KernelVersion = hInfo.KernelVersion
		if hInfo.KernelArch != "" {
			info.Arch = hInfo.KernelArch
		}
	}

	if vMem, err := mem.VirtualMemory(); err != nil {
		warn("memory", err)
	} else {
		info.MemoryTotal = vMem.Total
	}

	return info
}

func warn(item string, err error) {
	logger.LogSystemEvent("Monitor", "collect", "Failed to get "+item+" stats: "+err.Error(), logger.WarnLevel, nil)
}
