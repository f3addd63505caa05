// 结构化日志条目
package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FormatTimestamp 格式化时间戳为统一的毫秒精度格式
func FormatTimestamp(t time.Time) string {
	return t.Format(timestampFormat)
}

// LogType 日志类型枚举
type LogType string

const (
	// AccessLog 访问日志 - 记录 serve 模式 HTTP 请求
	AccessLog LogType = "access"
	// ErrorLog 错误日志
	ErrorLog LogType = "error"
	// SystemLog 系统日志 - 组件启动/关闭、配置重载
	SystemLog LogType = "system"
	// ScanLog 扫描日志 - 扫描阶段进度
	ScanLog LogType = "scan"
	// LookupLog 情报日志 - CVE 查询与富化
	LookupLog LogType = "lookup"
	// FindingLog 发现日志 - 单条漏洞记录
	FindingLog LogType = "finding"
)

// LogLevel 日志级别类型，调用方无需直接依赖logrus
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func toLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func merge(fields logrus.Fields, extra map[string]interface{}) logrus.Fields {
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

// LogAccessRequest 记录HTTP访问日志
func LogAccessRequest(c *gin.Context, startTime time.Time, requestID string) {
	if LoggerInstance == nil {
		return
	}

	LoggerInstance.logger.WithFields(logrus.Fields{
		"type":          AccessLog,
		"method":        c.Request.Method,
		"path":          c.Request.URL.Path,
		"query":         c.Request.URL.RawQuery,
		"status_code":   c.Writer.Status(),
		"response_time": time.Since(startTime).Milliseconds(),
		"client_ip":     c.ClientIP(),
		"user_agent":    c.Request.UserAgent(),
		"request_id":    requestID,
		"response_size": c.Writer.Size(),
	}).Info("HTTP request processed")
}

// LogError 记录错误日志
func LogError(err error, component string, extraFields map[string]interface{}) {
	if LoggerInstance == nil || err == nil {
		return
	}

	fields := merge(logrus.Fields{
		"type":      ErrorLog,
		"component": component,
		"error":     err.Error(),
	}, extraFields)
	LoggerInstance.logger.WithFields(fields).Errorf("%s error: %s", component, err.Error())
}

// LogSystemEvent 记录系统事件日志
// 用于记录组件启动、关闭、状态变化等系统级事件
func LogSystemEvent(component, event, message string, level LogLevel, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	lvl := toLogrusLevel(level)
	fields := merge(logrus.Fields{
		"type":      SystemLog,
		"component": component,
		"event":     event,
		"message":   message,
	}, extraFields)

	LoggerInstance.logger.WithFields(fields).Log(lvl, fmt.Sprintf("System event: %s - %s", component, event))
}

// LogScanOperation 记录扫描阶段日志
// status: running / completed / failed / skipped
func LogScanOperation(scanID, stage, target, status string, progress int, result string, duration time.Duration, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := merge(logrus.Fields{
		"type":     ScanLog,
		"scan_id":  scanID,
		"stage":    stage,
		"target":   target,
		"status":   status,
		"progress": progress,
		"result":   result,
		"duration": duration.Milliseconds(),
	}, extraFields)

	entry := LoggerInstance.logger.WithFields(fields)
	switch status {
	case "completed":
		entry.Info(fmt.Sprintf("Scan completed: %s on %s", stage, target))
	case "failed":
		entry.Error(fmt.Sprintf("Scan failed: %s on %s", stage, target))
	case "running":
		entry.Debug(fmt.Sprintf("Scan running: %s on %s (%d%%)", stage, target, progress))
	default:
		entry.Info(fmt.Sprintf("Scan %s: %s on %s", status, stage, target))
	}
}

// LogLookupOperation 记录情报源查询日志
// status: hit / miss / error / cached
func LogLookupOperation(cveID, source, status string, duration time.Duration, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := merge(logrus.Fields{
		"type":     LookupLog,
		"cve_id":   cveID,
		"source":   source,
		"status":   status,
		"duration": duration.Milliseconds(),
	}, extraFields)

	entry := LoggerInstance.logger.WithFields(fields)
	if status == "error" {
		entry.Warn(fmt.Sprintf("Lookup %s via %s failed", cveID, source))
		return
	}
	entry.Debug(fmt.Sprintf("Lookup %s via %s: %s", cveID, source, status))
}

// LogFinding 记录单条漏洞发现
func LogFinding(host string, port int, vulnID, severity, source string) {
	if LoggerInstance == nil {
		return
	}

	LoggerInstance.logger.WithFields(logrus.Fields{
		"type":     FindingLog,
		"host":     host,
		"port":     port,
		"vuln_id":  vulnID,
		"severity": severity,
		"source":   source,
	}).Info(fmt.Sprintf("Finding %s on %s:%d", vulnID, host, port))
}
