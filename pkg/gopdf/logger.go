package gopdf

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
)

// LogLevel 日志级别
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelNone
)

// String 返回级别名称
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "NONE"
	}
}

// ParseLogLevel 解析级别名称（不区分大小写），用于配置文件与命令行
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LogLevelDebug, nil
	case "INFO":
		return LogLevelInfo, nil
	case "WARN", "WARNING":
		return LogLevelWarn, nil
	case "ERROR":
		return LogLevelError, nil
	case "NONE", "OFF":
		return LogLevelNone, nil
	}
	return LogLevelNone, fmt.Errorf("unknown log level %q", s)
}

// Logger 分级日志记录器
// 级别过滤在本地完成，输出委托给 commonlog 的命名 logger，
// 后端（simple、journal 等）由可执行程序通过 commonlog.Configure 选择。
type Logger struct {
	mu      sync.RWMutex
	level   LogLevel
	name    string
	backend commonlog.Logger
	enabled bool
}

var (
	defaultLogger *Logger
	loggerOnce    sync.Once
)

// GetLogger 获取默认日志记录器（单例）
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		defaultLogger = NewLogger(LogLevelWarn, "gopdf")
	})
	return defaultLogger
}

// NewLogger 创建新的日志记录器
func NewLogger(level LogLevel, name string) *Logger {
	return &Logger{
		level:   level,
		name:    name,
		backend: commonlog.GetLogger(name),
		enabled: true,
	}
}

// Named 创建继承当前级别的子日志记录器，名称形如 "gopdf.viewer"
func (l *Logger) Named(name string) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	child := NewLogger(l.level, l.name+"."+name)
	child.enabled = l.enabled
	return child
}

// Name 返回日志记录器名称
func (l *Logger) Name() string {
	return l.name
}

// SetLevel 设置日志级别
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Level 返回当前日志级别
func (l *Logger) Level() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// SetEnabled 启用或禁用日志
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// Enabled 判断给定级别是否会被输出
func (l *Logger) Enabled(level LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled && level >= l.level && level < LogLevelNone
}

// Debug 记录调试信息
func (l *Logger) Debug(format string, v ...interface{}) {
	if l.Enabled(LogLevelDebug) {
		l.backend.Debugf(format, v...)
	}
}

// Info 记录信息
func (l *Logger) Info(format string, v ...interface{}) {
	if l.Enabled(LogLevelInfo) {
		l.backend.Infof(format, v...)
	}
}

// Warn 记录警告
func (l *Logger) Warn(format string, v ...interface{}) {
	if l.Enabled(LogLevelWarn) {
		l.backend.Warningf(format, v...)
	}
}

// Error 记录错误
func (l *Logger) Error(format string, v ...interface{}) {
	if l.Enabled(LogLevelError) {
		l.backend.Errorf(format, v...)
	}
}

// 全局便捷函数
func Debug(format string, v ...interface{}) {
	GetLogger().Debug(format, v...)
}

func Info(format string, v ...interface{}) {
	GetLogger().Info(format, v...)
}

func Warn(format string, v ...interface{}) {
	GetLogger().Warn(format, v...)
}

func LogError(format string, v ...interface{}) {
	GetLogger().Error(format, v...)
}

// SetLogLevel 设置全局日志级别
func SetLogLevel(level LogLevel) {
	GetLogger().SetLevel(level)
}

// EnableLogging 启用或禁用全局日志
func EnableLogging(enabled bool) {
	GetLogger().SetEnabled(enabled)
}
