package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	Log  *logrus.Logger
	once sync.Once
)

// InitLogger 初始化日志器
func InitLogger(level string) {
	Log = newLogger(level)
}

func newLogger(level string) *logrus.Logger {
	l := logrus.New()

	// 设置输出格式
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	l.SetOutput(os.Stdout)
	l.SetLevel(ParseLevel(level))
	return l
}

// ParseLevel 解析日志级别，未知级别按 info 处理
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// get 返回当前日志器；未初始化时（如单元测试）使用默认 info 级别
func get() *logrus.Logger {
	if Log == nil {
		once.Do(func() {
			if Log == nil {
				Log = newLogger("info")
			}
		})
	}
	return Log
}

// WithField 带单个字段的日志条目
func WithField(key string, value interface{}) *logrus.Entry {
	return get().WithField(key, value)
}

// WithFields 带多个字段的日志条目
func WithFields(fields logrus.Fields) *logrus.Entry {
	return get().WithFields(fields)
}

// Debug 调试日志
func Debug(args ...interface{}) {
	get().Debug(args...)
}

// Debugf 格式化调试日志
func Debugf(format string, args ...interface{}) {
	get().Debugf(format, args...)
}

// Info 信息日志
func Info(args ...interface{}) {
	get().Info(args...)
}

// Infof 格式化信息日志
func Infof(format string, args ...interface{}) {
	get().Infof(format, args...)
}

// Warn 警告日志
func Warn(args ...interface{}) {
	get().Warn(args...)
}

// Warnf 格式化警告日志
func Warnf(format string, args ...interface{}) {
	get().Warnf(format, args...)
}

// Error 错误日志
func Error(args ...interface{}) {
	get().Error(args...)
}

// Errorf 格式化错误日志
func Errorf(format string, args ...interface{}) {
	get().Errorf(format, args...)
}

// Fatal 致命错误日志
func Fatal(args ...interface{}) {
	get().Fatal(args...)
}

// Fatalf 格式化致命错误日志
func Fatalf(format string, args ...interface{}) {
	get().Fatalf(format, args...)
}
