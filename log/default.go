package log

import (
	"sync/atomic"
)

var defaultLogger atomic.Value

func init() {
	l, err := NewLoggerWithOptions(&Options{Level: "info", Format: "text", Output: "stderr"})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	SetDefault(l)
}

type loggerHolder struct {
	Logger
}

func Default() Logger {
	return defaultLogger.Load().(loggerHolder).Logger
}

func SetDefault(l Logger) {
	defaultLogger.Store(loggerHolder{l})
}

// Discard 丢弃所有输出的 logger，测试中使用
func Discard() Logger {
	l, _ := NewLoggerWithOptions(&Options{Output: "discard"})
	return l
}
