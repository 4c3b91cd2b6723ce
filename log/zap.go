package log

import (
	"go.uber.org/zap"
)

// Logger is the process-wide logger. It discards everything until one of the
// Init functions runs, so packages can log from tests without setup.
var Logger *zap.Logger = zap.NewNop()

func InitProductionLogger() {
	if l, err := zap.NewProduction(); err == nil {
		Logger = l
	}
}

func InitDevelopmentLogger() {
	if l, err := zap.NewDevelopment(); err == nil {
		Logger = l
	}
}

// Sync flushes buffered log entries
func Sync() {
	_ = Logger.Sync()
}
