package libav

import (
	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt/tool/logger"
)

// logLevels pairs the go-belt levels with the libav ones, from the least to
// the most verbose. libav "verbose" is our debug and libav "debug" our trace.
var logLevels = []struct {
	Belt logger.Level
	AV   astiav.LogLevel
}{
	{logger.LevelUndefined, astiav.LogLevelQuiet},
	{logger.LevelPanic, astiav.LogLevelPanic},
	{logger.LevelFatal, astiav.LogLevelFatal},
	{logger.LevelError, astiav.LogLevelError},
	{logger.LevelWarning, astiav.LogLevelWarning},
	{logger.LevelInfo, astiav.LogLevelInfo},
	{logger.LevelDebug, astiav.LogLevelVerbose},
	{logger.LevelTrace, astiav.LogLevelDebug},
}

func LogLevelToAstiav(level logger.Level) astiav.LogLevel {
	for _, item := range logLevels {
		if item.Belt == level {
			return item.AV
		}
	}
	return astiav.LogLevelWarning
}

// LogLevelFromAstiav maps a libav message level; levels in between the
// known ones (libav uses multiples of 8) map to the less severe neighbour.
func LogLevelFromAstiav(level astiav.LogLevel) logger.Level {
	for _, item := range logLevels {
		if level <= item.AV {
			return item.Belt
		}
	}
	return logger.LevelTrace
}
