package libav

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt/tool/logger"
	loggertypes "github.com/facebookincubator/go-belt/tool/logger/types"
)

type diagnosticSink struct {
	locker   sync.Mutex
	logger   loggertypes.Logger
	setClass func(astiav.Classer)
}

var (
	diagnosticSinkOnce    sync.Once
	currentDiagnosticSink atomic.Pointer[diagnosticSink]
)

// SetDiagnosticSink routes the libav log messages into l. The libav callback
// is process-wide, so it is installed once and only its target changes.
func SetDiagnosticSink(ctx context.Context, l loggertypes.Logger) {
	wrapped, setClass := WrapLogger(l)
	currentDiagnosticSink.Store(&diagnosticSink{
		logger:   wrapped,
		setClass: setClass,
	})

	astiav.SetLogLevel(LogLevelToAstiav(l.Level()))
	diagnosticSinkOnce.Do(func() {
		logger.Debugf(ctx, "installing the libav log callback")
		astiav.SetLogCallback(onLibavLog)
	})
}

func onLibavLog(c astiav.Classer, level astiav.LogLevel, _, msg string) {
	sink := currentDiagnosticSink.Load()
	if sink == nil {
		return
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}

	sink.locker.Lock()
	defer sink.locker.Unlock()
	sink.setClass(c)
	sink.logger.Logf(LogLevelFromAstiav(level), "%s", msg)
	sink.setClass(nil)
}
