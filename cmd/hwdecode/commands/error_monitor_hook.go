package commands

import (
	"bytes"
	"context"
	"fmt"
	"runtime"

	"github.com/DataDog/gostackparse"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/pkg/field"
	xruntime "github.com/facebookincubator/go-belt/pkg/runtime"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	errmontypes "github.com/facebookincubator/go-belt/tool/experimental/errmon/types"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/adapter"
	loggertypes "github.com/facebookincubator/go-belt/tool/logger/types"
	"github.com/xaionaro-go/observability"
)

func getGoroutines() ([]errmontypes.Goroutine, int) {
	stackBufferSize := 65536 * runtime.NumGoroutine()
	if stackBufferSize > 10*1024*1024 {
		stackBufferSize = 10 * 1024 * 1024
	}
	stackBuffer := make([]byte, stackBufferSize)
	n := runtime.Stack(stackBuffer, true)
	goroutines, _ := gostackparse.Parse(bytes.NewReader(stackBuffer[:n]))

	goroutinesConverted := make([]errmontypes.Goroutine, 0, len(goroutines))
	for _, goroutine := range goroutines {
		goroutinesConverted = append(goroutinesConverted, *goroutine)
	}

	n = runtime.Stack(stackBuffer, false)
	currentGoroutines, _ := gostackparse.Parse(bytes.NewReader(stackBuffer[:n]))
	var currentGoroutineID int
	if len(currentGoroutines) == 1 {
		currentGoroutineID = currentGoroutines[0].ID
	}

	return goroutinesConverted, currentGoroutineID
}

type errorMonitorMessage struct {
	Entry              *loggertypes.Entry
	Goroutines         []errmontypes.Goroutine
	CurrentGoroutineID int
	StackTrace         xruntime.PCs
}

// errorMonitorLoggerHook reports every log entry of level Warning or more
// severe to the error monitor.
type errorMonitorLoggerHook struct {
	ErrorMonitor errmontypes.ErrorMonitor
	SendChan     chan errorMonitorMessage
}

var _ loggertypes.PreHook = (*errorMonitorLoggerHook)(nil)

func newErrorMonitorLoggerHook(
	ctx context.Context,
	errorMonitor errmon.ErrorMonitor,
) *errorMonitorLoggerHook {
	h := &errorMonitorLoggerHook{
		ErrorMonitor: errorMonitor,
		SendChan:     make(chan errorMonitorMessage, 10),
	}
	observability.Go(ctx, h.senderLoop)
	return h
}

func (h *errorMonitorLoggerHook) ProcessInput(
	_ belt.TraceIDs,
	level loggertypes.Level,
	args ...any,
) loggertypes.PreHookResult {
	if level > loggertypes.LevelWarning {
		return loggertypes.PreHookResult{}
	}

	emitter := &lastEntryEmitter{}
	adapter.LoggerFromEmitter(emitter).WithLevel(logger.LevelWarning).Log(level, args...)
	h.sendReport(emitter.LastEntry)
	return loggertypes.PreHookResult{}
}

func (h *errorMonitorLoggerHook) ProcessInputf(
	_ belt.TraceIDs,
	level loggertypes.Level,
	format string,
	args ...any,
) loggertypes.PreHookResult {
	if level > loggertypes.LevelWarning {
		return loggertypes.PreHookResult{}
	}

	emitter := &lastEntryEmitter{}
	adapter.LoggerFromEmitter(emitter).WithLevel(logger.LevelWarning).Logf(level, format, args...)
	h.sendReport(emitter.LastEntry)
	return loggertypes.PreHookResult{}
}

func (h *errorMonitorLoggerHook) ProcessInputFields(
	_ belt.TraceIDs,
	level loggertypes.Level,
	message string,
	fields field.AbstractFields,
) loggertypes.PreHookResult {
	if level > loggertypes.LevelWarning {
		return loggertypes.PreHookResult{}
	}

	emitter := &lastEntryEmitter{}
	adapter.LoggerFromEmitter(emitter).WithLevel(logger.LevelWarning).LogFields(level, message, fields)
	h.sendReport(emitter.LastEntry)
	return loggertypes.PreHookResult{}
}

func copyEntry(entry *loggertypes.Entry) *loggertypes.Entry {
	entryDup := *entry
	if entry.Fields != nil {
		fields := make(field.Fields, 0, entry.Fields.Len())
		entry.Fields.ForEachField(func(f *field.Field) bool {
			fields = append(fields, *f)
			return true
		})
		entryDup.Fields = fields
	}
	return &entryDup
}

func (h *errorMonitorLoggerHook) sendReport(
	entry *loggertypes.Entry,
) {
	if entry == nil {
		return
	}
	goroutines, currentGoroutineID := getGoroutines()
	select {
	case h.SendChan <- errorMonitorMessage{
		Entry:              copyEntry(entry),
		Goroutines:         goroutines,
		CurrentGoroutineID: currentGoroutineID,
		StackTrace:         xruntime.CallerStackTrace(nil),
	}:
	default:
		// the error monitor is behind, dropping the report
	}
}

func (h *errorMonitorLoggerHook) senderLoop(ctx context.Context) {
	for {
		var message errorMonitorMessage
		select {
		case <-ctx.Done():
			return
		case message = <-h.SendChan:
		}
		h.ErrorMonitor.Emitter().Emit(&errmontypes.Event{
			Entry:       *message.Entry,
			ExternalIDs: []any{},
			Exception: errmontypes.Exception{
				IsPanic:    message.Entry.Level <= loggertypes.LevelPanic,
				Error:      fmt.Errorf("[%s] %s", message.Entry.Level, message.Entry.Message),
				StackTrace: message.StackTrace,
			},
			CurrentGoroutineID: message.CurrentGoroutineID,
			Goroutines:         message.Goroutines,
		})
	}
}

type lastEntryEmitter struct {
	LastEntry *loggertypes.Entry
}

var _ loggertypes.Emitter = (*lastEntryEmitter)(nil)

func (e *lastEntryEmitter) Emit(entry *loggertypes.Entry) {
	e.LastEntry = entry
}

func (e *lastEntryEmitter) Flush() {}
