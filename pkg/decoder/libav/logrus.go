package libav

import (
	"fmt"
	"runtime"
	"strings"
	"unsafe"

	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt/tool/logger/adapter"
	beltlogrus "github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	loggertypes "github.com/facebookincubator/go-belt/tool/logger/types"
	"github.com/iancoleman/strcase"
	"github.com/sirupsen/logrus"
	"github.com/xaionaro-go/unsafetools"
)

// wrapLogrusLogger clones the logrus entry, logger and formatter, so the
// caller prettifier can be replaced without affecting l.
func wrapLogrusLogger(l loggertypes.Logger) (loggertypes.Logger, func(astiav.Classer)) {
	sugar, ok := l.(adapter.GenericSugar)
	if !ok {
		return l, func(astiav.Classer) {}
	}
	compactLogger, ok := sugar.CompactLogger.(*beltlogrus.CompactLogger)
	if !ok {
		return l, func(astiav.Classer) {}
	}

	emitter := ptr(*l.Emitter().(*beltlogrus.Emitter))
	logrusEntry := ptr(*emitter.LogrusEntry)
	emitter.LogrusEntry = logrusEntry
	logrusEntry.Logger = ptr(*logrusEntry.Logger)

	var class astiav.Classer
	callerPrettifier := func(*runtime.Frame) (function string, file string) {
		return ClassChain(class), "av"
	}
	switch formatter := logrusEntry.Logger.Formatter.(type) {
	case *logrus.TextFormatter:
		formatter = ptr(*formatter)
		logrusEntry.Logger.Formatter = formatter
		formatter.CallerPrettyfier = callerPrettifier
	case *logrus.JSONFormatter:
		formatter = ptr(*formatter)
		logrusEntry.Logger.Formatter = formatter
		formatter.CallerPrettyfier = callerPrettifier
	}
	compactLogger = ptr(*compactLogger)
	*unsafetools.FieldByName(compactLogger, "emitter").(**beltlogrus.Emitter) = emitter

	return adapter.GenericSugar{
			CompactLogger: compactLogger,
		}, func(newClass astiav.Classer) {
			class = newClass
		}
}

// ClassChain renders the class of c and its parents as
// "[category]name:item:address", joined with "->"; names are in snake case.
func ClassChain(c astiav.Classer) string {
	if c == nil {
		return ""
	}
	var chain []string
	for cl := c.Class(); cl != nil; cl = cl.Parent() {
		var category string
		switch cat := cl.Category(); cat {
		case astiav.ClassCategoryDecoder:
			category = "Decoder"
		case astiav.ClassCategoryEncoder:
			category = "Encoder"
		case astiav.ClassCategoryBitstreamFilter:
			category = "BitstreamFilter"
		case astiav.ClassCategorySwscaler:
			category = "Swscaler"
		case astiav.ClassCategoryNa:
			category = "NA"
		default:
			category = fmt.Sprintf("Category%d", int(cat))
		}
		chain = append(chain, fmt.Sprintf(
			"[%s]%s:%s:%p",
			strcase.ToSnake(category),
			strcase.ToSnake(cl.Name()),
			cl.ItemName(),
			*unsafetools.FieldByName(cl, "ptr").(*unsafe.Pointer),
		))
	}
	return strings.Join(chain, "->")
}

func ptr[T any](in T) *T {
	return &in
}
