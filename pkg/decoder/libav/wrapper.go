package libav

import (
	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	loggertypes "github.com/facebookincubator/go-belt/tool/logger/types"
)

// WrapLogger returns a logger that reports the libav class chain of the
// message source instead of the Go caller; the returned function sets the
// class of the next message.
func WrapLogger(l loggertypes.Logger) (loggertypes.Logger, func(astiav.Classer)) {
	switch l.Emitter().(type) {
	case *logrus.Emitter:
		return wrapLogrusLogger(l)
	}
	return l, func(astiav.Classer) {}
}
