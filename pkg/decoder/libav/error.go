package libav

import (
	"errors"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/hwdecode/pkg/decoder"
)

// statusError converts a libav error into decoder.StatusError so that the
// status code and the av_strerror text survive outside of this package.
func statusError(err error) error {
	if err == nil {
		return nil
	}
	var avErr astiav.Error
	if !errors.As(err, &avErr) {
		return err
	}
	result := decoder.StatusError{
		Code:    int(avErr),
		Message: avErr.Error(),
	}
	switch {
	case errors.Is(err, astiav.ErrEagain):
		result.Cause = decoder.ErrNeedMoreInput
	case errors.Is(err, astiav.ErrEof):
		result.Cause = decoder.ErrEndOfStream
	default:
		result.Cause = err
	}
	return result
}
