package libav

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/hwdecode/pkg/decoder"
)

var framePool = newPool(
	astiav.AllocFrame,
	func(f *astiav.Frame) { f.Unref() },
	func(f *astiav.Frame) { f.Free() },
)

// Frame is a pooled libav frame; Free returns it to the pool.
type Frame struct {
	*astiav.Frame
	freed atomic.Bool
}

var _ decoder.Frame = (*Frame)(nil)

func getFrame() *Frame {
	return &Frame{Frame: framePool.Get()}
}

func frameFrom(f decoder.Frame) *Frame {
	frame, ok := f.(*Frame)
	if !ok {
		panic(fmt.Errorf("expected a libav frame, received %T", f))
	}
	return frame
}

func (f *Frame) PixelFormat() decoder.PixelFormat {
	return decoder.PixelFormat(f.Frame.PixelFormat())
}

func (f *Frame) TransferHardwareData(dst decoder.Frame) error {
	return statusError(f.Frame.TransferHardwareData(frameFrom(dst).Frame))
}

func (f *Frame) ToImage() (image.Image, error) {
	data := f.Frame.Data()
	img, err := data.GuessImageFormat()
	if err != nil {
		return nil, fmt.Errorf("unable to guess the image format for pixel format %s: %w", f.PixelFormat(), err)
	}
	if err := data.ToImage(img); err != nil {
		return nil, fmt.Errorf("unable to copy the frame into an image: %w", err)
	}
	return img, nil
}

func (f *Frame) Free() {
	if f.freed.Swap(true) {
		return
	}
	framePool.Put(f.Frame)
	f.Frame = nil
}
