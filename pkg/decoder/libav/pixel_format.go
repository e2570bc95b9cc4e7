package libav

import (
	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/hwdecode/pkg/decoder"
)

func init() {
	decoder.SetPixelFormatNames(pixelFormatNames{})
}

// pixelFormatNames resolves pixel format names through libavutil.
type pixelFormatNames struct{}

func (pixelFormatNames) PixelFormatName(pf decoder.PixelFormat) (string, bool) {
	name := astiav.PixelFormat(pf).Name()
	return name, name != ""
}

func (pixelFormatNames) PixelFormatByName(name string) (decoder.PixelFormat, bool) {
	pf := astiav.FindPixelFormatByName(name)
	if pf == astiav.PixelFormatNone {
		return decoder.PixelFormatNone, false
	}
	return decoder.PixelFormat(pf), true
}
