package libav

import (
	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/hwdecode/pkg/decoder"
)

type Codec struct {
	*astiav.Codec
	backend *Backend
}

var _ decoder.Codec = (*Codec)(nil)

func (c *Codec) HardwareConfigs() []decoder.HardwareConfig {
	var result []decoder.HardwareConfig
	for _, hwCfg := range c.Codec.HardwareConfigs() {
		result = append(result, decoder.HardwareConfig{
			Methods:     methodFlagsFromAstiav(hwCfg.MethodFlags()),
			DeviceType:  decoder.HardwareDeviceType(hwCfg.HardwareDeviceType().String()),
			PixelFormat: decoder.PixelFormat(hwCfg.PixelFormat()),
		})
	}
	return result
}

func (c *Codec) AllocCodecContext() decoder.CodecContext {
	cc := astiav.AllocCodecContext(c.Codec)
	if cc == nil {
		return nil
	}
	return newCodecContext(c.backend, c.Codec, cc)
}

func methodFlagsFromAstiav(flags astiav.CodecHardwareConfigMethodFlags) decoder.HardwareConfigMethodFlags {
	var result decoder.HardwareConfigMethodFlags
	for _, item := range []struct {
		From astiav.CodecHardwareConfigMethodFlag
		To   decoder.HardwareConfigMethodFlags
	}{
		{astiav.CodecHardwareConfigMethodFlagHwDeviceCtx, decoder.HardwareConfigMethodHWDeviceCtx},
		{astiav.CodecHardwareConfigMethodFlagHwFramesCtx, decoder.HardwareConfigMethodHWFramesCtx},
		{astiav.CodecHardwareConfigMethodFlagInternal, decoder.HardwareConfigMethodInternal},
		{astiav.CodecHardwareConfigMethodFlagAdHoc, decoder.HardwareConfigMethodAdHoc},
	} {
		if flags.Has(item.From) {
			result |= item.To
		}
	}
	return result
}
