package libav

import (
	"fmt"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/xaionaro-go/hwdecode/pkg/decoder"
)

// CodecContext owns a libav codec context and the packet used to submit data
// into it.
type CodecContext struct {
	*astikit.Closer
	backend      *Backend
	codec        *astiav.Codec
	codecContext *astiav.CodecContext
	packet       *astiav.Packet

	// options are passed to avcodec_open2; err_detect lives here since
	// libav has no setter for it on the context.
	options *astiav.Dictionary

	callbackLocker   sync.Mutex
	callback         func([]decoder.PixelFormat) decoder.PixelFormat
	callbackAttached bool
	freed            bool
}

var _ decoder.CodecContext = (*CodecContext)(nil)

func newCodecContext(
	backend *Backend,
	codec *astiav.Codec,
	cc *astiav.CodecContext,
) *CodecContext {
	c := &CodecContext{
		Closer:       astikit.NewCloser(),
		backend:      backend,
		codec:        codec,
		codecContext: cc,
		packet:       astiav.AllocPacket(),
		options:      astiav.NewDictionary(),
	}
	c.Closer.Add(cc.Free)
	c.Closer.Add(c.packet.Free)
	c.Closer.Add(c.options.Free)
	return c
}

func (c *CodecContext) SetDimensions(width, height int) {
	c.codecContext.SetWidth(width)
	c.codecContext.SetHeight(height)
}

func (c *CodecContext) SetPixelFormat(pf decoder.PixelFormat) {
	c.codecContext.SetPixelFormat(astiav.PixelFormat(pf))
}

func (c *CodecContext) SetThreading(mode decoder.ThreadMode, count int) {
	switch mode {
	case decoder.ThreadModeSlice:
		c.codecContext.SetThreadType(astiav.ThreadTypeSlice)
	case decoder.ThreadModeFrame:
		c.codecContext.SetThreadType(astiav.ThreadTypeFrame)
	default:
		c.codecContext.SetThreadType(astiav.ThreadType(0))
	}
	c.codecContext.SetThreadCount(count)
}

func (c *CodecContext) SetFlags(flags decoder.Flags) {
	cc := c.codecContext

	f := cc.Flags()
	f = setFlag(f, astiav.CodecContextFlagLowDelay, flags.LowDelay)
	f = setFlag(f, astiav.CodecContextFlagOutputCorrupt, flags.OutputCorrupt)
	cc.SetFlags(f)

	f2 := cc.Flags2()
	if flags.ShowAll {
		f2 = f2.Add(astiav.CodecFlag2ShowAll)
	} else {
		f2 = f2.Del(astiav.CodecFlag2ShowAll)
	}
	cc.SetFlags2(f2)

	if flags.ExplodeOnError {
		_ = c.options.Set(optionErrorDetection, "+explode", 0)
	} else {
		_ = c.options.Unset(optionErrorDetection)
	}
}

const optionErrorDetection = "err_detect"

func setFlag(
	flags astiav.CodecContextFlags,
	flag astiav.CodecContextFlag,
	value bool,
) astiav.CodecContextFlags {
	if value {
		return flags.Add(flag)
	}
	return flags.Del(flag)
}

func (c *CodecContext) SetHardwareDevice(dev decoder.HardwareDevice) {
	hwDev, ok := dev.(*HardwareDevice)
	if !ok {
		panic(fmt.Errorf("expected a libav hardware device, received %T", dev))
	}
	c.codecContext.SetHardwareDeviceContext(hwDev.HardwareDeviceContext)
}

// SetPixelFormatCallback sets the negotiation function; nil detaches it from
// the libav context as well, so every later negotiation fails.
func (c *CodecContext) SetPixelFormatCallback(fn func([]decoder.PixelFormat) decoder.PixelFormat) {
	c.callbackLocker.Lock()
	c.callback = fn
	attach := fn != nil && !c.callbackAttached && !c.freed
	detach := fn == nil && c.callbackAttached && !c.freed
	if attach || detach {
		c.callbackAttached = attach
	}
	c.callbackLocker.Unlock()

	// astiav invokes onGetFormat under its own lock, so it must not be
	// called while holding callbackLocker.
	switch {
	case attach:
		c.codecContext.SetPixelFormatCallback(c.onGetFormat)
	case detach:
		c.codecContext.SetPixelFormatCallback(nil)
	}
}

func (c *CodecContext) isCallbackAttached() bool {
	c.callbackLocker.Lock()
	defer c.callbackLocker.Unlock()
	return c.callbackAttached
}

func (c *CodecContext) onGetFormat(pfs []astiav.PixelFormat) astiav.PixelFormat {
	c.callbackLocker.Lock()
	fn := c.callback
	c.callbackLocker.Unlock()
	if fn == nil {
		return astiav.PixelFormatNone
	}

	candidates := make([]decoder.PixelFormat, 0, len(pfs)+1)
	for _, pf := range pfs {
		candidates = append(candidates, decoder.PixelFormat(pf))
	}
	candidates = append(candidates, decoder.PixelFormatNone)
	return astiav.PixelFormat(fn(candidates))
}

func (c *CodecContext) Open() error {
	if err := c.codecContext.Open(c.codec, c.options); err != nil {
		return statusError(err)
	}
	return nil
}

func (c *CodecContext) SendPacket(data []byte) error {
	if data == nil {
		return statusError(c.codecContext.SendPacket(nil))
	}

	if err := c.packet.FromData(data); err != nil {
		return fmt.Errorf("unable to fill the packet: %w", statusError(err))
	}
	defer c.packet.Unref()
	return statusError(c.codecContext.SendPacket(c.packet))
}

func (c *CodecContext) ReceiveFrame(f decoder.Frame) error {
	if err := c.codecContext.ReceiveFrame(frameFrom(f).Frame); err != nil {
		return statusError(err)
	}
	c.backend.onFrameDecoded()
	return nil
}

func (c *CodecContext) AllocFrame() decoder.Frame {
	return getFrame()
}

// Free detaches the format callback while the libav context is still
// valid and then releases everything the context owns.
func (c *CodecContext) Free() {
	c.SetPixelFormatCallback(nil)

	c.callbackLocker.Lock()
	if c.freed {
		c.callbackLocker.Unlock()
		return
	}
	c.freed = true
	c.callbackLocker.Unlock()

	_ = c.Closer.Close()
}
