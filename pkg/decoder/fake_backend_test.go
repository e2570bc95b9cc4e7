package decoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
)

const (
	testPixelFormatCUDA  = PixelFormat(117)
	testPixelFormatVAAPI = PixelFormat(44)

	testDeviceTypeCUDA  = HardwareDeviceType("cuda")
	testDeviceTypeVAAPI = HardwareDeviceType("vaapi")
)

var testKeyFrame = []byte{0x00, 0x00, 0x00, 0x01, 0x67, 0x42, 0x00, 0x1f, 0x00, 0x00, 0x00, 0x01, 0x65, 0x88, 0x84, 0x00}

// fakeBackend imitates libav closely enough to check the ownership rules:
// every native object counts its frees and panics when used after free.
type fakeBackend struct {
	locker sync.Mutex

	codecs        map[string]*fakeCodec
	deviceErrors  []error
	createCalls   int
	devices       []*fakeDevice
	createdByType map[HardwareDeviceType]int
}

func newFakeBackend(codecs ...*fakeCodec) *fakeBackend {
	b := &fakeBackend{
		codecs:        map[string]*fakeCodec{},
		createdByType: map[HardwareDeviceType]int{},
	}
	for _, c := range codecs {
		b.codecs[c.name] = c
	}
	return b
}

func (b *fakeBackend) FindDecoder(name string) Codec {
	c, ok := b.codecs[name]
	if !ok {
		return nil
	}
	return c
}

func (b *fakeBackend) CreateHardwareDevice(
	_ context.Context,
	deviceType HardwareDeviceType,
	_ string,
) (HardwareDevice, error) {
	b.locker.Lock()
	defer b.locker.Unlock()
	b.createCalls++
	if len(b.deviceErrors) > 0 {
		err := b.deviceErrors[0]
		b.deviceErrors = b.deviceErrors[1:]
		if err != nil {
			return nil, err
		}
	}
	dev := &fakeDevice{deviceType: deviceType}
	b.devices = append(b.devices, dev)
	b.createdByType[deviceType]++
	return dev, nil
}

func (b *fakeBackend) CreateCalls() int {
	b.locker.Lock()
	defer b.locker.Unlock()
	return b.createCalls
}

type fakeDevice struct {
	deviceType HardwareDeviceType
	freeCount  atomic.Int32
}

func (d *fakeDevice) Free() {
	d.freeCount.Add(1)
}

type fakeCodec struct {
	name       string
	hwConfigs  []HardwareConfig
	allocFails bool

	// setup is applied to every new codec context.
	setup func(*fakeCodecContext)

	locker   sync.Mutex
	contexts []*fakeCodecContext
}

func newFakeH264(hwConfigs ...HardwareConfig) *fakeCodec {
	return &fakeCodec{
		name:      "h264",
		hwConfigs: hwConfigs,
	}
}

func (c *fakeCodec) Name() string {
	return c.name
}

func (c *fakeCodec) HardwareConfigs() []HardwareConfig {
	return c.hwConfigs
}

func (c *fakeCodec) AllocCodecContext() CodecContext {
	if c.allocFails {
		return nil
	}
	cc := &fakeCodecContext{
		pixelFormat: PixelFormatNone,
	}
	if c.setup != nil {
		c.setup(cc)
	}
	c.locker.Lock()
	defer c.locker.Unlock()
	c.contexts = append(c.contexts, cc)
	return cc
}

func (c *fakeCodec) LastContext() *fakeCodecContext {
	c.locker.Lock()
	defer c.locker.Unlock()
	if len(c.contexts) == 0 {
		return nil
	}
	return c.contexts[len(c.contexts)-1]
}

type fakeCodecContext struct {
	width, height int
	pixelFormat   PixelFormat
	threadMode    ThreadMode
	threadCount   int
	flags         Flags
	device        HardwareDevice
	callback      func([]PixelFormat) PixelFormat

	// offered is what the decoder offers to the format callback; by default
	// the hardware format (if a device is attached) followed by YUV420P.
	offered     []PixelFormat
	openErr     error
	transferErr error
	delay       int

	opened        bool
	negotiated    bool
	negotiatedFmt PixelFormat
	eof           bool
	pending       []*fakeFrame
	nextPts       int64
	callbackCalls int

	frames    []*fakeFrame
	freeCount atomic.Int32
}

func (cc *fakeCodecContext) assertAlive() {
	if cc.freeCount.Load() > 0 {
		panic("use of a freed codec context")
	}
}

func (cc *fakeCodecContext) SetDimensions(width, height int) {
	cc.assertAlive()
	cc.width, cc.height = width, height
}

func (cc *fakeCodecContext) SetPixelFormat(pf PixelFormat) {
	cc.assertAlive()
	cc.pixelFormat = pf
}

func (cc *fakeCodecContext) SetThreading(mode ThreadMode, count int) {
	cc.assertAlive()
	cc.threadMode, cc.threadCount = mode, count
}

func (cc *fakeCodecContext) SetFlags(flags Flags) {
	cc.assertAlive()
	cc.flags = flags
}

func (cc *fakeCodecContext) SetHardwareDevice(dev HardwareDevice) {
	cc.assertAlive()
	cc.device = dev
}

func (cc *fakeCodecContext) SetPixelFormatCallback(fn func([]PixelFormat) PixelFormat) {
	cc.assertAlive()
	cc.callback = fn
}

func (cc *fakeCodecContext) Open() error {
	cc.assertAlive()
	if cc.openErr != nil {
		return cc.openErr
	}
	cc.opened = true
	return nil
}

func (cc *fakeCodecContext) offeredFormats() []PixelFormat {
	if cc.offered != nil {
		return cc.offered
	}
	var result []PixelFormat
	if dev, ok := cc.device.(*fakeDevice); ok {
		switch dev.deviceType {
		case testDeviceTypeCUDA:
			result = append(result, testPixelFormatCUDA)
		case testDeviceTypeVAAPI:
			result = append(result, testPixelFormatVAAPI)
		}
	}
	return append(result, PixelFormatYUV420P, PixelFormatNone)
}

func (cc *fakeCodecContext) SendPacket(data []byte) error {
	cc.assertAlive()
	if !cc.opened {
		panic("sending a packet to a codec context that is not opened")
	}
	if data == nil {
		cc.eof = true
		return nil
	}
	if cc.eof {
		return StatusError{Code: -541478725, Message: "End of file", Cause: ErrEndOfStream}
	}
	if len(data) < 5 || !(bytes.HasPrefix(data, []byte{0, 0, 0, 1}) || bytes.HasPrefix(data, []byte{0, 0, 1})) {
		return StatusError{Code: -1094995529, Message: "Invalid data found when processing input"}
	}
	if !cc.negotiated {
		cc.negotiated = true
		cc.callbackCalls++
		cc.negotiatedFmt = cc.callback(cc.offeredFormats())
	}
	if cc.negotiatedFmt == PixelFormatNone {
		return StatusError{Code: -22, Message: "Invalid argument"}
	}
	cc.pending = append(cc.pending, &fakeFrame{
		width:       cc.width,
		height:      cc.height,
		pixelFormat: cc.negotiatedFmt,
		pts:         cc.nextPts,
	})
	cc.nextPts++
	return nil
}

func (cc *fakeCodecContext) ReceiveFrame(f Frame) error {
	cc.assertAlive()
	dst := f.(*fakeFrame)
	if len(cc.pending) == 0 || (!cc.eof && len(cc.pending) <= cc.delay) {
		if cc.eof {
			return StatusError{Code: -541478725, Message: "End of file", Cause: ErrEndOfStream}
		}
		return StatusError{Code: -11, Message: "Resource temporarily unavailable", Cause: ErrNeedMoreInput}
	}
	src := cc.pending[0]
	cc.pending = cc.pending[1:]
	dst.width, dst.height, dst.pixelFormat, dst.pts = src.width, src.height, src.pixelFormat, src.pts
	dst.transferErr = cc.transferErr
	return nil
}

func (cc *fakeCodecContext) AllocFrame() Frame {
	cc.assertAlive()
	f := &fakeFrame{pixelFormat: PixelFormatNone}
	cc.frames = append(cc.frames, f)
	return f
}

func (cc *fakeCodecContext) Free() {
	cc.freeCount.Add(1)
}

// LiveFrames returns the frames that were allocated and never freed.
func (cc *fakeCodecContext) LiveFrames() []*fakeFrame {
	var result []*fakeFrame
	for _, f := range cc.frames {
		if f.freeCount.Load() == 0 {
			result = append(result, f)
		}
	}
	return result
}

type fakeFrame struct {
	width, height int
	pixelFormat   PixelFormat
	pts           int64
	transferErr   error
	freeCount     atomic.Int32
}

func (f *fakeFrame) Width() int               { return f.width }
func (f *fakeFrame) Height() int              { return f.height }
func (f *fakeFrame) PixelFormat() PixelFormat { return f.pixelFormat }
func (f *fakeFrame) Pts() int64               { return f.pts }
func (f *fakeFrame) SetPts(pts int64)         { f.pts = pts }

func (f *fakeFrame) TransferHardwareData(dst Frame) error {
	if f.transferErr != nil {
		return f.transferErr
	}
	d := dst.(*fakeFrame)
	d.width, d.height, d.pixelFormat = f.width, f.height, PixelFormatNV12
	return nil
}

func (f *fakeFrame) ToImage() (image.Image, error) {
	switch f.pixelFormat {
	case PixelFormatYUV420P:
		return image.NewYCbCr(image.Rect(0, 0, f.width, f.height), image.YCbCrSubsampleRatio420), nil
	case PixelFormatNV12:
		return image.NewGray(image.Rect(0, 0, f.width, f.height)), nil
	}
	return nil, fmt.Errorf("pixel format %s is not supported", f.pixelFormat)
}

func (f *fakeFrame) Free() {
	f.freeCount.Add(1)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 64
	cfg.Height = 48
	return cfg
}

func cudaDeviceConfig() HardwareConfig {
	return HardwareConfig{
		Methods:     HardwareConfigMethodHWDeviceCtx,
		DeviceType:  testDeviceTypeCUDA,
		PixelFormat: testPixelFormatCUDA,
	}
}
