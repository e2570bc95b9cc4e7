package decoder

import (
	"context"
	"image"
)

// Backend is the decoding library the session drives.
type Backend interface {
	// FindDecoder returns nil if there is no decoder with the given name.
	FindDecoder(name string) Codec

	// CreateHardwareDevice allocates and initializes a device connection.
	// On failure nothing stays allocated.
	CreateHardwareDevice(
		ctx context.Context,
		deviceType HardwareDeviceType,
		deviceName string,
	) (HardwareDevice, error)
}

type Codec interface {
	Name() string
	HardwareConfigs() []HardwareConfig

	// AllocCodecContext returns nil if the allocation failed.
	AllocCodecContext() CodecContext
}

type CodecContext interface {
	SetDimensions(width, height int)
	SetPixelFormat(PixelFormat)
	SetThreading(mode ThreadMode, count int)
	SetFlags(Flags)
	SetHardwareDevice(HardwareDevice)

	// SetPixelFormatCallback registers the function the decoder calls to pick
	// the output format; nil unregisters it.
	SetPixelFormatCallback(func(candidates []PixelFormat) PixelFormat)

	Open() error

	// SendPacket copies data into the decoder; nil data signals the end of stream.
	SendPacket(data []byte) error
	ReceiveFrame(Frame) error

	// AllocFrame returns nil if the allocation failed.
	AllocFrame() Frame
	Free()
}

type Frame interface {
	Width() int
	Height() int
	PixelFormat() PixelFormat
	Pts() int64
	SetPts(int64)
	TransferHardwareData(dst Frame) error
	ToImage() (image.Image, error)
	Free()
}

type HardwareDevice interface {
	Free()
}
