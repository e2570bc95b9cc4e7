package decoder

import (
	"fmt"
	"image"
	"sync"
)

// Picture is a decoded picture. It has to be released by the consumer before
// the decoder can reuse the underlying buffer; a consumer that needs the
// pixels for longer has to make its own copy.
type Picture struct {
	Frame       Frame
	Width       int
	Height      int
	PixelFormat PixelFormat
	Location    PictureLocation
	Pts         int64

	// TransferError is set if the picture could not be transferred from the
	// hardware and is returned hardware-resident instead.
	TransferError error

	releaseOnce sync.Once
}

func newPicture(frame Frame, location PictureLocation) *Picture {
	return &Picture{
		Frame:       frame,
		Width:       frame.Width(),
		Height:      frame.Height(),
		PixelFormat: frame.PixelFormat(),
		Location:    location,
		Pts:         frame.Pts(),
	}
}

// IsDegraded reports whether the hardware transfer failed.
func (p *Picture) IsDegraded() bool {
	return p.TransferError != nil
}

func (p *Picture) IsSystemMemory() bool {
	return p.Location == PictureLocationSystemMemory
}

// Image returns the pixels as an image; only system-memory pictures can be read.
func (p *Picture) Image() (image.Image, error) {
	if !p.IsSystemMemory() {
		return nil, fmt.Errorf("the picture is %s and cannot be read directly", p.Location)
	}
	if p.Frame == nil {
		return nil, fmt.Errorf("the picture is already released")
	}
	return p.Frame.ToImage()
}

func (p *Picture) Release() {
	p.releaseOnce.Do(func() {
		if p.Frame != nil {
			p.Frame.Free()
			p.Frame = nil
		}
	})
}

func (p *Picture) String() string {
	return fmt.Sprintf("%dx%d %s (%s, pts %d)", p.Width, p.Height, p.PixelFormat, p.Location, p.Pts)
}
