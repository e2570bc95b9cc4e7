package decoder

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/xsync"
)

// Packet is one compressed access unit (Annex-B byte stream).
type Packet struct {
	Data []byte

	// Size is the declared length of the payload; zero means len(Data).
	Size int
}

func (pkt Packet) payload() ([]byte, error) {
	switch {
	case pkt.Size == 0:
		return pkt.Data, nil
	case pkt.Size < 0 || pkt.Size > len(pkt.Data):
		return nil, fmt.Errorf("declared packet length %d does not fit the buffer of %d bytes", pkt.Size, len(pkt.Data))
	default:
		return pkt.Data[:pkt.Size], nil
	}
}

// Decode submits one packet and returns at most one picture.
//
// If the session has a hardware context, the picture is transferred into
// system memory; if that fails, the hardware-resident picture is returned with
// TransferError set instead of failing the call.
func (s *Session) Decode(
	ctx context.Context,
	pkt Packet,
) (*Picture, error) {
	ctx = s.ctx(ctx)
	var (
		pic *Picture
		err error
	)
	s.locker.Do(ctx, func() {
		pic, err = s.decode(ctx, pkt)
	})
	return pic, err
}

func (s *Session) decode(
	ctx context.Context,
	pkt Packet,
) (_ret *Picture, _err error) {
	logger.Tracef(ctx, "decode")
	defer func() { logger.Tracef(ctx, "/decode: %v %v", _ret, _err) }()

	if err := s.checkOpened("decode"); err != nil {
		return nil, err
	}

	data, err := pkt.payload()
	if err != nil {
		countMetric(ctx, metricSubmitFailures)
		return nil, ErrSubmitFailed{Message: err.Error(), Err: err}
	}
	logger.Tracef(ctx, "sending a packet of %s", humanize.Bytes(uint64(len(data))))

	if err := s.codecContext.SendPacket(data); err != nil {
		countMetric(ctx, metricSubmitFailures)
		code, msg := describeStatus(err)
		logger.Debugf(ctx, "unable to send the packet: %v", err)
		return nil, ErrSubmitFailed{Code: code, Message: msg, Err: err}
	}

	return s.receive(ctx)
}

func (s *Session) receive(
	ctx context.Context,
) (*Picture, error) {
	frame := s.codecContext.AllocFrame()
	if frame == nil {
		countMetric(ctx, metricReceiveFailures)
		return nil, ErrReceiveFailed{Message: "unable to allocate a frame"}
	}

	if err := s.codecContext.ReceiveFrame(frame); err != nil {
		frame.Free()
		code, msg := describeStatus(err)
		if !errors.Is(err, ErrNeedMoreInput) && !errors.Is(err, ErrEndOfStream) {
			countMetric(ctx, metricReceiveFailures)
			logger.Debugf(ctx, "unable to receive a frame: %v", err)
		}
		return nil, ErrReceiveFailed{Code: code, Message: msg, Err: err}
	}

	pic := s.toSystemMemory(ctx, frame)
	countMetric(ctx, metricPicturesDecoded)
	return pic, nil
}

func (s *Session) toSystemMemory(
	ctx context.Context,
	frame Frame,
) *Picture {
	hw := s.hardwareContext
	if hw == nil {
		logger.Tracef(ctx, "software decoding, the frame is already in system memory")
		return newPicture(frame, PictureLocationSystemMemory)
	}

	if frame.PixelFormat() != hw.PixelFormat() {
		// the decoder fell back to a software format during negotiation
		logger.Tracef(ctx, "frame pixel format %s is not the hardware one (%s)", frame.PixelFormat(), hw.PixelFormat())
		return newPicture(frame, PictureLocationSystemMemory)
	}

	swFrame := s.codecContext.AllocFrame()
	if swFrame == nil {
		return s.transferFailed(ctx, frame, fmt.Errorf("unable to allocate a frame"))
	}

	if err := frame.TransferHardwareData(swFrame); err != nil {
		swFrame.Free()
		return s.transferFailed(ctx, frame, err)
	}
	swFrame.SetPts(frame.Pts())
	frame.Free()
	return newPicture(swFrame, PictureLocationSystemMemory)
}

func (s *Session) transferFailed(
	ctx context.Context,
	frame Frame,
	err error,
) *Picture {
	countMetric(ctx, metricHWTransferFallbacks)
	code, msg := describeStatus(err)
	logger.Warnf(ctx, "failed to transfer the frame from the hardware, returning the hardware frame: %v", err)
	pic := newPicture(frame, PictureLocationHardwareResident)
	pic.TransferError = ErrTransferFailed{Code: code, Message: msg, Err: err}
	return pic
}

// Drain signals the end of the stream and returns the pictures the decoder
// still holds.
func (s *Session) Drain(
	ctx context.Context,
) ([]*Picture, error) {
	ctx = s.ctx(ctx)
	return xsync.DoR2(ctx, &s.locker, func() ([]*Picture, error) {
		return s.drain(ctx)
	})
}

func (s *Session) drain(
	ctx context.Context,
) (_ret []*Picture, _err error) {
	logger.Debugf(ctx, "drain")
	defer func() { logger.Debugf(ctx, "/drain: %d pictures, %v", len(_ret), _err) }()

	if err := s.checkOpened("drain"); err != nil {
		return nil, err
	}

	if err := s.codecContext.SendPacket(nil); err != nil && !errors.Is(err, ErrEndOfStream) {
		code, msg := describeStatus(err)
		return nil, ErrSubmitFailed{Code: code, Message: msg, Err: err}
	}

	var pics []*Picture
	for {
		select {
		case <-ctx.Done():
			return pics, ctx.Err()
		default:
		}

		pic, err := s.receive(ctx)
		switch {
		case err == nil:
			pics = append(pics, pic)
		case errors.Is(err, ErrEndOfStream), errors.Is(err, ErrNeedMoreInput):
			return pics, nil
		default:
			return pics, err
		}
	}
}
