package picturesink

import (
	"context"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/hwdecode/pkg/decoder"
)

// Log reports every picture into the logger.
type Log struct {
	pictures atomic.Uint64
	degraded atomic.Uint64
}

var _ PictureSink = (*Log)(nil)

func NewLog() *Log {
	return &Log{}
}

func (s *Log) Show(ctx context.Context, pic *decoder.Picture) error {
	idx := s.pictures.Add(1)
	if pic.IsDegraded() {
		s.degraded.Add(1)
		logger.Warnf(ctx, "picture #%d: %s; transfer error: %v", idx, pic, pic.TransferError)
		return nil
	}
	logger.Infof(ctx, "picture #%d: %s, ~%s", idx, pic, humanize.Bytes(estimatedSize(pic)))
	return nil
}

func (s *Log) Pictures() uint64 {
	return s.pictures.Load()
}

func (s *Log) Degraded() uint64 {
	return s.degraded.Load()
}

func (s *Log) Close(ctx context.Context) error {
	logger.Infof(ctx, "pictures shown: %d (degraded: %d)", s.Pictures(), s.Degraded())
	return nil
}

// estimatedSize is the size of the pixel data assuming 4:2:0 subsampling.
func estimatedSize(pic *decoder.Picture) uint64 {
	if pic.Width <= 0 || pic.Height <= 0 {
		return 0
	}
	return uint64(pic.Width) * uint64(pic.Height) * 3 / 2
}
