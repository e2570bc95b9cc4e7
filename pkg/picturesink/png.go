package picturesink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/hwdecode/pkg/decoder"
)

// PNG writes every system-memory picture into a directory as
// "picture_<index>_pts<pts>.png".
type PNG struct {
	Dir string

	// Brightness is added to every picture before saving, in [-1, 1].
	Brightness float64

	count atomic.Uint64
}

var _ PictureSink = (*PNG)(nil)

func NewPNG(dir string, brightness float64) (*PNG, error) {
	if brightness < -1 || brightness > 1 {
		return nil, fmt.Errorf("brightness %v is out of range [-1, 1]", brightness)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create directory '%s': %w", dir, err)
	}
	return &PNG{Dir: dir, Brightness: brightness}, nil
}

func (s *PNG) Show(ctx context.Context, pic *decoder.Picture) error {
	if !pic.IsSystemMemory() {
		logger.Warnf(ctx, "skipping a %s picture: it cannot be read directly", pic.Location)
		return nil
	}

	img, err := pic.Image()
	if err != nil {
		return fmt.Errorf("unable to get the image of picture %s: %w", pic, err)
	}
	if s.Brightness != 0 {
		img = adjust.Brightness(img, s.Brightness)
	}

	idx := s.count.Add(1)
	path := filepath.Join(s.Dir, fmt.Sprintf("picture_%06d_pts%d.png", idx, pic.Pts))
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("unable to save '%s': %w", path, err)
	}
	logger.Debugf(ctx, "saved %s to '%s'", pic, path)
	return nil
}

// Written returns the amount of files written so far.
func (s *PNG) Written() uint64 {
	return s.count.Load()
}

func (s *PNG) Close(context.Context) error {
	return nil
}
