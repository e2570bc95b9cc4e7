package picturesink

import (
	"context"

	"github.com/xaionaro-go/hwdecode/pkg/decoder"
)

// PictureSink displays or inspects decoded pictures. The sink does not own
// the picture: it must not keep it after Show returns.
type PictureSink interface {
	Show(ctx context.Context, pic *decoder.Picture) error
	Close(ctx context.Context) error
}
