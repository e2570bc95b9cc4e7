package libav

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/hwdecode/pkg/decoder"
)

// Backend decodes with libavcodec.
type Backend struct {
	logger   logger.Logger
	logLevel astiav.LogLevel

	firstFrameOnce sync.Once
}

var _ decoder.Backend = (*Backend)(nil)

// NewBackend returns the libav backend and routes the libav diagnostics into
// the logger of ctx. libav stays at the debug log level until the first frame
// is decoded, so problems of the stream setup are not lost.
func NewBackend(ctx context.Context) *Backend {
	l := logger.FromCtx(ctx)
	SetDiagnosticSink(ctx, l)
	b := &Backend{
		logger:   l,
		logLevel: LogLevelToAstiav(l.Level()),
	}
	if b.logLevel < astiav.LogLevelDebug {
		astiav.SetLogLevel(astiav.LogLevelDebug)
	}
	logger.Debugf(ctx, "available decoders: %s", strings.Join(b.Decoders(), " "))
	return b
}

func (b *Backend) onFrameDecoded() {
	b.firstFrameOnce.Do(func() {
		b.logger.Debugf("the first frame is decoded, restoring the libav log level %d", b.logLevel)
		astiav.SetLogLevel(b.logLevel)
	})
}

func (b *Backend) FindDecoder(name string) decoder.Codec {
	c := astiav.FindDecoderByName(name)
	if c == nil {
		return nil
	}
	return &Codec{Codec: c, backend: b}
}

// Decoders returns the sorted names of all the decoders libavcodec provides.
func (*Backend) Decoders() []string {
	var names []string
	for _, c := range astiav.Codecs() {
		if c.IsDecoder() {
			names = append(names, c.Name())
		}
	}
	sort.Strings(names)
	return names
}
