package libav

import (
	"context"
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/hwdecode/pkg/decoder"
)

func newH264CodecContext(t *testing.T) *CodecContext {
	t.Helper()
	codec := NewBackend(context.Background()).FindDecoder(decoder.DefaultCodecName)
	if codec == nil {
		t.Skip("libavcodec is built without the h264 decoder")
	}
	cc := codec.AllocCodecContext()
	require.NotNil(t, cc)
	return cc.(*CodecContext)
}

func TestCodecContextSetFlags(t *testing.T) {
	cc := newH264CodecContext(t)
	defer cc.Free()

	cc.SetFlags(decoder.Flags{
		LowDelay:       true,
		OutputCorrupt:  true,
		ShowAll:        true,
		ExplodeOnError: true,
	})
	assert.True(t, cc.codecContext.Flags().Has(astiav.CodecContextFlagLowDelay))
	assert.True(t, cc.codecContext.Flags().Has(astiav.CodecContextFlagOutputCorrupt))
	assert.True(t, cc.codecContext.Flags2().Has(astiav.CodecFlag2ShowAll))
	entry := cc.options.Get(optionErrorDetection, nil, 0)
	require.NotNil(t, entry)
	assert.Equal(t, "+explode", entry.Value())

	cc.SetFlags(decoder.Flags{})
	assert.False(t, cc.codecContext.Flags().Has(astiav.CodecContextFlagLowDelay))
	assert.False(t, cc.codecContext.Flags().Has(astiav.CodecContextFlagOutputCorrupt))
	assert.False(t, cc.codecContext.Flags2().Has(astiav.CodecFlag2ShowAll))
	assert.Nil(t, cc.options.Get(optionErrorDetection, nil, 0))
}

func TestCodecContextOpensWithExplode(t *testing.T) {
	cc := newH264CodecContext(t)
	defer cc.Free()

	cc.SetFlags(decoder.Flags{ExplodeOnError: true})
	require.NoError(t, cc.Open())
}

func TestCodecContextSetThreading(t *testing.T) {
	cc := newH264CodecContext(t)
	defer cc.Free()

	cc.SetThreading(decoder.ThreadModeSlice, 4)
	assert.Equal(t, astiav.ThreadTypeSlice, cc.codecContext.ThreadType())
	assert.Equal(t, 4, cc.codecContext.ThreadCount())

	cc.SetThreading(decoder.ThreadModeFrame, 2)
	assert.Equal(t, astiav.ThreadTypeFrame, cc.codecContext.ThreadType())

	cc.SetThreading(decoder.ThreadModeNone, 1)
	assert.Equal(t, astiav.ThreadType(0), cc.codecContext.ThreadType())
	assert.Equal(t, 1, cc.codecContext.ThreadCount())
}

func TestCodecContextFormatCallback(t *testing.T) {
	cc := newH264CodecContext(t)
	defer cc.Free()

	assert.Equal(t, astiav.PixelFormatNone, cc.onGetFormat([]astiav.PixelFormat{astiav.PixelFormatYuv420P}))

	var offered []decoder.PixelFormat
	cc.SetPixelFormatCallback(func(candidates []decoder.PixelFormat) decoder.PixelFormat {
		offered = candidates
		return decoder.SelectPixelFormat(candidates, decoder.PixelFormat(astiav.PixelFormatCuda))
	})
	assert.True(t, cc.isCallbackAttached())

	pf := cc.onGetFormat([]astiav.PixelFormat{astiav.PixelFormatYuvj420P, astiav.PixelFormatYuv420P})
	assert.Equal(t, astiav.PixelFormatYuv420P, pf)
	assert.Equal(t, []decoder.PixelFormat{
		decoder.PixelFormat(astiav.PixelFormatYuvj420P),
		decoder.PixelFormatYUV420P,
		decoder.PixelFormatNone,
	}, offered)

	pf = cc.onGetFormat([]astiav.PixelFormat{astiav.PixelFormatYuvj420P})
	assert.Equal(t, astiav.PixelFormatNone, pf)

	cc.SetPixelFormatCallback(nil)
	assert.False(t, cc.isCallbackAttached())
	assert.Equal(t, astiav.PixelFormatNone, cc.onGetFormat([]astiav.PixelFormat{astiav.PixelFormatYuv420P}))
}

func TestCodecContextFreeDetachesCallback(t *testing.T) {
	cc := newH264CodecContext(t)
	cc.SetPixelFormatCallback(func([]decoder.PixelFormat) decoder.PixelFormat {
		return decoder.PixelFormatYUV420P
	})
	require.True(t, cc.isCallbackAttached())

	cc.Free()
	assert.False(t, cc.isCallbackAttached())

	// the libav context is gone, so neither call may reach it
	cc.Free()
	cc.SetPixelFormatCallback(func([]decoder.PixelFormat) decoder.PixelFormat {
		return decoder.PixelFormatYUV420P
	})
	assert.False(t, cc.isCallbackAttached())
}
