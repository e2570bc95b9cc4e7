package decoder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionConfigureUnknownCodec(t *testing.T) {
	ctx := context.Background()
	s := NewSession(ctx, newFakeBackend(newFakeH264()))

	cfg := testConfig()
	cfg.CodecName = "h265"
	err := s.Configure(ctx, cfg)
	var cfgErr ErrConfiguration
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "h265", cfgErr.CodecName)
	assert.Equal(t, SessionStateUninitialized, s.State())
}

func TestSessionConfigureInvalid(t *testing.T) {
	ctx := context.Background()
	s := NewSession(ctx, newFakeBackend(newFakeH264()))

	cfg := testConfig()
	cfg.Width = -1
	require.ErrorAs(t, s.Configure(ctx, cfg), &ErrConfiguration{})
}

func TestSessionConfigureAllocationFailure(t *testing.T) {
	ctx := context.Background()
	codec := newFakeH264()
	codec.allocFails = true
	s := NewSession(ctx, newFakeBackend(codec))

	err := s.Configure(ctx, testConfig())
	require.ErrorAs(t, err, &ErrContextAllocationFailed{})
	assert.Equal(t, SessionStateUninitialized, s.State())
}

func TestSessionConfigureSoftwareSettings(t *testing.T) {
	ctx := context.Background()
	codec := newFakeH264()
	s := NewSession(ctx, newFakeBackend(codec))

	cfg := testConfig()
	cfg.ThreadCount = 0
	cfg.Flags.ShowAll = false
	require.NoError(t, s.Configure(ctx, cfg))
	assert.Equal(t, SessionStateConfigured, s.State())

	cc := codec.LastContext()
	require.NotNil(t, cc)
	assert.Equal(t, ThreadModeSlice, cc.threadMode)
	assert.Equal(t, DefaultThreadCount, cc.threadCount)
	assert.Equal(t, 64, cc.width)
	assert.Equal(t, 48, cc.height)
	assert.Equal(t, PixelFormatYUV420P, cc.pixelFormat)
	assert.Equal(t, cfg.Flags, cc.flags)
	assert.Equal(t, cfg, s.Config())
	assert.Equal(t, "h264", s.Codec().Name())
}

func TestSessionAttachHardwareSingleThreaded(t *testing.T) {
	ctx := context.Background()
	codec := newFakeH264(cudaDeviceConfig())
	backend := newFakeBackend(codec)
	s := NewSession(ctx, backend)
	require.NoError(t, s.Configure(ctx, testConfig()))

	hw, err := TryCreateHardwareContext(ctx, backend, codec, testDeviceTypeCUDA, "", HardwareSearchFirstMatch)
	require.NoError(t, err)
	require.NoError(t, s.AttachHardware(ctx, hw))
	assert.Equal(t, SessionStateHardwareAttached, s.State())

	cc := codec.LastContext()
	assert.Equal(t, ThreadModeNone, cc.threadMode)
	assert.Equal(t, 1, cc.threadCount)
	assert.Equal(t, hw.Device, cc.device)
	assert.Same(t, hw, s.HardwareContext())

	// the second attach is rejected and the ownership stays with the caller
	other, err := TryCreateHardwareContext(ctx, backend, codec, testDeviceTypeCUDA, "", HardwareSearchFirstMatch)
	require.NoError(t, err)
	err = s.AttachHardware(ctx, other)
	var stateErr ErrInvalidState
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, SessionStateHardwareAttached, stateErr.State)
	assert.False(t, other.IsFreed())
	other.Free()

	require.NoError(t, s.Open(ctx))
	assert.Equal(t, PixelFormatNone, s.NegotiatedPixelFormat())
	pic, err := s.Decode(ctx, Packet{Data: testKeyFrame})
	require.NoError(t, err)
	pic.Release()
	assert.Equal(t, testPixelFormatCUDA, s.NegotiatedPixelFormat())
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, int32(1), backend.devices[0].freeCount.Load())
}

func TestSessionAttachFreedHardware(t *testing.T) {
	ctx := context.Background()
	codec := newFakeH264(cudaDeviceConfig())
	backend := newFakeBackend(codec)
	s := NewSession(ctx, backend)
	require.NoError(t, s.Configure(ctx, testConfig()))

	hw, err := TryCreateHardwareContext(ctx, backend, codec, testDeviceTypeCUDA, "", HardwareSearchFirstMatch)
	require.NoError(t, err)
	hw.Free()
	require.Error(t, s.AttachHardware(ctx, hw))
	require.Error(t, s.AttachHardware(ctx, nil))
	assert.Equal(t, SessionStateConfigured, s.State())
}

func TestSessionOpenBeforeConfigure(t *testing.T) {
	ctx := context.Background()
	s := NewSession(ctx, newFakeBackend(newFakeH264()))
	require.ErrorAs(t, s.Open(ctx), &ErrInvalidState{})
	_, err := s.Decode(ctx, Packet{Data: testKeyFrame})
	require.ErrorAs(t, err, &ErrInvalidState{})
}

func TestSessionOpenFailure(t *testing.T) {
	ctx := context.Background()
	codec := newFakeH264(cudaDeviceConfig())
	openErr := StatusError{Code: -22, Message: "Invalid argument"}
	codec.setup = func(cc *fakeCodecContext) {
		cc.openErr = openErr
	}
	backend := newFakeBackend(codec)
	s := NewSession(ctx, backend)
	require.NoError(t, s.Configure(ctx, testConfig()))
	hw, err := TryCreateHardwareContext(ctx, backend, codec, testDeviceTypeCUDA, "", HardwareSearchFirstMatch)
	require.NoError(t, err)
	require.NoError(t, s.AttachHardware(ctx, hw))

	err = s.Open(ctx)
	var openFailed ErrOpenFailed
	require.ErrorAs(t, err, &openFailed)
	assert.Equal(t, -22, openFailed.Code)
	assert.Equal(t, "Invalid argument", openFailed.Message)
	assert.Equal(t, SessionStateFailed, s.State())
	assert.Nil(t, s.HardwareContext())

	cc := codec.LastContext()
	assert.Equal(t, int32(1), cc.freeCount.Load())
	assert.Nil(t, cc.callback)
	assert.True(t, hw.IsFreed())
	assert.Equal(t, int32(1), backend.devices[0].freeCount.Load())

	_, err = s.Decode(ctx, Packet{Data: testKeyFrame})
	require.ErrorAs(t, err, &ErrInvalidState{})

	// the session can be configured again from scratch
	codec.setup = nil
	require.NoError(t, s.Configure(ctx, testConfig()))
	require.NoError(t, s.Open(ctx))
	assert.NotSame(t, cc, codec.LastContext())

	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, int32(1), cc.freeCount.Load())
	assert.Equal(t, int32(1), codec.LastContext().freeCount.Load())
	assert.Equal(t, int32(1), backend.devices[0].freeCount.Load())
}

func TestOpenSessionOpenFailureReleasesEverything(t *testing.T) {
	ctx := context.Background()
	codec := newFakeH264(cudaDeviceConfig())
	codec.setup = func(cc *fakeCodecContext) {
		cc.openErr = errors.New("boom")
	}
	backend := newFakeBackend(codec)

	cfg := testConfig()
	cfg.HardwareDeviceType = testDeviceTypeCUDA
	s, err := OpenSession(ctx, backend, cfg)
	require.ErrorAs(t, err, &ErrOpenFailed{})
	assert.Nil(t, s)
	assert.Equal(t, int32(1), codec.LastContext().freeCount.Load())
	require.Len(t, backend.devices, 1)
	assert.Equal(t, int32(1), backend.devices[0].freeCount.Load())
}

func TestSessionCloseIdempotent(t *testing.T) {
	ctx := context.Background()
	codec := newFakeH264(cudaDeviceConfig())
	backend := newFakeBackend(codec)

	cfg := testConfig()
	cfg.HardwareDeviceType = testDeviceTypeCUDA
	s, err := OpenSession(ctx, backend, cfg)
	require.NoError(t, err)
	hw := s.HardwareContext()
	require.NotNil(t, hw)
	cc := codec.LastContext()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Close(ctx))
		}()
	}
	wg.Wait()
	require.NoError(t, s.Close(ctx))

	assert.Equal(t, SessionStateClosed, s.State())
	assert.Equal(t, int32(1), cc.freeCount.Load())
	assert.Nil(t, cc.callback)
	assert.True(t, hw.IsFreed())
	assert.Equal(t, int32(1), backend.devices[0].freeCount.Load())
}

func TestSessionCloseBeforeOpen(t *testing.T) {
	ctx := context.Background()
	codec := newFakeH264()
	s := NewSession(ctx, newFakeBackend(codec))
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, SessionStateClosed, s.State())
	require.True(t, IsSessionClosed(s.Configure(ctx, testConfig())))

	s = NewSession(ctx, newFakeBackend(codec))
	require.NoError(t, s.Configure(ctx, testConfig()))
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, int32(1), codec.LastContext().freeCount.Load())
	require.True(t, IsSessionClosed(s.Open(ctx)))
}

func TestSessionDecodeAfterClose(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSession(ctx, newFakeBackend(newFakeH264()), testConfig())
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))

	pic, err := s.Decode(ctx, Packet{Data: testKeyFrame})
	assert.Nil(t, pic)
	require.ErrorAs(t, err, &ErrSessionClosed{})
	assert.True(t, IsSessionClosed(err))

	_, err = s.Drain(ctx)
	assert.True(t, IsSessionClosed(err))
}

func TestSessionCloseRacingDecode(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	codec := newFakeH264(cudaDeviceConfig())
	backend := newFakeBackend(codec)
	cfg := testConfig()
	cfg.HardwareDeviceType = testDeviceTypeCUDA
	s, err := OpenSession(ctx, backend, cfg)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				pic, err := s.Decode(ctx, Packet{Data: testKeyFrame})
				if err != nil {
					assert.True(t, IsSessionClosed(err), "%v", err)
					return
				}
				pic.Release()
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Close(ctx))
	wg.Wait()

	cc := codec.LastContext()
	assert.Equal(t, int32(1), cc.freeCount.Load())
	assert.Empty(t, cc.LiveFrames())
	assert.Equal(t, int32(1), backend.devices[0].freeCount.Load())
}

func TestSessionCustomNegotiator(t *testing.T) {
	ctx := context.Background()
	codec := newFakeH264()
	var offered []PixelFormat
	negotiator := func(candidates []PixelFormat, preferred PixelFormat) PixelFormat {
		offered = terminatedPixelFormats(candidates)
		assert.Equal(t, PixelFormatYUV420P, preferred)
		return PixelFormatYUV420P
	}
	s, err := OpenSession(ctx, newFakeBackend(codec), testConfig(), OptionPixelFormatNegotiator(negotiator))
	require.NoError(t, err)
	defer s.Close(ctx)

	pic, err := s.Decode(ctx, Packet{Data: testKeyFrame})
	require.NoError(t, err)
	pic.Release()
	assert.Equal(t, []PixelFormat{PixelFormatYUV420P}, offered)
	assert.Equal(t, PixelFormatYUV420P, s.NegotiatedPixelFormat())
}
