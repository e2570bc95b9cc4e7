package decoder

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/google/uuid"
	"github.com/xaionaro-go/xsync"
)

// Session is one decode session: configure, feed compressed data, obtain
// decoded pictures, release.
//
// All methods are safe for concurrent use; Decode and Close are serialized,
// so the native resources are never released under an in-flight decode.
type Session struct {
	locker  xsync.Mutex
	id      uuid.UUID
	backend Backend
	options sessionConfig

	state                SessionState
	config               Config
	codec                Codec
	codecContext         CodecContext
	hardwareContext      *HardwareContext
	preferredPixelFormat PixelFormat
	callbackRegistered   bool

	negotiatedPixelFormat atomic.Int64
}

func NewSession(
	ctx context.Context,
	backend Backend,
	opts ...Option,
) *Session {
	s := &Session{
		id:                   uuid.New(),
		backend:              backend,
		options:              Options(opts).config(),
		preferredPixelFormat: PixelFormatNone,
	}
	s.negotiatedPixelFormat.Store(int64(PixelFormatNone))
	logger.Debugf(s.ctx(ctx), "new decoder session")
	return s
}

// OpenSession configures and opens a session. If cfg requests a hardware
// device that cannot be created, the session decodes in software.
func OpenSession(
	ctx context.Context,
	backend Backend,
	cfg Config,
	opts ...Option,
) (_ret *Session, _err error) {
	s := NewSession(ctx, backend, opts...)
	ctx = s.ctx(ctx)
	logger.Debugf(ctx, "OpenSession")
	defer func() { logger.Debugf(ctx, "/OpenSession: %v", _err) }()
	defer func() {
		if _err != nil {
			_ = s.Close(ctx)
		}
	}()

	if err := s.Configure(ctx, cfg); err != nil {
		return nil, fmt.Errorf("unable to configure the decoder: %w", err)
	}

	if !cfg.HardwareDeviceType.IsNone() {
		hw, err := TryCreateHardwareContext(
			ctx,
			backend,
			s.Codec(),
			cfg.HardwareDeviceType,
			cfg.HardwareDeviceName,
			cfg.HardwareSearch,
		)
		switch {
		case err != nil:
			countMetric(ctx, metricHardwareUnavailable)
			logger.Warnf(ctx, "%v; falling back to software decoding", err)
		default:
			if err := s.AttachHardware(ctx, hw); err != nil {
				hw.Free()
				return nil, fmt.Errorf("unable to attach the hardware context: %w", err)
			}
		}
	} else {
		logger.Infof(ctx, "hardware acceleration is disabled")
	}

	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) ctx(ctx context.Context) context.Context {
	return belt.WithField(ctx, "decoder_session", s.id.String())
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) State() SessionState {
	return xsync.DoR1(context.Background(), &s.locker, func() SessionState {
		return s.state
	})
}

func (s *Session) Config() Config {
	return xsync.DoR1(context.Background(), &s.locker, func() Config {
		return s.config
	})
}

// Codec returns nil until the session is configured.
func (s *Session) Codec() Codec {
	return xsync.DoR1(context.Background(), &s.locker, func() Codec {
		return s.codec
	})
}

// HardwareContext returns nil if the session decodes in software.
func (s *Session) HardwareContext() *HardwareContext {
	return xsync.DoR1(context.Background(), &s.locker, func() *HardwareContext {
		return s.hardwareContext
	})
}

// NegotiatedPixelFormat is PixelFormatNone until the decoder asked for a format.
func (s *Session) NegotiatedPixelFormat() PixelFormat {
	return PixelFormat(s.negotiatedPixelFormat.Load())
}

func (s *Session) Configure(
	ctx context.Context,
	cfg Config,
) error {
	ctx = s.ctx(ctx)
	return xsync.DoR1(ctx, &s.locker, func() error {
		return s.configure(ctx, cfg)
	})
}

func (s *Session) configure(
	ctx context.Context,
	cfg Config,
) (_err error) {
	logger.Debugf(ctx, "configure(ctx, %#+v)", cfg)
	defer func() { logger.Debugf(ctx, "/configure(ctx, %#+v): %v", cfg, _err) }()

	switch s.state {
	case SessionStateUninitialized, SessionStateFailed:
	case SessionStateClosed:
		return ErrSessionClosed{}
	default:
		return ErrInvalidState{Operation: "configure", State: s.state}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	codec := s.backend.FindDecoder(cfg.CodecName)
	if codec == nil {
		return ErrConfiguration{
			CodecName: cfg.CodecName,
			Reason:    "unable to find the decoder",
		}
	}
	logger.Infof(ctx, "decoder: %s", codec.Name())

	codecContext := codec.AllocCodecContext()
	if codecContext == nil {
		return ErrContextAllocationFailed{CodecName: cfg.CodecName}
	}

	threadCount := cfg.ThreadCount
	if threadCount == 0 {
		threadCount = DefaultThreadCount
	}

	codecContext.SetFlags(cfg.Flags)
	codecContext.SetThreading(ThreadModeSlice, threadCount)
	codecContext.SetDimensions(cfg.Width, cfg.Height)
	codecContext.SetPixelFormat(cfg.PixelFormat)

	s.config = cfg
	s.codec = codec
	s.codecContext = codecContext
	s.preferredPixelFormat = cfg.PixelFormat
	s.negotiatedPixelFormat.Store(int64(PixelFormatNone))
	s.state = SessionStateConfigured
	return nil
}

// AttachHardware makes the session the owner of hw. If an error is returned,
// the ownership stays with the caller.
func (s *Session) AttachHardware(
	ctx context.Context,
	hw *HardwareContext,
) error {
	ctx = s.ctx(ctx)
	return xsync.DoR1(ctx, &s.locker, func() error {
		return s.attachHardware(ctx, hw)
	})
}

func (s *Session) attachHardware(
	ctx context.Context,
	hw *HardwareContext,
) error {
	if hw == nil {
		return fmt.Errorf("the hardware context is nil")
	}
	switch s.state {
	case SessionStateConfigured:
	case SessionStateClosed:
		return ErrSessionClosed{}
	default:
		return ErrInvalidState{Operation: "attach_hardware", State: s.state}
	}
	if hw.IsFreed() {
		return fmt.Errorf("the hardware context %s is already freed", hw)
	}

	logger.Infof(ctx, "set hwaccel support: %s", hw)
	s.codecContext.SetHardwareDevice(hw.Device)
	// no threading for hardware decoding
	s.codecContext.SetThreading(ThreadModeNone, 1)

	s.hardwareContext = hw
	s.preferredPixelFormat = hw.PixelFormat()
	s.state = SessionStateHardwareAttached
	return nil
}

func (s *Session) Open(ctx context.Context) error {
	ctx = s.ctx(ctx)
	return xsync.DoR1(ctx, &s.locker, func() error {
		return s.open(ctx)
	})
}

func (s *Session) open(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "open")
	defer func() { logger.Debugf(ctx, "/open: %v", _err) }()

	switch s.state {
	case SessionStateConfigured, SessionStateHardwareAttached:
	case SessionStateClosed:
		return ErrSessionClosed{}
	default:
		return ErrInvalidState{Operation: "open", State: s.state}
	}

	s.codecContext.SetPixelFormatCallback(s.newPixelFormatCallback(ctx))
	s.callbackRegistered = true

	if err := s.codecContext.Open(); err != nil {
		code, msg := describeStatus(err)
		logger.Errorf(ctx, "unable to open the codec context: %v", err)
		s.release(ctx)
		s.state = SessionStateFailed
		return ErrOpenFailed{Code: code, Message: msg}
	}

	s.state = SessionStateOpened
	return nil
}

func (s *Session) newPixelFormatCallback(
	ctx context.Context,
) func([]PixelFormat) PixelFormat {
	negotiate := s.options.PixelFormatNegotiator
	preferred := s.preferredPixelFormat
	return func(candidates []PixelFormat) PixelFormat {
		logger.Debugf(ctx, "supported pixel formats: %v (preferred: %s)", terminatedPixelFormats(candidates), preferred)
		pf := negotiate(candidates, preferred)
		switch pf {
		case PixelFormatNone:
			logger.Errorf(ctx, "unable to find an appropriate pixel format among %v", terminatedPixelFormats(candidates))
		case preferred:
			logger.Infof(ctx, "pixel format in the format callback is %s", pf)
		default:
			logger.Infof(ctx, "preferred pixel format %s is not offered, using %s", preferred, pf)
		}
		s.negotiatedPixelFormat.Store(int64(pf))
		return pf
	}
}

// Close releases the codec context and the hardware context. Only the first
// call has an effect.
func (s *Session) Close(ctx context.Context) error {
	ctx = s.ctx(ctx)
	s.locker.Do(ctx, func() {
		if s.state == SessionStateClosed {
			logger.Debugf(ctx, "the session is already closed")
			return
		}
		s.release(ctx)
		s.state = SessionStateClosed
	})
	return nil
}

func (s *Session) release(ctx context.Context) {
	logger.Debugf(ctx, "release")
	defer logger.Debugf(ctx, "/release")

	if s.codecContext != nil {
		if s.callbackRegistered {
			s.codecContext.SetPixelFormatCallback(nil)
			s.callbackRegistered = false
		}
		s.codecContext.Free()
		s.codecContext = nil
	}
	s.codec = nil

	if s.hardwareContext != nil {
		s.hardwareContext.Free()
		s.hardwareContext = nil
	}
}

func (s *Session) checkOpened(operation string) error {
	switch s.state {
	case SessionStateOpened:
		return nil
	case SessionStateClosed:
		return ErrSessionClosed{}
	default:
		return ErrInvalidState{Operation: operation, State: s.state}
	}
}

// IsSessionClosed reports whether err says the session was already closed.
func IsSessionClosed(err error) bool {
	return errors.As(err, &ErrSessionClosed{})
}
