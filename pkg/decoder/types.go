package decoder

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// PixelFormat follows the numbering of libavutil's AVPixelFormat.
type PixelFormat int

const (
	PixelFormatNone    = PixelFormat(-1)
	PixelFormatYUV420P = PixelFormat(0)
	PixelFormatNV12    = PixelFormat(23)
)

// PixelFormatNames resolves the names of the pixel formats the decoder core
// does not know itself. Backends register it with SetPixelFormatNames.
type PixelFormatNames interface {
	PixelFormatName(pf PixelFormat) (string, bool)
	PixelFormatByName(name string) (PixelFormat, bool)
}

var pixelFormatNames atomic.Pointer[PixelFormatNames]

// SetPixelFormatNames replaces the process-wide pixel format name resolver;
// nil leaves only the built-in names.
func SetPixelFormatNames(names PixelFormatNames) {
	if names == nil {
		pixelFormatNames.Store(nil)
		return
	}
	pixelFormatNames.Store(&names)
}

func (pf PixelFormat) String() string {
	switch pf {
	case PixelFormatNone:
		return "none"
	case PixelFormatYUV420P:
		return "yuv420p"
	case PixelFormatNV12:
		return "nv12"
	}
	if names := pixelFormatNames.Load(); names != nil {
		if name, ok := (*names).PixelFormatName(pf); ok {
			return name
		}
	}
	return fmt.Sprintf("pix_fmt(%d)", int(pf))
}

func ParsePixelFormat(s string) (PixelFormat, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "none":
		return PixelFormatNone, nil
	case "yuv420p":
		return PixelFormatYUV420P, nil
	case "nv12":
		return PixelFormatNV12, nil
	}
	if num, ok := strings.CutPrefix(s, "pix_fmt("); ok {
		if num, ok := strings.CutSuffix(num, ")"); ok {
			v, err := strconv.Atoi(num)
			if err != nil {
				return PixelFormatNone, fmt.Errorf("unable to parse the pixel format number in '%s': %w", s, err)
			}
			return PixelFormat(v), nil
		}
	}
	if names := pixelFormatNames.Load(); names != nil {
		if pf, ok := (*names).PixelFormatByName(s); ok {
			return pf, nil
		}
	}
	return PixelFormatNone, fmt.Errorf("unknown pixel format '%s'", s)
}

func (pf PixelFormat) MarshalText() ([]byte, error) {
	return []byte(pf.String()), nil
}

func (pf *PixelFormat) UnmarshalText(b []byte) error {
	v, err := ParsePixelFormat(string(b))
	if err != nil {
		return err
	}
	*pf = v
	return nil
}

// HardwareDeviceType is the libav name of a hardware device type ("cuda", "vaapi", ...).
type HardwareDeviceType string

const (
	HardwareDeviceTypeNone = HardwareDeviceType("none")
)

func (t HardwareDeviceType) IsNone() bool {
	return t == "" || t == HardwareDeviceTypeNone
}

type HardwareConfigMethodFlags uint

const (
	HardwareConfigMethodHWDeviceCtx = HardwareConfigMethodFlags(1 << iota)
	HardwareConfigMethodHWFramesCtx
	HardwareConfigMethodInternal
	HardwareConfigMethodAdHoc
)

func (f HardwareConfigMethodFlags) Has(flag HardwareConfigMethodFlags) bool {
	return f&flag != 0
}

func (f HardwareConfigMethodFlags) String() string {
	var names []string
	for _, item := range []struct {
		Flag HardwareConfigMethodFlags
		Name string
	}{
		{HardwareConfigMethodHWDeviceCtx, "hw_device_ctx"},
		{HardwareConfigMethodHWFramesCtx, "hw_frames_ctx"},
		{HardwareConfigMethodInternal, "internal"},
		{HardwareConfigMethodAdHoc, "ad_hoc"},
	} {
		if f.Has(item.Flag) {
			names = append(names, item.Name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// HardwareConfig describes one way a decoder can use a hardware device.
type HardwareConfig struct {
	Methods     HardwareConfigMethodFlags
	DeviceType  HardwareDeviceType
	PixelFormat PixelFormat
}

func (cfg HardwareConfig) String() string {
	return fmt.Sprintf("%s[%s]:%s", cfg.DeviceType, cfg.Methods, cfg.PixelFormat)
}

type ThreadMode int

const (
	ThreadModeNone = ThreadMode(iota)
	ThreadModeSlice
	ThreadModeFrame
)

func (m ThreadMode) String() string {
	switch m {
	case ThreadModeNone:
		return "none"
	case ThreadModeSlice:
		return "slice"
	case ThreadModeFrame:
		return "frame"
	default:
		return fmt.Sprintf("unknown_thread_mode_%d", int(m))
	}
}

type PictureLocation int

const (
	PictureLocationSystemMemory = PictureLocation(iota)
	PictureLocationHardwareResident
)

func (l PictureLocation) String() string {
	switch l {
	case PictureLocationSystemMemory:
		return "system_memory"
	case PictureLocationHardwareResident:
		return "hardware_resident"
	default:
		return fmt.Sprintf("unknown_picture_location_%d", int(l))
	}
}

type SessionState int

const (
	SessionStateUninitialized = SessionState(iota)
	SessionStateConfigured
	SessionStateHardwareAttached
	SessionStateOpened
	SessionStateFailed
	SessionStateClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionStateUninitialized:
		return "uninitialized"
	case SessionStateConfigured:
		return "configured"
	case SessionStateHardwareAttached:
		return "hardware_attached"
	case SessionStateOpened:
		return "opened"
	case SessionStateFailed:
		return "failed"
	case SessionStateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown_session_state_%d", int(s))
	}
}
