package decoder

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

const (
	DefaultCodecName   = "h264"
	DefaultWidth       = 1920
	DefaultHeight      = 1080
	DefaultThreadCount = 2
)

type HardwareSearchPolicy string

const (
	// HardwareSearchFirstMatch stops at the first descriptor of the requested
	// device type, even if creating the device fails.
	HardwareSearchFirstMatch = HardwareSearchPolicy("first_match")

	// HardwareSearchExhaustive tries every descriptor of the requested device type.
	HardwareSearchExhaustive = HardwareSearchPolicy("exhaustive")
)

func (p HardwareSearchPolicy) Validate() error {
	switch p {
	case "", HardwareSearchFirstMatch, HardwareSearchExhaustive:
		return nil
	}
	return fmt.Errorf("unknown hardware search policy '%s'", p)
}

type Flags struct {
	LowDelay       bool `yaml:"low_delay"`
	OutputCorrupt  bool `yaml:"output_corrupt"`
	ShowAll        bool `yaml:"show_all"`
	ExplodeOnError bool `yaml:"explode_on_error"`
}

type Config struct {
	CodecName          string               `yaml:"codec"`
	Width              int                  `yaml:"width"`
	Height             int                  `yaml:"height"`
	PixelFormat        PixelFormat          `yaml:"pixel_format"`
	HardwareDeviceType HardwareDeviceType   `yaml:"hardware_device_type"`
	HardwareDeviceName string               `yaml:"hardware_device_name,omitempty"`
	HardwareSearch     HardwareSearchPolicy `yaml:"hardware_search"`
	ThreadCount        int                  `yaml:"thread_count"`
	Flags              Flags                `yaml:"flags"`
}

func DefaultConfig() Config {
	return Config{
		CodecName:          DefaultCodecName,
		Width:              DefaultWidth,
		Height:             DefaultHeight,
		PixelFormat:        PixelFormatYUV420P,
		HardwareDeviceType: HardwareDeviceTypeNone,
		HardwareSearch:     HardwareSearchFirstMatch,
		ThreadCount:        DefaultThreadCount,
		Flags: Flags{
			LowDelay:       true,
			OutputCorrupt:  true,
			ShowAll:        true,
			ExplodeOnError: true,
		},
	}
}

func (cfg Config) Validate() error {
	if cfg.CodecName == "" {
		return ErrConfiguration{Reason: "codec name is empty"}
	}
	if cfg.Width < 0 || cfg.Height < 0 {
		return ErrConfiguration{
			CodecName: cfg.CodecName,
			Reason:    fmt.Sprintf("negative dimensions %dx%d", cfg.Width, cfg.Height),
		}
	}
	if cfg.ThreadCount < 0 {
		return ErrConfiguration{
			CodecName: cfg.CodecName,
			Reason:    fmt.Sprintf("negative thread count %d", cfg.ThreadCount),
		}
	}
	if err := cfg.HardwareSearch.Validate(); err != nil {
		return ErrConfiguration{CodecName: cfg.CodecName, Reason: err.Error()}
	}
	return nil
}

var _ io.ReaderFrom = (*Config)(nil)
var _ io.WriterTo = (*Config)(nil)

func (cfg *Config) UnmarshalYAML(b []byte) error {
	type config Config
	result := config(DefaultConfig())
	if err := yaml.Unmarshal(b, &result); err != nil {
		return fmt.Errorf("unable to unserialize data: %w", err)
	}
	*cfg = Config(result)
	return nil
}

func (cfg Config) MarshalYAML() ([]byte, error) {
	type config Config
	b, err := yaml.Marshal(config(cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to serialize data %#+v: %w", cfg, err)
	}
	return b, nil
}

func (cfg *Config) ReadFrom(r io.Reader) (int64, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return int64(len(b)), fmt.Errorf("unable to read: %w", err)
	}
	return int64(len(b)), cfg.UnmarshalYAML(b)
}

func (cfg Config) WriteTo(w io.Writer) (int64, error) {
	b, err := cfg.MarshalYAML()
	if err != nil {
		return 0, err
	}
	return io.Copy(w, bytes.NewReader(b))
}

// ReadConfigFromPath reads a YAML config; keys absent from the file keep their defaults.
func ReadConfigFromPath(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if _, err := cfg.ReadFrom(f); err != nil {
		return Config{}, fmt.Errorf("unable to read the config from '%s': %w", path, err)
	}
	return cfg, nil
}
