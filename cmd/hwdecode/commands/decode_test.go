package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/hwdecode/pkg/decoder"
)

func newDecodeFlags(t *testing.T, args ...string) *pflag.FlagSet {
	flags := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	registerDecodeFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestDecoderConfigFromFlagsDefaults(t *testing.T) {
	cfg, err := decoderConfigFromFlags(newDecodeFlags(t))
	require.NoError(t, err)
	assert.Equal(t, decoder.DefaultConfig(), cfg)
}

func TestDecoderConfigFromFlagsOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decoder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("width: 1280\nheight: 720\nhardware_device_type: vaapi\nthread_count: 8\n"), 0o644))

	cfg, err := decoderConfigFromFlags(newDecodeFlags(t,
		"--config", path,
		"--hwaccel", "cuda",
		"--hwaccel-search", "exhaustive",
		"--pixel-format", "nv12",
		"--show-all=false",
	))
	require.NoError(t, err)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
	assert.Equal(t, 8, cfg.ThreadCount)
	assert.Equal(t, decoder.HardwareDeviceType("cuda"), cfg.HardwareDeviceType)
	assert.Equal(t, decoder.HardwareSearchExhaustive, cfg.HardwareSearch)
	assert.Equal(t, decoder.PixelFormatNV12, cfg.PixelFormat)
	assert.False(t, cfg.Flags.ShowAll)
	assert.True(t, cfg.Flags.LowDelay)
}

func TestDecoderConfigFromFlagsInvalid(t *testing.T) {
	_, err := decoderConfigFromFlags(newDecodeFlags(t, "--pixel-format", "rgb48"))
	require.Error(t, err)

	_, err = decoderConfigFromFlags(newDecodeFlags(t, "--threads", "-1"))
	require.ErrorAs(t, err, &decoder.ErrConfiguration{})

	_, err = decoderConfigFromFlags(newDecodeFlags(t, "--hwaccel-search", "random"))
	require.ErrorAs(t, err, &decoder.ErrConfiguration{})
}
