package commands

import (
	"os"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/hwdecode/pkg/decoder"
	"github.com/xaionaro-go/hwdecode/pkg/payload"
)

var (
	// Access these variables only from a main package:

	Root = &cobra.Command{
		Use:   os.Args[0],
		Short: "decodes H.264 with optional hardware acceleration",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctx := initContext(cmd.Context(), cmd)
			cmd.SetContext(ctx)
			logger.Debugf(ctx, "log-level: %v", LoggerLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			logger.Debug(ctx, "end")
		},
		SilenceUsage: true,
	}

	Decode = &cobra.Command{
		Use:   "decode FILE",
		Short: "decode an Annex-B H.264 payload (raw or hex text) and report the pictures",
		Args:  cobra.ExactArgs(1),
		RunE:  decode,
	}

	HWConfigs = &cobra.Command{
		Use:   "hwconfigs",
		Short: "list the hardware configurations supported by the decoder",
		Args:  cobra.ExactArgs(0),
		Run:   hwConfigs,
	}

	Decoders = &cobra.Command{
		Use:   "decoders",
		Short: "list the decoders provided by libavcodec",
		Args:  cobra.ExactArgs(0),
		Run:   decoders,
	}

	Version = &cobra.Command{
		Use:   "version",
		Short: "print the build information",
		Args:  cobra.ExactArgs(0),
		Run:   version,
	}

	LoggerLevel = logger.LevelWarning
	InputFormat = payload.FormatAuto
)

func init() {
	Root.AddCommand(Decode)
	Root.AddCommand(HWConfigs)
	Root.AddCommand(Decoders)
	Root.AddCommand(Version)

	Root.PersistentFlags().Var(&LoggerLevel, "log-level", "")
	Root.PersistentFlags().String("sentry-dsn", "", "DSN of a Sentry instance to send error reports to")
	Root.PersistentFlags().String("metrics-addr", "", "address to listen to for Prometheus metrics requests")

	registerDecodeFlags(Decode.Flags())

	HWConfigs.Flags().String("codec", decoder.DefaultCodecName, "decoder name")
}

func registerDecodeFlags(flags *pflag.FlagSet) {
	defaults := decoder.DefaultConfig()
	flags.String("config", "", "path to a YAML decoder config; the other flags override its values")
	flags.String("codec", defaults.CodecName, "decoder name")
	flags.Int("width", defaults.Width, "picture width")
	flags.Int("height", defaults.Height, "picture height")
	flags.String("pixel-format", defaults.PixelFormat.String(), "requested pixel format")
	flags.String("hwaccel", string(defaults.HardwareDeviceType), "hardware device type: none, cuda, vaapi, dxva2, d3d11va, videotoolbox, qsv, ...")
	flags.String("hwaccel-device", defaults.HardwareDeviceName, "hardware device name or path")
	flags.String("hwaccel-search", string(defaults.HardwareSearch), "hardware config search policy: first_match or exhaustive")
	flags.Int("threads", defaults.ThreadCount, "amount of slice threads for software decoding")
	flags.Bool("low-delay", defaults.Flags.LowDelay, "low delay decoding")
	flags.Bool("output-corrupt", defaults.Flags.OutputCorrupt, "output corrupted pictures")
	flags.Bool("show-all", defaults.Flags.ShowAll, "show all pictures before the first key frame")
	flags.Bool("explode", defaults.Flags.ExplodeOnError, "abort decoding on minor errors")
	flags.Var(&InputFormat, "input-format", "payload format: auto, hex or raw")
	flags.String("dump-dir", "", "directory to write the decoded pictures into as PNG files")
	flags.Float64("dump-brightness", 0, "brightness change in [-1, 1] applied to the PNG files")
	flags.Int("repeat", 1, "feed the payload this many times")
}
