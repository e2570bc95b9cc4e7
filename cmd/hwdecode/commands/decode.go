package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/hwdecode/pkg/decoder"
	"github.com/xaionaro-go/hwdecode/pkg/decoder/libav"
	"github.com/xaionaro-go/hwdecode/pkg/payload"
	"github.com/xaionaro-go/hwdecode/pkg/picturesink"
)

func decode(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	inputPath := args[0]

	cfg, err := decoderConfigFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	logger.Debugf(ctx, "decoder config: %#+v", cfg)

	repeat, err := cmd.Flags().GetInt("repeat")
	assertNoError(ctx, err)
	dumpDir, err := cmd.Flags().GetString("dump-dir")
	assertNoError(ctx, err)
	dumpBrightness, err := cmd.Flags().GetFloat64("dump-brightness")
	assertNoError(ctx, err)

	data, err := payload.Load(ctx, inputPath, InputFormat)
	if err != nil {
		return fmt.Errorf("unable to load the payload: %w", err)
	}
	units := payload.SplitAccessUnits(data)
	if len(units) == 0 {
		logger.Warnf(ctx, "no Annex-B start codes found in '%s', submitting the whole file as one packet", inputPath)
		units = [][]byte{data}
	}
	logger.Debugf(ctx, "%d access units", len(units))

	sinks := []picturesink.PictureSink{picturesink.NewLog()}
	if dumpDir != "" {
		pngSink, err := picturesink.NewPNG(dumpDir, dumpBrightness)
		if err != nil {
			return err
		}
		sinks = append(sinks, pngSink)
	}
	defer func() {
		for _, sink := range sinks {
			if err := sink.Close(ctx); err != nil {
				logger.Errorf(ctx, "unable to close the picture sink %T: %v", sink, err)
			}
		}
	}()

	session, err := decoder.OpenSession(ctx, libav.NewBackend(ctx), cfg)
	if err != nil {
		return fmt.Errorf("unable to open the decoder session: %w", err)
	}
	defer func() {
		if err := session.Close(ctx); err != nil {
			logger.Errorf(ctx, "unable to close the decoder session: %v", err)
		}
	}()
	if hw := session.HardwareContext(); hw != nil {
		logger.Infof(ctx, "decoding with %s", hw)
	} else {
		logger.Infof(ctx, "decoding in software")
	}

	var (
		result   *multierror.Error
		pictures int
	)
	for iteration := 0; iteration < repeat; iteration++ {
		for idx, unit := range units {
			pic, err := session.Decode(ctx, decoder.Packet{Data: unit})
			switch {
			case err == nil:
				pictures++
				result = multierror.Append(result, showPicture(ctx, sinks, pic))
			case errors.Is(err, decoder.ErrNeedMoreInput):
				logger.Debugf(ctx, "packet #%d: the decoder needs more input", idx)
			default:
				logger.Errorf(ctx, "packet #%d: %v", idx, err)
				result = multierror.Append(result, fmt.Errorf("packet #%d: %w", idx, err))
			}
		}
	}

	pics, err := session.Drain(ctx)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("unable to drain the decoder: %w", err))
	}
	for _, pic := range pics {
		pictures++
		result = multierror.Append(result, showPicture(ctx, sinks, pic))
	}

	logger.Infof(ctx, "decoded %d pictures", pictures)
	if err := result.ErrorOrNil(); err != nil {
		if pictures == 0 {
			return fmt.Errorf("no pictures decoded: %w", err)
		}
		logger.Warnf(ctx, "some packets failed: %v", err)
	}
	return nil
}

func showPicture(
	ctx context.Context,
	sinks []picturesink.PictureSink,
	pic *decoder.Picture,
) error {
	defer pic.Release()
	var result *multierror.Error
	for _, sink := range sinks {
		if err := sink.Show(ctx, pic); err != nil {
			result = multierror.Append(result, fmt.Errorf("sink %T: %w", sink, err))
		}
	}
	return result.ErrorOrNil()
}

func decoderConfigFromFlags(flags *pflag.FlagSet) (decoder.Config, error) {
	cfg := decoder.DefaultConfig()

	configPath, err := flags.GetString("config")
	if err != nil {
		return cfg, err
	}
	if configPath != "" {
		cfg, err = decoder.ReadConfigFromPath(configPath)
		if err != nil {
			return cfg, err
		}
	}

	var errs *multierror.Error
	flags.Visit(func(f *pflag.Flag) {
		var err error
		switch f.Name {
		case "codec":
			cfg.CodecName, err = flags.GetString(f.Name)
		case "width":
			cfg.Width, err = flags.GetInt(f.Name)
		case "height":
			cfg.Height, err = flags.GetInt(f.Name)
		case "pixel-format":
			err = cfg.PixelFormat.UnmarshalText([]byte(f.Value.String()))
		case "hwaccel":
			cfg.HardwareDeviceType = decoder.HardwareDeviceType(f.Value.String())
		case "hwaccel-device":
			cfg.HardwareDeviceName = f.Value.String()
		case "hwaccel-search":
			cfg.HardwareSearch = decoder.HardwareSearchPolicy(f.Value.String())
		case "threads":
			cfg.ThreadCount, err = flags.GetInt(f.Name)
		case "low-delay":
			cfg.Flags.LowDelay, err = flags.GetBool(f.Name)
		case "output-corrupt":
			cfg.Flags.OutputCorrupt, err = flags.GetBool(f.Name)
		case "show-all":
			cfg.Flags.ShowAll, err = flags.GetBool(f.Name)
		case "explode":
			cfg.Flags.ExplodeOnError, err = flags.GetBool(f.Name)
		}
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("flag '--%s': %w", f.Name, err))
		}
	})
	if err := errs.ErrorOrNil(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
