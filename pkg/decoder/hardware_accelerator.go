package decoder

import (
	"context"
	"fmt"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
)

type HardwareContext struct {
	Config HardwareConfig
	Device HardwareDevice

	locker sync.Mutex
	freed  bool
}

func newHardwareContext(cfg HardwareConfig, device HardwareDevice) *HardwareContext {
	return &HardwareContext{
		Config: cfg,
		Device: device,
	}
}

// PixelFormat is the format the device produces decoded pictures in.
func (hw *HardwareContext) PixelFormat() PixelFormat {
	return hw.Config.PixelFormat
}

func (hw *HardwareContext) DeviceType() HardwareDeviceType {
	return hw.Config.DeviceType
}

// Free releases the device; only the first call has an effect.
func (hw *HardwareContext) Free() {
	hw.locker.Lock()
	defer hw.locker.Unlock()
	if hw.freed {
		return
	}
	hw.freed = true
	if hw.Device != nil {
		hw.Device.Free()
	}
}

func (hw *HardwareContext) IsFreed() bool {
	hw.locker.Lock()
	defer hw.locker.Unlock()
	return hw.freed
}

func (hw *HardwareContext) String() string {
	return fmt.Sprintf("HardwareContext{%s}", hw.Config)
}

// TryCreateHardwareContext looks for a device-context-based hardware config of
// the given device type and creates the device for it. Any returned error is
// an ErrHardwareUnavailable: the caller is expected to decode in software.
//
// With HardwareSearchFirstMatch the search ends at the first descriptor of the
// requested type, even if the device cannot be created there.
func TryCreateHardwareContext(
	ctx context.Context,
	backend Backend,
	codec Codec,
	deviceType HardwareDeviceType,
	deviceName string,
	policy HardwareSearchPolicy,
) (_ret *HardwareContext, _err error) {
	logger.Debugf(ctx, "TryCreateHardwareContext(ctx, %s, '%s', '%s', %s)", codec.Name(), deviceType, deviceName, policy)
	defer func() {
		logger.Debugf(ctx, "/TryCreateHardwareContext(ctx, %s, '%s', '%s', %s): %v %v", codec.Name(), deviceType, deviceName, policy, _ret, _err)
	}()

	if deviceType.IsNone() {
		return nil, ErrHardwareUnavailable{
			DeviceType: deviceType,
			Reason:     fmt.Errorf("hardware acceleration is disabled"),
		}
	}

	var attemptErrs *multierror.Error
	for idx, hwCfg := range codec.HardwareConfigs() {
		if !hwCfg.Methods.Has(HardwareConfigMethodHWDeviceCtx) {
			logger.Tracef(ctx, "hardware config #%d (%s) does not support device contexts, skipping", idx, hwCfg)
			continue
		}
		if hwCfg.DeviceType != deviceType {
			continue
		}

		device, err := backend.CreateHardwareDevice(ctx, deviceType, deviceName)
		if err == nil {
			logger.Infof(ctx, "created a hardware device of type '%s' (pixel format %s)", deviceType, hwCfg.PixelFormat)
			return newHardwareContext(hwCfg, device), nil
		}

		logger.Errorf(ctx, "hardware acceleration is not supported for type '%s' (config #%d): %v", deviceType, idx, err)
		attemptErrs = multierror.Append(attemptErrs, fmt.Errorf("config #%d: %w", idx, err))
		if policy != HardwareSearchExhaustive {
			break
		}
	}

	if attemptErrs == nil {
		return nil, ErrHardwareUnavailable{
			DeviceType: deviceType,
			Reason:     fmt.Errorf("decoder '%s' has no device-context config for this device type", codec.Name()),
		}
	}
	return nil, ErrHardwareUnavailable{
		DeviceType: deviceType,
		Reason:     attemptErrs.ErrorOrNil(),
	}
}
