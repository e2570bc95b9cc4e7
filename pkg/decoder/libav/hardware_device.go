package libav

import (
	"context"
	"fmt"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/hwdecode/pkg/decoder"
)

type HardwareDevice struct {
	*astiav.HardwareDeviceContext
	DeviceType astiav.HardwareDeviceType

	freeOnce sync.Once
}

var _ decoder.HardwareDevice = (*HardwareDevice)(nil)

func (d *HardwareDevice) Free() {
	d.freeOnce.Do(func() {
		d.HardwareDeviceContext.Free()
	})
}

func (d *HardwareDevice) String() string {
	return fmt.Sprintf("HardwareDevice{%s}", d.DeviceType)
}

func (*Backend) CreateHardwareDevice(
	ctx context.Context,
	deviceType decoder.HardwareDeviceType,
	deviceName string,
) (_ret decoder.HardwareDevice, _err error) {
	logger.Debugf(ctx, "CreateHardwareDevice(ctx, '%s', '%s')", deviceType, deviceName)
	defer func() {
		logger.Debugf(ctx, "/CreateHardwareDevice(ctx, '%s', '%s'): %v %v", deviceType, deviceName, _ret, _err)
	}()

	avDeviceType := astiav.FindHardwareDeviceTypeByName(string(deviceType))
	if avDeviceType == astiav.HardwareDeviceTypeNone {
		return nil, fmt.Errorf("the hardware device type '%s' is not known to libav", deviceType)
	}

	// libav releases the partially initialized device itself if the creation fails
	hwDeviceCtx, err := astiav.CreateHardwareDeviceContext(avDeviceType, deviceName, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("unable to create a hardware device context of type '%s': %w", deviceType, statusError(err))
	}

	return &HardwareDevice{
		HardwareDeviceContext: hwDeviceCtx,
		DeviceType:            avDeviceType,
	}, nil
}
