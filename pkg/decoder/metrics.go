package decoder

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/experimental/metrics"
)

const (
	metricPicturesDecoded     = "hwdecode_pictures_decoded"
	metricHWTransferFallbacks = "hwdecode_hw_transfer_fallbacks"
	metricSubmitFailures      = "hwdecode_submit_failures"
	metricReceiveFailures     = "hwdecode_receive_failures"
	metricHardwareUnavailable = "hwdecode_hardware_unavailable"
)

func countMetric(ctx context.Context, key string) {
	metrics.FromCtx(ctx).Count(key).Add(1)
}
