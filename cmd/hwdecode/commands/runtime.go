package commands

import (
	"context"
	"errors"
	"net/http"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xaionaro-go/observability"
)

func startMetricsListener(
	ctx context.Context,
	addr string,
) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	observability.Go(ctx, func(ctx context.Context) {
		logger.Infof(ctx, "starting to listen for metrics requests at '%s'", addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf(ctx, "the metrics listener at '%s' stopped: %v", addr, err)
		}
	})
	observability.Go(ctx, func(ctx context.Context) {
		<-ctx.Done()
		_ = srv.Close()
	})
}
