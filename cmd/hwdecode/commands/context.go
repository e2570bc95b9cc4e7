package commands

import (
	"context"
	"os"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	errmonsentry "github.com/facebookincubator/go-belt/tool/experimental/errmon/implementation/sentry"
	"github.com/facebookincubator/go-belt/tool/experimental/metrics"
	prometheusadapter "github.com/facebookincubator/go-belt/tool/experimental/metrics/implementation/prometheus"
	"github.com/facebookincubator/go-belt/tool/logger"
	xlogrus "github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const programName = "hwdecode"

func initContext(
	ctx context.Context,
	cmd *cobra.Command,
) context.Context {
	ctx = metrics.CtxWithMetrics(ctx, prometheusadapter.Default())

	ll := xlogrus.DefaultLogrusLogger()
	if formatter, ok := ll.Formatter.(*logrus.TextFormatter); ok {
		formatter.ForceColors = true
	}
	l := xlogrus.New(ll).WithLevel(LoggerLevel)
	logrus.SetLevel(xlogrus.LevelToLogrus(l.Level()))

	sentryDSN, err := cmd.Flags().GetString("sentry-dsn")
	if err != nil {
		l.Errorf("unable to get the value of the flag 'sentry-dsn': %v", err)
	}
	if sentryDSN != "" {
		l.Infof("setting up Sentry at DSN '%s'", sentryDSN)
		sentryClient, err := sentry.NewClient(sentry.ClientOptions{
			Dsn: sentryDSN,
		})
		if err != nil {
			l.Fatal(err)
		}
		sentryErrorMonitor := errmonsentry.New(sentryClient)
		ctx = errmon.CtxWithErrorMonitor(ctx, sentryErrorMonitor)
		l = l.WithPreHooks(newErrorMonitorLoggerHook(ctx, sentryErrorMonitor))
	}

	ctx = logger.CtxWithLogger(ctx, l)
	ctx = belt.WithField(ctx, "program", programName)
	ctx = belt.WithField(ctx, "run_id", uuid.New().String())
	if hostname, err := os.Hostname(); err == nil {
		ctx = belt.WithField(ctx, "hostname", hostname)
	}
	ctx = belt.WithField(ctx, "pid", os.Getpid())

	metricsAddr, err := cmd.Flags().GetString("metrics-addr")
	if err != nil {
		l.Errorf("unable to get the value of the flag 'metrics-addr': %v", err)
	}
	if metricsAddr != "" {
		startMetricsListener(ctx, metricsAddr)
	}

	l = logger.FromCtx(ctx)
	logger.Default = func() logger.Logger {
		return l
	}
	return ctx
}
