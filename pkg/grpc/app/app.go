// Package app runs a gRPC application for the lifetime of the process.
package app

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	metrics_util "github.com/code-payments/todo-server/pkg/metrics"
	"github.com/code-payments/todo-server/pkg/osutil"
)

// App is initialized before its gRPC servers start serving and stopped after
// they have stopped.
type App interface {
	// Init prepares the application to receive requests. metricsProvider is
	// nil when New Relic is not configured.
	Init(config Config, metricsProvider *newrelic.Application) error

	// RegisterWithGRPC registers the application's services. It is called
	// once per listener.
	RegisterWithGRPC(server *grpc.Server)

	// ShutdownChan is closed when the application wants the process to stop.
	ShutdownChan() <-chan struct{}

	// Stop releases the application's resources. It must be idempotent.
	Stop()
}

var configPath = flag.String("config", "config.yaml", "configuration file path")

// Run serves app until the process is signalled, a server stops, the restart
// schedule fires or the app asks to shut down.
func Run(app App, opts ...Option) error {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	config, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	metricsProvider, err := newMetricsProvider(config)
	if err != nil {
		return err
	}
	configureLogger(config, metricsProvider)

	log := logrus.StandardLogger().WithFields(logrus.Fields{
		"type": "grpc/app",
		"app":  config.AppName,
	})

	// pprof and expvar register themselves on the default mux
	http.DefaultServeMux = http.NewServeMux()
	if mux := newDebugMux(config); mux != nil {
		go serveDebug(ctx, log, config.DebugListenAddress, mux)
	}

	ballast := make([]byte, config.ballastSize(osutil.GetTotalMemory()))

	restartCh, err := scheduleRestart(config.RestartSchedule)
	if err != nil {
		return err
	}

	if err := app.Init(config.AppConfig, metricsProvider); err != nil {
		return errors.Wrap(err, "failed to initialize application")
	}

	servers, err := newServers(ctx, config, app, defaultOptions(log, metricsProvider).apply(opts...))
	if err != nil {
		app.Stop()
		return err
	}

	stoppedCh := make(chan string, len(servers))
	for _, s := range servers {
		go func(s *server) {
			s.serve(log)
			stoppedCh <- s.name
		}(s)
	}

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("interrupt received, shutting down")
	case name := <-stoppedCh:
		log.WithField("server", name).Info("grpc server shutdown")
	case <-restartCh:
		log.Info("scheduled restart")
	case <-app.ShutdownChan():
		log.Info("app shutdown")
	}

	return shutdown(config.ShutdownGracePeriod, servers, app, ballast)
}

// shutdown stops every server, then the app, within grace.
func shutdown(grace time.Duration, servers []*server, app App, ballast []byte) error {
	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)

		for _, s := range servers {
			s.grpc.GracefulStop()
		}
		app.Stop()
	}()

	select {
	case <-doneCh:
		// Keeps the ballast reachable until the process is done with it
		if len(ballast) > 0 {
			ballast[0] = 1
		}
		return nil
	case <-time.After(grace):
		return errors.Errorf("failed to stop the application within %v", grace)
	}
}

// scheduleRestart returns a channel closed the first time spec fires. A nil
// channel is returned when spec is empty.
func scheduleRestart(spec string) (<-chan struct{}, error) {
	if spec == "" {
		return nil, nil
	}

	restartCh := make(chan struct{})
	var once sync.Once
	c := cron.New(cron.WithLocation(time.Local))
	_, err := c.AddFunc(spec, func() {
		once.Do(func() { close(restartCh) })
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid restart schedule")
	}
	c.Start()

	return restartCh, nil
}

func newMetricsProvider(config BaseConfig) (*newrelic.Application, error) {
	if config.NewRelicLicenseKey == "" {
		return nil, nil
	}

	nr, err := newrelic.NewApplication(
		newrelic.ConfigFromEnvironment(),
		newrelic.ConfigAppName(config.AppName),
		newrelic.ConfigLicense(config.NewRelicLicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to new relic")
	}
	return nr, nil
}

func configureLogger(config BaseConfig, metricsProvider *newrelic.Application) {
	var formatter logrus.Formatter = &logrus.JSONFormatter{}
	if metricsProvider != nil {
		formatter = metrics_util.NewCustomNewRelicLogFormatter(metricsProvider, formatter)
	}
	logrus.SetFormatter(formatter)
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
		return
	}
	logrus.SetLevel(level)
}
