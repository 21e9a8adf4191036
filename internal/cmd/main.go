package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ferux/devicewatch"
	"github.com/ferux/devicewatch/internal/api/fcchttp"
	"github.com/ferux/devicewatch/internal/config"
	"github.com/ferux/devicewatch/internal/model"
	"github.com/ferux/devicewatch/internal/monitor"
	"github.com/ferux/devicewatch/internal/probe"
	"github.com/ferux/devicewatch/internal/pubsub"
	"github.com/ferux/devicewatch/internal/registry"
	"github.com/ferux/devicewatch/internal/scheduler"
	"github.com/ferux/devicewatch/internal/storage"
	"github.com/ferux/devicewatch/internal/storage/jsonfile"
	"github.com/ferux/devicewatch/internal/storage/sqlite"
	"github.com/ferux/devicewatch/internal/telegram"
	"github.com/ferux/devicewatch/internal/telemetry"
)

const shutdownTimeout = time.Second * 15

func main() {
	path := flag.String("config", "./config.json", "path to config")
	showRevision := flag.Bool("revision", false, "show version of the application")

	flag.Parse()

	if *showRevision {
		fmt.Println(devicewatch.Revision)
		return
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg, err := config.Parse(*path)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn().Str("path", *path).Msg("config file not found, using defaults")

		cfg = config.Default()
	case err != nil:
		logger.
			Fatal().
			Err(err).
			Str("revision", devicewatch.Revision).
			Str("branch", devicewatch.Branch).
			Str("env", devicewatch.Env).
			Msg("parsing config file")
	}

	if cfg.Debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	logger.
		Debug().
		Interface("config", cfg).
		Str("rev", devicewatch.Revision).
		Str("branch", devicewatch.Branch).
		Msg("starting application")

	notifierClient, err := newSentryClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("can't create sentry client")
	}

	store, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("can't open storage")
	}
	defer closeStore()

	prober, err := probe.New(cfg.Probe.Kind, cfg.Probe.Command)
	if err != nil {
		logger.Fatal().Err(err).Msg("can't create prober")
	}

	telemetry.InitMetrics()

	core := pubsub.New(logger)
	reg := registry.New(logger)
	sched := scheduler.New(reg, prober, core, logger,
		scheduler.WithProbeTimeout(cfg.Probe.Timeout.Or(probe.DefaultTimeout)),
		scheduler.WithStopGrace(cfg.Scheduler.StopGrace.Or(time.Millisecond*500)),
		scheduler.WithMaxTasks(cfg.Scheduler.MaxTasks),
		scheduler.WithSinkBuffer(cfg.Scheduler.SinkBuffer),
		scheduler.WithNotifier(notifierClient),
	)
	svc := monitor.New(reg, sched, store, logger)

	hub := fcchttp.NewHub(logger)
	core.Subscribe(hub.Broadcast)
	core.Subscribe(logObservation(logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	tgclient := telegram.New()
	if cfg.NotifyTelegram.Enabled() {
		notifier := telegram.NewNotifier(tgclient, cfg.NotifyTelegram.API, cfg.NotifyTelegram.ChatID, logger)
		core.Subscribe(notifier.Handle)
		g.Go(func() error { return notifier.Run(gctx) })
	}

	if err := svc.Bootstrap(ctx); err != nil {
		logger.Fatal().Err(err).Msg("can't restore devices")
	}

	appInfo := model.ApplicationInfo{
		Revision:    devicewatch.Revision,
		Branch:      devicewatch.Branch,
		Environment: devicewatch.Env,
	}

	api, err := fcchttp.NewHTTP(*cfg.HTTP, svc, hub, logger, notifierClient, appInfo)
	if err != nil {
		logger.Fatal().Err(err).Msg("can't create http server")
	}

	g.Go(api.Serve)
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if cfg.NotifyTelegram.Enabled() {
			errNotify := tgclient.SendMessageViaHTTP(shutdownCtx, cfg.NotifyTelegram.API, cfg.NotifyTelegram.ChatID, "shutting down")
			if errNotify != nil {
				logger.Error().Err(errNotify).Msg("error notifying via tg")
			}
		}

		errShut := api.Shutdown(shutdownCtx)
		if errShut != nil {
			logger.Error().Err(errShut).Msg("error shutting down server")
		}

		return errors.Join(errShut, svc.Shutdown(shutdownCtx))
	})

	if cfg.NotifyTelegram.Enabled() {
		go func() {
			notifyCtx, cancel := context.WithTimeout(ctx, time.Second*15)
			defer cancel()

			if err := sendNotificationMessage(notifyCtx, tgclient, cfg.NotifyTelegram.API, cfg.NotifyTelegram.ChatID); err != nil {
				logger.Error().Err(err).Msg("can't notify telegram")
			}
		}()
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("stopped with error")
	}

	if notifierClient != nil {
		notifierClient.Flush(time.Second * 2)
	}

	logger.Info().Msg("bye")
}

func newSentryClient(cfg config.Application) (*sentry.Client, error) {
	if len(cfg.SentryDSN) == 0 {
		return nil, nil
	}

	return sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Release:     devicewatch.Revision,
		Environment: devicewatch.Env,
		ServerName:  cfg.ServerName,
	})
}

func openStore(cfg config.Storage) (storage.Store, func(), error) {
	switch cfg.Kind {
	case "", config.StorageJSON:
		return jsonfile.New(cfg.Path), func() {}, nil
	case config.StorageSQLite:
		store, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}

		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
}

func logObservation(logger zerolog.Logger) pubsub.Handler {
	logger = logger.With().Str("pkg", "observations").Logger()

	return func(o model.Observation) {
		ev := logger.Debug()
		if o.Changed() {
			ev = logger.Info()
		}

		ev.
			Str("device_id", string(o.DeviceID)).
			Str("name", o.Name).
			Str("address", o.Address).
			Stringer("status", o.Status).
			Stringer("previous", o.Previous).
			Dur("elapsed", o.Elapsed).
			Msg("device polled")
	}
}

func sendNotificationMessage(ctx context.Context, tgclient telegram.Client, api, chatID string) error {
	var b = devicewatch.Branch
	var e = devicewatch.Env
	var r = devicewatch.Revision
	message := fmt.Sprintf("devicewatch branch=%s env=%s revision=%s", b, e, r)
	return tgclient.SendMessageViaHTTP(ctx, api, chatID, message)
}
