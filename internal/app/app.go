// Package app wires configuration, logging, storage, the detection-API
// client, the Telegram transport, and the poll loop into one process.
package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"frigatebot/internal/config"
	"frigatebot/internal/frigate"
	"frigatebot/internal/media"
	"frigatebot/internal/monitor"
	"frigatebot/internal/notify"
	"frigatebot/internal/poll"
	rtsup "frigatebot/internal/runtime/supervisor"
	"frigatebot/internal/state"
	"frigatebot/internal/transport/telegram"
	"frigatebot/pkg/logx"
)

type App struct {
	cfg    *config.Config
	logSvc *logx.Service
	log    logx.Logger

	store   state.Store
	client  *frigate.Client
	adapter *telegram.Adapter
	router  *telegram.Router
	loop    *poll.Loop

	sup *rtsup.Supervisor
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})

	store, err := state.Open(state.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: config.ParseDuration(cfg.Storage.BusyTimeout, 0),
	}, log.With(logx.String("comp", "state")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open state store: %w", err)
	}

	client, err := frigate.New(frigate.Config{
		BaseURL:  cfg.Frigate.BaseURL,
		Username: cfg.Frigate.Username,
		Password: cfg.Frigate.Password,
		Timeout:  config.ParseDuration(cfg.Frigate.Timeout, 15*time.Second),
	}, log.With(logx.String("comp", "frigate")))
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}

	adapter, err := telegram.New(telegram.Config{
		Token:         cfg.Telegram.Token,
		ChatID:        cfg.Telegram.ChatID,
		PollTimeout:   config.ParseDuration(cfg.Telegram.PollTimeout, 10*time.Second),
		UploadTimeout: config.ParseDuration(cfg.Telegram.UploadTimeout, 60*time.Second),
		RatePerSec:    cfg.Telegram.RatePerSec,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}

	fetcher := media.NewFetcher(client, log.With(logx.String("comp", "media")),
		cfg.Media.Retries, config.ParseDuration(cfg.Media.RetryDelay, 2*time.Second))
	chain := media.NewChain(fetcher, client, log.With(logx.String("comp", "media")))

	mon := monitor.ParseSpec(cfg.Monitor)
	monitored := mon.Cameras()
	sort.Strings(monitored)

	dispatcher := notify.NewDispatcher(notify.Options{
		SettleDelay: config.ParseDuration(cfg.Notify.SettleDelay, 5*time.Second),
		HDClip:      cfg.Notify.HDClip,
		Caption: notify.CaptionOptions{
			Timezone:    cfg.Notify.Timezone,
			ExternalURL: cfg.Frigate.ExternalURL,
		},
	}, client, fetcher, adapter, adapter.Home(), log.With(logx.String("comp", "notify")))

	pollInterval := config.ParseDuration(cfg.Poll.Interval, 60*time.Second)
	loop := poll.New(poll.Config{
		Interval:    pollInterval,
		BackoffStep: config.ParseDuration(cfg.Poll.BackoffStep, 60*time.Second),
		BackoffMax:  config.ParseDuration(cfg.Poll.BackoffMax, 300*time.Second),
	}, client, mon, dispatcher, store, log.With(logx.String("comp", "poll")))

	router := telegram.NewRouter(adapter, store, client, fetcher, chain, telegram.StatusInfo{
		BaseURL:      cfg.Frigate.BaseURL,
		PollInterval: pollInterval,
		Cameras:      monitored,
		HDClip:       cfg.Notify.HDClip,
		Timezone:     cfg.Notify.Timezone,
	}, log.With(logx.String("comp", "commands")))

	return &App{
		cfg:     cfg,
		logSvc:  logSvc,
		log:     log,
		store:   store,
		client:  client,
		adapter: adapter,
		router:  router,
		loop:    loop,
	}, nil
}

func (a *App) Logger() logx.Logger { return a.log }

// Start probes the detection API, then launches the Telegram poller and the
// event poll loop. It fails fast when the API is unreachable at boot.
func (a *App) Start(ctx context.Context) error {
	version, err := a.client.Version(ctx)
	if err != nil {
		return fmt.Errorf("detection API not reachable at %s: %w", a.cfg.Frigate.BaseURL, err)
	}
	a.log.Info("detection API is up", logx.String("version", version))
	a.logStartup()

	a.sup = rtsup.New(ctx, a.log)
	a.router.Register(a.sup.Context())
	a.adapter.Start(a.sup.Context())
	a.sup.Go("poll.loop", a.loop.Run)

	a.log.Info("bot is active, listening for commands")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup != nil {
		a.sup.Cancel()
	}
	_ = a.adapter.Stop(ctx)
	if a.sup != nil {
		_ = a.sup.Wait(ctx)
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("state store close failed", logx.Err(err))
	}
	a.log.Info("shutdown complete")
	return a.logSvc.Close()
}

func (a *App) logStartup() {
	mon := "all cameras/zones"
	if a.cfg.Monitor != "" {
		mon = a.cfg.Monitor
	}
	a.log.Info("starting",
		logx.String("api_url", a.cfg.Frigate.BaseURL),
		logx.String("external_url", orNone(a.cfg.Frigate.ExternalURL)),
		logx.String("monitor", mon),
		logx.String("poll_interval", a.cfg.Poll.Interval),
		logx.Bool("hd_clip", a.cfg.Notify.HDClip),
		logx.String("timezone", a.cfg.Notify.Timezone),
		logx.String("state_driver", a.cfg.Storage.Driver),
	)
}

func orNone(s string) string {
	if s == "" {
		return "not configured"
	}
	return s
}
