package telegram

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	rtsup "frigatebot/internal/runtime/supervisor"
	"frigatebot/internal/transport"
	"frigatebot/pkg/logx"
)

type Config struct {
	Token  string
	ChatID int64

	// PollTimeout is the long-poll timeout for incoming updates.
	PollTimeout time.Duration
	// UploadTimeout bounds outgoing HTTP calls, media uploads included.
	UploadTimeout time.Duration
	// RatePerSec caps outbound sends so notification bursts respect
	// Telegram's per-chat limits.
	RatePerSec int
}

// Adapter is the Telegram implementation of transport.Sender plus the
// incoming command poller. One adapter serves one authorized chat.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot

	limiter *rate.Limiter

	runMu   sync.Mutex
	running bool
	// sup owns the poll loop and the stop watcher; created on Start(),
	// cancelled on Stop().
	sup *rtsup.Supervisor
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}
	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = 60 * time.Second
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}

	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
		// The poller client must outlive a single long poll; uploads are the
		// slowest calls this client makes.
		Client: &http.Client{Timeout: uploadTimeout + pollTimeout},
	})
	if err != nil {
		return nil, err
	}

	return &Adapter{
		cfg:     cfg,
		log:     log,
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// Home is the single authorized chat all notifications go to.
func (a *Adapter) Home() transport.ChatTarget {
	return transport.ChatTarget{ChatID: a.cfg.ChatID}
}

// Bot exposes the underlying bot for command registration.
func (a *Adapter) Bot() *tele.Bot { return a.bot }

// Start launches the long-poll loop in the background. Command handlers must
// be registered before calling Start.
func (a *Adapter) Start(ctx context.Context) {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.running {
		return
	}
	a.running = true

	a.sup = rtsup.New(ctx, a.log.With(logx.String("comp", "telegram")))
	a.sup.Go("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		a.bot.Stop()
	})
	a.sup.Go("telebot.poll", func(c context.Context) {
		a.log.Info("polling started")
		a.bot.Start() // blocks until Stop()
		a.log.Info("polling stopped")
	})
}

// Stop shuts the poller down, bounded by ctx. Never blocks shutdown for long
// on a pending long poll.
func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	sup.Cancel()

	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	wctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	return sup.Wait(wctx)
}

// ---- transport.Sender ----

var htmlOpts = &tele.SendOptions{ParseMode: tele.ModeHTML, DisableWebPagePreview: true}

func (a *Adapter) SendText(ctx context.Context, to transport.ChatTarget, text string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := a.bot.Send(tele.ChatID(to.ChatID), text, htmlOpts)
	return err
}

func (a *Adapter) SendPhoto(ctx context.Context, to transport.ChatTarget, photo transport.Media, caption string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	p := &tele.Photo{
		File:    fileFrom(photo),
		Caption: caption,
	}
	_, err := a.bot.Send(tele.ChatID(to.ChatID), p, htmlOpts)
	return err
}

func (a *Adapter) SendAnimation(ctx context.Context, to transport.ChatTarget, anim transport.Media, poster *transport.Media, caption string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	g := &tele.Animation{
		File:      fileFrom(anim),
		FileName:  anim.Filename,
		MIME:      anim.ContentType,
		Caption:   caption,
		Thumbnail: thumbFrom(poster),
	}
	_, err := a.bot.Send(tele.ChatID(to.ChatID), g, htmlOpts)
	return err
}

func (a *Adapter) SendVideo(ctx context.Context, to transport.ChatTarget, video transport.Media, poster *transport.Media, caption string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	v := &tele.Video{
		File:      fileFrom(video),
		FileName:  video.Filename,
		MIME:      video.ContentType,
		Caption:   caption,
		Streaming: true,
		Thumbnail: thumbFrom(poster),
	}
	_, err := a.bot.Send(tele.ChatID(to.ChatID), v, htmlOpts)
	return err
}

func fileFrom(m transport.Media) tele.File {
	return tele.FromReader(bytes.NewReader(m.Data))
}

func thumbFrom(poster *transport.Media) *tele.Photo {
	if poster == nil || len(poster.Data) == 0 {
		return nil
	}
	return &tele.Photo{File: fileFrom(*poster)}
}
