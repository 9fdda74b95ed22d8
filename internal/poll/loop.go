// Package poll drives the event pipeline: wake, check the enabled flag, list
// new events, filter, dispatch sequentially, sleep. Network outages grow the
// sleep interval and freeze the cursor so no event window is lost.
package poll

import (
	"context"
	"errors"
	"sort"
	"time"

	"frigatebot/internal/frigate"
	"frigatebot/internal/monitor"
	"frigatebot/pkg/logx"
)

type EventSource interface {
	ListEvents(ctx context.Context, sinceEpoch float64, cameras []string) ([]frigate.Event, error)
}

type Dispatcher interface {
	Notify(ctx context.Context, ev frigate.Event)
}

// FlagStore is the read side of the persisted enabled/disabled flag.
type FlagStore interface {
	Enabled(ctx context.Context) (bool, error)
}

type Config struct {
	Interval    time.Duration
	BackoffStep time.Duration
	BackoffMax  time.Duration
}

type Loop struct {
	source   EventSource
	filter   monitor.Config
	dispatch Dispatcher
	flags    FlagStore
	log      logx.Logger

	backoff *backoff
	cameras []string
	now     func() time.Time

	// cursor is the epoch of the last successful poll. It advances only on
	// success; during backoff it stays frozen so the next good poll re-covers
	// the missed window.
	cursor float64
	online bool
}

func New(cfg Config, source EventSource, filter monitor.Config, dispatch Dispatcher, flags FlagStore, log logx.Logger) *Loop {
	if log.IsZero() {
		log = logx.Nop()
	}
	cameras := filter.Cameras()
	sort.Strings(cameras)
	return &Loop{
		source:   source,
		filter:   filter,
		dispatch: dispatch,
		flags:    flags,
		log:      log,
		backoff:  newBackoff(cfg.Interval, cfg.BackoffStep, cfg.BackoffMax),
		cameras:  cameras,
		now:      time.Now,
		online:   true,
	}
}

// Run polls until ctx is cancelled. It has no terminal state reachable from
// normal operation.
func (l *Loop) Run(ctx context.Context) {
	l.cursor = epoch(l.now())

	cams := "all"
	if len(l.cameras) > 0 {
		cams = ""
		for i, c := range l.cameras {
			if i > 0 {
				cams += ", "
			}
			cams += c
		}
	}
	l.log.Info("polling started",
		logx.Duration("interval", l.backoff.Current()), logx.String("cameras", cams))

	for {
		l.cycle(ctx)
		if !sleepCtx(ctx, l.backoff.Current()) {
			l.log.Info("polling stopped")
			return
		}
	}
}

// cycle is one wake of the loop. It never panics out: a single bad cycle
// must not crash the loop or corrupt the cursor.
func (l *Loop) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("poll cycle panic", logx.Any("panic", r))
		}
	}()

	enabled, err := l.flags.Enabled(ctx)
	if err != nil {
		l.log.Warn("enabled flag read failed, assuming enabled", logx.Err(err))
		enabled = true
	}
	if !enabled {
		l.log.Debug("notifications disabled, skipping poll")
		l.backoff.Reset()
		return
	}

	events, err := l.source.ListEvents(ctx, l.cursor, l.cameras)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			// Shutdown, not an outage.
		case errors.Is(err, frigate.ErrUnavailable):
			if l.online {
				l.log.Error("detection API connection lost, entering backoff", logx.Err(err))
				l.online = false
			}
			next := l.backoff.Grow()
			l.log.Debug("detection API unreachable", logx.Duration("retry_in", next))
		default:
			// Not a connectivity problem: keep state and interval unchanged.
			l.log.Error("unexpected poll failure", logx.Err(err))
		}
		return
	}

	if !l.online {
		l.log.Info("detection API back online, resuming normal polling")
		l.online = true
	}
	l.backoff.Reset()
	l.cursor = epoch(l.now())

	matched := events[:0:0]
	for _, ev := range events {
		if l.filter.Matches(ev.Camera, ev.Zones) {
			matched = append(matched, ev)
		}
	}
	if len(matched) == 0 {
		l.log.Debug("no new matching events")
		return
	}

	// Sequential on purpose: one failed notification must not interleave
	// with another, and the chat transport has per-chat rate limits.
	l.log.Info("processing events", logx.Int("count", len(matched)))
	for _, ev := range matched {
		if ctx.Err() != nil {
			return
		}
		l.notifyOne(ctx, ev)
	}
	l.log.Debug("all events processed")
}

func (l *Loop) notifyOne(ctx context.Context, ev frigate.Event) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("event dispatch panic", logx.String("event", ev.ID), logx.Any("panic", r))
		}
	}()
	l.dispatch.Notify(ctx, ev)
}

func epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
