// Package notify turns one detection event into exactly one Telegram message:
// the best representation media allows, degrading to text when nothing else
// materializes.
package notify

import (
	"context"
	"net/url"
	"sync"
	"time"

	"frigatebot/internal/frigate"
	"frigatebot/internal/transport"
	"frigatebot/pkg/logx"
)

// MediaSource is the retrying blob fetch (media.Fetcher).
type MediaSource interface {
	Fetch(ctx context.Context, path, label, expectedContentType string) []byte
}

// EventDetailer re-fetches event detail; recognition sub-labels resolve
// asynchronously, so the working copy is refreshed before rendering.
type EventDetailer interface {
	EventDetail(ctx context.Context, id string) (*frigate.Event, error)
}

type Options struct {
	// SettleDelay is how long to wait before touching media, giving the
	// detection API time to render previews.
	SettleDelay time.Duration
	// HDClip switches the primary representation to the rendered clip.mp4.
	HDClip  bool
	Caption CaptionOptions
}

// Dispatcher sends exactly one consolidated notification per event.
type Dispatcher struct {
	opts   Options
	events EventDetailer
	media  MediaSource
	sender transport.Sender
	to     transport.ChatTarget
	log    logx.Logger
}

func NewDispatcher(opts Options, events EventDetailer, media MediaSource, sender transport.Sender, to transport.ChatTarget, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{opts: opts, events: events, media: media, sender: sender, to: to, log: log}
}

// Notify runs the full per-event pipeline. Failures during the send are
// logged and swallowed so one bad event never blocks the ones behind it;
// a cancelled context aborts before anything partial goes out.
func (d *Dispatcher) Notify(ctx context.Context, ev frigate.Event) {
	log := d.log.With(logx.String("event", ev.ID), logx.String("camera", ev.Camera))

	// Let previews render before fetching anything.
	if d.opts.SettleDelay > 0 {
		log.Debug("waiting for media generation", logx.Duration("settle", d.opts.SettleDelay))
		if !sleepCtx(ctx, d.opts.SettleDelay) {
			return
		}
	}

	// Pick up a sub-label that resolved after the initial detection.
	if fresh, err := d.events.EventDetail(ctx, ev.ID); err == nil && fresh != nil {
		ev = *fresh
	}
	caption := BuildCaption(&ev, d.opts.Caption)

	// All media fetches run in parallel; none blocks the others.
	var (
		wg                     sync.WaitGroup
		gif, thumb, snap, clip []byte
	)
	eventPath := "events/" + url.PathEscape(ev.ID)
	fetch := func(dst *[]byte, path, label, contentType string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			*dst = d.media.Fetch(ctx, path, label, contentType)
		}()
	}
	fetch(&gif, eventPath+"/preview.gif", "preview.gif for "+ev.ID, "image/gif")
	fetch(&thumb, eventPath+"/thumbnail.jpg", "thumbnail.jpg for "+ev.ID, "image/jpeg")
	fetch(&snap, url.PathEscape(ev.Camera)+"/latest.jpg?bbox=1", "latest.jpg for "+ev.Camera, "image/jpeg")
	if d.opts.HDClip {
		fetch(&clip, eventPath+"/clip.mp4", "clip.mp4 for "+ev.ID, "video/mp4")
	}
	wg.Wait()

	if ctx.Err() != nil {
		return
	}

	// Snapshot is higher quality than the thumbnail.
	still := snap
	if still == nil {
		still = thumb
	}
	poster := posterFrom(still)

	// First match wins; exactly one message goes out.
	var (
		err  error
		kind string
	)
	switch {
	case d.opts.HDClip && clip != nil:
		kind = "hd video"
		err = d.sender.SendVideo(ctx, d.to,
			transport.Media{Data: clip, Filename: "clip.mp4", ContentType: "video/mp4"}, poster, caption)
	case gif != nil:
		kind = "animation"
		err = d.sender.SendAnimation(ctx, d.to,
			transport.Media{Data: gif, Filename: "preview.gif", ContentType: "image/gif"}, poster, caption)
	case still != nil:
		kind = "photo"
		err = d.sender.SendPhoto(ctx, d.to,
			transport.Media{Data: still, Filename: "snapshot.jpg", ContentType: "image/jpeg"}, caption)
	default:
		kind = "text"
		err = d.sender.SendText(ctx, d.to, caption)
	}
	if err != nil {
		log.Error("notification send failed", logx.String("kind", kind), logx.Err(err))
		return
	}
	log.Info("notification sent", logx.String("kind", kind))
}

func posterFrom(still []byte) *transport.Media {
	if still == nil {
		return nil
	}
	return &transport.Media{Data: still, Filename: "thumb.jpg", ContentType: "image/jpeg"}
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
