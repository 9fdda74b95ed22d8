package media

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"frigatebot/internal/frigate"
	"frigatebot/pkg/logx"
)

// Default knobs for the pre-rendered event clip: rendering a just-created
// event's clip lags the event itself, so the first strategy polls for a while.
const (
	defaultClipPollAttempts = 5
	defaultClipPollDelay    = 2 * time.Second
)

// roughWindowLag keeps the rough recording window clear of the segment the
// recorder is still writing.
const roughWindowLag = 5 * time.Second

// ClipFetcher is what the chain needs from the media fetcher.
type ClipFetcher interface {
	Fetch(ctx context.Context, path, label, expectedContentType string) []byte
}

// EventDetailer re-fetches a single event to learn its actual time range.
type EventDetailer interface {
	EventDetail(ctx context.Context, id string) (*frigate.Event, error)
}

// Chain acquires a video clip through increasingly approximate strategies:
// pre-rendered event clip, precise time-range recording, rough time-range
// recording. First success wins; each strategy delegates HTTP-level retry to
// the fetcher and adds nothing beyond its own documented polling.
type Chain struct {
	fetch  ClipFetcher
	events EventDetailer
	log    logx.Logger

	clipPollAttempts int
	clipPollDelay    time.Duration
	now              func() time.Time
}

func NewChain(fetch ClipFetcher, events EventDetailer, log logx.Logger) *Chain {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Chain{
		fetch:            fetch,
		events:           events,
		log:              log,
		clipPollAttempts: defaultClipPollAttempts,
		clipPollDelay:    defaultClipPollDelay,
		now:              time.Now,
	}
}

// Video returns clip bytes or nil once every applicable strategy is exhausted.
// eventID may be empty (on-demand camera clips with no event context), in
// which case only the rough-range strategy applies.
func (c *Chain) Video(ctx context.Context, camera, eventID string, target time.Duration) []byte {
	type strategy struct {
		name string
		run  func(context.Context) []byte
	}

	var strategies []strategy
	if eventID != "" {
		strategies = append(strategies,
			strategy{"event clip", func(ctx context.Context) []byte {
				return c.eventClip(ctx, eventID)
			}},
			strategy{"precise recording range", func(ctx context.Context) []byte {
				return c.preciseRange(ctx, camera, eventID, target)
			}},
		)
	}
	strategies = append(strategies, strategy{"rough recording range", func(ctx context.Context) []byte {
		return c.roughRange(ctx, camera, target)
	}})

	for _, s := range strategies {
		if ctx.Err() != nil {
			return nil
		}
		if data := s.run(ctx); data != nil {
			c.log.Debug("video strategy succeeded",
				logx.String("strategy", s.name), logx.String("camera", camera), logx.Int("bytes", len(data)))
			return data
		}
		c.log.Debug("video strategy exhausted",
			logx.String("strategy", s.name), logx.String("camera", camera))
	}
	return nil
}

func (c *Chain) eventClip(ctx context.Context, eventID string) []byte {
	path := "events/" + url.PathEscape(eventID) + "/clip.mp4"
	label := "clip.mp4 for " + eventID
	for i := 1; i <= c.clipPollAttempts; i++ {
		if data := c.fetch.Fetch(ctx, path, label, "video/mp4"); data != nil {
			return data
		}
		if i < c.clipPollAttempts && !sleepCtx(ctx, c.clipPollDelay) {
			return nil
		}
	}
	return nil
}

func (c *Chain) preciseRange(ctx context.Context, camera, eventID string, target time.Duration) []byte {
	ev, err := c.events.EventDetail(ctx, eventID)
	if err != nil || ev == nil {
		c.log.Debug("event detail unavailable for precise range",
			logx.String("event", eventID), logx.Err(err))
		return nil
	}

	start := int64(ev.StartTime)
	end := start + int64(target.Seconds())
	if ev.Ended() {
		end = int64(*ev.EndTime)
	}
	return c.recordingRange(ctx, camera, start, end)
}

func (c *Chain) roughRange(ctx context.Context, camera string, target time.Duration) []byte {
	now := c.now()
	end := now.Add(-roughWindowLag).Unix()
	start := now.Add(-roughWindowLag - target).Unix()
	return c.recordingRange(ctx, camera, start, end)
}

func (c *Chain) recordingRange(ctx context.Context, camera string, start, end int64) []byte {
	if end <= start {
		return nil
	}
	path := fmt.Sprintf("%s/start/%d/end/%d/clip.mp4", url.PathEscape(camera), start, end)
	label := fmt.Sprintf("clip.mp4 for %s (%d-%d)", camera, start, end)
	return c.fetch.Fetch(ctx, path, label, "video/mp4")
}
