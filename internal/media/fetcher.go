// Package media acquires event media from the detection API: a bounded-retry
// blob fetcher and an ordered fallback chain for video clips.
package media

import (
	"context"
	"errors"
	"strings"
	"time"

	"frigatebot/internal/frigate"
	"frigatebot/pkg/logx"
)

// minPlausibleSize guards against truncated/placeholder responses: a 2xx
// payload below this is treated like media that has not been generated yet.
const minPlausibleSize = 100

// BlobSource is the single-shot fetch the Fetcher retries over.
// *frigate.Client satisfies it.
type BlobSource interface {
	Blob(ctx context.Context, path string) ([]byte, string, error)
}

// Fetcher fetches one API-relative media path with a fixed retry budget and
// a fixed inter-attempt delay. No jitter or growth: the usual failure mode is
// "not generated yet", not "overloaded", so retrying fast is the point.
type Fetcher struct {
	src      BlobSource
	log      logx.Logger
	attempts int
	delay    time.Duration
}

func NewFetcher(src BlobSource, log logx.Logger, attempts int, delay time.Duration) *Fetcher {
	if attempts <= 0 {
		attempts = 3
	}
	if delay <= 0 {
		delay = 2 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Fetcher{src: src, log: log, attempts: attempts, delay: delay}
}

// Fetch returns the payload bytes or nil; it never returns an error. label is
// a human-readable tag for logging (e.g. "preview.gif for <event>"). When
// expectedContentType is non-empty, a mismatching response is warned about
// but still accepted: the check detects problems, it does not block.
func (f *Fetcher) Fetch(ctx context.Context, path, label, expectedContentType string) []byte {
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if ctx.Err() != nil {
			return nil
		}

		data, contentType, err := f.src.Blob(ctx, path)
		if err != nil {
			if !f.logAttemptFailure(label, err, attempt) {
				return nil
			}
			if attempt < f.attempts && !sleepCtx(ctx, f.delay) {
				return nil
			}
			continue
		}

		if len(data) < minPlausibleSize {
			f.log.Warn("media response too small, retrying",
				logx.String("media", label), logx.Int("bytes", len(data)),
				logx.Int("attempt", attempt), logx.Int("max", f.attempts))
			if attempt < f.attempts && !sleepCtx(ctx, f.delay) {
				return nil
			}
			continue
		}

		if expectedContentType != "" &&
			!strings.Contains(strings.ToLower(contentType), strings.ToLower(expectedContentType)) {
			f.log.Warn("unexpected media content type",
				logx.String("media", label),
				logx.String("want", expectedContentType), logx.String("got", contentType))
		}

		f.log.Debug("fetched media", logx.String("media", label), logx.Int("bytes", len(data)))
		return data
	}
	return nil
}

// logAttemptFailure logs one failed attempt and reports whether the fetch is
// worth retrying (context cancellation is not).
func (f *Fetcher) logAttemptFailure(label string, err error, attempt int) bool {
	var status *frigate.StatusError
	switch {
	case errors.As(err, &status) && status.Code == 404:
		// Not generated yet. Keep quiet until the budget runs out.
		if attempt < f.attempts {
			f.log.Debug("media not ready (404)",
				logx.String("media", label), logx.Int("attempt", attempt), logx.Int("max", f.attempts))
		} else {
			f.log.Warn("media not found after all attempts",
				logx.String("media", label), logx.Int("attempts", f.attempts))
		}
	case errors.As(err, &status):
		f.log.Error("media fetch upstream error",
			logx.String("media", label), logx.Int("status", status.Code),
			logx.Int("attempt", attempt), logx.Int("max", f.attempts))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		f.log.Error("media fetch network error",
			logx.String("media", label), logx.Err(err),
			logx.Int("attempt", attempt), logx.Int("max", f.attempts))
	}
	return true
}

// sleepCtx sleeps for d or until ctx is done; reports false when cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
