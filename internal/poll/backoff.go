package poll

import "time"

// backoff is the adaptive poll interval: base while healthy, grown linearly
// by step per consecutive network failure, saturating at max.
type backoff struct {
	base    time.Duration
	step    time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(base, step, max time.Duration) *backoff {
	if base <= 0 {
		base = 60 * time.Second
	}
	if step <= 0 {
		step = 60 * time.Second
	}
	if max <= 0 {
		max = 300 * time.Second
	}
	if max < base {
		max = base
	}
	return &backoff{base: base, step: step, max: max, current: base}
}

func (b *backoff) Current() time.Duration { return b.current }

func (b *backoff) Reset() { b.current = b.base }

// Grow steps the interval up and returns the new value.
func (b *backoff) Grow() time.Duration {
	next := b.current + b.step
	if next > b.max {
		next = b.max
	}
	b.current = next
	return next
}
