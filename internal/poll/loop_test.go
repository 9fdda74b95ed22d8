package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"frigatebot/internal/frigate"
	"frigatebot/internal/monitor"
	"frigatebot/pkg/logx"
)

func TestBackoffGrowAndSaturate(t *testing.T) {
	t.Parallel()
	b := newBackoff(60*time.Second, 60*time.Second, 300*time.Second)

	if b.Current() != 60*time.Second {
		t.Fatalf("initial = %v, want 60s", b.Current())
	}
	want := []time.Duration{120 * time.Second, 180 * time.Second, 240 * time.Second, 300 * time.Second, 300 * time.Second}
	for i, w := range want {
		if got := b.Grow(); got != w {
			t.Fatalf("Grow #%d = %v, want %v", i+1, got, w)
		}
	}
	b.Reset()
	if b.Current() != 60*time.Second {
		t.Fatalf("after Reset = %v, want 60s", b.Current())
	}
}

func TestBackoffDefaults(t *testing.T) {
	t.Parallel()
	b := newBackoff(0, 0, 0)
	if b.Current() != 60*time.Second {
		t.Fatalf("default base = %v, want 60s", b.Current())
	}
	for i := 0; i < 10; i++ {
		b.Grow()
	}
	if b.Current() != 300*time.Second {
		t.Fatalf("default cap = %v, want 300s", b.Current())
	}
}

func TestBackoffNeverShrinksBelowBase(t *testing.T) {
	t.Parallel()
	// Base above the default cap with no explicit max: the cap clamps up to
	// the base, so a failure leaves the interval at base instead of cutting it.
	b := newBackoff(400*time.Second, 60*time.Second, 0)
	if b.Current() != 400*time.Second {
		t.Fatalf("initial = %v, want 400s", b.Current())
	}
	if got := b.Grow(); got != 400*time.Second {
		t.Fatalf("Grow = %v, want saturation at the 400s base", got)
	}
}

type scriptedSource struct {
	batches [][]frigate.Event
	errs    []error
	calls   int
	since   []float64
}

func (s *scriptedSource) ListEvents(ctx context.Context, sinceEpoch float64, cameras []string) ([]frigate.Event, error) {
	i := s.calls
	s.calls++
	s.since = append(s.since, sinceEpoch)
	var batch []frigate.Event
	if i < len(s.batches) {
		batch = s.batches[i]
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return batch, err
}

type recordingDispatcher struct {
	events []frigate.Event
}

func (r *recordingDispatcher) Notify(ctx context.Context, ev frigate.Event) {
	r.events = append(r.events, ev)
}

type staticFlags struct {
	enabled bool
	err     error
}

func (s staticFlags) Enabled(ctx context.Context) (bool, error) { return s.enabled, s.err }

func newTestLoop(src EventSource, filter monitor.Config, disp Dispatcher, flags FlagStore) *Loop {
	l := New(Config{Interval: time.Minute, BackoffStep: time.Minute, BackoffMax: 5 * time.Minute},
		src, filter, disp, flags, logx.Nop())
	return l
}

func TestCycleDispatchesMatchingEvents(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{batches: [][]frigate.Event{{
		{ID: "a", Camera: "porch", Zones: []string{"drive"}},
		{ID: "b", Camera: "porch", Zones: []string{"street"}},
		{ID: "c", Camera: "garage", Zones: nil},
	}}}
	disp := &recordingDispatcher{}
	l := newTestLoop(src, monitor.ParseSpec("porch:drive;garage:all"), disp, staticFlags{enabled: true})
	l.cursor = 100

	l.cycle(context.Background())

	if len(disp.events) != 2 || disp.events[0].ID != "a" || disp.events[1].ID != "c" {
		t.Fatalf("dispatched %+v, want events a and c in order", disp.events)
	}
}

func TestCycleAdvancesCursorOnSuccess(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{}
	l := newTestLoop(src, monitor.Config{}, &recordingDispatcher{}, staticFlags{enabled: true})
	l.cursor = 100
	l.now = func() time.Time { return time.Unix(5000, 0) }

	l.cycle(context.Background())

	if src.since[0] != 100 {
		t.Fatalf("queried since %v, want the prior cursor 100", src.since[0])
	}
	if l.cursor != 5000 {
		t.Fatalf("cursor = %v, want advanced to 5000", l.cursor)
	}
	if l.backoff.Current() != time.Minute {
		t.Fatalf("interval = %v, want base after success", l.backoff.Current())
	}
}

func TestCycleFreezesCursorDuringOutage(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{errs: []error{frigate.ErrUnavailable, frigate.ErrUnavailable}}
	l := newTestLoop(src, monitor.Config{}, &recordingDispatcher{}, staticFlags{enabled: true})
	l.cursor = 100
	l.now = func() time.Time { return time.Unix(5000, 0) }

	l.cycle(context.Background())
	l.cycle(context.Background())

	if l.cursor != 100 {
		t.Fatalf("cursor = %v, must stay frozen at 100 during an outage", l.cursor)
	}
	if l.backoff.Current() != 3*time.Minute {
		t.Fatalf("interval = %v, want 3m after two consecutive failures", l.backoff.Current())
	}
	if l.online {
		t.Fatal("loop should be marked offline")
	}
}

func TestCycleRecoversFromOutage(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{errs: []error{frigate.ErrUnavailable, nil}}
	l := newTestLoop(src, monitor.Config{}, &recordingDispatcher{}, staticFlags{enabled: true})
	l.cursor = 100
	l.now = func() time.Time { return time.Unix(5000, 0) }

	l.cycle(context.Background())
	l.cycle(context.Background())

	// The recovery poll still queried from the frozen cursor, then advanced.
	if src.since[1] != 100 {
		t.Fatalf("recovery poll since %v, want frozen cursor 100", src.since[1])
	}
	if l.cursor != 5000 {
		t.Fatalf("cursor = %v, want advanced after recovery", l.cursor)
	}
	if l.backoff.Current() != time.Minute {
		t.Fatalf("interval = %v, want reset to base after recovery", l.backoff.Current())
	}
	if !l.online {
		t.Fatal("loop should be marked online again")
	}
}

func TestCycleSkipsWhenDisabled(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{}
	l := newTestLoop(src, monitor.Config{}, &recordingDispatcher{}, staticFlags{enabled: false})
	l.backoff.Grow()

	l.cycle(context.Background())

	if src.calls != 0 {
		t.Fatalf("ListEvents called %d times while disabled, want 0", src.calls)
	}
	if l.backoff.Current() != time.Minute {
		t.Fatalf("interval = %v, want reset while disabled", l.backoff.Current())
	}
}

func TestCycleFlagErrorAssumesEnabled(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{}
	l := newTestLoop(src, monitor.Config{}, &recordingDispatcher{}, staticFlags{err: errors.New("disk gone")})

	l.cycle(context.Background())

	if src.calls != 1 {
		t.Fatalf("ListEvents called %d times, want 1 (flag errors fail open)", src.calls)
	}
}

func TestCycleNonNetworkErrorKeepsInterval(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{errs: []error{errors.New("bad json")}}
	l := newTestLoop(src, monitor.Config{}, &recordingDispatcher{}, staticFlags{enabled: true})
	l.cursor = 100

	l.cycle(context.Background())

	if l.backoff.Current() != time.Minute {
		t.Fatalf("interval = %v, non-network errors must not grow backoff", l.backoff.Current())
	}
	if l.cursor != 100 {
		t.Fatalf("cursor = %v, want unchanged on failure", l.cursor)
	}
	if !l.online {
		t.Fatal("non-network errors must not mark the loop offline")
	}
}

func TestCycleSurvivesDispatchPanic(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{batches: [][]frigate.Event{{{ID: "a", Camera: "porch"}, {ID: "b", Camera: "porch"}}}}
	disp := &panickyDispatcher{}
	l := newTestLoop(src, monitor.Config{}, disp, staticFlags{enabled: true})

	l.cycle(context.Background())

	if disp.calls != 2 {
		t.Fatalf("dispatch called %d times, want 2 (panic must not stop the batch)", disp.calls)
	}
}

type panickyDispatcher struct {
	calls int
}

func (p *panickyDispatcher) Notify(ctx context.Context, ev frigate.Event) {
	p.calls++
	panic("boom")
}
