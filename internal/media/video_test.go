package media

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"frigatebot/internal/frigate"
	"frigatebot/pkg/logx"
)

// fakeClipFetcher serves canned payloads by exact path.
type fakeClipFetcher struct {
	responses map[string][]byte
	calls     []string
}

func (f *fakeClipFetcher) Fetch(ctx context.Context, path, label, contentType string) []byte {
	f.calls = append(f.calls, path)
	return f.responses[path]
}

type fakeDetailer struct {
	event *frigate.Event
	err   error
}

func (f *fakeDetailer) EventDetail(ctx context.Context, id string) (*frigate.Event, error) {
	return f.event, f.err
}

func fixedNow() time.Time {
	return time.Unix(1_700_000_100, 0)
}

func newTestChain(fetch ClipFetcher, events EventDetailer) *Chain {
	c := NewChain(fetch, events, logx.Nop())
	c.clipPollDelay = time.Millisecond
	c.now = fixedNow
	return c
}

func TestVideoEventClipWins(t *testing.T) {
	t.Parallel()
	fetch := &fakeClipFetcher{responses: map[string][]byte{
		"events/ev1/clip.mp4": []byte("rendered"),
	}}
	c := newTestChain(fetch, &fakeDetailer{})

	got := c.Video(context.Background(), "porch", "ev1", 15*time.Second)
	if string(got) != "rendered" {
		t.Fatalf("Video = %q, want rendered clip", got)
	}
	if len(fetch.calls) != 1 || fetch.calls[0] != "events/ev1/clip.mp4" {
		t.Fatalf("unexpected fetch calls: %v", fetch.calls)
	}
}

func TestPreciseRangeEndedEvent(t *testing.T) {
	t.Parallel()
	end := 1_700_000_020.5
	detailer := &fakeDetailer{event: &frigate.Event{
		ID:        "ev1",
		Camera:    "porch",
		StartTime: 1_700_000_000,
		EndTime:   &end,
	}}
	precisePath := fmt.Sprintf("porch/start/%d/end/%d/clip.mp4", 1_700_000_000, 1_700_000_020)
	fetch := &fakeClipFetcher{responses: map[string][]byte{precisePath: []byte("ranged")}}
	c := newTestChain(fetch, detailer)

	got := c.preciseRange(context.Background(), "porch", "ev1", 15*time.Second)
	if string(got) != "ranged" {
		t.Fatalf("preciseRange = %q, want ranged clip", got)
	}
}

func TestPreciseRangeOngoingEvent(t *testing.T) {
	t.Parallel()
	detailer := &fakeDetailer{event: &frigate.Event{
		ID:        "ev1",
		Camera:    "porch",
		StartTime: 1_700_000_000,
	}}
	fetch := &fakeClipFetcher{responses: map[string][]byte{}}
	c := newTestChain(fetch, detailer)

	c.preciseRange(context.Background(), "porch", "ev1", 15*time.Second)
	want := fmt.Sprintf("porch/start/%d/end/%d/clip.mp4", 1_700_000_000, 1_700_000_015)
	if len(fetch.calls) != 1 || fetch.calls[0] != want {
		t.Fatalf("fetch calls = %v, want [%s]", fetch.calls, want)
	}
}

func TestPreciseRangeWithoutDetail(t *testing.T) {
	t.Parallel()
	fetch := &fakeClipFetcher{}
	c := newTestChain(fetch, &fakeDetailer{err: errors.New("gone")})

	if got := c.preciseRange(context.Background(), "porch", "ev1", 15*time.Second); got != nil {
		t.Fatal("expected nil when event detail is unavailable")
	}
	if len(fetch.calls) != 0 {
		t.Fatalf("no fetch expected, got %v", fetch.calls)
	}
}

func TestRoughRangeWindow(t *testing.T) {
	t.Parallel()
	fetch := &fakeClipFetcher{}
	c := newTestChain(fetch, &fakeDetailer{})

	c.roughRange(context.Background(), "porch", 15*time.Second)

	now := fixedNow()
	want := fmt.Sprintf("porch/start/%d/end/%d/clip.mp4",
		now.Add(-20*time.Second).Unix(), now.Add(-5*time.Second).Unix())
	if len(fetch.calls) != 1 || fetch.calls[0] != want {
		t.Fatalf("fetch calls = %v, want [%s]", fetch.calls, want)
	}
}

func TestVideoFallsThroughAllStrategies(t *testing.T) {
	t.Parallel()
	detailer := &fakeDetailer{event: &frigate.Event{
		ID:        "ev1",
		Camera:    "porch",
		StartTime: 1_699_999_000,
	}}
	now := fixedNow()
	roughPath := fmt.Sprintf("porch/start/%d/end/%d/clip.mp4",
		now.Add(-20*time.Second).Unix(), now.Add(-5*time.Second).Unix())
	fetch := &fakeClipFetcher{responses: map[string][]byte{roughPath: []byte("rough")}}
	c := newTestChain(fetch, detailer)

	got := c.Video(context.Background(), "porch", "ev1", 15*time.Second)
	if string(got) != "rough" {
		t.Fatalf("Video = %q, want the rough-range clip", got)
	}

	// Five clip polls, then the precise range, then the rough range.
	want := []string{
		"events/ev1/clip.mp4",
		"events/ev1/clip.mp4",
		"events/ev1/clip.mp4",
		"events/ev1/clip.mp4",
		"events/ev1/clip.mp4",
		fmt.Sprintf("porch/start/%d/end/%d/clip.mp4", 1_699_999_000, 1_699_999_015),
		roughPath,
	}
	if len(fetch.calls) != len(want) {
		t.Fatalf("fetch calls = %v, want %v", fetch.calls, want)
	}
	for i := range want {
		if fetch.calls[i] != want[i] {
			t.Fatalf("fetch call #%d = %s, want %s", i+1, fetch.calls[i], want[i])
		}
	}
}

func TestVideoWithoutEventUsesRoughRangeOnly(t *testing.T) {
	t.Parallel()
	fetch := &fakeClipFetcher{}
	c := newTestChain(fetch, &fakeDetailer{})

	c.Video(context.Background(), "porch", "", 15*time.Second)
	if len(fetch.calls) != 1 {
		t.Fatalf("expected exactly one rough-range fetch, got %v", fetch.calls)
	}
	now := fixedNow()
	want := fmt.Sprintf("porch/start/%d/end/%d/clip.mp4",
		now.Add(-20*time.Second).Unix(), now.Add(-5*time.Second).Unix())
	if fetch.calls[0] != want {
		t.Fatalf("fetch path = %s, want %s", fetch.calls[0], want)
	}
}

func TestRecordingRangeRejectsInvertedWindow(t *testing.T) {
	t.Parallel()
	fetch := &fakeClipFetcher{}
	c := newTestChain(fetch, &fakeDetailer{})

	if got := c.recordingRange(context.Background(), "porch", 100, 100); got != nil {
		t.Fatal("expected nil for empty window")
	}
	if len(fetch.calls) != 0 {
		t.Fatalf("no fetch expected for empty window, got %v", fetch.calls)
	}
}
