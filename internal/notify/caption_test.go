package notify

import (
	"strings"
	"testing"

	"frigatebot/internal/frigate"
)

func fptr(v float64) *float64 { return &v }

func TestBuildCaptionFullEvent(t *testing.T) {
	t.Parallel()
	ev := &frigate.Event{
		ID:        "1700000000.5-abcd",
		Camera:    "porch",
		Label:     "person",
		Zones:     []string{"zone_a", "zone_b"},
		TopScore:  fptr(0.88),
		StartTime: 1_700_000_000,
		SubLabel:  frigate.SubLabel{Name: "X", Score: fptr(0.95)},
	}

	got := BuildCaption(ev, CaptionOptions{Timezone: "UTC"})

	for _, want := range []string{
		"🚨 <b>Detection Alert</b>",
		"📷 <b>Camera:</b> porch",
		"🏷️ <b>Label:</b> person (88%)",
		"📍 <b>Zone(s):</b> zone_a, zone_b",
		"👤 <b>Recognized:</b> X (95%)",
		"📅 <b>Time:</b> 2023-11-14 22:13:20 UTC",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("caption missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "🕑") {
		t.Fatalf("ongoing event must not carry an End line:\n%s", got)
	}
	if strings.Contains(got, "🔗") {
		t.Fatalf("no external URL configured, no link expected:\n%s", got)
	}
}

func TestBuildCaptionDefaults(t *testing.T) {
	t.Parallel()
	got := BuildCaption(&frigate.Event{StartTime: 1_700_000_000}, CaptionOptions{})

	for _, want := range []string{
		"📷 <b>Camera:</b> unknown",
		"🏷️ <b>Label:</b> object (N/A)",
		"📍 <b>Zone(s):</b> N/A",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("caption missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "👤") {
		t.Fatalf("no sub-label, no Recognized line expected:\n%s", got)
	}
}

func TestBuildCaptionZeroScoreTreatedAsMissing(t *testing.T) {
	t.Parallel()
	got := BuildCaption(&frigate.Event{Label: "car", TopScore: fptr(0)}, CaptionOptions{})
	if !strings.Contains(got, "car (N/A)") {
		t.Fatalf("zero score should render as N/A:\n%s", got)
	}
}

func TestBuildCaptionEndedEvent(t *testing.T) {
	t.Parallel()
	got := BuildCaption(&frigate.Event{
		Camera:    "porch",
		StartTime: 1_700_000_000,
		EndTime:   fptr(1_700_000_030),
	}, CaptionOptions{Timezone: "UTC"})

	if !strings.Contains(got, "🕑 <b>End:</b> 2023-11-14 22:13:50 UTC") {
		t.Fatalf("missing End line:\n%s", got)
	}
}

func TestBuildCaptionEscapesHTML(t *testing.T) {
	t.Parallel()
	got := BuildCaption(&frigate.Event{
		Camera:   "<porch>",
		Label:    "per&son",
		Zones:    []string{"a<b"},
		SubLabel: frigate.SubLabel{Name: "<X>"},
	}, CaptionOptions{})

	for _, raw := range []string{"<porch>", "per&son (", "a<b", "<X>"} {
		if strings.Contains(got, raw) {
			t.Fatalf("unescaped value %q leaked into caption:\n%s", raw, got)
		}
	}
	for _, esc := range []string{"&lt;porch&gt;", "per&amp;son", "a&lt;b", "&lt;X&gt;"} {
		if !strings.Contains(got, esc) {
			t.Fatalf("caption missing escaped value %q:\n%s", esc, got)
		}
	}
}

func TestBuildCaptionExternalLink(t *testing.T) {
	t.Parallel()
	got := BuildCaption(&frigate.Event{ID: "ev1"}, CaptionOptions{ExternalURL: "https://cams.example.com"})
	if !strings.Contains(got, `<a href="https://cams.example.com/events/ev1">View Event</a>`) {
		t.Fatalf("missing event link:\n%s", got)
	}
}

func TestBuildCaptionBadTimezoneFallsBackToUTC(t *testing.T) {
	t.Parallel()
	got := BuildCaption(&frigate.Event{StartTime: 1_700_000_000}, CaptionOptions{Timezone: "Not/AZone"})
	if !strings.Contains(got, "2023-11-14 22:13:20 UTC") {
		t.Fatalf("expected UTC fallback timestamp:\n%s", got)
	}
}
