package notify

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"frigatebot/internal/frigate"
)

// CaptionOptions are the static knobs of caption rendering.
type CaptionOptions struct {
	// Timezone is an IANA name for rendering timestamps. When it fails to
	// resolve, timestamps fall back to UTC with an explicit "UTC" suffix.
	Timezone string
	// ExternalURL, when set, adds a public deep link to the event.
	ExternalURL string
}

// BuildCaption renders the HTML caption for one event. Deterministic given
// an event: every interpolated field is escaped for Telegram's HTML mode.
func BuildCaption(ev *frigate.Event, opts CaptionOptions) string {
	camera := ev.Camera
	if camera == "" {
		camera = "unknown"
	}
	label := ev.Label
	if label == "" {
		label = "object"
	}

	score := "N/A"
	if ev.TopScore != nil && *ev.TopScore != 0 {
		score = percent(*ev.TopScore)
	}
	zones := "N/A"
	if len(ev.Zones) > 0 {
		zones = strings.Join(ev.Zones, ", ")
	}

	lines := []string{
		"🚨 <b>Detection Alert</b>",
		"",
		"📷 <b>Camera:</b> " + html.EscapeString(camera),
		fmt.Sprintf("🏷️ <b>Label:</b> %s (%s)", html.EscapeString(label), score),
		"📍 <b>Zone(s):</b> " + html.EscapeString(zones),
	}

	if !ev.SubLabel.IsZero() {
		line := "👤 <b>Recognized:</b> " + html.EscapeString(ev.SubLabel.Name)
		if ev.SubLabel.Score != nil {
			line += fmt.Sprintf(" (%s)", percent(*ev.SubLabel.Score))
		}
		lines = append(lines, line)
	}

	lines = append(lines, "📅 <b>Time:</b> "+formatEpoch(ev.StartTime, opts.Timezone))
	if ev.Ended() {
		lines = append(lines, "🕑 <b>End:</b> "+formatEpoch(*ev.EndTime, opts.Timezone))
	}
	lines = append(lines, "")

	if opts.ExternalURL != "" && ev.ID != "" {
		eventURL := opts.ExternalURL + "/events/" + url.PathEscape(ev.ID)
		lines = append(lines, fmt.Sprintf("🔗 <a href=\"%s\">View Event</a>", html.EscapeString(eventURL)))
	}

	return strings.Join(lines, "\n")
}

func percent(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}

func formatEpoch(epoch float64, timezone string) string {
	if epoch == 0 {
		return "N/A"
	}
	t := time.Unix(int64(epoch), 0)
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		return t.UTC().Format("2006-01-02 15:04:05") + " UTC"
	}
	return t.In(loc).Format("2006-01-02 15:04:05 MST")
}
