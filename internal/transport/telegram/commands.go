package telegram

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"frigatebot/internal/frigate"
	"frigatebot/internal/state"
	"frigatebot/internal/transport"
	"frigatebot/pkg/logx"
)

// commandTimeout bounds one command end to end. Manual recordings wait for
// the recording window itself, so this is generous.
const commandTimeout = 3 * time.Minute

const defaultRecordSeconds = 15

// CameraAPI is what the command surface needs from the detection API.
type CameraAPI interface {
	Version(ctx context.Context) (string, error)
	Cameras(ctx context.Context) []string
	RecentClipEvents(ctx context.Context, camera string, limit int) ([]frigate.Event, error)
	CreateEvent(ctx context.Context, camera, label string, durationSec int) (string, error)
}

// SnapshotFetcher fetches a camera's live snapshot (media.Fetcher).
type SnapshotFetcher interface {
	Fetch(ctx context.Context, path, label, expectedContentType string) []byte
}

// ClipSource acquires a video clip for a camera (media.Chain).
type ClipSource interface {
	Video(ctx context.Context, camera, eventID string, target time.Duration) []byte
}

// StatusInfo is the static configuration echoed by /status.
type StatusInfo struct {
	BaseURL      string
	PollInterval time.Duration
	Cameras      []string // monitored cameras; empty means all
	HDClip       bool
	Timezone     string
}

// Router wires the bot command vocabulary: notification toggling, status,
// and on-demand snapshots/clips. Every command is gated by the single
// authorized-chat check.
type Router struct {
	adapter *Adapter
	store   state.Store
	api     CameraAPI
	snaps   SnapshotFetcher
	clips   ClipSource
	status  StatusInfo
	log     logx.Logger

	ctx context.Context
}

func NewRouter(adapter *Adapter, store state.Store, api CameraAPI, snaps SnapshotFetcher, clips ClipSource, status StatusInfo, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{adapter: adapter, store: store, api: api, snaps: snaps, clips: clips, status: status, log: log}
}

// Register installs middleware and handlers on the adapter's bot. ctx is the
// application lifetime; per-command contexts derive from it.
func (r *Router) Register(ctx context.Context) {
	r.ctx = ctx
	b := r.adapter.Bot()

	b.Use(r.authorizedOnly)

	b.Handle("/start", r.cmdStart)
	b.Handle("/help", r.cmdHelp)
	b.Handle("/enable", r.cmdEnable)
	b.Handle("/disable", r.cmdDisable)
	b.Handle("/status", r.cmdStatus)
	b.Handle("/cameras", r.cmdCameras)
	b.Handle("/photo", r.cmdPhoto)
	b.Handle("/photo_all", r.cmdPhotoAll)
	b.Handle("/clip", r.cmdClip)
	b.Handle("/video", r.cmdVideo)
	b.Handle("/video_all", r.cmdVideoAll)

	_ = b.SetCommands([]tele.Command{
		{Text: "enable", Description: "Turn on alerts"},
		{Text: "disable", Description: "Turn off alerts"},
		{Text: "status", Description: "Bot status and configuration"},
		{Text: "cameras", Description: "List registered cameras"},
		{Text: "photo", Description: "Snapshot of one camera"},
		{Text: "clip", Description: "Last stored clip of one camera"},
		{Text: "video", Description: "Record a fresh clip of one camera"},
		{Text: "help", Description: "Show available commands"},
	})
}

func (r *Router) authorizedOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil || chat.ID != r.adapter.cfg.ChatID {
			var id int64
			if chat != nil {
				id = chat.ID
			}
			r.log.Warn("unauthorized command attempt", logx.Int64("chat_id", id))
			return nil
		}
		return next(c)
	}
}

func (r *Router) commandCtx() (context.Context, context.CancelFunc) {
	base := r.ctx
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, commandTimeout)
}

func (r *Router) reply(c tele.Context, text string) error {
	return c.Send(text, htmlOpts)
}

// ---- handlers ----

func (r *Router) cmdStart(c tele.Context) error {
	return r.reply(c, "👋 <b>Welcome!</b>\n\nI send rich notifications for camera detection events.\n\nUse /help to see available commands.")
}

func (r *Router) cmdHelp(c tele.Context) error {
	lines := []string{
		"<b>Commands</b>",
		"",
		"🔔 <b>Notifications</b>",
		"/enable - Turn on alerts",
		"/disable - Turn off alerts",
		"",
		"🎥 <b>Cameras</b>",
		"/cameras - List registered cameras",
		"/photo &lt;camera&gt; - Live snapshot",
		"/photo_all - Snapshots of every camera",
		"/clip &lt;camera&gt; - Last stored clip",
		"/video &lt;camera&gt; [seconds] - Record a fresh clip",
		"/video_all - Fresh clips of every camera",
		"",
		"📊 <b>Information</b>",
		"/status - Bot status and configuration",
		"/help - This message",
	}
	return r.reply(c, strings.Join(lines, "\n"))
}

func (r *Router) cmdEnable(c tele.Context) error {
	ctx, cancel := r.commandCtx()
	defer cancel()
	if err := r.store.SetEnabled(ctx, true); err != nil {
		r.log.Error("enable failed", logx.Err(err))
		return r.reply(c, "⚠️ Could not persist the setting.")
	}
	r.log.Info("notifications enabled via command")
	return r.reply(c, "✅ Notifications enabled.")
}

func (r *Router) cmdDisable(c tele.Context) error {
	ctx, cancel := r.commandCtx()
	defer cancel()
	if err := r.store.SetEnabled(ctx, false); err != nil {
		r.log.Error("disable failed", logx.Err(err))
		return r.reply(c, "⚠️ Could not persist the setting.")
	}
	r.log.Info("notifications disabled via command")
	return r.reply(c, "🔕 Notifications disabled.")
}

func (r *Router) cmdStatus(c tele.Context) error {
	ctx, cancel := r.commandCtx()
	defer cancel()

	enabled, _ := r.store.Enabled(ctx)
	flag := "🔕 Disabled"
	if enabled {
		flag = "🔔 Enabled"
	}

	api := "❌ unreachable"
	if v, err := r.api.Version(ctx); err == nil {
		api = "✅ up (" + html.EscapeString(v) + ")"
	}

	cams := "All Cameras"
	if len(r.status.Cameras) > 0 {
		cams = strings.Join(r.status.Cameras, ", ")
	}

	lines := []string{
		"📊 <b>Bot Status</b>",
		"",
		"<b>Notifications:</b> " + flag,
		fmt.Sprintf("<b>Polling Interval:</b> ⏱ %s", r.status.PollInterval),
		"<b>Monitored Cameras:</b> 🎥 " + html.EscapeString(cams),
		"<b>Detection API:</b> " + api,
		"",
		"🛠 <b>Configuration</b>",
		"<b>API URL:</b> 🔗 " + html.EscapeString(r.status.BaseURL),
		fmt.Sprintf("<b>HD Clips:</b> %v", r.status.HDClip),
		"<b>Timezone:</b> " + html.EscapeString(r.status.Timezone),
	}
	return r.reply(c, strings.Join(lines, "\n"))
}

func (r *Router) cmdCameras(c tele.Context) error {
	ctx, cancel := r.commandCtx()
	defer cancel()

	cameras := r.api.Cameras(ctx)
	if len(cameras) == 0 {
		return r.reply(c, "Could not retrieve the camera list.")
	}
	lines := []string{"<b>Registered Cameras:</b>", ""}
	for _, cam := range cameras {
		lines = append(lines, "• <code>"+html.EscapeString(cam)+"</code>")
	}
	return r.reply(c, strings.Join(lines, "\n"))
}

func (r *Router) cmdPhoto(c tele.Context) error {
	camera := strings.TrimSpace(c.Message().Payload)
	if camera == "" {
		return r.reply(c, "Usage: /photo &lt;camera&gt;")
	}
	ctx, cancel := r.commandCtx()
	defer cancel()
	return r.sendSnapshot(ctx, camera)
}

func (r *Router) cmdPhotoAll(c tele.Context) error {
	ctx, cancel := r.commandCtx()
	defer cancel()

	cameras := r.api.Cameras(ctx)
	if len(cameras) == 0 {
		return r.reply(c, "Could not retrieve the camera list.")
	}
	for _, cam := range cameras {
		if ctx.Err() != nil {
			return nil
		}
		_ = r.sendSnapshot(ctx, cam)
	}
	return nil
}

func (r *Router) sendSnapshot(ctx context.Context, camera string) error {
	data := r.snaps.Fetch(ctx, snapshotPath(camera), "latest.jpg for "+camera, "image/jpeg")
	if data == nil {
		return r.sendText(ctx, "❌ Could not fetch snapshot for camera: "+html.EscapeString(camera))
	}
	return r.adapter.SendPhoto(ctx, r.adapter.Home(),
		mediaJPEG(data, camera+".jpg"), "📷 Snapshot: "+html.EscapeString(camera))
}

func (r *Router) cmdClip(c tele.Context) error {
	camera := strings.TrimSpace(c.Message().Payload)
	if camera == "" {
		return r.reply(c, "Usage: /clip &lt;camera&gt;")
	}
	ctx, cancel := r.commandCtx()
	defer cancel()

	events, err := r.api.RecentClipEvents(ctx, camera, 1)
	if err != nil || len(events) == 0 {
		return r.reply(c, "❌ No stored clip found for camera: "+html.EscapeString(camera))
	}
	data := r.clips.Video(ctx, camera, events[0].ID, 30*time.Second)
	if data == nil {
		return r.reply(c, "❌ Could not fetch clip for camera: "+html.EscapeString(camera))
	}
	return r.adapter.SendVideo(ctx, r.adapter.Home(),
		mediaMP4(data, camera+".mp4"), nil, "🎬 Clip: "+html.EscapeString(camera))
}

func (r *Router) cmdVideo(c tele.Context) error {
	camera, seconds := parseVideoArgs(c.Message().Payload)
	if camera == "" {
		return r.reply(c, "Usage: /video &lt;camera&gt; [seconds]")
	}
	ctx, cancel := r.commandCtx()
	defer cancel()

	_ = r.reply(c, fmt.Sprintf("🎬 Recording %ds clip for <code>%s</code>...", seconds, html.EscapeString(camera)))
	return r.recordAndSend(ctx, camera, seconds)
}

func (r *Router) cmdVideoAll(c tele.Context) error {
	ctx, cancel := r.commandCtx()
	defer cancel()

	cameras := r.api.Cameras(ctx)
	if len(cameras) == 0 {
		return r.reply(c, "Could not retrieve the camera list.")
	}
	_ = r.reply(c, fmt.Sprintf("🎬 Recording %ds clips for %d cameras...", defaultRecordSeconds, len(cameras)))
	for _, cam := range cameras {
		if ctx.Err() != nil {
			return nil
		}
		_ = r.recordAndSend(ctx, cam, defaultRecordSeconds)
	}
	return nil
}

// recordAndSend forces a manual event with a recording, waits out the
// recording window plus a small buffer, then pulls the clip through the
// fallback chain.
func (r *Router) recordAndSend(ctx context.Context, camera string, seconds int) error {
	eventID, err := r.api.CreateEvent(ctx, camera, "manual", seconds)
	if err != nil {
		r.log.Error("manual event create failed", logx.String("camera", camera), logx.Err(err))
		return r.sendText(ctx, "❌ Could not start a recording for camera: "+html.EscapeString(camera))
	}

	if !waitCtx(ctx, time.Duration(seconds)*time.Second+2*time.Second) {
		return nil
	}

	data := r.clips.Video(ctx, camera, eventID, time.Duration(seconds)*time.Second)
	if data == nil {
		return r.sendText(ctx, "❌ Could not fetch video clip for camera: "+html.EscapeString(camera))
	}
	return r.adapter.SendVideo(ctx, r.adapter.Home(),
		mediaMP4(data, camera+".mp4"), nil, "🎬 Clip: "+html.EscapeString(camera))
}

func (r *Router) sendText(ctx context.Context, text string) error {
	return r.adapter.SendText(ctx, r.adapter.Home(), text)
}

func parseVideoArgs(payload string) (camera string, seconds int) {
	seconds = defaultRecordSeconds
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return "", seconds
	}
	// A trailing integer is the duration; everything before it is the camera
	// name (camera names may contain spaces).
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil && n > 0 {
			if n > 60 {
				n = 60
			}
			return strings.Join(fields[:len(fields)-1], " "), n
		}
	}
	return strings.Join(fields, " "), seconds
}

func snapshotPath(camera string) string {
	return url.PathEscape(camera) + "/latest.jpg?bbox=1"
}

func mediaJPEG(data []byte, name string) transport.Media {
	return transport.Media{Data: data, Filename: name, ContentType: "image/jpeg"}
}

func mediaMP4(data []byte, name string) transport.Media {
	return transport.Media{Data: data, Filename: name, ContentType: "video/mp4"}
}

func waitCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
