package config

type Config struct {
	Frigate  FrigateConfig  `json:"frigate"`
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	// Monitor is the camera/zone allow-list spec, e.g. "porch:drive,walkway;garage:all".
	// Empty means monitor every camera and every zone.
	Monitor string `json:"monitor,omitempty"`

	Poll    PollConfig    `json:"poll"`
	Notify  NotifyConfig  `json:"notify"`
	Media   MediaConfig   `json:"media"`
	Storage StorageConfig `json:"storage"`
}

// FrigateConfig points at the detection API.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type FrigateConfig struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// Timeout bounds every single API request. Default "15s".
	Timeout string `json:"timeout,omitempty"`

	// ExternalURL, when set, adds a public deep link per event to captions
	// (e.g. a Cloudflare Tunnel in front of the detection UI).
	ExternalURL string `json:"external_url,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`

	// UploadTimeout bounds media uploads (tunnel-safe). Default "60s".
	UploadTimeout string `json:"upload_timeout,omitempty"`
	// PollTimeout is the long-poll timeout for incoming updates. Default "10s".
	PollTimeout string `json:"poll_timeout,omitempty"`
	// RatePerSec caps outbound sends. Default 1.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type PollConfig struct {
	// Interval is the base poll interval. Default "60s".
	Interval string `json:"interval,omitempty"`
	// BackoffStep is added to the interval per consecutive network failure. Default "60s".
	BackoffStep string `json:"backoff_step,omitempty"`
	// BackoffMax caps the grown interval. Default "300s".
	BackoffMax string `json:"backoff_max,omitempty"`
}

type NotifyConfig struct {
	// SettleDelay is how long to wait before fetching event media, giving the
	// detection API time to render previews. Default "5s".
	SettleDelay string `json:"settle_delay,omitempty"`
	// HDClip switches the primary representation to the rendered clip.mp4.
	HDClip bool `json:"hd_clip,omitempty"`
	// Timezone is an IANA name used for caption timestamps. Default "UTC".
	Timezone string `json:"timezone,omitempty"`
}

type MediaConfig struct {
	// Retries is the fixed per-fetch attempt budget. Default 3.
	Retries int `json:"retries,omitempty"`
	// RetryDelay is the fixed inter-attempt pause. Default "2s".
	RetryDelay string `json:"retry_delay,omitempty"`
}

// StorageConfig controls where the enabled/disabled flag persists.
//
// Driver is "file" (default) or "sqlite".
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}
