package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Load reads, strictly decodes, and validates the config file.
// Both YAML (.yaml/.yml) and JSON are accepted.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jb, format, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s config: %w", format, err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, errors.New("invalid config: trailing data")
		}
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.Frigate.BaseURL = strings.TrimRight(strings.TrimSpace(c.Frigate.BaseURL), "/")
	c.Frigate.ExternalURL = strings.TrimRight(strings.TrimSpace(c.Frigate.ExternalURL), "/")
	if c.Telegram.RatePerSec <= 0 {
		c.Telegram.RatePerSec = 1
	}
	if c.Media.Retries <= 0 {
		c.Media.Retries = 3
	}
	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = "file"
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = "./frigatebot_state.json"
	}
	if strings.TrimSpace(c.Notify.Timezone) == "" {
		c.Notify.Timezone = "UTC"
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	var missing []string
	if c.Frigate.BaseURL == "" {
		missing = append(missing, "frigate.base_url")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		missing = append(missing, "telegram.token")
	}
	if c.Telegram.ChatID == 0 {
		missing = append(missing, "telegram.chat_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	// Durations must parse if present; defaults apply when empty.
	for _, d := range []struct{ name, raw string }{
		{"frigate.timeout", c.Frigate.Timeout},
		{"telegram.upload_timeout", c.Telegram.UploadTimeout},
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"poll.interval", c.Poll.Interval},
		{"poll.backoff_step", c.Poll.BackoffStep},
		{"poll.backoff_max", c.Poll.BackoffMax},
		{"notify.settle_delay", c.Notify.SettleDelay},
		{"media.retry_delay", c.Media.RetryDelay},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
	} {
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		if _, err := time.ParseDuration(d.raw); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

// ParseDuration parses a Go duration string, falling back to def when the
// string is empty or invalid. Validate() already rejects invalid values in
// loaded configs, so the fallback mostly covers zero values in tests.
func ParseDuration(s string, def time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
